package rundown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int64
	}{
		{"hours and minutes", "10:30", 37_800_000},
		{"with seconds", "10:30:15", 37_815_000},
		{"with millis", "00:00:01.5", 1_500},
		{"three digit millis", "00:00:01.250", 1_250},
		{"midnight", "00:00", 0},
		{"end of day", "24:00:00", DayMs},
		{"bare millis", "90000", 90_000},
		{"bare small millis", "10", 10},
		{"surrounding space", "  08:00 ", 28_800_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseClock(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseClockRejects(t *testing.T) {
	for _, input := range []string{
		"",
		"ten:00",
		"10:60",
		"10:00:60",
		"10:00:00.1234",
		"10:00:00.",
		"1:2:3:4",
		"-01:00",
		"24:00:01",
		"31:00:00",
		"-5",
		"86400001",
	} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseClock(input)
			assert.Error(t, err)
		})
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00"},
		{37_815_000, "10:30:15"},
		{37_815_999, "10:30:15"},
		{DayMs, "00:00:00"},
		{DayMs + 60_000, "00:01:00"},
		{-90_000, "-00:01:30"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatClock(tt.ms))
		})
	}
}

func TestFormatParseClockRoundTrip(t *testing.T) {
	for _, ms := range []int64{0, 1000, 3_599_000, 45_296_000, DayMs - 1000} {
		got, err := ParseClock(FormatClock(ms))
		require.NoError(t, err)
		assert.Equal(t, ms, got)
	}
}

func TestParseSpan(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"90s", 90_000},
		{"-2m", -120_000},
		{"1h30m", 5_400_000},
		{"1500", 1_500},
		{"-250", -250},
		{"0", 0},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseSpan(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseSpan("soon")
	assert.Error(t, err)
}

func TestWrapDiff(t *testing.T) {
	tests := []struct {
		name string
		a, b int64
		want int64
	}{
		{"same day ahead", 11 * 3_600_000, 10 * 3_600_000, 3_600_000},
		{"same day behind", 10 * 3_600_000, 11 * 3_600_000, -3_600_000},
		{"across midnight forward", 1000, DayMs - 1000, 2000},
		{"across midnight backward", DayMs - 1000, 1000, -2000},
		{"half day", DayMs / 2, 0, DayMs / 2},
		{"zero", 5, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WrapDiff(tt.a, tt.b))
		})
	}
}
