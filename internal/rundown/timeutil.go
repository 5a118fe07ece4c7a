package rundown

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock converts "HH:MM", "HH:MM:SS" or "HH:MM:SS.mmm" into
// milliseconds from midnight. A bare integer is taken as milliseconds.
// "24:00:00" is accepted and yields DayMs.
func ParseClock(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty clock value")
	}
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		if ms < 0 || ms > DayMs {
			return 0, fmt.Errorf("clock value %d out of range", ms)
		}
		return ms, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock value %q", s)
	}
	hours, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid hours in %q", s)
	}
	minutes, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("invalid minutes in %q", s)
	}
	var millis int64
	if len(parts) == 3 {
		secPart, fracPart, hasFrac := strings.Cut(parts[2], ".")
		seconds, err := strconv.ParseInt(secPart, 10, 64)
		if err != nil || seconds < 0 || seconds > 59 {
			return 0, fmt.Errorf("invalid seconds in %q", s)
		}
		millis = seconds * 1000
		if hasFrac {
			if len(fracPart) == 0 || len(fracPart) > 3 {
				return 0, fmt.Errorf("invalid milliseconds in %q", s)
			}
			frac, err := strconv.ParseInt(fracPart+strings.Repeat("0", 3-len(fracPart)), 10, 64)
			if err != nil || frac < 0 {
				return 0, fmt.Errorf("invalid milliseconds in %q", s)
			}
			millis += frac
		}
	}
	total := hours*3_600_000 + minutes*60_000 + millis
	if hours < 0 || total > DayMs {
		return 0, fmt.Errorf("clock value %q out of range", s)
	}
	return total, nil
}

// FormatClock renders milliseconds as HH:MM:SS, wrapping past midnight.
// Negative values are rendered with a leading minus sign.
func FormatClock(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	ms %= DayMs
	h := ms / 3_600_000
	m := (ms % 3_600_000) / 60_000
	sec := (ms % 60_000) / 1000
	return fmt.Sprintf("%s%02d:%02d:%02d", sign, h, m, sec)
}

// ParseSpan converts a Go duration string ("90s", "-2m") or a bare integer of
// milliseconds into milliseconds.
func ParseSpan(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ms, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return d.Milliseconds(), nil
}

// WrapDiff returns a-b folded into (-DayMs/2, DayMs/2] so that comparisons
// across midnight pick the short way round.
func WrapDiff(a, b int64) int64 {
	d := (a - b) % DayMs
	if d > DayMs/2 {
		d -= DayMs
	} else if d <= -DayMs/2 {
		d += DayMs
	}
	return d
}
