package rundown

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalEntryCarriesType(t *testing.T) {
	tests := []struct {
		entry Entry
		want  EntryType
	}{
		{&Event{ID: "e"}, TypeEvent},
		{&Group{ID: "g"}, TypeGroup},
		{&Delay{ID: "d", Duration: -60_000}, TypeDelay},
		{&Milestone{ID: "m"}, TypeMilestone},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			data, err := MarshalEntry(tt.entry)
			require.NoError(t, err)

			var fields map[string]any
			require.NoError(t, json.Unmarshal(data, &fields))
			assert.Equal(t, string(tt.want), fields["type"])

			back, err := UnmarshalEntry(data)
			require.NoError(t, err)
			assert.Equal(t, tt.entry, back)
		})
	}
}

func TestUnmarshalEntryErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"missing type", `{"id":"x"}`, "missing type"},
		{"unknown type", `{"id":"x","type":"segment"}`, `unknown type "segment"`},
		{"bad field", `{"id":"x","type":"event","timeStart":"ten"}`, "unmarshal event entry"},
		{"not json", `{`, "unmarshal entry"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalEntry([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRundownJSON(t *testing.T) {
	r := sample()
	r.Revision = 3
	start, end := int64(600_000), int64(1_200_000)
	r.Group("g1").TimeStart, r.Group("g1").TimeEnd = &start, &end

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back Rundown
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
	require.NoError(t, back.Verify())
}

func TestRundownJSONNilSlices(t *testing.T) {
	data, err := json.Marshal(Rundown{ID: "bare"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"order":[]`)
	assert.Contains(t, string(data), `"flatOrder":[]`)

	var back Rundown
	require.NoError(t, json.Unmarshal([]byte(`{"id":"bare"}`), &back))
	assert.NotNil(t, back.Order)
	assert.NotNil(t, back.FlatOrder)
}

func TestRundownUnmarshalIsStrict(t *testing.T) {
	var r Rundown
	err := json.Unmarshal([]byte(`{"id":"r","entries":{"x":{"id":"x","type":"segment"}}}`), &r)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `entry "x"`)
}
