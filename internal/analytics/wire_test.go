package analytics

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWirePlayerDecode(t *testing.T) {
	data := `[
		{"player_id": "p1", "name": "Alice", "teamName": "Red"},
		{"player_id": 42, "name": "Bob", "teamName": "Blue"}
	]`

	var players []WirePlayer
	require.NoError(t, json.Unmarshal([]byte(data), &players))
	require.Len(t, players, 2)

	assert.Equal(t, Subject{ID: "p1", DisplayName: "Alice", GroupName: "Red"}, players[0].Subject())
	assert.Equal(t, "42", players[1].Subject().ID)
}

func TestFlexIDRejectsObjects(t *testing.T) {
	var id FlexID
	assert.Error(t, json.Unmarshal([]byte(`{"x":1}`), &id))
}

func TestWireTimeRangeWindow(t *testing.T) {
	w, err := WireTimeRange{StartTime: 1_000_000, EndTime: 2_000_000}.Window()
	require.NoError(t, err)
	assert.Equal(t, "1970-01-01T00:00:01.000Z", w.Earliest.UTC().Format("2006-01-02T15:04:05.000Z"))
	assert.Equal(t, "1970-01-01T00:00:02.000Z", w.Latest.UTC().Format("2006-01-02T15:04:05.000Z"))

	_, err = WireTimeRange{StartTime: 3_000_000, EndTime: 2_000_000}.Window()
	assert.ErrorIs(t, err, ErrNoWindow)
}

func TestWireResultDecode(t *testing.T) {
	data := `{
		"speeds": {"data": [0, 1.5, 2.5], "timestamps": [2000, 3000], "average": 1.33, "max": 2.5},
		"steps": {"count": 2, "timestamps": [1000, 3000], "magnitudes": [2.2, 3.1]},
		"jumps": {"count": 0, "timestamps": [], "magnitudes": []},
		"acceleration_magnitude": {"data": [0.1, 0.2, 0.3], "timestamps": [1000, 2000, 3000]}
	}`

	var wire WireResult
	require.NoError(t, json.Unmarshal([]byte(data), &wire))
	res := wire.Result()

	require.Len(t, res.Speed.Samples, 3)
	// speed timestamps were one short, so they fall back to the acceleration axis
	assert.Equal(t, int64(1000), res.Speed.Samples[0].Micros)
	assert.Equal(t, 2.5, res.Speed.Samples[2].Value)
	assert.Equal(t, 2.5, res.Speed.Max)

	require.Len(t, res.Steps.Events, 2)
	assert.Equal(t, Event{Micros: 3000, Magnitude: 3.1}, res.Steps.Events[1])
	assert.Empty(t, res.Jumps.Events)
	assert.Len(t, res.Acceleration.Samples, 3)

	assert.NoError(t, res.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		result  AnalyticsResult
		wantErr bool
	}{
		{
			name:   "empty result",
			result: AnalyticsResult{},
		},
		{
			name: "count mismatch",
			result: AnalyticsResult{
				Steps: EventSeries{Count: 3},
			},
			wantErr: true,
		},
		{
			name: "sample above max",
			result: AnalyticsResult{
				Speed: SpeedSeries{Samples: []Sample{{Micros: 1, Value: 9}}, Max: 5},
			},
			wantErr: true,
		},
		{
			name: "decreasing acceleration timestamps",
			result: AnalyticsResult{
				Acceleration: SampleSeries{Samples: []Sample{{Micros: 5}, {Micros: 4}}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidResult)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
