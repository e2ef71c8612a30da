package analytics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// FlexID decodes an identifier that the service may send as a JSON string or number
type FlexID string

// UnmarshalJSON implements json.Unmarshaler
func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("player id: %w", err)
	}
	*id = FlexID(n.String())
	return nil
}

// WirePlayer is one element of GET /api/players
type WirePlayer struct {
	PlayerID FlexID `json:"player_id"`
	Name     string `json:"name"`
	TeamName string `json:"teamName"`
}

// Subject converts the wire record to a domain Subject
func (p WirePlayer) Subject() Subject {
	return Subject{
		ID:          string(p.PlayerID),
		DisplayName: p.Name,
		GroupName:   p.TeamName,
	}
}

// WireTimeRange is one element of GET /api/player-time-range
type WireTimeRange struct {
	PlayerID  FlexID `json:"player_id,omitempty"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
}

// Window converts the wire record to an ObservationWindow
func (r WireTimeRange) Window() (ObservationWindow, error) {
	w := ObservationWindow{
		Earliest: MicrosToTime(r.StartTime),
		Latest:   MicrosToTime(r.EndTime),
	}
	if !w.Valid() {
		return ObservationWindow{}, fmt.Errorf("%w: start %d after end %d", ErrNoWindow, r.StartTime, r.EndTime)
	}
	return w, nil
}

// WireSeries is a {data, timestamps} pair
type WireSeries struct {
	Data       []float64 `json:"data"`
	Timestamps []int64   `json:"timestamps"`
}

// WireSpeeds is the speeds block of the analytics response
type WireSpeeds struct {
	WireSeries
	Average float64 `json:"average"`
	Max     float64 `json:"max"`
}

// WireEvents is the steps/jumps block of the analytics response
type WireEvents struct {
	Count      int       `json:"count"`
	Timestamps []int64   `json:"timestamps"`
	Magnitudes []float64 `json:"magnitudes"`
}

// WireResult is the body of GET /api/player-analytics
type WireResult struct {
	Speeds                WireSpeeds `json:"speeds"`
	Steps                 WireEvents `json:"steps"`
	Jumps                 WireEvents `json:"jumps"`
	AccelerationMagnitude WireSeries `json:"acceleration_magnitude"`
}

// Result zips the parallel wire arrays into an AnalyticsResult.
//
// Speed samples use speeds.timestamps when it matches speeds.data in length,
// otherwise the acceleration timestamps (the service emits one timestamp
// fewer than speed values because the first speed is a synthetic zero).
func (w WireResult) Result() AnalyticsResult {
	speedTS := w.Speeds.Timestamps
	if len(speedTS) != len(w.Speeds.Data) && len(w.AccelerationMagnitude.Timestamps) == len(w.Speeds.Data) {
		speedTS = w.AccelerationMagnitude.Timestamps
	}

	return AnalyticsResult{
		Speed: SpeedSeries{
			Samples: zipSamples(speedTS, w.Speeds.Data),
			Average: w.Speeds.Average,
			Max:     w.Speeds.Max,
		},
		Steps: EventSeries{
			Count:  w.Steps.Count,
			Events: zipEvents(w.Steps.Timestamps, w.Steps.Magnitudes),
		},
		Jumps: EventSeries{
			Count:  w.Jumps.Count,
			Events: zipEvents(w.Jumps.Timestamps, w.Jumps.Magnitudes),
		},
		Acceleration: SampleSeries{
			Samples: zipSamples(w.AccelerationMagnitude.Timestamps, w.AccelerationMagnitude.Data),
		},
	}
}

func zipSamples(ts []int64, values []float64) []Sample {
	n := min(len(ts), len(values))
	out := make([]Sample, n)
	for i := range n {
		out[i] = Sample{Micros: ts[i], Value: values[i]}
	}
	return out
}

func zipEvents(ts []int64, mags []float64) []Event {
	n := min(len(ts), len(mags))
	out := make([]Event, n)
	for i := range n {
		out[i] = Event{Micros: ts[i], Magnitude: mags[i]}
	}
	return out
}

// Validate checks the result invariants: non-decreasing timestamps in every
// series, max speed >= every sample and count == len(events).
func (r AnalyticsResult) Validate() error {
	var errs []error

	if i := firstDecreasingSample(r.Speed.Samples); i >= 0 {
		errs = append(errs, fmt.Errorf("speed timestamps decrease at index %d", i))
	}
	if i := firstDecreasingSample(r.Acceleration.Samples); i >= 0 {
		errs = append(errs, fmt.Errorf("acceleration timestamps decrease at index %d", i))
	}
	for _, s := range r.Speed.Samples {
		if s.Value > r.Speed.Max {
			errs = append(errs, fmt.Errorf("speed sample %.3f at %s exceeds max %.3f",
				s.Value, s.Time().UTC().Format(time.RFC3339Nano), r.Speed.Max))
			break
		}
	}
	for _, named := range []struct {
		name string
		es   EventSeries
	}{{"steps", r.Steps}, {"jumps", r.Jumps}} {
		name, es := named.name, named.es
		if es.Count != len(es.Events) {
			errs = append(errs, fmt.Errorf("%s count %d != %d events", name, es.Count, len(es.Events)))
		}
		for i := 1; i < len(es.Events); i++ {
			if es.Events[i].Micros < es.Events[i-1].Micros {
				errs = append(errs, fmt.Errorf("%s timestamps decrease at index %d", name, i))
				break
			}
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidResult, errors.Join(errs...))
}

func firstDecreasingSample(samples []Sample) int {
	for i := 1; i < len(samples); i++ {
		if samples[i].Micros < samples[i-1].Micros {
			return i
		}
	}
	return -1
}
