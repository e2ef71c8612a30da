package analytics

import (
	"errors"
	"time"
)

var (
	// ErrNoWindow is returned when the observation window for a subject is undetermined
	ErrNoWindow = errors.New("observation window undetermined")

	// ErrInvalidResult wraps invariant violations found in an analytics result
	ErrInvalidResult = errors.New("invalid analytics result")
)

// Subject is a tracked athlete
type Subject struct {
	ID          string // Opaque identifier, identity of the subject
	DisplayName string // Player name
	GroupName   string // Team name
}

// ObservationWindow is the inclusive span for which sensor data exists
type ObservationWindow struct {
	Earliest time.Time
	Latest   time.Time
}

// Valid reports whether Earliest <= Latest
func (w ObservationWindow) Valid() bool {
	return !w.Earliest.After(w.Latest)
}

// Clamp moves t into [Earliest, Latest]
func (w ObservationWindow) Clamp(t time.Time) time.Time {
	if t.Before(w.Earliest) {
		return w.Earliest
	}
	if t.After(w.Latest) {
		return w.Latest
	}
	return t
}

// Contains reports whether t lies inside the window (inclusive)
func (w ObservationWindow) Contains(t time.Time) bool {
	return !t.Before(w.Earliest) && !t.After(w.Latest)
}

// AnalysisRequest is a bounded-window analytics query
type AnalysisRequest struct {
	SubjectID string
	Start     time.Time
	End       time.Time
}

// StartMicros returns the start bound as wire microseconds
func (r AnalysisRequest) StartMicros() int64 { return TimeToMicros(r.Start) }

// EndMicros returns the end bound as wire microseconds
func (r AnalysisRequest) EndMicros() int64 { return TimeToMicros(r.End) }

// Sample is one (timestamp, value) point of a continuous series
type Sample struct {
	Micros int64
	Value  float64
}

// Time returns the wall-clock time of the sample
func (s Sample) Time() time.Time { return MicrosToTime(s.Micros) }

// Event is a discrete detection (step or jump)
type Event struct {
	Micros    int64
	Magnitude float64
}

// Time returns the wall-clock time of the event
func (e Event) Time() time.Time { return MicrosToTime(e.Micros) }

// SpeedSeries holds instantaneous speed samples plus summary scalars
type SpeedSeries struct {
	Samples []Sample
	Average float64
	Max     float64
}

// EventSeries holds detected events and their reported count
type EventSeries struct {
	Count  int
	Events []Event
}

// SampleSeries holds a plain continuous series
type SampleSeries struct {
	Samples []Sample
}

// AnalyticsResult is the immutable snapshot returned by the analytics service
type AnalyticsResult struct {
	Speed        SpeedSeries
	Steps        EventSeries
	Jumps        EventSeries
	Acceleration SampleSeries // acceleration magnitude
}
