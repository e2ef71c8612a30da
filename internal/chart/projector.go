package chart

import (
	"time"

	"playerdash/internal/analytics"
)

// Series is the chart-ready projection of an analytics result. X, Acceleration
// and Speed always have the same length.
type Series struct {
	X            []time.Time
	Acceleration []float64
	Speed        []float64

	// Mismatch is set when the service returned speed and acceleration arrays
	// of different lengths; the longer one was truncated.
	Mismatch bool
}

// Len returns the number of aligned points
func (s Series) Len() int {
	return len(s.X)
}

// Project aligns the acceleration magnitude and instantaneous speed samples on
// the acceleration time axis, index for index.
func Project(r analytics.AnalyticsResult) Series {
	acc := r.Acceleration.Samples
	spd := r.Speed.Samples
	n := min(len(acc), len(spd))

	s := Series{
		X:            make([]time.Time, n),
		Acceleration: make([]float64, n),
		Speed:        make([]float64, n),
		Mismatch:     len(acc) != len(spd),
	}
	for i := range n {
		s.X[i] = acc[i].Time()
		s.Acceleration[i] = acc[i].Value
		s.Speed[i] = spd[i].Value
	}
	return s
}
