package session

import (
	"fmt"
	"math"
	"time"
)

// Progress configures the cosmetic progress simulator. It is a perceived
// latency indicator and never reflects real completion.
type Progress struct {
	Interval time.Duration // tick period
	Step     int           // increment per tick
	Ceiling  int           // maximum displayed value
}

// DefaultProgress ticks +10 every second up to 100
func DefaultProgress() Progress {
	return Progress{
		Interval: time.Second,
		Step:     10,
		Ceiling:  100,
	}
}

// normalized fills zero fields with defaults
func (p Progress) normalized() Progress {
	d := DefaultProgress()
	if p.Interval <= 0 {
		p.Interval = d.Interval
	}
	if p.Step <= 0 {
		p.Step = d.Step
	}
	if p.Ceiling <= 0 {
		p.Ceiling = d.Ceiling
	}
	return p
}

// Next returns the value after one tick, clamped to the ceiling
func (p Progress) Next(v int) int {
	p = p.normalized()
	return min(v+p.Step, p.Ceiling)
}

// Fraction returns v as a 0..1 ratio of the ceiling
func (p Progress) Fraction(v int) float64 {
	p = p.normalized()
	return math.Max(0, math.Min(1, float64(v)/float64(p.Ceiling)))
}

// ETA estimates the remaining time until the displayed value reaches the ceiling
func (p Progress) ETA(v int) time.Duration {
	p = p.normalized()
	remaining := max(p.Ceiling-v, 0)
	return time.Duration(float64(remaining) / float64(p.Step) * float64(p.Interval))
}

// Label renders the status line shown under the progress bar
func (p Progress) Label(v int) string {
	p = p.normalized()
	if v >= p.Ceiling {
		return "Completed"
	}
	return fmt.Sprintf("Processing... ETA: %d seconds", int(math.Round(p.ETA(v).Seconds())))
}
