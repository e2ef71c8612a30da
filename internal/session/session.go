package session

import (
	"errors"
	"time"

	"playerdash/internal/analytics"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrNoSubject is returned by Analyze before a subject is selected
	ErrNoSubject = errors.New("no subject selected")

	// ErrNoWindow is returned when bounds are used before the window resolved
	ErrNoWindow = errors.New("observation window not resolved")
)

// Phase is the lifecycle stage of an analysis session
type Phase int

const (
	Idle      Phase = iota // Nothing selected, or the window could not be resolved
	Resolving              // Waiting for the observation window
	Ready                  // Window set, bounds editable
	Analyzing              // Analytics fetch outstanding
	Loaded                 // Result available
	Failed                 // Last fetch failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Ready:
		return "ready"
	case Analyzing:
		return "analyzing"
	case Loaded:
		return "loaded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Generation identifies one resolve or analyze request. Completions carrying
// a generation other than the active one are stale and ignored.
type Generation uint64

// State is a read-only snapshot of the session
type State struct {
	Subject    analytics.Subject
	HasSubject bool

	Window    analytics.ObservationWindow
	HasWindow bool

	Start time.Time
	End   time.Time

	Result   *analytics.AnalyticsResult
	Phase    Phase
	Progress int

	// Err holds the last failure for logging and a generic status line; it is
	// not used to distinguish failure causes.
	Err error
}

// BoundsEditable reports whether start/end may be chosen
func (s State) BoundsEditable() bool {
	return s.HasWindow
}

// Session owns the analysis state. It is not safe for concurrent use: every
// mutation is expected to come from a single event loop.
type Session struct {
	state    State
	progress Progress

	last       Generation
	resolveGen Generation
	requestGen Generation
}

// New creates an idle session
func New(p Progress) Session {
	return Session{progress: p.normalized()}
}

// Progress returns the simulator settings
func (s *Session) Progress() Progress {
	return s.progress
}

// SetProgress replaces the simulator settings used by later ticks
func (s *Session) SetProgress(p Progress) {
	s.progress = p.normalized()
}

// State returns a snapshot of the current state
func (s *Session) State() State {
	return s.state
}

func (s *Session) nextGeneration() Generation {
	s.last++
	return s.last
}

// SelectSubject switches to sub. Any loaded result, window and bounds are
// cleared immediately and in-flight requests become stale.
func (s *Session) SelectSubject(sub analytics.Subject) Generation {
	s.resolveGen = s.nextGeneration()
	s.requestGen = 0

	s.state = State{
		Subject:    sub,
		HasSubject: true,
		Phase:      Resolving,
	}

	log.Debugf("session: subject %s selected, resolving window (gen %d)", sub.ID, s.resolveGen)
	return s.resolveGen
}

// ResolveWindow applies a resolved observation window and resets the bounds to
// cover it. Returns false when the completion is stale.
func (s *Session) ResolveWindow(gen Generation, w analytics.ObservationWindow) bool {
	if gen != s.resolveGen || s.state.Phase != Resolving {
		return false
	}
	if !w.Valid() {
		return s.FailResolve(gen)
	}

	s.state.Window = w
	s.state.HasWindow = true
	s.state.Start = w.Earliest
	s.state.End = w.Latest
	s.state.Result = nil
	s.state.Phase = Ready
	return true
}

// FailResolve records that the window is undetermined. Bounds stay disabled.
func (s *Session) FailResolve(gen Generation) bool {
	if gen != s.resolveGen || s.state.Phase != Resolving {
		return false
	}
	s.state.HasWindow = false
	s.state.Phase = Idle
	return true
}

// SetBounds clamps start and end into the observation window. If start ends
// up after end, end is pushed forward to start.
func (s *Session) SetBounds(start, end time.Time) error {
	if !s.state.HasWindow {
		return ErrNoWindow
	}

	w := s.state.Window
	start = w.Clamp(start)
	end = w.Clamp(end)
	if start.After(end) {
		end = start
	}

	s.state.Start = start
	s.state.End = end
	return nil
}

// Analyze begins a new analytics request, superseding any outstanding one.
// The previous result is discarded and progress restarts at zero.
func (s *Session) Analyze() (analytics.AnalysisRequest, Generation, error) {
	if !s.state.HasSubject {
		return analytics.AnalysisRequest{}, 0, ErrNoSubject
	}
	if !s.state.HasWindow {
		return analytics.AnalysisRequest{}, 0, ErrNoWindow
	}
	// bounds are clamped on every write, re-check in case the window changed
	if err := s.SetBounds(s.state.Start, s.state.End); err != nil {
		return analytics.AnalysisRequest{}, 0, err
	}

	s.requestGen = s.nextGeneration()
	s.state.Result = nil
	s.state.Err = nil
	s.state.Phase = Analyzing
	s.state.Progress = 0

	req := analytics.AnalysisRequest{
		SubjectID: s.state.Subject.ID,
		Start:     s.state.Start,
		End:       s.state.End,
	}
	log.Debugf("session: analyze %s [%d, %d] (gen %d)", req.SubjectID, req.StartMicros(), req.EndMicros(), s.requestGen)
	return req, s.requestGen, nil
}

// Tick advances the progress simulator. It is inert (returns false) unless gen
// is the active request and the session is still analyzing.
func (s *Session) Tick(gen Generation) bool {
	if gen == 0 || gen != s.requestGen || s.state.Phase != Analyzing {
		return false
	}
	s.state.Progress = s.progress.Next(s.state.Progress)
	return true
}

// Settle applies the outcome of the request identified by gen. A stale
// completion is dropped and false is returned.
func (s *Session) Settle(gen Generation, res analytics.AnalyticsResult, err error) bool {
	if gen == 0 || gen != s.requestGen || s.state.Phase != Analyzing {
		log.Debugf("session: dropping stale completion (gen %d, active %d)", gen, s.requestGen)
		return false
	}

	if err != nil {
		s.state.Phase = Failed
		s.state.Progress = 0
		s.state.Err = err
		log.Debugf("session: request %d failed: %s", gen, err)
		return true
	}

	s.state.Result = &res
	s.state.Phase = Loaded
	s.state.Progress = s.progress.Ceiling
	log.Debugf("session: request %d loaded", gen)
	return true
}

// Active reports whether gen identifies the outstanding analytics request
func (s *Session) Active(gen Generation) bool {
	return gen != 0 && gen == s.requestGen && s.state.Phase == Analyzing
}
