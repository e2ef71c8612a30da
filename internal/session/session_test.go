package session

import (
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"playerdash/internal/analytics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var alice = analytics.Subject{ID: "p1", DisplayName: "Alice", GroupName: "Red"}

func testWindow() analytics.ObservationWindow {
	return analytics.ObservationWindow{
		Earliest: analytics.MicrosToTime(1_000_000),
		Latest:   analytics.MicrosToTime(2_000_000),
	}
}

// readySession returns a session with alice selected and the window resolved
func readySession(t *testing.T) Session {
	t.Helper()
	s := New(DefaultProgress())
	gen := s.SelectSubject(alice)
	require.True(t, s.ResolveWindow(gen, testWindow()))
	return s
}

func TestNewSessionIsIdle(t *testing.T) {
	s := New(Progress{})
	st := s.State()
	assert.Equal(t, Idle, st.Phase)
	assert.False(t, st.BoundsEditable())
	assert.Equal(t, DefaultProgress(), s.Progress())

	_, _, err := s.Analyze()
	assert.ErrorIs(t, err, ErrNoSubject)
	assert.ErrorIs(t, s.SetBounds(time.Now(), time.Now()), ErrNoWindow)
}

func TestSelectSubjectResolvesWindow(t *testing.T) {
	s := New(DefaultProgress())
	gen := s.SelectSubject(alice)

	st := s.State()
	assert.Equal(t, Resolving, st.Phase)
	assert.False(t, st.BoundsEditable(), "bounds must stay disabled until the window resolves")

	_, _, err := s.Analyze()
	assert.ErrorIs(t, err, ErrNoWindow)

	require.True(t, s.ResolveWindow(gen, testWindow()))
	st = s.State()
	assert.Equal(t, Ready, st.Phase)
	assert.True(t, st.BoundsEditable())
	assert.Equal(t, testWindow().Earliest, st.Start)
	assert.Equal(t, testWindow().Latest, st.End)
}

func TestAnalyzeWithUnmodifiedBounds(t *testing.T) {
	s := readySession(t)

	req, gen, err := s.Analyze()
	require.NoError(t, err)
	assert.NotZero(t, gen)
	assert.Equal(t, "p1", req.SubjectID)
	assert.Equal(t, int64(1_000_000), req.StartMicros())
	assert.Equal(t, int64(2_000_000), req.EndMicros())
	assert.Equal(t, Analyzing, s.State().Phase)
	assert.Equal(t, 0, s.State().Progress)
}

func TestSetBoundsClampsIntoWindow(t *testing.T) {
	w := testWindow()

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		wantStart time.Time
		wantEnd   time.Time
	}{
		{"inside", time.UnixMilli(1200), time.UnixMilli(1800), time.UnixMilli(1200), time.UnixMilli(1800)},
		{"before window", time.UnixMilli(0), time.UnixMilli(1500), w.Earliest, time.UnixMilli(1500)},
		{"after window", time.UnixMilli(1500), time.UnixMilli(9000), time.UnixMilli(1500), w.Latest},
		{"inverted", time.UnixMilli(1800), time.UnixMilli(1200), time.UnixMilli(1800), time.UnixMilli(1800)},
		{"both past end", time.UnixMilli(5000), time.UnixMilli(4000), w.Latest, w.Latest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := readySession(t)
			require.NoError(t, s.SetBounds(tt.start, tt.end))
			st := s.State()
			assert.True(t, tt.wantStart.Equal(st.Start), "start %s", st.Start)
			assert.True(t, tt.wantEnd.Equal(st.End), "end %s", st.End)
		})
	}
}

func TestSetBoundsOrderingProperty(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for range 2000 {
		a := r.Int64N(1 << 40)
		b := r.Int64N(1 << 40)
		earliest, latest := min(a, b), max(a, b)

		s := New(DefaultProgress())
		gen := s.SelectSubject(alice)
		w := analytics.ObservationWindow{Earliest: time.UnixMilli(earliest), Latest: time.UnixMilli(latest)}
		require.True(t, s.ResolveWindow(gen, w))

		start := time.UnixMilli(r.Int64N(1 << 41))
		end := time.UnixMilli(r.Int64N(1 << 41))
		require.NoError(t, s.SetBounds(start, end))

		st := s.State()
		require.False(t, st.Start.Before(w.Earliest))
		require.False(t, st.End.Before(st.Start))
		require.False(t, st.End.After(w.Latest))
	}
}

func TestSelectSubjectClearsResult(t *testing.T) {
	s := readySession(t)
	_, gen, err := s.Analyze()
	require.NoError(t, err)
	require.True(t, s.Settle(gen, analytics.AnalyticsResult{Steps: analytics.EventSeries{Count: 3}}, nil))
	require.NotNil(t, s.State().Result)

	bob := analytics.Subject{ID: "p2", DisplayName: "Bob", GroupName: "Blue"}
	s.SelectSubject(bob)

	st := s.State()
	assert.Nil(t, st.Result, "result must be cleared before the new window resolves")
	assert.False(t, st.HasWindow)
	assert.Equal(t, bob, st.Subject)
	assert.Equal(t, Resolving, st.Phase)
}

func TestStaleResolveIgnored(t *testing.T) {
	s := New(DefaultProgress())
	first := s.SelectSubject(alice)
	second := s.SelectSubject(analytics.Subject{ID: "p2"})

	assert.False(t, s.ResolveWindow(first, testWindow()))
	assert.Equal(t, Resolving, s.State().Phase)

	assert.True(t, s.FailResolve(second))
	st := s.State()
	assert.Equal(t, Idle, st.Phase)
	assert.False(t, st.BoundsEditable())
}

func TestSettleSuccessAndFailure(t *testing.T) {
	s := readySession(t)
	_, gen, err := s.Analyze()
	require.NoError(t, err)

	require.True(t, s.Tick(gen))
	require.True(t, s.Tick(gen))
	assert.Equal(t, 20, s.State().Progress)

	res := analytics.AnalyticsResult{Speed: analytics.SpeedSeries{Max: 4.2}}
	require.True(t, s.Settle(gen, res, nil))
	st := s.State()
	assert.Equal(t, Loaded, st.Phase)
	assert.Equal(t, 100, st.Progress)
	require.NotNil(t, st.Result)
	assert.Equal(t, 4.2, st.Result.Speed.Max)

	_, gen, err = s.Analyze()
	require.NoError(t, err)
	assert.Nil(t, s.State().Result, "a new analyze discards the previous result")
	s.Tick(gen)

	boom := errors.New("boom")
	require.True(t, s.Settle(gen, analytics.AnalyticsResult{}, boom))
	st = s.State()
	assert.Equal(t, Failed, st.Phase)
	assert.Equal(t, 0, st.Progress)
	assert.ErrorIs(t, st.Err, boom)
}

func TestStaleSettleIgnored(t *testing.T) {
	s := readySession(t)
	_, first, err := s.Analyze()
	require.NoError(t, err)
	_, second, err := s.Analyze()
	require.NoError(t, err)

	assert.False(t, s.Settle(first, analytics.AnalyticsResult{Steps: analytics.EventSeries{Count: 99}}, nil))
	assert.Equal(t, Analyzing, s.State().Phase)
	assert.False(t, s.Active(first))
	assert.True(t, s.Active(second))

	require.True(t, s.Settle(second, analytics.AnalyticsResult{}, nil))
	assert.Equal(t, 0, s.State().Result.Steps.Count)

	// a response for a subject that is no longer selected must not land
	_, third, err := s.Analyze()
	require.NoError(t, err)
	s.SelectSubject(analytics.Subject{ID: "p2"})
	assert.False(t, s.Settle(third, analytics.AnalyticsResult{}, nil))
	assert.Nil(t, s.State().Result)
}

func TestTickInertOutsideAnalyzing(t *testing.T) {
	s := readySession(t)
	_, gen, err := s.Analyze()
	require.NoError(t, err)

	for range 25 {
		s.Tick(gen)
		require.LessOrEqual(t, s.State().Progress, 100)
	}
	assert.Equal(t, 100, s.State().Progress)
	assert.Equal(t, Analyzing, s.State().Phase, "reaching the ceiling does not settle the request")

	require.True(t, s.Settle(gen, analytics.AnalyticsResult{}, errors.New("x")))
	assert.False(t, s.Tick(gen))
	assert.Equal(t, 0, s.State().Progress)
	assert.False(t, s.Tick(0))
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "analyzing", Analyzing.String())
	assert.Equal(t, "unknown", Phase(42).String())
}

func TestSetProgressAppliesToNextTick(t *testing.T) {
	s := readySession(t)
	_, gen, err := s.Analyze()
	require.NoError(t, err)

	require.True(t, s.Tick(gen))
	assert.Equal(t, 10, s.State().Progress)

	s.SetProgress(Progress{Step: 25, Ceiling: 50})
	require.True(t, s.Tick(gen))
	assert.Equal(t, 35, s.State().Progress)
	require.True(t, s.Tick(gen))
	assert.Equal(t, 50, s.State().Progress)
	assert.Equal(t, time.Second, s.Progress().Interval)
}
