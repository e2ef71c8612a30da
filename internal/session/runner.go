package session

import (
	"context"
	"sync"
	"time"

	"playerdash/internal/analytics"
)

// Analyzer runs the remote analytics computation
type Analyzer interface {
	Analytics(ctx context.Context, req analytics.AnalysisRequest) (analytics.AnalyticsResult, error)
}

// Runner drives one analyze cycle outside of an interactive event loop. The
// fetch and the progress ticker run as two independent goroutines; the only
// coordination between them is a stop signal raised when the fetch settles.
type Runner struct {
	analyzer Analyzer
	timeout  time.Duration
}

// NewRunner creates a Runner. A zero timeout leaves the fetch unbounded.
func NewRunner(analyzer Analyzer, timeout time.Duration) *Runner {
	return &Runner{analyzer: analyzer, timeout: timeout}
}

type settled struct {
	gen Generation
	res analytics.AnalyticsResult
	err error
}

// Run starts an analysis on sess and streams state snapshots. The channel
// receives one snapshot when analysis starts, one per progress tick and a
// final one after settlement, then it is closed. The caller must drain it and
// must not touch sess until the channel is closed.
func (r *Runner) Run(ctx context.Context, sess *Session) (<-chan State, error) {
	req, gen, err := sess.Analyze()
	if err != nil {
		return nil, err
	}

	updates := make(chan State, 1)
	updates <- sess.State()

	var (
		fetchCtx    context.Context
		cancelFetch context.CancelFunc
	)
	if r.timeout > 0 {
		fetchCtx, cancelFetch = context.WithTimeout(ctx, r.timeout)
	} else {
		fetchCtx, cancelFetch = context.WithCancel(ctx)
	}

	results := make(chan settled, 1)
	go func() {
		res, err := r.analyzer.Analytics(fetchCtx, req)
		results <- settled{gen: gen, res: res, err: err}
	}()

	stop := make(chan struct{})
	ticks := make(chan Generation)
	var tickerWG sync.WaitGroup
	tickerWG.Add(1)
	go func() {
		defer tickerWG.Done()
		t := time.NewTicker(sess.Progress().Interval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				select {
				case ticks <- gen:
				case <-stop:
					return
				}
			}
		}
	}()

	go func() {
		defer close(updates)
		defer cancelFetch()
		for {
			select {
			case g := <-ticks:
				if sess.Tick(g) {
					updates <- sess.State()
				}
			case s := <-results:
				close(stop)
				tickerWG.Wait()
				sess.Settle(s.gen, s.res, s.err)
				updates <- sess.State()
				return
			}
		}
	}()

	return updates, nil
}
