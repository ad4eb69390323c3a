// Package dashboard fetches the governance dashboard payload and renders it
// into the four display regions of an HTML page.
package dashboard

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/okian/mlgate/pkg/logger"
	"github.com/okian/mlgate/pkg/metrics"
)

// State is the outcome of a load.
type State int32

// Load states.
const (
	StateIdle State = iota
	StateLoading
	StateRendered
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateRendered:
		return "rendered"
	case StateErrored:
		return "errored"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Loader runs fetch-then-render loads. A load started while another is
// running on the same Loader is ignored.
type Loader struct {
	fetcher Fetcher
	logger  logger.Logger
	clock   clockwork.Clock

	inFlight atomic.Bool
	state    atomic.Int32
}

// NewLoader creates a loader over f.
func NewLoader(f Fetcher, opts ...Option) *Loader {
	l := &Loader{
		fetcher: f,
		logger:  logger.Get().Named("dashboard"),
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State returns the state of the most recent load.
func (l *Loader) State() State { return State(l.state.Load()) }

// Load locates the display regions, fetches one payload and renders it.
//
// Missing regions fail before any fetch. Fetch and decode failures are
// written to the alerts region and returned with StateErrored.
func (l *Loader) Load(ctx context.Context, doc *Document) (State, error) {
	if !l.inFlight.CompareAndSwap(false, true) {
		metrics.RecordDashboardLoad(metrics.OutcomeSkipped, 0)
		return StateLoading, ErrLoadInFlight
	}
	defer l.inFlight.Store(false)

	regions, err := locate(doc)
	if err != nil {
		l.logger.Error(ctx, "dashboard page is missing a region", logger.Error(err))
		metrics.RecordDashboardLoad(metrics.OutcomeFailed, 0)
		l.state.Store(int32(StateErrored))
		return StateErrored, err
	}

	l.state.Store(int32(StateLoading))
	start := l.clock.Now()

	snap, err := l.fetch(ctx)
	elapsed := float64(l.clock.Since(start).Microseconds()) / 1000
	if err != nil {
		regions.renderError(err)
		l.logger.Warn(ctx, "dashboard load failed", logger.Error(err))
		metrics.RecordDashboardLoad(metrics.OutcomeErrored, elapsed)
		l.state.Store(int32(StateErrored))
		return StateErrored, err
	}

	regions.render(snap)
	l.logger.Debug(ctx, "dashboard rendered", logger.Float64("duration_ms", elapsed))
	metrics.RecordDashboardLoad(metrics.OutcomeRendered, elapsed)
	l.state.Store(int32(StateRendered))
	return StateRendered, nil
}

func (l *Loader) fetch(ctx context.Context) (Snapshot, error) {
	body, err := l.fetcher.Fetch(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return DecodeSnapshot(body)
}
