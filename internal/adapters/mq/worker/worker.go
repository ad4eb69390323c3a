// Package worker drains the audit queue and persists governance audit events.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/okian/mlgate/internal/adapters/mq/queue"
	"github.com/okian/mlgate/internal/domain/model"
	"github.com/okian/mlgate/pkg/logger"
	"github.com/okian/mlgate/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerCount    = 1
	metricsUpdateInterval = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Event is what workers read off the queue.
type Event = model.AuditEvent

// Sink persists a single audit event.
type Sink interface {
	AppendAudit(ctx context.Context, ev model.AuditEvent) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes audit events until its queue is drained or it is stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for persisting audit events.
type InMemoryWorker struct {
	queue Queue
	sink  Sink
	name  string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		sink:     sink,
		name:     "audit-worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "audit-worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop. It returns when the queue closes, ctx is done or Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing audit event", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent emits the audit line and stores the event.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error { //nolint:gocritic // hugeParam: Event is passed by value for channel semantics
	start := time.Now()

	logger.Audit(ctx, event.Category, event.Action, event.Details)

	if w.sink == nil {
		return nil
	}
	if err := w.sink.AppendAudit(ctx, event); err != nil {
		metrics.RecordAuditPersistError()
		metrics.RecordErrorByComponent("audit_worker", "persist_error")
		metrics.RecordErrorByType("persist_error", "high")
		return fmt.Errorf("persist audit event %s: %w", event.ID, err)
	}

	metrics.RecordAuditPersisted(float64(time.Since(start).Microseconds()) / 1000)
	return nil
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	cancel  context.CancelFunc

	logger logger.Logger
}

// NewPool creates a new worker pool.
func NewPool(workerCount int, q Queue, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = defaultWorkerCount
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(q, sink, WithName("audit-worker-"+strconv.Itoa(i)))
	}

	metrics.UpdateAuditWorkerCount(workerCount)

	return pool
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool. Cancelling ctx does not stop them;
// only Shutdown does, after the queue is drained.
func (p *Pool) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel

	for _, w := range p.workers {
		go w.Run(runCtx)
	}

	go p.startMetricsUpdater(runCtx)
}

// startMetricsUpdater periodically refreshes the queue depth gauge.
func (p *Pool) startMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if sized, ok := p.queue.(interface{ Len(context.Context) int }); ok {
				metrics.UpdateAuditQueueSize(sized.Len(ctx))
			}
		}
	}
}

// Shutdown closes the queue and waits for workers to drain what is left.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	if p.cancel != nil {
		defer p.cancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	metrics.UpdateAuditWorkerCount(0)
	if timedOut {
		return fmt.Errorf("audit pool shutdown: %w", shutdownCtx.Err())
	}
	return nil
}

var _ Queue = (*queue.InMemoryQueue)(nil)
