// Package worker runs queued refresh requests one at a time.
package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/solvedboard/internal/adapters/mq/queue"
	"github.com/okian/solvedboard/pkg/logger"
	"github.com/okian/solvedboard/pkg/metrics"
)

// Request abstracts what the worker reads off the queue.
type Request = queue.Request

// Runner executes one refresh.
type Runner interface {
	Run(ctx context.Context, req Request) error
}

// Queue defines how the worker receives requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Request
	Len(ctx context.Context) int
}

// Worker consumes refresh requests sequentially, so two runs never overlap.
type Worker struct {
	queue      Queue
	runner     Runner
	name       string
	runTimeout time.Duration
	clock      clockwork.Clock

	busy    atomic.Bool
	running atomic.Bool

	stopOnce sync.Once
	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// New creates a worker with configuration options.
func New(q Queue, runner Runner, opts ...Option) *Worker {
	w := &Worker{
		queue:    q,
		runner:   runner,
		name:     "refresh-worker",
		clock:    clockwork.NewRealClock(),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run processes requests until ctx is cancelled, Shutdown is called, or the
// queue is closed. A request being processed is finished first unless ctx is
// cancelled, which is passed on to the runner. A worker runs once; later
// calls return immediately.
func (w *Worker) Run(ctx context.Context) {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.Warn(ctx, "worker already ran")
		return
	}
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			w.queue.Len(ctx) // refreshes the queue size gauge
			if err := w.process(ctx, req); err != nil {
				w.logger.Error(ctx, "refresh failed",
					logger.String("request_id", req.ID),
					logger.String("trigger", req.Trigger),
					logger.Error(err))
			}
		}
	}
}

// Busy reports whether a refresh is executing.
func (w *Worker) Busy() bool {
	return w.busy.Load()
}

// Shutdown gracefully stops the worker. It is safe to call more than once,
// and returns at once for a worker that never ran.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.shutdown) })
	if !w.running.Load() {
		return nil
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *Worker) process(ctx context.Context, req Request) error {
	metrics.RecordRefreshWait(w.clock.Since(req.RequestedAt))

	w.busy.Store(true)
	metrics.SetPipelineRunning(true)
	defer func() {
		w.busy.Store(false)
		metrics.SetPipelineRunning(false)
	}()

	if w.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.runTimeout)
		defer cancel()
	}

	w.logger.Info(ctx, "refresh started",
		logger.String("request_id", req.ID),
		logger.String("trigger", req.Trigger))

	if err := w.runner.Run(ctx, req); err != nil {
		metrics.RecordErrorByComponent("worker", "refresh_failed")
		return fmt.Errorf("refresh %s: %w", req.ID, err)
	}
	return nil
}
