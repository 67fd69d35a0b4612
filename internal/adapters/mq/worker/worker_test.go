package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	queue "github.com/okian/solvedboard/internal/adapters/mq/queue"
	worker "github.com/okian/solvedboard/internal/adapters/mq/worker"
	model "github.com/okian/solvedboard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

// recordingRunner records every request and tracks concurrent runs.
type recordingRunner struct {
	mu       sync.Mutex
	seen     []string
	active   atomic.Int32
	maxSeen  atomic.Int32
	hold     time.Duration
	err      error
	deadline atomic.Bool
}

func (r *recordingRunner) Run(ctx context.Context, req worker.Request) error {
	n := r.active.Add(1)
	defer r.active.Add(-1)
	for {
		cur := r.maxSeen.Load()
		if n <= cur || r.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	if _, ok := ctx.Deadline(); ok {
		r.deadline.Store(true)
	}
	select {
	case <-time.After(r.hold):
	case <-ctx.Done():
		return ctx.Err()
	}
	r.mu.Lock()
	r.seen = append(r.seen, req.ID)
	r.mu.Unlock()
	return r.err
}

func (r *recordingRunner) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.seen...)
}

func req(id string) model.RefreshRequest {
	return model.RefreshRequest{ID: id, Trigger: model.TriggerManual, RequestedAt: time.Now()}
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return false
}

func TestWorker(t *testing.T) {
	convey.Convey("Given a worker over a queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(3))
		runner := &recordingRunner{hold: 20 * time.Millisecond}
		w := worker.New(q, runner, worker.WithName("test"), worker.WithRunTimeout(time.Minute))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When several requests are queued", func() {
			convey.So(q.Enqueue(ctx, req("a")), convey.ShouldBeTrue)
			convey.So(q.Enqueue(ctx, req("b")), convey.ShouldBeTrue)
			convey.So(q.Enqueue(ctx, req("c")), convey.ShouldBeTrue)

			convey.Convey("Then they run one at a time in order", func() {
				convey.So(waitFor(func() bool { return len(runner.ids()) == 3 }), convey.ShouldBeTrue)
				convey.So(runner.ids(), convey.ShouldResemble, []string{"a", "b", "c"})
				convey.So(runner.maxSeen.Load(), convey.ShouldEqual, 1)
				convey.So(runner.deadline.Load(), convey.ShouldBeTrue)
				convey.So(waitFor(func() bool { return !w.Busy() }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a run fails", func() {
			runner.err = errors.New("upstream down")
			convey.So(q.Enqueue(ctx, req("a")), convey.ShouldBeTrue)
			convey.So(waitFor(func() bool { return len(runner.ids()) == 1 }), convey.ShouldBeTrue)
			convey.So(q.Enqueue(ctx, req("b")), convey.ShouldBeTrue)

			convey.Convey("Then the worker keeps consuming", func() {
				convey.So(waitFor(func() bool { return len(runner.ids()) == 2 }), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When shut down", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()

			convey.Convey("Then it stops cleanly", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
			})

			convey.Convey("Then a second shutdown is harmless", func() {
				convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
				convey.So(func() { _ = w.Shutdown(sctx) }, convey.ShouldNotPanic)
			})
		})
	})

	convey.Convey("Given a worker that already ran", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.New(q, &recordingRunner{})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		w.Run(ctx)

		convey.Convey("Then running it again returns without panicking", func() {
			convey.So(func() { w.Run(context.Background()) }, convey.ShouldNotPanic)
		})
	})

	convey.Convey("Given a worker that never ran", t, func() {
		w := worker.New(queue.NewInMemoryQueue(), &recordingRunner{})

		convey.Convey("Then shutdown returns at once", func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			convey.So(w.Shutdown(sctx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a worker whose queue is closed", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.New(q, &recordingRunner{})
		done := make(chan struct{})
		go func() {
			w.Run(context.Background())
			close(done)
		}()
		convey.So(q.Close(), convey.ShouldBeNil)

		convey.Convey("Then Run returns", func() {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("worker did not stop")
			}
		})
	})
}
