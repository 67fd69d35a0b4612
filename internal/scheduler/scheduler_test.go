package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/internal/scheduler"
)

var kst = time.FixedZone("KST", 9*60*60)

type fakeQueue struct {
	mu       sync.Mutex
	reqs     []model.RefreshRequest
	full     bool
	enqueued chan struct{}
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{enqueued: make(chan struct{}, 16)}
}

func (q *fakeQueue) Enqueue(_ context.Context, r model.RefreshRequest) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.full {
		return false
	}
	q.reqs = append(q.reqs, r)
	q.enqueued <- struct{}{}
	return true
}

func (q *fakeQueue) requests() []model.RefreshRequest {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]model.RefreshRequest(nil), q.reqs...)
}

type fakeReader struct {
	mu   sync.Mutex
	snap *model.Snapshot
	err  error
}

func (r *fakeReader) Current() (*model.Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	if r.snap == nil {
		return nil, model.ErrNoSnapshot
	}
	return r.snap, nil
}

func (r *fakeReader) set(updated time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snap = &model.Snapshot{UpdatedAt: updated}
}

func TestLatestBoundary(t *testing.T) {
	convey.Convey("Given a daily boundary at 00:00 KST", t, func() {
		convey.Convey("When it is later the same local day", func() {
			now := time.Date(2024, 3, 2, 13, 0, 0, 0, kst)
			b := scheduler.LatestBoundary(now, 0, 0, kst)

			convey.Convey("Then the boundary is that midnight", func() {
				convey.So(b.Equal(time.Date(2024, 3, 2, 0, 0, 0, 0, kst)), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When now is given in UTC before the local boundary", func() {
			now := time.Date(2024, 3, 1, 14, 59, 0, 0, time.UTC)
			b := scheduler.LatestBoundary(now, 0, 0, kst)

			convey.Convey("Then the previous local midnight is used", func() {
				convey.So(b.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, kst)), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When now is exactly the boundary", func() {
			now := time.Date(2024, 3, 2, 6, 30, 0, 0, kst)
			b := scheduler.LatestBoundary(now, 6, 30, kst)

			convey.Convey("Then the boundary is now", func() {
				convey.So(b.Equal(now), convey.ShouldBeTrue)
			})
		})
	})
}

func TestCheck(t *testing.T) {
	convey.Convey("Given a scheduler due at 00:00 KST", t, func() {
		clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 2, 10, 0, 0, 0, kst))
		q := newFakeQueue()
		r := &fakeReader{}
		busy := false
		s := scheduler.New(q, r,
			scheduler.WithDailyAt(0, 0),
			scheduler.WithLocation(kst),
			scheduler.WithMaxAge(24*time.Hour),
			scheduler.WithClock(clock),
			scheduler.WithBusy(func() bool { return busy }))
		ctx := context.Background()

		convey.Convey("When there is no snapshot", func() {
			ok := s.Check(ctx)

			convey.Convey("Then a bootstrap refresh is requested", func() {
				convey.So(ok, convey.ShouldBeTrue)
				reqs := q.requests()
				convey.So(len(reqs), convey.ShouldEqual, 1)
				convey.So(reqs[0].Trigger, convey.ShouldEqual, model.TriggerBootstrap)
				convey.So(reqs[0].ID, convey.ShouldNotBeEmpty)
				convey.So(s.Stale(), convey.ShouldBeTrue)
				convey.So(errors.Is(s.Freshness(), model.ErrNoSnapshot), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the snapshot was taken after today's boundary", func() {
			r.set(time.Date(2024, 3, 2, 0, 5, 0, 0, kst))
			ok := s.Check(ctx)

			convey.Convey("Then nothing is requested", func() {
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(q.requests(), convey.ShouldBeEmpty)
				convey.So(s.Stale(), convey.ShouldBeFalse)
				convey.So(s.Freshness(), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the snapshot predates today's boundary", func() {
			r.set(time.Date(2024, 3, 1, 23, 0, 0, 0, kst))
			ok := s.Check(ctx)

			convey.Convey("Then a scheduled refresh is requested", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(q.requests()[0].Trigger, convey.ShouldEqual, model.TriggerSchedule)
				convey.So(s.Stale(), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the snapshot is older than the maximum age", func() {
			r.set(time.Date(2024, 2, 28, 12, 0, 0, 0, kst))
			s.Check(ctx)

			convey.Convey("Then it is reported stale", func() {
				convey.So(s.Stale(), convey.ShouldBeTrue)
				convey.So(errors.Is(s.Freshness(), model.ErrStaleSnapshot), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a refresh is already running", func() {
			busy = true
			ok := s.Check(ctx)

			convey.Convey("Then no request is made", func() {
				convey.So(ok, convey.ShouldBeFalse)
				convey.So(q.requests(), convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When a refresh is already pending", func() {
			q.full = true

			convey.Convey("Then the check reports nothing enqueued", func() {
				convey.So(s.Check(ctx), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the snapshot cannot be read", func() {
			r.err = errors.New("boom")

			convey.Convey("Then nothing is requested", func() {
				convey.So(s.Check(ctx), convey.ShouldBeFalse)
				convey.So(q.requests(), convey.ShouldBeEmpty)
			})
		})
	})
}

func TestStartStop(t *testing.T) {
	convey.Convey("Given a running scheduler with a fresh snapshot", t, func() {
		clock := clockwork.NewFakeClockAt(time.Date(2024, 3, 2, 23, 50, 0, 0, kst))
		q := newFakeQueue()
		r := &fakeReader{}
		r.set(time.Date(2024, 3, 2, 0, 1, 0, 0, kst))
		s := scheduler.New(q, r,
			scheduler.WithLocation(kst),
			scheduler.WithCheckInterval(15*time.Minute),
			scheduler.WithClock(clock))

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Start(ctx)
		convey.So(clock.BlockUntilContext(ctx, 1), convey.ShouldBeNil)

		convey.Convey("When the clock passes midnight", func() {
			clock.Advance(15 * time.Minute)

			convey.Convey("Then the next tick requests a refresh", func() {
				select {
				case <-q.enqueued:
				case <-ctx.Done():
					t.Fatal("no refresh requested")
				}
				convey.So(q.requests()[0].Trigger, convey.ShouldEqual, model.TriggerSchedule)
			})
		})

		convey.Reset(func() {
			convey.So(s.Stop(), convey.ShouldBeNil)
			convey.So(s.Stop(), convey.ShouldEqual, scheduler.ErrNotRunning)
		})
	})
}
