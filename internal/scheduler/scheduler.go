// Package scheduler requests a refresh once a day and whenever the
// published snapshot is missing or out of date.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/okian/solvedboard/internal/domain/model"
	"github.com/okian/solvedboard/pkg/logger"
	"github.com/okian/solvedboard/pkg/metrics"
)

const (
	defaultInterval = 15 * time.Minute
	defaultMaxAge   = 24 * time.Hour
)

// Enqueuer accepts refresh requests without blocking.
type Enqueuer interface {
	Enqueue(ctx context.Context, r model.RefreshRequest) bool
}

// Reader exposes the published snapshot.
type Reader interface {
	Current() (*model.Snapshot, error)
}

// Scheduler checks snapshot freshness on a ticker.
type Scheduler struct {
	queue    Enqueuer
	snaps    Reader
	hour     int
	minute   int
	loc      *time.Location
	interval time.Duration
	maxAge   time.Duration
	busy     func() bool
	clock    clockwork.Clock
	log      logger.Logger

	stale  atomic.Bool
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Scheduler. By default a refresh is due every midnight UTC.
func New(q Enqueuer, snaps Reader, opts ...Option) *Scheduler {
	s := &Scheduler{
		queue:    q,
		snaps:    snaps,
		loc:      time.UTC,
		interval: defaultInterval,
		maxAge:   defaultMaxAge,
		busy:     func() bool { return false },
		clock:    clockwork.NewRealClock(),
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs a check immediately and then on every interval until Stop or
// ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	ticker := s.clock.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		s.Check(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.Chan():
				s.Check(ctx)
			}
		}
	}()
	s.log.Info(ctx, "scheduler started",
		logger.String("daily_at", fmt.Sprintf("%02d:%02d", s.hour, s.minute)),
		logger.String("timezone", s.loc.String()),
		logger.Duration("interval", s.interval))
}

// Stop ends the check loop and waits for it to exit.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return ErrNotRunning
	}
	cancel()
	<-done
	return nil
}

// Stale reports whether the last check found the snapshot older than the
// maximum age.
func (s *Scheduler) Stale() bool {
	return s.stale.Load()
}

// Freshness returns model.ErrNoSnapshot or an error wrapping
// model.ErrStaleSnapshot when the published snapshot is not fresh.
func (s *Scheduler) Freshness() error {
	snap, err := s.snaps.Current()
	if err != nil {
		return err
	}
	if age := snap.Age(s.clock.Now()); age > s.maxAge {
		return fmt.Errorf("%w: updated %s ago", model.ErrStaleSnapshot, age.Truncate(time.Second))
	}
	return nil
}

// Check requests a refresh when one is due. It reports whether a request
// was enqueued.
func (s *Scheduler) Check(ctx context.Context) bool {
	now := s.clock.Now()
	snap, err := s.snaps.Current()
	switch {
	case errors.Is(err, model.ErrNoSnapshot):
		s.stale.Store(true)
		return s.request(ctx, model.TriggerBootstrap, "no snapshot")
	case err != nil:
		s.log.Error(ctx, "reading current snapshot failed", logger.Error(err))
		return false
	}

	age := snap.Age(now)
	metrics.UpdateSnapshotAge(age)
	s.stale.Store(age > s.maxAge)

	boundary := LatestBoundary(now, s.hour, s.minute, s.loc)
	if !snap.UpdatedAt.Before(boundary) && age <= s.maxAge {
		return false
	}
	return s.request(ctx, model.TriggerSchedule, "snapshot older than "+boundary.Format(time.RFC3339))
}

func (s *Scheduler) request(ctx context.Context, trigger, reason string) bool {
	if s.busy() {
		s.log.Debug(ctx, "refresh due but one is running", logger.String("reason", reason))
		return false
	}
	req := model.RefreshRequest{ID: uuid.NewString(), Trigger: trigger, RequestedAt: s.clock.Now()}
	if !s.queue.Enqueue(ctx, req) {
		metrics.RecordRefreshRequest(trigger, "rejected")
		s.log.Debug(ctx, "refresh due but one is pending", logger.String("reason", reason))
		return false
	}
	metrics.RecordRefreshRequest(trigger, "accepted")
	s.log.Info(ctx, "refresh requested",
		logger.String("request_id", req.ID),
		logger.String("trigger", trigger),
		logger.String("reason", reason))
	return true
}

// LatestBoundary returns the most recent instant, at or before now, whose
// wall clock in loc reads hour:minute.
func LatestBoundary(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	b := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if b.After(local) {
		b = time.Date(local.Year(), local.Month(), local.Day()-1, hour, minute, 0, 0, loc)
	}
	return b
}
