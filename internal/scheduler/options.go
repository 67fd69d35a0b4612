package scheduler

import (
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/okian/solvedboard/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithDailyAt sets the local time of day a refresh becomes due.
func WithDailyAt(hour, minute int) Option {
	return func(s *Scheduler) {
		if hour >= 0 && hour < 24 && minute >= 0 && minute < 60 {
			s.hour, s.minute = hour, minute
		}
	}
}

// WithLocation sets the time zone of the daily boundary.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithCheckInterval sets how often freshness is checked.
func WithCheckInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMaxAge sets the age after which the snapshot counts as stale.
func WithMaxAge(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithBusy reports whether a refresh is already running. While it returns
// true no new refresh is requested.
func WithBusy(busy func() bool) Option {
	return func(s *Scheduler) {
		if busy != nil {
			s.busy = busy
		}
	}
}

// WithClock injects the clock.
func WithClock(c clockwork.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}
