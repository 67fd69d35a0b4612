package repository

import (
	"time"

	"github.com/okian/solvedboard/pkg/logger"
)

// Option applies a configuration option to the FileStore.
type Option func(*FileStore)

// WithLocation sets the zone the freshness marker is written and read in.
func WithLocation(loc *time.Location) Option {
	return func(s *FileStore) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithHistory enables or disables archiving replaced artifacts.
func WithHistory(enabled bool) Option {
	return func(s *FileStore) {
		s.history = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.log = l
		}
	}
}
