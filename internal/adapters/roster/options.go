package roster

import "github.com/okian/solvedboard/pkg/logger"

// Option configures a Resolver.
type Option func(*Resolver)

// WithFallback sets the handle source used when the primary one is unusable.
func WithFallback(h HandleSource) Option {
	return func(r *Resolver) {
		r.fallback = h
	}
}

// WithMaxPages caps the organization ranking walk.
func WithMaxPages(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxPages = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}
