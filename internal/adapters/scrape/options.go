package scrape

import (
	"net/http"
	"time"

	"github.com/okian/solvedboard/pkg/logger"
)

// Option configures a Roster.
type Option func(*Roster)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Roster) {
		if hc != nil {
			r.http = hc
		}
	}
}

// WithTimeout bounds a single page fetch.
func WithTimeout(d time.Duration) Option {
	return func(r *Roster) {
		if d > 0 {
			r.http.Timeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(r *Roster) {
		if ua != "" {
			r.userAgent = ua
		}
	}
}

// WithMaxPages caps the number of ranking pages read.
func WithMaxPages(n int) Option {
	return func(r *Roster) {
		if n > 0 {
			r.maxPages = n
		}
	}
}

// WithColumns sets the accepted header names of the handle column.
func WithColumns(names ...string) Option {
	return func(r *Roster) {
		if len(names) > 0 {
			r.columns = names
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Roster) {
		if l != nil {
			r.log = l
		}
	}
}
