package model

import "errors"

// Error taxonomy shared by the pipeline, the store and the query facade.
var (
	// ErrSourceUnavailable marks an external fetch that did not succeed
	// within its retry budget.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrNotFound marks an absent organization, problem, tag or level.
	ErrNotFound = errors.New("not found")
	// ErrPartialData marks a completed run with reduced member coverage.
	ErrPartialData = errors.New("partial data")
	// ErrStaleSnapshot marks a snapshot older than the refresh interval.
	ErrStaleSnapshot = errors.New("stale snapshot")
	// ErrNoSnapshot is returned before the first run has published.
	ErrNoSnapshot = errors.New("no snapshot available")
)
