package service

import "errors"

// Service lifecycle errors.
var (
	// ErrAlreadyStarted is returned by Crawl while the refresh worker runs.
	ErrAlreadyStarted = errors.New("service already started")
	// ErrStopped is returned by Start once the service has been stopped.
	ErrStopped = errors.New("service stopped")
)
