package scheduler

import "errors"

// ErrNotRunning is returned by Stop before Start.
var ErrNotRunning = errors.New("scheduler not running")
