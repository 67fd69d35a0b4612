package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrSyncing      = errors.New("data syncing")
)

// badParam reports a malformed query parameter.
func badParam(name, value string) error {
	return fmt.Errorf("%w: %s=%q must be an integer", ErrBadRequest, name, value)
}
