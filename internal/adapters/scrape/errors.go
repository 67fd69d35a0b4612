package scrape

import "errors"

// Sentinel errors for this package. Non-success pages also wrap
// model.ErrSourceUnavailable.
var (
	ErrNoTable   = errors.New("ranking table not found")
	ErrNoColumn  = errors.New("handle column not found")
	ErrBadStatus = errors.New("ranking page returned non-success status")
)
