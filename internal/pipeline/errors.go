package pipeline

import "errors"

// Sentinel errors for this package. Each fatal stage failure wraps one of
// these together with the underlying cause.
var (
	ErrResolve       = errors.New("organization resolution failed")
	ErrRoster        = errors.New("member roster unavailable")
	ErrReferenceData = errors.New("reference data unavailable")
	ErrPersist       = errors.New("snapshot persistence failed")
)
