package source

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/solvedboard/internal/domain/model"
)

// Sentinel errors for this package.
var (
	ErrPageLimit = errors.New("page limit reached")
	ErrDecode    = errors.New("decode response")
)

// StatusError is a non-success response from the ranking service. It unwraps
// to model.ErrNotFound for 404 and model.ErrSourceUnavailable otherwise.
type StatusError struct {
	Endpoint string
	Code     int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.Code)
}

func (e *StatusError) Unwrap() error {
	if e.Code == http.StatusNotFound {
		return model.ErrNotFound
	}
	return model.ErrSourceUnavailable
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}
