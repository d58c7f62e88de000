package attendance

import (
	"errors"
	"time"

	"github.com/jonesrussell/gopunch/internal/portal"
)

// RetryPolicy controls how an attempt reacts to recoverable failures.
// Session cookies expire server-side at any time, so an unauthenticated
// response is retried with a fresh login rather than reported immediately.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Retryable   func(error) bool
}

// DefaultRetryPolicy retries expired sessions up to three times.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
		Retryable: func(err error) bool {
			return errors.Is(err, portal.ErrUnauthenticated)
		},
	}
}
