package fetcher

import (
	"errors"
	"fmt"
)

// Kind classifies a fetch failure.
type Kind int

const (
	// KindTransport covers timeouts, connection failures, and unexpected
	// status codes. Retryable on the exponential schedule.
	KindTransport Kind = iota + 1
	// KindThrottled marks an explicit 429 or an in-band rate-limit notice.
	// Retryable after a fixed cooldown.
	KindThrottled
	// KindAPIError marks an in-band error payload. Not retryable.
	KindAPIError
	// KindRetriesExhausted means every attempt failed retryably.
	KindRetriesExhausted
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindThrottled:
		return "throttled"
	case KindAPIError:
		return "api_error"
	case KindRetriesExhausted:
		return "retries_exhausted"
	default:
		return "unknown"
	}
}

// Error is a classified fetch failure.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.Kind, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("fetch %s (%d): %s", e.Kind, e.Status, e.Message)
	default:
		return fmt.Sprintf("fetch %s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// retryable reports whether the failure may be retried at all.
func (e *Error) retryable() bool {
	return e.Kind == KindTransport || e.Kind == KindThrottled
}

// ErrorKind extracts the Kind from err, or zero when err is not a fetch error.
func ErrorKind(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
