package classify

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Kind is the canonical failure category.
type Kind string

const (
	// Transient failures may succeed on retry (throttling, timeouts,
	// provider-side 5xx).
	Transient Kind = "transient"
	// Permanent failures cannot succeed by retrying unchanged input
	// (malformed request, invalid recipient).
	Permanent Kind = "permanent"
	// Configuration failures need operator intervention before any retry
	// (bad credentials, unverified sender domain, unrepresentable message).
	Configuration Kind = "configuration"
	// Unknown covers unrecognized response statuses and shapes. Treated
	// conservatively as non-retryable.
	Unknown Kind = "unknown"
)

// Classification is the resolved verdict for a provider response.
type Classification struct {
	Kind      Kind
	Retryable bool
	// RetryAfter is a provider-suggested backoff for throttled calls,
	// zero when the provider gave none.
	RetryAfter time.Duration
}

// Error attaches a Classification to an underlying provider error.
type Error struct {
	Class Classification
	// Detail is the provider's own error text or code rendering.
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s provider error: %s", e.Class.Kind, e.Detail)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s provider error: %v", e.Class.Kind, e.Cause)
	}
	return fmt.Sprintf("%s provider error", e.Class.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether an external retry policy may re-attempt the
// operation with unchanged input.
func (e *Error) Retryable() bool {
	return e.Class.Retryable
}

// RetryAfter returns the provider-suggested backoff, zero when absent.
func (e *Error) RetryAfter() time.Duration {
	return e.Class.RetryAfter
}

// NewError builds a classified error with the given kind and detail.
func NewError(kind Kind, detail string, cause error) *Error {
	return &Error{
		Class:  Classification{Kind: kind, Retryable: kind == Transient},
		Detail: detail,
		Cause:  cause,
	}
}

// statusKinds is the default HTTP status classification table. Provider
// packages override individual entries with their own code tables.
var statusKinds = map[int]Classification{
	http.StatusBadRequest:            {Kind: Permanent},
	http.StatusUnauthorized:          {Kind: Configuration},
	http.StatusPaymentRequired:       {Kind: Configuration},
	http.StatusForbidden:             {Kind: Configuration},
	http.StatusNotFound:              {Kind: Configuration},
	http.StatusRequestEntityTooLarge: {Kind: Permanent},
	http.StatusUnprocessableEntity:   {Kind: Permanent},
	http.StatusTooManyRequests:       {Kind: Transient, Retryable: true},
}

// FromStatusCode classifies a bare HTTP status. Retry-After (seconds form)
// from the response headers, when present, becomes the suggested backoff.
func FromStatusCode(status int, header http.Header) Classification {
	if c, ok := statusKinds[status]; ok {
		if c.Retryable {
			c.RetryAfter = retryAfter(header)
		}
		return c
	}
	switch {
	case status >= 200 && status < 300:
		return Classification{}
	case status >= 500:
		return Classification{Kind: Transient, Retryable: true, RetryAfter: retryAfter(header)}
	default:
		return Classification{Kind: Unknown}
	}
}

func retryAfter(header http.Header) time.Duration {
	if header == nil {
		return 0
	}
	raw := header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	secs, err := strconv.Atoi(raw)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
