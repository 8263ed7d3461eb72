package dispatch

import "errors"

var (
	// ErrTransport wraps network-level failures (timeouts, connection
	// errors). Always classified transient and retryable.
	ErrTransport = errors.New("transport call failed")

	// ErrNilProvider is returned when Send is called without a provider.
	ErrNilProvider = errors.New("provider is nil")
)
