package provider

import "errors"

var (
	// ErrUnsupportedFeature is returned under strict mode when the
	// message uses a feature the provider does not support.
	ErrUnsupportedFeature = errors.New("feature not supported by provider")

	// ErrEncoding means the message cannot be represented in the
	// provider's wire format at all. Never retried automatically.
	ErrEncoding = errors.New("failed to encode message for provider")

	// ErrUnexpectedResponse means the provider's response body did not
	// match any known shape for this provider.
	ErrUnexpectedResponse = errors.New("unexpected provider response")
)
