package webhook

import "errors"

var (
	// ErrVerificationFailed means the request could not be authenticated
	// for this provider. Terminal: the payload must not be normalized.
	ErrVerificationFailed = errors.New("webhook verification failed")

	// ErrMissingSignature means the request lacks the header or field the
	// provider's scheme requires.
	ErrMissingSignature = errors.New("missing webhook signature")

	// ErrTimestampSkew means a timestamped signature is outside the
	// allowed clock-skew window, even if the signature itself matches.
	ErrTimestampSkew = errors.New("webhook timestamp outside allowed window")

	// ErrForbiddenAddress means the request origin is not in the
	// provider's source IP allowlist.
	ErrForbiddenAddress = errors.New("webhook source address not allowed")
)
