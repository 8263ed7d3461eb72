package tracking

import "errors"

var (
	// ErrMalformedPayload means the webhook body is structurally
	// unparseable for this provider; no events could be produced.
	ErrMalformedPayload = errors.New("malformed webhook payload")

	// ErrMalformedTimestamp fails a single event inside a batch; the
	// remaining events still normalize.
	ErrMalformedTimestamp = errors.New("malformed event timestamp")
)
