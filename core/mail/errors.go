package mail

import "errors"

// Error variables define message validation failures that can be wrapped
// with detailed context using fmt.Errorf("%w: ...") for error reporting.
var (
	ErrNoRecipients   = errors.New("message has no recipients")
	ErrNoSender       = errors.New("message has no sender")
	ErrInvalidAddress = errors.New("invalid email address")
	ErrInvalidHeader  = errors.New("invalid custom header")
	ErrNoContent      = errors.New("message has no subject, body, or template")
)
