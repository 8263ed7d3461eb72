package mail

// Status is the per-recipient outcome of a send attempt.
type Status string

const (
	// StatusQueued means the provider accepted the message for delivery.
	StatusQueued Status = "queued"
	// StatusSent means the provider reported the message as sent.
	StatusSent Status = "sent"
	// StatusRejected means the provider refused this recipient
	// (suppression list, inactive address, policy).
	StatusRejected Status = "rejected"
	// StatusInvalid means the recipient address is not deliverable as
	// given; retrying unchanged input cannot succeed.
	StatusInvalid Status = "invalid"
	// StatusFailed means the send failed for reasons unrelated to the
	// specific recipient.
	StatusFailed Status = "failed"
)

// RecipientResult is the outcome of a send for one recipient.
type RecipientResult struct {
	Recipient Address
	// MessageID is the provider-assigned identifier, used to correlate
	// tracking events back to this send. May be empty.
	MessageID string
	Status    Status
	// Err carries provider error detail for rejected/invalid/failed
	// recipients; nil for accepted ones.
	Err error
}

// Result is the outcome of a dispatched send.
//
// For providers with per-recipient responses, Recipients has exactly one
// entry per message recipient, in the original recipient order. Providers
// that only report a whole-call verdict produce a single entry with
// Aggregate set.
type Result struct {
	Recipients []RecipientResult
	Aggregate  bool
	// Warnings lists message features dropped by best-effort encoding.
	Warnings []string
}

// OK reports whether at least one recipient was accepted. Partial
// acceptance is not a failure; callers inspect Recipients for the mix.
func (r *Result) OK() bool {
	for _, rr := range r.Recipients {
		if rr.Status == StatusQueued || rr.Status == StatusSent {
			return true
		}
	}
	return false
}

// Rejected returns the results for recipients that were not accepted.
func (r *Result) Rejected() []RecipientResult {
	var out []RecipientResult
	for _, rr := range r.Recipients {
		switch rr.Status {
		case StatusQueued, StatusSent:
		default:
			out = append(out, rr)
		}
	}
	return out
}
