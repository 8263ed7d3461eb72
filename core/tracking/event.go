package tracking

import (
	"time"
)

// Kind enumerates the canonical event types.
type Kind string

const (
	KindQueued       Kind = "queued"
	KindDelivered    Kind = "delivered"
	KindBounced      Kind = "bounced"
	KindDeferred     Kind = "deferred"
	KindComplained   Kind = "complained"
	KindOpened       Kind = "opened"
	KindClicked      Kind = "clicked"
	KindUnsubscribed Kind = "unsubscribed"
	KindRejected     Kind = "rejected"
	// KindUnknown is assigned to provider event types with no canonical
	// mapping. The raw provider type string stays available in
	// Event.Extra under the provider's own field name.
	KindUnknown Kind = "unknown"
)

// Event is a single canonical tracking event.
type Event struct {
	Kind      Kind
	Timestamp time.Time

	// MessageID is the provider-assigned message identifier from the
	// original send, correlating the event to a RecipientResult.
	MessageID string
	// EventID is the provider-assigned event identifier, usable for
	// deduplication across webhook redeliveries. When the provider does
	// not supply one, normalizers derive a deterministic identifier from
	// the raw event so repeat normalization yields the same value.
	EventID   string
	Recipient string

	// Tags and Metadata are recovered from provider echo fields when the
	// original send attached them; empty otherwise.
	Tags     []string
	Metadata map[string]string

	// Reason carries human-readable failure detail for bounces,
	// rejections and complaints (e.g. an MTA diagnostic code).
	Reason string
	// URL is the clicked link for click events.
	URL string
	// UserAgent is the client that triggered open/click events.
	UserAgent string

	// Extra preserves provider-specific payload fields verbatim.
	Extra map[string]any
}

// EventError reports a per-event normalization failure inside an otherwise
// parseable batch. Index refers to the event's position in the raw payload.
type EventError struct {
	Index int
	Err   error
}

func (e EventError) Error() string {
	return e.Err.Error()
}

func (e EventError) Unwrap() error {
	return e.Err
}
