package postmark

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/espbridge/espbridge/core/tracking"
	"github.com/espbridge/espbridge/core/webhook"
)

// recordTypes maps Postmark webhook RecordType values to the canonical
// kind plus the field carrying the event timestamp. Bounce resolution is
// refined by bounce type.
var recordTypes = map[string]struct {
	kind    tracking.Kind
	tsField string
}{
	"Delivery":           {tracking.KindDelivered, "DeliveredAt"},
	"Bounce":             {tracking.KindBounced, "BouncedAt"},
	"SpamComplaint":      {tracking.KindComplained, "BouncedAt"},
	"Open":               {tracking.KindOpened, "ReceivedAt"},
	"Click":              {tracking.KindClicked, "ReceivedAt"},
	"SubscriptionChange": {tracking.KindUnsubscribed, "ChangedAt"},
}

// consumedFields are payload keys fully mapped into typed Event fields,
// including the per-record-type timestamp fields. Everything else stays
// verbatim in Extra.
var consumedFields = map[string]struct{}{
	"RecordType":   {},
	"MessageID":    {},
	"Recipient":    {},
	"Email":        {},
	"Tag":          {},
	"Metadata":     {},
	"OriginalLink": {},
	"UserAgent":    {},
	"Details":      {},
	"Description":  {},
	"ID":           {},
	"DeliveredAt":  {},
	"BouncedAt":    {},
	"ReceivedAt":   {},
	"ChangedAt":    {},
}

// transientBounceTypes are bounce classifications Postmark may retry;
// they normalize to deferred instead of bounced.
var transientBounceTypes = map[string]struct{}{
	"Transient":    {},
	"SoftBounce":   {},
	"DnsError":     {},
	"SMTPApiError": {},
	"InboundError": {},
}

// Normalizer decodes Postmark webhook payloads: one JSON object per call,
// discriminated by RecordType.
type Normalizer struct{}

// NewNormalizer creates a Postmark webhook normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize decodes the single event in the payload.
func (n *Normalizer) Normalize(body []byte) ([]tracking.Event, []tracking.EventError, error) {
	parsed := gjson.ParseBytes(body)
	if !parsed.IsObject() {
		return nil, nil, fmt.Errorf("%w: expected JSON object", tracking.ErrMalformedPayload)
	}
	recordType := parsed.Get("RecordType").String()
	if recordType == "" {
		return nil, nil, fmt.Errorf("%w: no RecordType", tracking.ErrMalformedPayload)
	}

	spec, known := recordTypes[recordType]
	if !known {
		ev := tracking.Event{
			Kind:    tracking.KindUnknown,
			EventID: webhook.DeriveEventID(body),
			Extra:   map[string]any{"RecordType": recordType},
		}
		copyUnconsumed(&ev, parsed)
		return []tracking.Event{ev}, nil, nil
	}

	rawTS := parsed.Get(spec.tsField).String()
	ts, err := time.Parse(time.RFC3339, rawTS)
	if err != nil {
		return nil, []tracking.EventError{{
			Index: 0,
			Err:   fmt.Errorf("%w: %s %q", tracking.ErrMalformedTimestamp, spec.tsField, rawTS),
		}}, nil
	}

	kind := spec.kind
	bounceType := parsed.Get("Type").String()
	if recordType == "Bounce" {
		if _, transient := transientBounceTypes[bounceType]; transient {
			kind = tracking.KindDeferred
		}
	}

	ev := tracking.Event{
		Kind:      kind,
		Timestamp: ts.UTC(),
		MessageID: parsed.Get("MessageID").String(),
		EventID:   eventID(parsed, body),
		Recipient: recipient(parsed),
		Reason:    reason(parsed),
		URL:       parsed.Get("OriginalLink").String(),
		UserAgent: parsed.Get("UserAgent").String(),
	}
	if tag := parsed.Get("Tag").String(); tag != "" {
		ev.Tags = []string{tag}
	}
	if meta := parsed.Get("Metadata"); meta.IsObject() {
		ev.Metadata = make(map[string]string)
		meta.ForEach(func(key, value gjson.Result) bool {
			ev.Metadata[key.String()] = value.String()
			return true
		})
	}
	copyUnconsumed(&ev, parsed)
	return []tracking.Event{ev}, nil, nil
}

// copyUnconsumed keeps every payload field not mapped into a typed Event
// field, so bounce Type, suppression state and anything Postmark adds
// later survive normalization.
func copyUnconsumed(ev *tracking.Event, parsed gjson.Result) {
	parsed.ForEach(func(key, value gjson.Result) bool {
		if _, ok := consumedFields[key.String()]; ok {
			return true
		}
		if ev.Extra == nil {
			ev.Extra = make(map[string]any)
		}
		ev.Extra[key.String()] = value.Value()
		return true
	})
}

// eventID prefers Postmark's numeric bounce/complaint ID, falling back to
// a deterministic hash of the payload for event types without one.
func eventID(parsed gjson.Result, body []byte) string {
	if id := parsed.Get("ID"); id.Exists() && id.Int() > 0 {
		return id.Raw
	}
	return webhook.DeriveEventID(body)
}

// recipient handles Postmark's two spellings of the target address.
func recipient(parsed gjson.Result) string {
	if r := parsed.Get("Recipient").String(); r != "" {
		return r
	}
	return parsed.Get("Email").String()
}

func reason(parsed gjson.Result) string {
	if d := parsed.Get("Details").String(); d != "" {
		return d
	}
	return parsed.Get("Description").String()
}
