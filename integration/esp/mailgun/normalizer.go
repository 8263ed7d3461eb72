package mailgun

import (
	"fmt"
	"math"
	"time"

	"github.com/tidwall/gjson"

	"github.com/espbridge/espbridge/core/tracking"
	"github.com/espbridge/espbridge/core/webhook"
)

// eventKinds maps Mailgun event names to canonical kinds. The "failed"
// event is resolved separately through its severity field.
var eventKinds = map[string]tracking.Kind{
	"accepted":     tracking.KindQueued,
	"delivered":    tracking.KindDelivered,
	"opened":       tracking.KindOpened,
	"clicked":      tracking.KindClicked,
	"complained":   tracking.KindComplained,
	"unsubscribed": tracking.KindUnsubscribed,
	"rejected":     tracking.KindRejected,
}

// consumedFields are event-data keys fully mapped into typed Event
// fields. Everything else is kept verbatim in Extra, including objects
// that only contribute a subfield, like message and delivery-status.
var consumedFields = map[string]struct{}{
	"timestamp":      {},
	"event":          {},
	"id":             {},
	"recipient":      {},
	"tags":           {},
	"url":            {},
	"user-variables": {},
}

// Normalizer decodes Mailgun webhook payloads. Each call carries exactly
// one event under event-data alongside the signature block.
type Normalizer struct{}

// NewNormalizer creates a Mailgun event normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize decodes the single event in the payload.
func (n *Normalizer) Normalize(body []byte) ([]tracking.Event, []tracking.EventError, error) {
	data := gjson.GetBytes(body, "event-data")
	if !data.Exists() {
		return nil, nil, fmt.Errorf("%w: no event-data", tracking.ErrMalformedPayload)
	}

	ts := data.Get("timestamp")
	if !ts.Exists() || ts.Type != gjson.Number || ts.Float() <= 0 {
		return nil, []tracking.EventError{{
			Index: 0,
			Err:   fmt.Errorf("%w: %q", tracking.ErrMalformedTimestamp, ts.String()),
		}}, nil
	}

	name := data.Get("event").String()
	kind := resolveKind(name, data.Get("severity").String())

	eventID := data.Get("id").String()
	if eventID == "" {
		eventID = webhook.DeriveEventID([]byte(data.Raw))
	}

	ev := tracking.Event{
		Kind:      kind,
		Timestamp: epochFloat(ts.Float()),
		MessageID: data.Get("message.headers.message-id").String(),
		EventID:   eventID,
		Recipient: data.Get("recipient").String(),
		Tags:      stringList(data.Get("tags")),
		Reason:    failureReason(data),
		URL:       data.Get("url").String(),
		UserAgent: data.Get("client-info.user-agent").String(),
	}

	if vars := data.Get("user-variables"); vars.IsObject() {
		ev.Metadata = make(map[string]string)
		vars.ForEach(func(key, value gjson.Result) bool {
			ev.Metadata[key.String()] = value.String()
			return true
		})
	}

	data.ForEach(func(key, value gjson.Result) bool {
		if _, ok := consumedFields[key.String()]; ok {
			return true
		}
		if ev.Extra == nil {
			ev.Extra = make(map[string]any)
		}
		ev.Extra[key.String()] = value.Value()
		return true
	})
	if kind == tracking.KindUnknown || kind == tracking.KindDeferred || kind == tracking.KindBounced {
		if ev.Extra == nil {
			ev.Extra = make(map[string]any)
		}
		ev.Extra["event"] = name
	}

	return []tracking.Event{ev}, nil, nil
}

// resolveKind maps the event name, refining "failed" by severity:
// permanent failures are bounces, temporary ones deferrals.
func resolveKind(name, severity string) tracking.Kind {
	if name == "failed" {
		if severity == "temporary" {
			return tracking.KindDeferred
		}
		return tracking.KindBounced
	}
	if k, ok := eventKinds[name]; ok {
		return k
	}
	return tracking.KindUnknown
}

// epochFloat converts Mailgun's fractional epoch-seconds timestamp.
func epochFloat(ts float64) time.Time {
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*float64(time.Second))).UTC()
}

// failureReason extracts the most specific failure detail available.
func failureReason(data gjson.Result) string {
	if r := data.Get("delivery-status.description").String(); r != "" {
		return r
	}
	if r := data.Get("delivery-status.message").String(); r != "" {
		return r
	}
	return data.Get("reject.reason").String()
}

func stringList(res gjson.Result) []string {
	if !res.IsArray() {
		return nil
	}
	var out []string
	for _, v := range res.Array() {
		out = append(out, v.String())
	}
	return out
}
