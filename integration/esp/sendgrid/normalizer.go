package sendgrid

import (
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	"github.com/espbridge/espbridge/core/tracking"
	"github.com/espbridge/espbridge/core/webhook"
)

// eventKinds maps SendGrid webhook event types to canonical kinds.
var eventKinds = map[string]tracking.Kind{
	"processed":         tracking.KindQueued,
	"delivered":         tracking.KindDelivered,
	"bounce":            tracking.KindBounced,
	"blocked":           tracking.KindRejected,
	"deferred":          tracking.KindDeferred,
	"dropped":           tracking.KindRejected,
	"open":              tracking.KindOpened,
	"click":             tracking.KindClicked,
	"spamreport":        tracking.KindComplained,
	"unsubscribe":       tracking.KindUnsubscribed,
	"group_unsubscribe": tracking.KindUnsubscribed,
}

// coreFields are event payload keys consumed into typed Event fields.
// Of the rest, provider-owned detail goes to Extra and only unrecognized
// string values are treated as custom args echoed from the original send
// and recovered into Metadata.
var coreFields = map[string]struct{}{
	"email":         {},
	"timestamp":     {},
	"event":         {},
	"sg_event_id":   {},
	"sg_message_id": {},
	"category":      {},
	"url":           {},
	"useragent":     {},
	"reason":        {},
	"response":      {},
}

// providerFields are SendGrid-owned event details; string-valued or not,
// they are never custom args and belong in Extra.
var providerFields = map[string]struct{}{
	"ip":                      {},
	"status":                  {},
	"type":                    {},
	"attempt":                 {},
	"smtp-id":                 {},
	"tls":                     {},
	"cert_err":                {},
	"bounce_classification":   {},
	"sg_machine_open":         {},
	"sg_content_type":         {},
	"sg_template_id":          {},
	"sg_template_name":        {},
	"asm_group_id":            {},
	"marketing_campaign_id":   {},
	"marketing_campaign_name": {},
	"pool":                    {},
	"send_at":                 {},
	"url_offset":              {},
}

// Normalizer decodes SendGrid event webhook batches. Payloads are JSON
// arrays; each element is one event.
type Normalizer struct{}

// NewNormalizer creates a SendGrid event normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize decodes the batch. Events with an unmappable timestamp fail
// individually without aborting the rest of the batch.
func (n *Normalizer) Normalize(body []byte) ([]tracking.Event, []tracking.EventError, error) {
	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return nil, nil, fmt.Errorf("%w: expected JSON array", tracking.ErrMalformedPayload)
	}

	var events []tracking.Event
	var eventErrs []tracking.EventError
	for i, raw := range parsed.Array() {
		ev, err := normalizeOne(raw)
		if err != nil {
			eventErrs = append(eventErrs, tracking.EventError{Index: i, Err: err})
			continue
		}
		events = append(events, ev)
	}
	return events, eventErrs, nil
}

func normalizeOne(raw gjson.Result) (tracking.Event, error) {
	ts := raw.Get("timestamp")
	if !ts.Exists() || ts.Type != gjson.Number || ts.Int() <= 0 {
		return tracking.Event{}, fmt.Errorf("%w: %q", tracking.ErrMalformedTimestamp, ts.String())
	}

	kind := tracking.KindUnknown
	if k, ok := eventKinds[raw.Get("event").String()]; ok {
		kind = k
	}

	eventID := raw.Get("sg_event_id").String()
	if eventID == "" {
		eventID = webhook.DeriveEventID([]byte(raw.Raw))
	}

	ev := tracking.Event{
		Kind:      kind,
		Timestamp: time.Unix(ts.Int(), 0).UTC(),
		MessageID: raw.Get("sg_message_id").String(),
		EventID:   eventID,
		Recipient: raw.Get("email").String(),
		Tags:      categories(raw.Get("category")),
		URL:       raw.Get("url").String(),
		UserAgent: raw.Get("useragent").String(),
		Reason:    reason(raw),
	}

	raw.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if _, core := coreFields[name]; core {
			return true
		}
		_, owned := providerFields[name]
		if !owned && value.Type == gjson.String {
			if ev.Metadata == nil {
				ev.Metadata = make(map[string]string)
			}
			ev.Metadata[name] = value.String()
			return true
		}
		if ev.Extra == nil {
			ev.Extra = make(map[string]any)
		}
		ev.Extra[name] = value.Value()
		return true
	})

	if kind == tracking.KindUnknown {
		if ev.Extra == nil {
			ev.Extra = make(map[string]any)
		}
		ev.Extra["event"] = raw.Get("event").String()
	}
	return ev, nil
}

// categories normalizes SendGrid's category field, which is a bare string
// for one category and an array for several.
func categories(res gjson.Result) []string {
	switch {
	case res.IsArray():
		var out []string
		for _, c := range res.Array() {
			out = append(out, c.String())
		}
		return out
	case res.Type == gjson.String:
		return []string{res.String()}
	default:
		return nil
	}
}

// reason prefers the explicit bounce reason, falling back to the raw MTA
// response line used by deferred/delivered events.
func reason(raw gjson.Result) string {
	if r := raw.Get("reason").String(); r != "" {
		return r
	}
	return raw.Get("response").String()
}
