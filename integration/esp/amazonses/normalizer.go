package amazonses

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/espbridge/espbridge/core/tracking"
	"github.com/espbridge/espbridge/core/webhook"
)

// Normalizer decodes SES notifications delivered through SNS. The webhook
// body is the SNS envelope; the SES event rides JSON-encoded in its
// Message field.
type Normalizer struct{}

// NewNormalizer creates an SES notification normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize unwraps the SNS envelope and maps the SES event. Recipient
// lists fan out into one event per recipient. SubscriptionConfirmation
// envelopes produce a single unknown-kind event carrying the Token and
// SubscribeURL so an operator can confirm the subscription out of band.
func (n *Normalizer) Normalize(body []byte) ([]tracking.Event, []tracking.EventError, error) {
	envelope := gjson.ParseBytes(body)
	if !envelope.IsObject() {
		return nil, nil, fmt.Errorf("%w: expected SNS envelope", tracking.ErrMalformedPayload)
	}

	switch envelope.Get("Type").String() {
	case "SubscriptionConfirmation", "UnsubscribeConfirmation":
		return confirmationEvent(envelope, body)
	case "Notification":
	default:
		return nil, nil, fmt.Errorf("%w: unexpected SNS type %q",
			tracking.ErrMalformedPayload, envelope.Get("Type").String())
	}

	message := envelope.Get("Message").String()
	if message == "" {
		return nil, nil, fmt.Errorf("%w: empty SNS message", tracking.ErrMalformedPayload)
	}
	event := gjson.Parse(message)
	if !event.IsObject() {
		return nil, nil, fmt.Errorf("%w: SNS message is not a JSON object", tracking.ErrMalformedPayload)
	}

	eventType := event.Get("eventType").String()
	if eventType == "" {
		eventType = event.Get("notificationType").String()
	}
	if eventType == "" {
		return nil, nil, fmt.Errorf("%w: no eventType", tracking.ErrMalformedPayload)
	}

	ts, err := time.Parse(time.RFC3339, envelope.Get("Timestamp").String())
	if err != nil {
		return nil, []tracking.EventError{{
			Index: 0,
			Err:   fmt.Errorf("%w: %q", tracking.ErrMalformedTimestamp, envelope.Get("Timestamp").String()),
		}}, nil
	}

	mailObj := event.Get("mail")
	tags, metadata := recoverCorrelation(mailObj)

	base := tracking.Event{
		Timestamp: ts.UTC(),
		MessageID: mailObj.Get("messageId").String(),
		Tags:      tags,
		Metadata:  metadata,
		Extra:     map[string]any{"eventType": eventType},
	}
	// Keep the rest of the SES event verbatim, including the mail block
	// and the per-type detail object, so nothing SES reports is lost.
	event.ForEach(func(key, value gjson.Result) bool {
		switch key.String() {
		case "eventType", "notificationType":
			return true
		}
		base.Extra[key.String()] = value.Value()
		return true
	})
	snsID := envelope.Get("MessageId").String()
	if snsID == "" {
		snsID = webhook.DeriveEventID(body)
	}

	events := mapEvent(eventType, event, mailObj, base)
	for i := range events {
		events[i].EventID = perRecipientID(snsID, events[i].Recipient, len(events) > 1)
	}
	return events, nil, nil
}

// mapEvent resolves the event kind and the per-recipient fan-out for one
// SES event type.
func mapEvent(eventType string, event, mailObj gjson.Result, base tracking.Event) []tracking.Event {
	detail := event.Get(strings.ToLower(eventType[:1]) + eventType[1:])
	destination := stringList(mailObj.Get("destination"))

	switch eventType {
	case "Send":
		base.Kind = tracking.KindQueued
		return fanOut(base, destination)

	case "Delivery":
		base.Kind = tracking.KindDelivered
		base.Reason = detail.Get("smtpResponse").String()
		return fanOut(base, stringList(detail.Get("recipients")))

	case "Bounce":
		base.Kind = tracking.KindBounced
		if detail.Get("bounceType").String() == "Transient" {
			base.Kind = tracking.KindDeferred
		}
		base.Extra["bounceType"] = detail.Get("bounceType").String()
		base.Extra["bounceSubType"] = detail.Get("bounceSubType").String()
		var out []tracking.Event
		for _, r := range detail.Get("bouncedRecipients").Array() {
			ev := base
			ev.Recipient = r.Get("emailAddress").String()
			ev.Reason = r.Get("diagnosticCode").String()
			out = append(out, ev)
		}
		return out

	case "Complaint":
		base.Kind = tracking.KindComplained
		base.Reason = detail.Get("complaintFeedbackType").String()
		base.UserAgent = detail.Get("userAgent").String()
		var out []tracking.Event
		for _, r := range detail.Get("complainedRecipients").Array() {
			ev := base
			ev.Recipient = r.Get("emailAddress").String()
			out = append(out, ev)
		}
		return out

	case "Reject":
		base.Kind = tracking.KindRejected
		base.Reason = detail.Get("reason").String()
		return fanOut(base, destination)

	case "Open":
		// SES does not say which recipient opened; report for all.
		base.Kind = tracking.KindOpened
		base.UserAgent = detail.Get("userAgent").String()
		return fanOut(base, destination)

	case "Click":
		base.Kind = tracking.KindClicked
		base.UserAgent = detail.Get("userAgent").String()
		base.URL = detail.Get("link").String()
		return fanOut(base, destination)

	case "DeliveryDelay":
		base.Kind = tracking.KindDeferred
		base.Reason = detail.Get("delayType").String()
		var out []tracking.Event
		for _, r := range detail.Get("delayedRecipients").Array() {
			ev := base
			ev.Recipient = r.Get("emailAddress").String()
			if diag := r.Get("diagnosticCode").String(); diag != "" {
				ev.Reason = diag
			}
			out = append(out, ev)
		}
		return out

	case "Subscription":
		base.Kind = tracking.KindUnsubscribed
		return fanOut(base, destination)

	case "Rendering Failure":
		base.Kind = tracking.KindRejected
		base.Reason = event.Get("failure.errorMessage").String()
		return fanOut(base, destination)

	default:
		base.Kind = tracking.KindUnknown
		return fanOut(base, destination)
	}
}

// confirmationEvent surfaces a subscription handshake without acting on
// it: the Token and SubscribeURL land in Extra for out-of-band handling.
func confirmationEvent(envelope gjson.Result, body []byte) ([]tracking.Event, []tracking.EventError, error) {
	eventID := envelope.Get("MessageId").String()
	if eventID == "" {
		eventID = webhook.DeriveEventID(body)
	}
	ev := tracking.Event{
		Kind:    tracking.KindUnknown,
		EventID: eventID,
		Extra: map[string]any{
			"Type":         envelope.Get("Type").String(),
			"TopicArn":     envelope.Get("TopicArn").String(),
			"Token":        envelope.Get("Token").String(),
			"SubscribeURL": envelope.Get("SubscribeURL").String(),
		},
	}
	if ts, err := time.Parse(time.RFC3339, envelope.Get("Timestamp").String()); err == nil {
		ev.Timestamp = ts.UTC()
	}
	return []tracking.Event{ev}, nil, nil
}

// recoverCorrelation pulls X-Tag and X-Metadata values back out of the
// notification's mail.headers block.
func recoverCorrelation(mailObj gjson.Result) ([]string, map[string]string) {
	var tags []string
	var metadata map[string]string
	for _, h := range mailObj.Get("headers").Array() {
		switch strings.ToLower(h.Get("name").String()) {
		case strings.ToLower(TagHeader):
			tags = append(tags, h.Get("value").String())
		case strings.ToLower(MetadataHeader):
			var m map[string]string
			if err := json.Unmarshal([]byte(h.Get("value").String()), &m); err == nil {
				metadata = m
			}
		}
	}
	return tags, metadata
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

// fanOut clones the base event for every recipient. An empty recipient
// list still yields one event so the notification is never dropped.
func fanOut(base tracking.Event, recipients []string) []tracking.Event {
	if len(recipients) == 0 {
		return []tracking.Event{base}
	}
	out := make([]tracking.Event, 0, len(recipients))
	for _, r := range recipients {
		ev := base
		ev.Recipient = r
		out = append(out, ev)
	}
	return out
}

// perRecipientID keeps fan-out siblings distinct for dedup: the SNS
// message ID alone would collapse them.
func perRecipientID(snsID, recipient string, multi bool) string {
	if !multi {
		return snsID
	}
	return webhook.DeriveEventID([]byte(snsID + "|" + recipient))
}
