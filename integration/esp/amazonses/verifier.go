package amazonses

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/espbridge/espbridge/core/webhook"
)

// SNS message headers sent with every HTTPS delivery.
const (
	snsTypeHeader      = "X-Amz-Sns-Message-Type"
	snsMessageIDHeader = "X-Amz-Sns-Message-Id"
)

// acceptedSNSTypes are the envelope types the tracking endpoint handles.
var acceptedSNSTypes = map[string]struct{}{
	"Notification":             {},
	"SubscriptionConfirmation": {},
	"UnsubscribeConfirmation":  {},
}

// Verifier authenticates SNS deliveries to the tracking endpoint: shared
// basic-auth credentials plus consistency between the SNS headers and the
// envelope body, which rejects payloads replayed under a different
// envelope.
type Verifier struct {
	username string
	password string
}

// NewVerifier creates the SNS endpoint verifier from the provider config.
func NewVerifier(cfg Config) *Verifier {
	return &Verifier{username: cfg.WebhookUsername, password: cfg.WebhookPassword}
}

// Verify implements webhook.Verifier.
func (v *Verifier) Verify(req *webhook.Request) error {
	if err := webhook.CheckBasicAuth(req.Header, v.username, v.password); err != nil {
		return err
	}

	headerType := req.Header.Get(snsTypeHeader)
	if headerType == "" {
		return fmt.Errorf("%w: no %s header", webhook.ErrMissingSignature, snsTypeHeader)
	}
	if _, ok := acceptedSNSTypes[headerType]; !ok {
		return fmt.Errorf("%w: unexpected sns message type %q", webhook.ErrVerificationFailed, headerType)
	}

	body := gjson.ParseBytes(req.Body)
	if bodyType := body.Get("Type").String(); bodyType != headerType {
		return fmt.Errorf("%w: sns type mismatch (header %q, body %q)",
			webhook.ErrVerificationFailed, headerType, bodyType)
	}
	headerID := req.Header.Get(snsMessageIDHeader)
	if bodyID := body.Get("MessageId").String(); headerID != "" && bodyID != headerID {
		return fmt.Errorf("%w: sns message id mismatch", webhook.ErrVerificationFailed)
	}
	return nil
}
