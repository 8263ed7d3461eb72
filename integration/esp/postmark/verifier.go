package postmark

import (
	"github.com/espbridge/espbridge/core/webhook"
)

// Verifier authenticates Postmark webhook calls. Postmark does not sign
// payloads; authenticity rests on the published source address ranges
// plus shared basic-auth credentials on the endpoint.
type Verifier struct {
	allowlist *webhook.IPAllowlist
	username  string
	password  string
}

// NewVerifier builds the webhook verifier from the provider config.
// An empty WebhookRanges list uses Postmark's published addresses.
func NewVerifier(cfg Config) (*Verifier, error) {
	ranges := cfg.WebhookRanges
	if len(ranges) == 0 {
		ranges = defaultWebhookRanges
	}
	list, err := webhook.NewIPAllowlist(ranges...)
	if err != nil {
		return nil, err
	}
	return &Verifier{
		allowlist: list,
		username:  cfg.WebhookUsername,
		password:  cfg.WebhookPassword,
	}, nil
}

// Verify implements webhook.Verifier: source address first, then the
// shared credentials.
func (v *Verifier) Verify(req *webhook.Request) error {
	if err := v.allowlist.Check(req.RemoteAddr); err != nil {
		return err
	}
	return webhook.CheckBasicAuth(req.Header, v.username, v.password)
}
