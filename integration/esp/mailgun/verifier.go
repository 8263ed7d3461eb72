package mailgun

import (
	"fmt"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/espbridge/espbridge/core/webhook"
)

// Verifier checks Mailgun's webhook signature block: an HMAC-SHA256 over
// timestamp+token computed with the account's webhook signing key, plus a
// replay window on the timestamp. The signature travels inside the JSON
// payload, not in headers.
type Verifier struct {
	signingKey string
	window     time.Duration
	now        func() time.Time
}

// NewVerifier creates a Mailgun webhook verifier. A zero window uses
// webhook.DefaultSkewWindow.
func NewVerifier(signingKey string, window time.Duration) *Verifier {
	return &Verifier{signingKey: signingKey, window: window, now: time.Now}
}

// Verify implements webhook.Verifier.
func (v *Verifier) Verify(req *webhook.Request) error {
	sig := gjson.GetBytes(req.Body, "signature")
	if !sig.Exists() {
		return fmt.Errorf("%w: no signature block", webhook.ErrMissingSignature)
	}

	rawTS := sig.Get("timestamp").String()
	token := sig.Get("token").String()
	signature := sig.Get("signature").String()
	if rawTS == "" || token == "" || signature == "" {
		return fmt.Errorf("%w: incomplete signature block", webhook.ErrMissingSignature)
	}

	unix, err := strconv.ParseInt(rawTS, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: malformed timestamp", webhook.ErrVerificationFailed)
	}
	if err := webhook.CheckSkew(v.now(), time.Unix(unix, 0), v.window); err != nil {
		return err
	}

	expected := webhook.ComputeHMAC(v.signingKey, []byte(rawTS+token))
	if !webhook.SecureCompare(signature, expected) {
		return fmt.Errorf("%w: signature mismatch", webhook.ErrVerificationFailed)
	}
	return nil
}
