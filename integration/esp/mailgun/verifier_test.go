package mailgun_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espbridge/espbridge/core/webhook"
	"github.com/espbridge/espbridge/integration/esp/mailgun"
)

const signingKey = "key-signing"

func signedBody(t *testing.T, ts time.Time, token string) []byte {
	t.Helper()
	rawTS := fmt.Sprintf("%d", ts.Unix())
	sig := webhook.ComputeHMAC(signingKey, []byte(rawTS+token))
	return []byte(fmt.Sprintf(`{
		"signature": {"timestamp": %q, "token": %q, "signature": %q},
		"event-data": {"event": "delivered", "timestamp": %s}
	}`, rawTS, token, sig, rawTS))
}

func TestVerifier_ValidSignature(t *testing.T) {
	t.Parallel()

	v := mailgun.NewVerifier(signingKey, 0)
	err := v.Verify(&webhook.Request{Body: signedBody(t, time.Now(), "tok-1")})
	assert.NoError(t, err)
}

func TestVerifier_WrongKey(t *testing.T) {
	t.Parallel()

	v := mailgun.NewVerifier("key-other", 0)
	err := v.Verify(&webhook.Request{Body: signedBody(t, time.Now(), "tok-1")})
	require.Error(t, err)
	assert.ErrorIs(t, err, webhook.ErrVerificationFailed)
}

func TestVerifier_ReplayOutsideWindow(t *testing.T) {
	t.Parallel()

	v := mailgun.NewVerifier(signingKey, time.Minute)
	err := v.Verify(&webhook.Request{Body: signedBody(t, time.Now().Add(-time.Hour), "tok-1")})
	require.Error(t, err)
	assert.ErrorIs(t, err, webhook.ErrTimestampSkew)
}

func TestVerifier_MissingSignatureBlock(t *testing.T) {
	t.Parallel()

	v := mailgun.NewVerifier(signingKey, 0)
	err := v.Verify(&webhook.Request{Body: []byte(`{"event-data": {"event": "delivered"}}`)})
	require.Error(t, err)
	assert.ErrorIs(t, err, webhook.ErrMissingSignature)
}
