package webhook_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espbridge/espbridge/core/webhook"
)

func TestFromHTTPRequest(t *testing.T) {
	t.Parallel()

	t.Run("direct connection", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/hooks/sendgrid", strings.NewReader(`[{"event":"delivered"}]`))
		r.RemoteAddr = "203.0.113.9:49152"

		req, err := webhook.FromHTTPRequest(r)
		require.NoError(t, err)
		assert.Equal(t, []byte(`[{"event":"delivered"}]`), req.Body)
		assert.Equal(t, "203.0.113.9:49152", req.RemoteAddr)
	})

	t.Run("forwarded client wins over remote addr", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/hooks/postmark", strings.NewReader(`{}`))
		r.RemoteAddr = "10.0.0.5:33000"
		r.Header.Set("X-Forwarded-For", "3.134.147.250, 10.0.0.5")

		req, err := webhook.FromHTTPRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "3.134.147.250", req.RemoteAddr)
	})

	t.Run("cloudflare header beats forwarded-for", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/hooks/mailgun", strings.NewReader(`{}`))
		r.Header.Set("CF-Connecting-IP", "198.51.100.7")
		r.Header.Set("X-Forwarded-For", "192.0.2.1")

		req, err := webhook.FromHTTPRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "198.51.100.7", req.RemoteAddr)
	})

	t.Run("malformed forwarded header falls back", func(t *testing.T) {
		t.Parallel()

		r := httptest.NewRequest("POST", "/hooks/ses", strings.NewReader(`{}`))
		r.RemoteAddr = "203.0.113.9:49152"
		r.Header.Set("X-Forwarded-For", "not-an-ip")

		req, err := webhook.FromHTTPRequest(r)
		require.NoError(t, err)
		assert.Equal(t, "203.0.113.9:49152", req.RemoteAddr)
	})
}
