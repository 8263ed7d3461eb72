package sendgrid_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espbridge/espbridge/core/classify"
	"github.com/espbridge/espbridge/core/mail"
	"github.com/espbridge/espbridge/core/provider"
	"github.com/espbridge/espbridge/integration/esp/sendgrid"
)

func testMessage() *mail.Message {
	return &mail.Message{
		From:    mail.Address{Email: "sender@example.com", Name: "Sender"},
		Subject: "Welcome",
		Text:    "Hello there",
		HTML:    "<p>Hello there</p>",
		Recipients: []mail.Recipient{
			{Address: mail.Address{Email: "one@example.com", Name: "One"}},
			{Address: mail.Address{Email: "two@example.com"}, Field: mail.FieldCC},
		},
	}
}

func TestNew_RequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := sendgrid.New(sendgrid.Config{})
	require.Error(t, err)

	p, err := sendgrid.New(sendgrid.Config{APIKey: "SG.key"})
	require.NoError(t, err)
	assert.Equal(t, "sendgrid", p.Name())
}

func TestEncode_BasicMessage(t *testing.T) {
	t.Parallel()

	p := sendgrid.MustNew(sendgrid.Config{APIKey: "SG.key"})
	req, warnings, err := p.Encode(testMessage(), provider.StrictMode)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "https://api.sendgrid.com/v3/mail/send", req.URL)
	assert.Equal(t, "Bearer SG.key", req.Header.Get("Authorization"))
	assert.Equal(t, "application/json", req.ContentType)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &payload))
	assert.Equal(t, "Welcome", payload["subject"])

	from := payload["from"].(map[string]any)
	assert.Equal(t, "sender@example.com", from["email"])

	personalizations := payload["personalizations"].([]any)
	require.Len(t, personalizations, 1)
	first := personalizations[0].(map[string]any)
	to := first["to"].([]any)
	require.Len(t, to, 1)
	assert.Equal(t, "one@example.com", to[0].(map[string]any)["email"])
	cc := first["cc"].([]any)
	require.Len(t, cc, 1)
	assert.Equal(t, "two@example.com", cc[0].(map[string]any)["email"])

	content := payload["content"].([]any)
	require.Len(t, content, 2)
	assert.Equal(t, "text/plain", content[0].(map[string]any)["type"])
	assert.Equal(t, "text/html", content[1].(map[string]any)["type"])
}

func TestEncode_MergeFanOutIntoPersonalizations(t *testing.T) {
	t.Parallel()

	msg := &mail.Message{
		From:       mail.Address{Email: "sender@example.com"},
		Subject:    "Hi {{name}}",
		TemplateID: "d-12345",
		MergeGlobal: map[string]any{
			"company": "Acme",
		},
		Recipients: []mail.Recipient{
			{Address: mail.Address{Email: "a@example.com"}, MergeData: map[string]any{"name": "Ann"}},
			{Address: mail.Address{Email: "b@example.com"}, MergeData: map[string]any{"name": "Bob", "company": "Globex"}},
		},
	}

	p := sendgrid.MustNew(sendgrid.Config{APIKey: "SG.key"})
	req, _, err := p.Encode(msg, provider.StrictMode)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &payload))
	assert.Equal(t, "d-12345", payload["template_id"])

	personalizations := payload["personalizations"].([]any)
	require.Len(t, personalizations, 2)

	first := personalizations[0].(map[string]any)["dynamic_template_data"].(map[string]any)
	assert.Equal(t, "Ann", first["name"])
	assert.Equal(t, "Acme", first["company"])

	second := personalizations[1].(map[string]any)["dynamic_template_data"].(map[string]any)
	assert.Equal(t, "Bob", second["name"])
	assert.Equal(t, "Globex", second["company"], "per-recipient data overrides shared data")
}

func TestEncode_TagsMetadataTrackingHeaders(t *testing.T) {
	t.Parallel()

	msg := testMessage()
	msg.Tags = []string{"welcome", "onboarding"}
	msg.Metadata = map[string]string{"user_id": "42"}
	msg.TrackOpens = mail.TrackOn
	msg.TrackClicks = mail.TrackOff
	require.NoError(t, msg.SetHeader("X-Campaign", "spring"))
	msg.Attach("report.pdf", "application/pdf", []byte("pdf-bytes"))

	p := sendgrid.MustNew(sendgrid.Config{APIKey: "SG.key"})
	req, warnings, err := p.Encode(msg, provider.StrictMode)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &payload))

	assert.Equal(t, []any{"welcome", "onboarding"}, payload["categories"])
	assert.Equal(t, "42", payload["custom_args"].(map[string]any)["user_id"])
	assert.Equal(t, "spring", payload["headers"].(map[string]any)["X-Campaign"])

	tracking := payload["tracking_settings"].(map[string]any)
	assert.Equal(t, true, tracking["open_tracking"].(map[string]any)["enable"])
	assert.Equal(t, false, tracking["click_tracking"].(map[string]any)["enable"])

	attachments := payload["attachments"].([]any)
	require.Len(t, attachments, 1)
	assert.Equal(t, "report.pdf", attachments[0].(map[string]any)["filename"])
}

func TestParseResponse_Accepted(t *testing.T) {
	t.Parallel()

	p := sendgrid.MustNew(sendgrid.Config{APIKey: "SG.key"})
	msg := testMessage()
	result, err := p.ParseResponse(msg, &provider.Response{
		StatusCode: http.StatusAccepted,
		Header:     http.Header{"X-Message-Id": {"msg-abc"}},
	})
	require.NoError(t, err)

	assert.True(t, result.Aggregate)
	assert.True(t, result.OK())
	require.Len(t, result.Recipients, 2)
	for _, rr := range result.Recipients {
		assert.Equal(t, mail.StatusQueued, rr.Status)
		assert.Equal(t, "msg-abc", rr.MessageID)
	}
}

func TestParseResponse_Classification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		header    http.Header
		body      string
		wantKind  classify.Kind
		wantRetry bool
	}{
		{
			name:     "bad request is permanent",
			status:   http.StatusBadRequest,
			body:     `{"errors":[{"message":"does not contain a valid address","field":"personalizations.0.to"}]}`,
			wantKind: classify.Permanent,
		},
		{
			name:     "unauthorized is configuration",
			status:   http.StatusUnauthorized,
			body:     `{"errors":[{"message":"The provided authorization grant is invalid"}]}`,
			wantKind: classify.Configuration,
		},
		{
			name:      "throttled is transient with backoff",
			status:    http.StatusTooManyRequests,
			header:    http.Header{"Retry-After": {"30"}},
			body:      `{"errors":[{"message":"too many requests"}]}`,
			wantKind:  classify.Transient,
			wantRetry: true,
		},
		{
			name:      "server error is transient",
			status:    http.StatusServiceUnavailable,
			body:      "upstream unavailable",
			wantKind:  classify.Transient,
			wantRetry: true,
		},
		{
			name:     "unrecognized status is unknown",
			status:   http.StatusTeapot,
			wantKind: classify.Unknown,
		},
	}

	p := sendgrid.MustNew(sendgrid.Config{APIKey: "SG.key"})
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := p.ParseResponse(testMessage(), &provider.Response{
				StatusCode: tt.status,
				Header:     tt.header,
				Body:       []byte(tt.body),
			})
			require.Error(t, err)
			assert.Nil(t, result)

			var cerr *classify.Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.wantKind, cerr.Class.Kind)
			assert.Equal(t, tt.wantRetry, cerr.Retryable())
		})
	}

	t.Run("retry-after surfaces as backoff", func(t *testing.T) {
		t.Parallel()

		_, err := p.ParseResponse(testMessage(), &provider.Response{
			StatusCode: http.StatusTooManyRequests,
			Header:     http.Header{"Retry-After": {"30"}},
		})
		var cerr *classify.Error
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, 30*time.Second, cerr.RetryAfter())
	})

	t.Run("error body detail is preserved", func(t *testing.T) {
		t.Parallel()

		_, err := p.ParseResponse(testMessage(), &provider.Response{
			StatusCode: http.StatusBadRequest,
			Body:       []byte(`{"errors":[{"message":"invalid address","field":"personalizations.0.to"}]}`),
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "personalizations.0.to: invalid address")
	})
}
