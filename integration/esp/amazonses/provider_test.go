package amazonses_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/espbridge/espbridge/core/classify"
	"github.com/espbridge/espbridge/core/mail"
	"github.com/espbridge/espbridge/core/provider"
	"github.com/espbridge/espbridge/integration/esp/amazonses"
)

func testConfig() amazonses.Config {
	return amazonses.Config{Region: "us-east-1", ConfigurationSet: "tracking"}
}

func testMessage() *mail.Message {
	return &mail.Message{
		From:    mail.Address{Email: "sender@example.com", Name: "Sender"},
		Subject: "Welcome",
		Text:    "Hello there",
		HTML:    "<p>Hello there</p>",
		Recipients: []mail.Recipient{
			{Address: mail.Address{Email: "one@example.com"}},
			{Address: mail.Address{Email: "two@example.com"}, Field: mail.FieldBCC},
		},
	}
}

func TestNew_RequiresRegion(t *testing.T) {
	t.Parallel()

	_, err := amazonses.New(amazonses.Config{})
	require.Error(t, err)

	p, err := amazonses.New(testConfig())
	require.NoError(t, err)
	assert.Equal(t, "amazonses", p.Name())
}

func TestEncode_SimpleContent(t *testing.T) {
	t.Parallel()

	msg := testMessage()
	msg.Tags = []string{"welcome", "onboarding"}
	msg.Metadata = map[string]string{"user_id": "42"}
	msg.Attach("report.pdf", "application/pdf", []byte("pdf-bytes"))

	p := amazonses.MustNew(testConfig())
	req, warnings, err := p.Encode(msg, provider.StrictMode)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "https://email.us-east-1.amazonaws.com/v2/email/outbound-emails", req.URL)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &payload))
	assert.Equal(t, "Sender <sender@example.com>", payload["FromEmailAddress"])
	assert.Equal(t, "tracking", payload["ConfigurationSetName"])

	dst := payload["Destination"].(map[string]any)
	assert.Equal(t, []any{"one@example.com"}, dst["ToAddresses"])
	assert.Equal(t, []any{"two@example.com"}, dst["BccAddresses"])

	simple := payload["Content"].(map[string]any)["Simple"].(map[string]any)
	assert.Equal(t, "Welcome", simple["Subject"].(map[string]any)["Data"])
	body := simple["Body"].(map[string]any)
	assert.Equal(t, "Hello there", body["Text"].(map[string]any)["Data"])

	headers := simple["Headers"].([]any)
	var tagValues []string
	var metadataValue string
	for _, h := range headers {
		entry := h.(map[string]any)
		switch entry["Name"] {
		case "X-Tag":
			tagValues = append(tagValues, entry["Value"].(string))
		case "X-Metadata":
			metadataValue = entry["Value"].(string)
		}
	}
	assert.Equal(t, []string{"welcome", "onboarding"}, tagValues)
	assert.JSONEq(t, `{"user_id":"42"}`, metadataValue)

	attachments := simple["Attachments"].([]any)
	require.Len(t, attachments, 1)
	assert.Equal(t, "report.pdf", attachments[0].(map[string]any)["FileName"])

	emailTags := payload["EmailTags"].([]any)
	require.Len(t, emailTags, 2)
	assert.Equal(t, "welcome", emailTags[0].(map[string]any)["Value"])
}

func TestEncode_TemplateContent(t *testing.T) {
	t.Parallel()

	msg := &mail.Message{
		From:        mail.Address{Email: "sender@example.com"},
		TemplateID:  "welcome-v2",
		MergeGlobal: map[string]any{"company": "Acme"},
		Recipients: []mail.Recipient{
			{Address: mail.Address{Email: "a@example.com"}, MergeData: map[string]any{"name": "Ann"}},
		},
	}

	p := amazonses.MustNew(testConfig())
	req, _, err := p.Encode(msg, provider.StrictMode)
	require.NoError(t, err)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(req.Body, &payload))
	tmpl := payload["Content"].(map[string]any)["Template"].(map[string]any)
	assert.Equal(t, "welcome-v2", tmpl["TemplateName"])

	var data map[string]any
	require.NoError(t, json.Unmarshal([]byte(tmpl["TemplateData"].(string)), &data))
	assert.Equal(t, "Acme", data["company"])
	assert.Equal(t, "Ann", data["name"])
}

func TestEncode_TrackingFlagsUnsupported(t *testing.T) {
	t.Parallel()

	msg := testMessage()
	msg.TrackOpens = mail.TrackOn

	p := amazonses.MustNew(testConfig())

	_, _, err := p.Encode(msg, provider.StrictMode)
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrUnsupportedFeature)

	_, warnings, err := p.Encode(msg, provider.BestEffort)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "open tracking")
}

func TestParseResponse_Accepted(t *testing.T) {
	t.Parallel()

	p := amazonses.MustNew(testConfig())
	result, err := p.ParseResponse(testMessage(), &provider.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"MessageId":"0100017f1a2b3c4d-1111"}`),
	})
	require.NoError(t, err)
	assert.True(t, result.Aggregate)
	require.Len(t, result.Recipients, 2)
	assert.Equal(t, "0100017f1a2b3c4d-1111", result.Recipients[0].MessageID)
	assert.Equal(t, mail.StatusQueued, result.Recipients[0].Status)
}

func TestParseResponse_ErrorTypes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		errorType string
		body      string
		wantKind  classify.Kind
	}{
		{"message rejected", http.StatusBadRequest, "MessageRejected", `{"message":"Email address is not verified"}`, classify.Permanent},
		{"unverified mail-from", http.StatusBadRequest, "MailFromDomainNotVerifiedException", `{"message":"domain not verified"}`, classify.Configuration},
		{"account suspended", http.StatusForbidden, "AccountSuspendedException", `{"message":"account suspended"}`, classify.Configuration},
		{"throttled", http.StatusTooManyRequests, "TooManyRequestsException", `{"message":"rate exceeded"}`, classify.Transient},
		{"server error", http.StatusInternalServerError, "", "", classify.Transient},
	}

	p := amazonses.MustNew(testConfig())
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			header := http.Header{}
			if tt.errorType != "" {
				header.Set("X-Amzn-Errortype", tt.errorType)
			}
			_, err := p.ParseResponse(testMessage(), &provider.Response{
				StatusCode: tt.status,
				Header:     header,
				Body:       []byte(tt.body),
			})
			require.Error(t, err)

			var cerr *classify.Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.wantKind, cerr.Class.Kind)
		})
	}
}
