package sendgrid

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/espbridge/espbridge/core/classify"
	"github.com/espbridge/espbridge/core/mail"
	"github.com/espbridge/espbridge/core/provider"
	"github.com/espbridge/espbridge/core/webhook"
)

const sendPath = "/v3/mail/send"

// maxRecipients is SendGrid's per-call personalization recipient limit.
const maxRecipients = 1000

// Provider implements provider.Provider for the SendGrid v3 API.
type Provider struct {
	config Config
}

// New creates a SendGrid provider. The API key is required.
func New(cfg Config) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: SENDGRID_API_KEY is required", provider.ErrEncoding)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.sendgrid.com"
	}
	return &Provider{config: cfg}, nil
}

// MustNew creates a SendGrid provider that panics on invalid config.
func MustNew(cfg Config) *Provider {
	p, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Provider) Name() string { return "sendgrid" }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		BatchMerge:         true,
		Templates:          true,
		Attachments:        true,
		InlineAttachments:  true,
		OpenTracking:       true,
		ClickTracking:      true,
		MultipleTags:       true,
		Metadata:           true,
		CustomHeaders:      true,
		PerRecipientStatus: false,
		MaxRecipients:      maxRecipients,
	}
}

// Verifier returns the webhook verifier for the configured basic-auth
// credentials.
func (p *Provider) Verifier() webhook.Verifier {
	username, password := p.config.WebhookUsername, p.config.WebhookPassword
	return webhook.VerifierFunc(func(req *webhook.Request) error {
		return webhook.CheckBasicAuth(req.Header, username, password)
	})
}

// Wire shapes for the v3 mail send payload.
type (
	sgAddress struct {
		Email string `json:"email"`
		Name  string `json:"name,omitempty"`
	}

	sgPersonalization struct {
		To                  []sgAddress    `json:"to"`
		CC                  []sgAddress    `json:"cc,omitempty"`
		BCC                 []sgAddress    `json:"bcc,omitempty"`
		DynamicTemplateData map[string]any `json:"dynamic_template_data,omitempty"`
	}

	sgContent struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	}

	sgAttachment struct {
		Content     string `json:"content"`
		Type        string `json:"type,omitempty"`
		Filename    string `json:"filename"`
		Disposition string `json:"disposition,omitempty"`
		ContentID   string `json:"content_id,omitempty"`
	}

	sgTrackingSetting struct {
		Enable bool `json:"enable"`
	}

	sgTrackingSettings struct {
		OpenTracking  *sgTrackingSetting `json:"open_tracking,omitempty"`
		ClickTracking *sgTrackingSetting `json:"click_tracking,omitempty"`
	}

	sgPayload struct {
		Personalizations []sgPersonalization `json:"personalizations"`
		From             sgAddress           `json:"from"`
		ReplyTo          *sgAddress          `json:"reply_to,omitempty"`
		Subject          string              `json:"subject,omitempty"`
		Content          []sgContent         `json:"content,omitempty"`
		Attachments      []sgAttachment      `json:"attachments,omitempty"`
		TemplateID       string              `json:"template_id,omitempty"`
		Headers          map[string]string   `json:"headers,omitempty"`
		Categories       []string            `json:"categories,omitempty"`
		CustomArgs       map[string]string   `json:"custom_args,omitempty"`
		TrackingSettings *sgTrackingSettings `json:"tracking_settings,omitempty"`
	}
)

// Encode maps the canonical message to the v3 mail send payload.
func (p *Provider) Encode(msg *mail.Message, strictness provider.Strictness) (*provider.Request, []string, error) {
	warnings, err := provider.CheckFeatures(p.Capabilities(), msg, strictness)
	if err != nil {
		return nil, nil, err
	}

	payload := sgPayload{
		From:             toAddress(msg.From),
		Subject:          msg.Subject,
		Personalizations: personalizations(msg),
		TemplateID:       msg.TemplateID,
		Categories:       msg.Tags,
	}
	if msg.ReplyTo.Email != "" {
		addr := toAddress(msg.ReplyTo)
		payload.ReplyTo = &addr
	}
	if msg.Text != "" {
		payload.Content = append(payload.Content, sgContent{Type: "text/plain", Value: msg.Text})
	}
	if msg.HTML != "" {
		payload.Content = append(payload.Content, sgContent{Type: "text/html", Value: msg.HTML})
	}
	if len(msg.Metadata) > 0 {
		payload.CustomArgs = msg.Metadata
	}
	if headers := msg.Headers(); len(headers) > 0 {
		payload.Headers = make(map[string]string, len(headers))
		for _, h := range headers {
			payload.Headers[h.Name] = h.Value
		}
	}
	for _, a := range msg.Attachments {
		att := sgAttachment{
			Content:  base64.StdEncoding.EncodeToString(a.Content()),
			Type:     a.ContentType,
			Filename: a.Name,
		}
		if a.Inline {
			att.Disposition = "inline"
			att.ContentID = a.ContentID
		}
		payload.Attachments = append(payload.Attachments, att)
	}
	if msg.TrackOpens != mail.TrackDefault || msg.TrackClicks != mail.TrackDefault {
		settings := &sgTrackingSettings{}
		if msg.TrackOpens != mail.TrackDefault {
			settings.OpenTracking = &sgTrackingSetting{Enable: msg.TrackOpens == mail.TrackOn}
		}
		if msg.TrackClicks != mail.TrackDefault {
			settings.ClickTracking = &sgTrackingSetting{Enable: msg.TrackClicks == mail.TrackOn}
		}
		payload.TrackingSettings = settings
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", provider.ErrEncoding, err)
	}

	return &provider.Request{
		Method:      http.MethodPost,
		URL:         p.config.BaseURL + sendPath,
		Header:      http.Header{"Authorization": {"Bearer " + p.config.APIKey}},
		ContentType: "application/json",
		Body:        body,
	}, warnings, nil
}

// personalizations builds the recipient groups. Messages with per-recipient
// merge data get one personalization per "to" recipient so SendGrid applies
// each recipient's substitutions independently; cc/bcc recipients ride on
// the first group. Without merge data a single group carries everyone and
// the shared substitution data.
func personalizations(msg *mail.Message) []sgPersonalization {
	cc := addressList(msg.RecipientsIn(mail.FieldCC))
	bcc := addressList(msg.RecipientsIn(mail.FieldBCC))
	to := msg.RecipientsIn(mail.FieldTo)

	if !msg.HasMergeData() {
		p := sgPersonalization{To: addressList(to), CC: cc, BCC: bcc}
		if len(msg.MergeGlobal) > 0 {
			p.DynamicTemplateData = msg.MergeGlobal
		}
		return []sgPersonalization{p}
	}

	out := make([]sgPersonalization, 0, len(to))
	for i, r := range to {
		p := sgPersonalization{
			To:                  []sgAddress{toAddress(r.Address)},
			DynamicTemplateData: mergeData(msg.MergeGlobal, r.MergeData),
		}
		if i == 0 {
			p.CC, p.BCC = cc, bcc
		}
		out = append(out, p)
	}
	return out
}

// mergeData overlays per-recipient substitutions on the shared ones.
func mergeData(global, perRecipient map[string]any) map[string]any {
	if len(global) == 0 && len(perRecipient) == 0 {
		return nil
	}
	merged := make(map[string]any, len(global)+len(perRecipient))
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range perRecipient {
		merged[k] = v
	}
	return merged
}

func toAddress(a mail.Address) sgAddress {
	return sgAddress{Email: a.Email, Name: a.Name}
}

func addressList(recipients []mail.Recipient) []sgAddress {
	if len(recipients) == 0 {
		return nil
	}
	out := make([]sgAddress, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, toAddress(r.Address))
	}
	return out
}

// sgErrorBody is the v3 API error response shape.
type sgErrorBody struct {
	Errors []struct {
		Message string `json:"message"`
		Field   string `json:"field"`
	} `json:"errors"`
}

// ParseResponse resolves the whole-call verdict. SendGrid answers 202 with
// an X-Message-Id header on success; error bodies carry a JSON errors
// array that becomes the classified error detail.
func (p *Provider) ParseResponse(msg *mail.Message, resp *provider.Response) (*mail.Result, error) {
	if resp.StatusCode == http.StatusAccepted {
		messageID := resp.Header.Get("X-Message-Id")
		result := &mail.Result{Aggregate: true}
		for _, r := range msg.Recipients {
			result.Recipients = append(result.Recipients, mail.RecipientResult{
				Recipient: r.Address,
				MessageID: messageID,
				Status:    mail.StatusQueued,
			})
		}
		return result, nil
	}

	class := classify.FromStatusCode(resp.StatusCode, resp.Header)
	if class.Kind == "" {
		// An unexpected success status still means the send verdict is
		// unknowable from the response.
		class.Kind = classify.Unknown
	}
	detail := fmt.Sprintf("status %d", resp.StatusCode)

	var body sgErrorBody
	if err := json.Unmarshal(resp.Body, &body); err == nil && len(body.Errors) > 0 {
		msgs := make([]string, 0, len(body.Errors))
		for _, e := range body.Errors {
			if e.Field != "" {
				msgs = append(msgs, e.Field+": "+e.Message)
				continue
			}
			msgs = append(msgs, e.Message)
		}
		detail = fmt.Sprintf("status %d: %s", resp.StatusCode, strings.Join(msgs, "; "))
	}

	return nil, &classify.Error{
		Class:  class,
		Detail: detail,
		Cause:  provider.ErrUnexpectedResponse,
	}
}
