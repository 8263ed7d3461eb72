package mailgun

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/espbridge/espbridge/core/classify"
	"github.com/espbridge/espbridge/core/mail"
	"github.com/espbridge/espbridge/core/provider"
)

// maxRecipients is Mailgun's per-call batch limit.
const maxRecipients = 1000

// Provider implements provider.Provider for the Mailgun v3 API.
type Provider struct {
	config Config
}

// New creates a Mailgun provider. Domain and API key are required.
func New(cfg Config) (*Provider, error) {
	if cfg.Domain == "" {
		return nil, fmt.Errorf("%w: MAILGUN_DOMAIN is required", provider.ErrEncoding)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: MAILGUN_API_KEY is required", provider.ErrEncoding)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mailgun.net"
	}
	return &Provider{config: cfg}, nil
}

// MustNew creates a Mailgun provider that panics on invalid config.
func MustNew(cfg Config) *Provider {
	p, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Provider) Name() string { return "mailgun" }

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

// Encode maps the canonical message to Mailgun's form encoding. Messages
// without attachments go as application/x-www-form-urlencoded; messages
// with attachments switch to multipart/form-data for the file parts.
func (p *Provider) Encode(msg *mail.Message, strictness provider.Strictness) (*provider.Request, []string, error) {
	warnings, err := provider.CheckFeatures(p.Capabilities(), msg, strictness)
	if err != nil {
		return nil, nil, err
	}

	form, err := p.formFields(msg)
	if err != nil {
		return nil, nil, err
	}

	req := &provider.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/v3/%s/messages", p.config.BaseURL, p.config.Domain),
		Header: http.Header{
			"Authorization": {"Basic " + base64.StdEncoding.EncodeToString([]byte("api:"+p.config.APIKey))},
		},
	}

	if len(msg.Attachments) == 0 {
		req.ContentType = "application/x-www-form-urlencoded"
		req.Body = []byte(form.Encode())
		return req, warnings, nil
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for name, values := range form {
		for _, v := range values {
			if err := w.WriteField(name, v); err != nil {
				return nil, nil, fmt.Errorf("%w: %w", provider.ErrEncoding, err)
			}
		}
	}
	for _, a := range msg.Attachments {
		field := "attachment"
		name := a.Name
		if a.Inline {
			field = "inline"
			// Inline parts are referenced from HTML as cid:<filename>;
			// an explicit ContentID wins over the filename.
			if a.ContentID != "" {
				name = a.ContentID
			}
		}
		part, err := w.CreateFormFile(field, name)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", provider.ErrEncoding, err)
		}
		if _, err := part.Write(a.Content()); err != nil {
			return nil, nil, fmt.Errorf("%w: %w", provider.ErrEncoding, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", provider.ErrEncoding, err)
	}

	req.ContentType = w.FormDataContentType()
	req.Body = buf.Bytes()
	return req, warnings, nil
}

func (p *Provider) formFields(msg *mail.Message) (url.Values, error) {
	form := url.Values{}
	form.Set("from", msg.From.String())
	if msg.ReplyTo.Email != "" {
		form.Set("h:Reply-To", msg.ReplyTo.String())
	}
	if msg.Subject != "" {
		form.Set("subject", msg.Subject)
	}
	if msg.Text != "" {
		form.Set("text", msg.Text)
	}
	if msg.HTML != "" {
		form.Set("html", msg.HTML)
	}
	if msg.TemplateID != "" {
		form.Set("template", msg.TemplateID)
	}

	for _, r := range msg.Recipients {
		switch r.Field {
		case mail.FieldCC:
			form.Add("cc", r.Address.String())
		case mail.FieldBCC:
			form.Add("bcc", r.Address.String())
		default:
			form.Add("to", r.Address.String())
		}
	}

	for _, tag := range msg.Tags {
		form.Add("o:tag", tag)
	}
	for key, value := range msg.Metadata {
		form.Set("v:"+key, value)
	}
	for _, h := range msg.Headers() {
		form.Set("h:"+h.Name, h.Value)
	}
	if msg.TrackOpens != mail.TrackDefault {
		form.Set("o:tracking-opens", yesNo(msg.TrackOpens == mail.TrackOn))
	}
	if msg.TrackClicks != mail.TrackDefault {
		form.Set("o:tracking-clicks", yesNo(msg.TrackClicks == mail.TrackOn))
	}

	if vars, err := recipientVariables(msg); err != nil {
		return nil, err
	} else if vars != "" {
		form.Set("recipient-variables", vars)
	}
	if len(msg.MergeGlobal) > 0 {
		raw, err := json.Marshal(msg.MergeGlobal)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", provider.ErrEncoding, err)
		}
		form.Set("h:X-Mailgun-Variables", string(raw))
	}
	return form, nil
}

// recipientVariables serializes per-recipient merge data keyed by address,
// which is how Mailgun applies substitutions in batch sends.
func recipientVariables(msg *mail.Message) (string, error) {
	if !msg.HasMergeData() {
		return "", nil
	}
	vars := make(map[string]map[string]any, len(msg.Recipients))
	for _, r := range msg.Recipients {
		if len(r.MergeData) > 0 {
			vars[r.Address.Email] = r.MergeData
		}
	}
	raw, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("%w: %w", provider.ErrEncoding, err)
	}
	return string(raw), nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// mgResponse is the v3 messages response shape, shared by success and
// error responses.
type mgResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// ParseResponse resolves the whole-call verdict. Mailgun answers 200 with
// an id and a confirmation message; the id (angle brackets stripped)
// correlates subsequent events.
func (p *Provider) ParseResponse(msg *mail.Message, resp *provider.Response) (*mail.Result, error) {
	var body mgResponse
	decodeErr := json.Unmarshal(resp.Body, &body)

	if resp.StatusCode == http.StatusOK {
		if decodeErr != nil {
			return nil, &classify.Error{
				Class:  classify.Classification{Kind: classify.Unknown},
				Detail: "unparseable success body",
				Cause:  fmt.Errorf("%w: %w", provider.ErrUnexpectedResponse, decodeErr),
			}
		}
		messageID := strings.Trim(body.ID, "<>")
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
		class.Kind = classify.Unknown
	}
	detail := fmt.Sprintf("status %d", resp.StatusCode)
	if decodeErr == nil && body.Message != "" {
		detail = fmt.Sprintf("status %d: %s", resp.StatusCode, body.Message)
	}
	return nil, &classify.Error{
		Class:  class,
		Detail: detail,
		Cause:  provider.ErrUnexpectedResponse,
	}
}
