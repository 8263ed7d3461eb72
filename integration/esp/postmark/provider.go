package postmark

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/mrz1836/postmark"

	"github.com/espbridge/espbridge/core/classify"
	"github.com/espbridge/espbridge/core/mail"
	"github.com/espbridge/espbridge/core/provider"
)

// maxRecipients is Postmark's per-call limit across To, Cc, and Bcc.
const maxRecipients = 50

// errorCodeKinds refines classification by Postmark's API error codes,
// which carry more signal than the HTTP status alone.
var errorCodeKinds = map[int64]classify.Kind{
	10:  classify.Configuration, // bad or missing server token
	300: classify.Permanent,     // invalid email request
	400: classify.Configuration, // sender signature not found
	401: classify.Configuration, // sender signature not confirmed
	402: classify.Permanent,     // invalid JSON
	405: classify.Configuration, // account not allowed to send
	406: classify.Permanent,     // inactive recipient
	412: classify.Configuration, // account pending approval
}

// Provider implements provider.Provider for the Postmark API.
type Provider struct {
	config Config
}

// New creates a Postmark provider. The server token is required.
func New(cfg Config) (*Provider, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("%w: POSTMARK_SERVER_TOKEN is required", provider.ErrEncoding)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.postmarkapp.com"
	}
	return &Provider{config: cfg}, nil
}

// MustNew creates a Postmark provider that panics on invalid config.
func MustNew(cfg Config) *Provider {
	p, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Provider) Name() string { return "postmark" }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		BatchMerge:         false,
		Templates:          true,
		Attachments:        true,
		InlineAttachments:  true,
		OpenTracking:       true,
		ClickTracking:      true,
		MultipleTags:       false,
		Metadata:           true,
		CustomHeaders:      true,
		PerRecipientStatus: true,
		MaxRecipients:      maxRecipients,
	}
}

// Encode maps the canonical message onto the postmark wire structs.
// Template sends go to /email/withTemplate, everything else to /email.
func (p *Provider) Encode(msg *mail.Message, strictness provider.Strictness) (*provider.Request, []string, error) {
	warnings, err := provider.CheckFeatures(p.Capabilities(), msg, strictness)
	if err != nil {
		return nil, nil, err
	}

	var payload any
	path := "/email"
	if msg.TemplateID != "" {
		path = "/email/withTemplate"
		payload = p.templatedEmail(msg)
	} else {
		payload = p.email(msg)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", provider.ErrEncoding, err)
	}

	return &provider.Request{
		Method: http.MethodPost,
		URL:    p.config.BaseURL + path,
		Header: http.Header{
			"Accept":                  {"application/json"},
			"X-Postmark-Server-Token": {p.config.ServerToken},
		},
		ContentType: "application/json",
		Body:        body,
	}, warnings, nil
}

func (p *Provider) email(msg *mail.Message) postmark.Email {
	return postmark.Email{
		From:          msg.From.String(),
		To:            joinRecipients(msg, mail.FieldTo),
		Cc:            joinRecipients(msg, mail.FieldCC),
		Bcc:           joinRecipients(msg, mail.FieldBCC),
		Subject:       msg.Subject,
		Tag:           firstTag(msg),
		TextBody:      msg.Text,
		HTMLBody:      msg.HTML,
		ReplyTo:       msg.ReplyTo.String(),
		Headers:       headers(msg),
		TrackOpens:    msg.TrackOpens == mail.TrackOn,
		TrackLinks:    trackLinks(msg.TrackClicks),
		Attachments:   attachments(msg),
		Metadata:      msg.Metadata,
		MessageStream: p.config.MessageStream,
	}
}

func (p *Provider) templatedEmail(msg *mail.Message) postmark.TemplatedEmail {
	out := postmark.TemplatedEmail{
		TemplateModel: templateModel(msg),
		From:          msg.From.String(),
		To:            joinRecipients(msg, mail.FieldTo),
		Cc:            joinRecipients(msg, mail.FieldCC),
		Bcc:           joinRecipients(msg, mail.FieldBCC),
		Tag:           firstTag(msg),
		ReplyTo:       msg.ReplyTo.String(),
		Headers:       headers(msg),
		TrackOpens:    msg.TrackOpens == mail.TrackOn,
		TrackLinks:    trackLinks(msg.TrackClicks),
		Attachments:   attachments(msg),
		Metadata:      metadataModel(msg),
		MessageStream: p.config.MessageStream,
	}
	// Numeric references are template IDs, everything else an alias.
	if id, err := strconv.ParseInt(msg.TemplateID, 10, 64); err == nil {
		out.TemplateID = id
	} else {
		out.TemplateAlias = msg.TemplateID
	}
	return out
}

// metadataModel widens message metadata to the map[string]interface{}
// shape TemplatedEmail.Metadata requires; values are unchanged.
func metadataModel(msg *mail.Message) map[string]any {
	if msg.Metadata == nil {
		return nil
	}
	out := make(map[string]any, len(msg.Metadata))
	for k, v := range msg.Metadata {
		out[k] = v
	}
	return out
}

// templateModel merges shared substitution data with the single
// recipient's data. Postmark sends are single-recipient for merge
// messages (the dispatcher fans out), so at most one recipient carries
// merge data here.
func templateModel(msg *mail.Message) map[string]any {
	model := make(map[string]any, len(msg.MergeGlobal))
	for k, v := range msg.MergeGlobal {
		model[k] = v
	}
	for _, r := range msg.Recipients {
		for k, v := range r.MergeData {
			model[k] = v
		}
	}
	if len(model) == 0 {
		return nil
	}
	return model
}

func joinRecipients(msg *mail.Message, field mail.RecipientField) string {
	recipients := msg.RecipientsIn(field)
	if len(recipients) == 0 {
		return ""
	}
	parts := make([]string, 0, len(recipients))
	for _, r := range recipients {
		parts = append(parts, r.Address.String())
	}
	return strings.Join(parts, ", ")
}

func firstTag(msg *mail.Message) string {
	if len(msg.Tags) == 0 {
		return ""
	}
	return msg.Tags[0]
}

func headers(msg *mail.Message) []postmark.Header {
	custom := msg.Headers()
	if len(custom) == 0 {
		return nil
	}
	out := make([]postmark.Header, 0, len(custom))
	for _, h := range custom {
		out = append(out, postmark.Header{Name: h.Name, Value: h.Value})
	}
	return out
}

func attachments(msg *mail.Message) []postmark.Attachment {
	if len(msg.Attachments) == 0 {
		return nil
	}
	out := make([]postmark.Attachment, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		att := postmark.Attachment{
			Name:        a.Name,
			Content:     base64.StdEncoding.EncodeToString(a.Content()),
			ContentType: a.ContentType,
		}
		if a.Inline {
			att.ContentID = "cid:" + a.ContentID
		}
		out = append(out, att)
	}
	return out
}

func trackLinks(t mail.Tracking) string {
	switch t {
	case mail.TrackOn:
		return "HtmlAndText"
	case mail.TrackOff:
		return "None"
	default:
		return ""
	}
}

// inactivePattern matches the address list in Postmark's partial-accept
// message ("Message OK, but will not deliver to these addresses: {...}").
var inactivePattern = regexp.MustCompile(`will not deliver to these addresses:\s*\{?([^}.]+)`)

// ParseResponse resolves the Postmark verdict into per-recipient results.
// A clean accept marks every recipient sent; a partial accept marks the
// named inactive recipients rejected and the rest sent; API errors become
// classified failures via the error-code table.
func (p *Provider) ParseResponse(msg *mail.Message, resp *provider.Response) (*mail.Result, error) {
	var body postmark.EmailResponse
	decodeErr := json.Unmarshal(resp.Body, &body)

	if resp.StatusCode == http.StatusOK && decodeErr == nil && body.ErrorCode == 0 {
		inactive := inactiveRecipients(body.Message)
		result := &mail.Result{}
		for _, r := range msg.Recipients {
			rr := mail.RecipientResult{
				Recipient: r.Address,
				MessageID: body.MessageID,
				Status:    mail.StatusSent,
			}
			if _, skipped := inactive[strings.ToLower(r.Address.Email)]; skipped {
				rr.Status = mail.StatusRejected
				rr.Err = classify.NewError(classify.Permanent, "inactive recipient", nil)
			}
			result.Recipients = append(result.Recipients, rr)
		}
		return result, nil
	}

	class := classify.FromStatusCode(resp.StatusCode, resp.Header)
	detail := fmt.Sprintf("status %d", resp.StatusCode)
	if decodeErr == nil && body.ErrorCode > 0 {
		if kind, ok := errorCodeKinds[body.ErrorCode]; ok {
			class = classify.Classification{Kind: kind, Retryable: kind == classify.Transient}
		}
		detail = fmt.Sprintf("error %d: %s", body.ErrorCode, body.Message)
	}
	if class.Kind == "" {
		class.Kind = classify.Unknown
	}
	return nil, &classify.Error{
		Class:  class,
		Detail: detail,
		Cause:  provider.ErrUnexpectedResponse,
	}
}

// inactiveRecipients extracts the lowercased address set from a partial
// accept message; empty when the message names none.
func inactiveRecipients(message string) map[string]struct{} {
	m := inactivePattern.FindStringSubmatch(message)
	if m == nil {
		return nil
	}
	out := make(map[string]struct{})
	for _, addr := range strings.Split(m[1], ",") {
		addr = strings.TrimSpace(strings.ToLower(addr))
		if addr != "" {
			out[addr] = struct{}{}
		}
	}
	return out
}
