package amazonses

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/espbridge/espbridge/core/classify"
	"github.com/espbridge/espbridge/core/mail"
	"github.com/espbridge/espbridge/core/provider"
)

const sendPath = "/v2/email/outbound-emails"

// maxRecipients is the SES per-call recipient limit.
const maxRecipients = 50

// TagHeader and MetadataHeader carry correlation data through SES, which
// has no native echo fields. They come back in the notification's
// mail.headers block.
const (
	TagHeader      = "X-Tag"
	MetadataHeader = "X-Metadata"
)

// Provider implements provider.Provider for the Amazon SES v2 API.
// Requests must go through a SigningTransport; Encode leaves the wire
// request unsigned.
type Provider struct {
	config Config
}

// New creates an SES provider. The region is required.
func New(cfg Config) (*Provider, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("%w: AWS_SES_REGION is required", provider.ErrEncoding)
	}
	return &Provider{config: cfg}, nil
}

// MustNew creates an SES provider that panics on invalid config.
func MustNew(cfg Config) *Provider {
	p, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

func (p *Provider) Name() string { return "amazonses" }

func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		BatchMerge:        false,
		Templates:         true,
		Attachments:       true,
		InlineAttachments: true,
		// Open and click tracking are configuration-set scoped in SES,
		// not per-message.
		OpenTracking:       false,
		ClickTracking:      false,
		MultipleTags:       true,
		Metadata:           true,
		CustomHeaders:      true,
		PerRecipientStatus: false,
		MaxRecipients:      maxRecipients,
	}
}

// Wire shapes for the SESv2 SendEmail operation.
type (
	sesContentPart struct {
		Data string `json:"Data"`
	}

	sesBody struct {
		Text *sesContentPart `json:"Text,omitempty"`
		Html *sesContentPart `json:"Html,omitempty"`
	}

	sesHeader struct {
		Name  string `json:"Name"`
		Value string `json:"Value"`
	}

	sesAttachment struct {
		RawContent         string `json:"RawContent"`
		ContentType        string `json:"ContentType,omitempty"`
		FileName           string `json:"FileName"`
		ContentDisposition string `json:"ContentDisposition,omitempty"`
		ContentID          string `json:"ContentId,omitempty"`
	}

	sesSimple struct {
		Subject     *sesContentPart `json:"Subject,omitempty"`
		Body        *sesBody        `json:"Body,omitempty"`
		Headers     []sesHeader     `json:"Headers,omitempty"`
		Attachments []sesAttachment `json:"Attachments,omitempty"`
	}

	sesTemplate struct {
		TemplateName string      `json:"TemplateName"`
		TemplateData string      `json:"TemplateData,omitempty"`
		Headers      []sesHeader `json:"Headers,omitempty"`
	}

	sesContent struct {
		Simple   *sesSimple   `json:"Simple,omitempty"`
		Template *sesTemplate `json:"Template,omitempty"`
	}

	sesDestination struct {
		ToAddresses  []string `json:"ToAddresses,omitempty"`
		CcAddresses  []string `json:"CcAddresses,omitempty"`
		BccAddresses []string `json:"BccAddresses,omitempty"`
	}

	sesEmailTag struct {
		Name  string `json:"Name"`
		Value string `json:"Value"`
	}

	sesPayload struct {
		FromEmailAddress     string         `json:"FromEmailAddress"`
		Destination          sesDestination `json:"Destination"`
		ReplyToAddresses     []string       `json:"ReplyToAddresses,omitempty"`
		Content              sesContent     `json:"Content"`
		EmailTags            []sesEmailTag  `json:"EmailTags,omitempty"`
		ConfigurationSetName string         `json:"ConfigurationSetName,omitempty"`
	}
)

// Encode maps the canonical message onto the SendEmail shape. Tags and
// metadata ride as custom headers so tracking events can recover them.
func (p *Provider) Encode(msg *mail.Message, strictness provider.Strictness) (*provider.Request, []string, error) {
	warnings, err := provider.CheckFeatures(p.Capabilities(), msg, strictness)
	if err != nil {
		return nil, nil, err
	}

	headers, err := correlationHeaders(msg)
	if err != nil {
		return nil, nil, err
	}

	payload := sesPayload{
		FromEmailAddress:     msg.From.String(),
		Destination:          destination(msg),
		ConfigurationSetName: p.config.ConfigurationSet,
	}
	if msg.ReplyTo.Email != "" {
		payload.ReplyToAddresses = []string{msg.ReplyTo.String()}
	}
	for _, tag := range msg.Tags {
		payload.EmailTags = append(payload.EmailTags, sesEmailTag{Name: "tag", Value: tag})
	}

	if msg.TemplateID != "" {
		tmpl := &sesTemplate{TemplateName: msg.TemplateID, Headers: headers}
		if data := templateData(msg); data != nil {
			raw, err := json.Marshal(data)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %w", provider.ErrEncoding, err)
			}
			tmpl.TemplateData = string(raw)
		}
		payload.Content.Template = tmpl
	} else {
		simple := &sesSimple{Headers: headers}
		if msg.Subject != "" {
			simple.Subject = &sesContentPart{Data: msg.Subject}
		}
		body := &sesBody{}
		if msg.Text != "" {
			body.Text = &sesContentPart{Data: msg.Text}
		}
		if msg.HTML != "" {
			body.Html = &sesContentPart{Data: msg.HTML}
		}
		if body.Text != nil || body.Html != nil {
			simple.Body = body
		}
		for _, a := range msg.Attachments {
			att := sesAttachment{
				RawContent:  base64.StdEncoding.EncodeToString(a.Content()),
				ContentType: a.ContentType,
				FileName:    a.Name,
			}
			if a.Inline {
				att.ContentDisposition = "INLINE"
				att.ContentID = a.ContentID
			}
			simple.Attachments = append(simple.Attachments, att)
		}
		payload.Content.Simple = simple
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", provider.ErrEncoding, err)
	}

	return &provider.Request{
		Method:      http.MethodPost,
		URL:         p.config.baseURL() + sendPath,
		Header:      http.Header{},
		ContentType: "application/json",
		Body:        raw,
	}, warnings, nil
}

func destination(msg *mail.Message) sesDestination {
	var dst sesDestination
	for _, r := range msg.Recipients {
		switch r.Field {
		case mail.FieldCC:
			dst.CcAddresses = append(dst.CcAddresses, r.Address.String())
		case mail.FieldBCC:
			dst.BccAddresses = append(dst.BccAddresses, r.Address.String())
		default:
			dst.ToAddresses = append(dst.ToAddresses, r.Address.String())
		}
	}
	return dst
}

// correlationHeaders builds the custom header list: user headers first,
// then one X-Tag per tag and an X-Metadata JSON blob.
func correlationHeaders(msg *mail.Message) ([]sesHeader, error) {
	var out []sesHeader
	for _, h := range msg.Headers() {
		out = append(out, sesHeader{Name: h.Name, Value: h.Value})
	}
	for _, tag := range msg.Tags {
		out = append(out, sesHeader{Name: TagHeader, Value: tag})
	}
	if len(msg.Metadata) > 0 {
		raw, err := json.Marshal(msg.Metadata)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", provider.ErrEncoding, err)
		}
		out = append(out, sesHeader{Name: MetadataHeader, Value: string(raw)})
	}
	return out, nil
}

// templateData merges shared substitution data with the single
// recipient's data; merge sends reach SES one recipient at a time.
func templateData(msg *mail.Message) map[string]any {
	data := make(map[string]any, len(msg.MergeGlobal))
	for k, v := range msg.MergeGlobal {
		data[k] = v
	}
	for _, r := range msg.Recipients {
		for k, v := range r.MergeData {
			data[k] = v
		}
	}
	if len(data) == 0 {
		return nil
	}
	return data
}

// sesError is the SESv2 error response shape.
type sesError struct {
	Message string `json:"message"`
}

// errorTypeKinds refines classification by the x-amzn-ErrorType header
// SES attaches to failed calls.
var errorTypeKinds = map[string]classify.Kind{
	"BadRequestException":                classify.Permanent,
	"MessageRejected":                    classify.Permanent,
	"AccountSuspendedException":          classify.Configuration,
	"MailFromDomainNotVerifiedException": classify.Configuration,
	"NotFoundException":                  classify.Configuration,
	"SendingPausedException":             classify.Configuration,
	"LimitExceededException":             classify.Transient,
	"TooManyRequestsException":           classify.Transient,
}

// ParseResponse resolves the whole-call verdict. SES answers 200 with a
// MessageId that correlates subsequent notifications.
func (p *Provider) ParseResponse(msg *mail.Message, resp *provider.Response) (*mail.Result, error) {
	if resp.StatusCode == http.StatusOK {
		var body struct {
			MessageID string `json:"MessageId"`
		}
		if err := json.Unmarshal(resp.Body, &body); err != nil {
			return nil, &classify.Error{
				Class:  classify.Classification{Kind: classify.Unknown},
				Detail: "unparseable success body",
				Cause:  fmt.Errorf("%w: %w", provider.ErrUnexpectedResponse, err),
			}
		}
		result := &mail.Result{Aggregate: true}
		for _, r := range msg.Recipients {
			result.Recipients = append(result.Recipients, mail.RecipientResult{
				Recipient: r.Address,
				MessageID: body.MessageID,
				Status:    mail.StatusQueued,
			})
		}
		return result, nil
	}

	class := classify.FromStatusCode(resp.StatusCode, resp.Header)
	errorType := resp.Header.Get("X-Amzn-Errortype")
	if kind, ok := errorTypeKinds[errorType]; ok {
		class = classify.Classification{Kind: kind, Retryable: kind == classify.Transient}
	}
	if class.Kind == "" {
		class.Kind = classify.Unknown
	}

	detail := fmt.Sprintf("status %d", resp.StatusCode)
	var body sesError
	if err := json.Unmarshal(resp.Body, &body); err == nil && body.Message != "" {
		detail = fmt.Sprintf("status %d: %s", resp.StatusCode, body.Message)
	}
	if errorType != "" {
		detail = errorType + ": " + detail
	}
	return nil, &classify.Error{
		Class:  class,
		Detail: detail,
		Cause:  provider.ErrUnexpectedResponse,
	}
}
