package mail

import (
	"fmt"
	netmail "net/mail"
	"net/textproto"
	"strings"
)

// RecipientField identifies which envelope field a recipient belongs to.
type RecipientField string

const (
	FieldTo  RecipientField = "to"
	FieldCC  RecipientField = "cc"
	FieldBCC RecipientField = "bcc"
)

// Tracking is a tri-state flag so providers can distinguish "not set" from
// an explicit opt-in or opt-out and fall back to their account defaults.
type Tracking int

const (
	TrackDefault Tracking = iota
	TrackOn
	TrackOff
)

// Address is an email address with an optional display name.
type Address struct {
	Email string
	Name  string
}

// String formats the address as "Name <email>" or a bare address.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Recipient is a single envelope recipient with optional per-recipient
// merge data for template/batch sends.
type Recipient struct {
	Address   Address
	Field     RecipientField // defaults to FieldTo when empty
	MergeData map[string]any
}

// field returns the effective envelope field.
func (r Recipient) field() RecipientField {
	if r.Field == "" {
		return FieldTo
	}
	return r.Field
}

// To creates a "to" recipient without merge data.
func To(email string) Recipient {
	return Recipient{Address: Address{Email: email}}
}

// Header is a single custom message header.
type Header struct {
	Name  string
	Value string
}

// reservedHeaders are message fields that must be set through the typed
// Message fields, never through custom headers. Custom headers naming one
// of these are rejected with ErrInvalidHeader instead of being silently
// overwritten by the explicit field during encoding.
var reservedHeaders = map[string]struct{}{
	"From":     {},
	"To":       {},
	"Cc":       {},
	"Bcc":      {},
	"Subject":  {},
	"Reply-To": {},
}

// Message is the canonical, provider-agnostic representation of an
// outbound email. The zero value is not sendable; at minimum From and one
// recipient are required (see Validate).
type Message struct {
	From        Address
	ReplyTo     Address
	Subject     string
	Text        string
	HTML        string
	Recipients  []Recipient
	Attachments []Attachment

	// TemplateID references a provider-hosted template; MergeGlobal holds
	// substitution data shared by all recipients. Per-recipient data lives
	// on each Recipient.
	TemplateID  string
	MergeGlobal map[string]any

	// Tags correlate delivery/engagement events back to this send.
	// Metadata is an opaque key/value mapping echoed back in events.
	Tags     []string
	Metadata map[string]string

	TrackOpens  Tracking
	TrackClicks Tracking

	headers []Header
}

// SetHeader sets a custom header. Header names are case-insensitive and
// normalized to canonical MIME form; setting an existing name replaces the
// previous value (last write wins). Reserved names (From, To, Cc, Bcc,
// Subject, Reply-To) are rejected with ErrInvalidHeader.
func (m *Message) SetHeader(name, value string) error {
	canonical := textproto.CanonicalMIMEHeaderKey(strings.TrimSpace(name))
	if canonical == "" {
		return fmt.Errorf("%w: empty header name", ErrInvalidHeader)
	}
	if _, reserved := reservedHeaders[canonical]; reserved {
		return fmt.Errorf("%w: %q conflicts with a message field", ErrInvalidHeader, canonical)
	}
	for i, h := range m.headers {
		if h.Name == canonical {
			m.headers[i].Value = value
			return nil
		}
	}
	m.headers = append(m.headers, Header{Name: canonical, Value: value})
	return nil
}

// Headers returns the custom headers in insertion order. The returned slice
// is a copy; mutating it does not affect the message.
func (m *Message) Headers() []Header {
	if len(m.headers) == 0 {
		return nil
	}
	out := make([]Header, len(m.headers))
	copy(out, m.headers)
	return out
}

// HasMergeData reports whether any recipient carries per-recipient merge
// data. Providers without batch templating force the dispatcher to fan out
// such messages into single-recipient sends.
func (m *Message) HasMergeData() bool {
	for _, r := range m.Recipients {
		if len(r.MergeData) > 0 {
			return true
		}
	}
	return false
}

// RecipientsIn returns the recipients for a given envelope field,
// preserving their original order.
func (m *Message) RecipientsIn(field RecipientField) []Recipient {
	var out []Recipient
	for _, r := range m.Recipients {
		if r.field() == field {
			out = append(out, r)
		}
	}
	return out
}

// ForRecipient returns a shallow copy of the message addressed to a single
// recipient, used by the dispatcher to fan out merge sends on providers
// without batch templating. Attachments and headers are shared, which is
// safe because both are immutable once set.
func (m *Message) ForRecipient(r Recipient) *Message {
	clone := *m
	clone.Recipients = []Recipient{r}
	return &clone
}

// Validate checks the message invariants: a sender, at least one
// recipient, parseable addresses, and some content (body, subject, or a
// template reference).
func (m *Message) Validate() error {
	if m.From.Email == "" {
		return ErrNoSender
	}
	if !isValidEmail(m.From.Email) {
		return fmt.Errorf("%w: sender %q", ErrInvalidAddress, m.From.Email)
	}
	if m.ReplyTo.Email != "" && !isValidEmail(m.ReplyTo.Email) {
		return fmt.Errorf("%w: reply-to %q", ErrInvalidAddress, m.ReplyTo.Email)
	}
	if len(m.Recipients) == 0 {
		return ErrNoRecipients
	}
	for _, r := range m.Recipients {
		if !isValidEmail(r.Address.Email) {
			return fmt.Errorf("%w: recipient %q", ErrInvalidAddress, r.Address.Email)
		}
	}
	if m.Subject == "" && m.Text == "" && m.HTML == "" && m.TemplateID == "" {
		return ErrNoContent
	}
	return nil
}

// isValidEmail checks if the provided string is a parseable address.
func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := netmail.ParseAddress(email)
	return err == nil && addr.Address == email
}
