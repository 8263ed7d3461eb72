package mail

// Attachment is a file attached to a message. Content is copied when the
// attachment is created and must not be mutated afterwards; encoders rely
// on it staying stable between capability checks and wire encoding.
type Attachment struct {
	Name        string
	ContentType string
	// ContentID references the attachment from the HTML body (cid: URL)
	// for inline attachments. Encoders forward the reference as-is; they
	// never validate the HTML that uses it.
	ContentID string
	Inline    bool

	content []byte
}

// NewAttachment creates a regular attachment, copying content.
func NewAttachment(name, contentType string, content []byte) Attachment {
	return Attachment{
		Name:        name,
		ContentType: contentType,
		content:     copyBytes(content),
	}
}

// NewInlineAttachment creates an inline attachment referenced from the
// HTML body via the given content ID.
func NewInlineAttachment(name, contentType string, content []byte, contentID string) Attachment {
	return Attachment{
		Name:        name,
		ContentType: contentType,
		ContentID:   contentID,
		Inline:      true,
		content:     copyBytes(content),
	}
}

// Content returns a copy of the attachment bytes, preserving immutability
// of the stored content.
func (a Attachment) Content() []byte {
	return copyBytes(a.content)
}

// Size returns the attachment size in bytes.
func (a Attachment) Size() int {
	return len(a.content)
}

// Attach adds a regular attachment to the message.
func (m *Message) Attach(name, contentType string, content []byte) {
	m.Attachments = append(m.Attachments, NewAttachment(name, contentType, content))
}

// AttachInline adds an inline attachment referenced by content ID.
func (m *Message) AttachInline(name, contentType string, content []byte, contentID string) {
	m.Attachments = append(m.Attachments, NewInlineAttachment(name, contentType, content, contentID))
}

// HasInlineAttachments reports whether any attachment is inline.
func (m *Message) HasInlineAttachments() bool {
	for _, a := range m.Attachments {
		if a.Inline {
			return true
		}
	}
	return false
}

func copyBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
