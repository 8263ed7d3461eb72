// Package mail defines the provider-agnostic email message model shared by
// every ESP integration.
//
// A Message describes a single transactional email: recipients, bodies,
// attachments, custom headers, tracking options, template data, tags and
// metadata. Provider encoders translate a Message into their wire format;
// the message itself never depends on any particular ESP.
//
// Basic usage:
//
//	msg := &mail.Message{
//		From:    mail.Address{Email: "noreply@example.com", Name: "Example"},
//		Subject: "Welcome aboard",
//		HTML:    "<h1>Hello!</h1>",
//		Recipients: []mail.Recipient{
//			{Address: mail.Address{Email: "user@example.com"}},
//		},
//	}
//
//	if err := msg.Validate(); err != nil {
//		return err
//	}
//
// Custom headers are case-insensitive with last-write-wins semantics:
//
//	msg.SetHeader("X-Campaign", "onboarding")
//	msg.SetHeader("x-campaign", "welcome") // replaces the previous value
//
// Attachment content is copied when attached and immutable afterwards:
//
//	msg.Attach("report.pdf", "application/pdf", pdfBytes)
//	msg.AttachInline("logo", "image/png", logoBytes, "logo-cid")
//
// Send outcomes are reported as a Result with one entry per recipient when
// the provider supports per-recipient responses, or a single entry flagged
// Aggregate otherwise.
package mail
