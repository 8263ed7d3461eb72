// Package sendgrid implements the SendGrid v3 mail provider: JSON payload
// encoding for POST /v3/mail/send, response classification, event webhook
// normalization, and basic-auth webhook verification.
//
// SendGrid accepts batch sends with per-recipient substitution data
// (personalizations with dynamic_template_data), so the dispatcher hands
// merge messages to this provider without fan-out. Send responses carry a
// single whole-call verdict; the 202 response's X-Message-Id correlates
// subsequent tracking events.
package sendgrid
