// Package mailgun implements the Mailgun v3 mail provider: form-encoded
// payloads for POST /v3/{domain}/messages (multipart when attachments are
// present), response classification, signed-webhook verification, and
// event normalization.
//
// Mailgun batch sends carry per-recipient substitution data through the
// recipient-variables field, so merge messages go out in one call.
// Webhook payloads are verified with the account's webhook signing key:
// an HMAC-SHA256 over timestamp+token inside the payload's signature
// block, bounded by a replay window.
package mailgun
