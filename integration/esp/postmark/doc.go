// Package postmark implements the Postmark mail provider on top of the
// mrz1836/postmark wire structs: JSON payloads for POST /email (or
// /email/withTemplate for template sends), error-code classification,
// webhook normalization keyed by RecordType, and webhook verification via
// an IP allowlist plus a shared basic-auth token.
//
// Postmark has no batch substitution, so the dispatcher fans merge
// messages out into single-recipient calls. Send responses can accept the
// message while naming inactive recipients it will not deliver to; those
// surface as a mixed per-recipient result.
package postmark
