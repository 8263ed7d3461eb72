// Package tracking defines the provider-agnostic delivery and engagement
// event model produced by webhook normalizers.
//
// Every inbound webhook payload, whatever its provider shape, is reduced to
// a sequence of Event values. An Event carries the canonical fields common
// across ESPs (kind, timestamp, message and event identifiers, recipient,
// echoed tags/metadata) plus an Extra map preserving the provider-specific
// fields verbatim, so normalization is never lossy.
//
// Unknown provider event types map to KindUnknown rather than failing:
// providers add event types over time and consumers must degrade
// gracefully. Structurally unparseable payloads are reported with
// ErrMalformedPayload; a malformed timestamp fails only the individual
// event and is reported as an EventError alongside the events that did
// normalize.
package tracking
