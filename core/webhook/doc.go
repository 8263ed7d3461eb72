// Package webhook implements the inbound half of the ESP bridge:
// authenticating provider webhook requests and turning their payloads into
// canonical tracking events.
//
// Providers authenticate webhooks in different ways — an HMAC signature
// over the body, a shared token or basic-auth credentials in a header, or
// a source IP allowlist combined with a shared secret. This package
// provides the constant-time primitives those schemes share; each provider
// integration assembles its own Verifier from them.
//
// The Receiver ties a Verifier and a Normalizer together:
//
//	rcv := webhook.NewReceiver(verifier, normalizer,
//		webhook.WithDeduper(webhook.NewMemoryDeduper(time.Hour)),
//	)
//
//	events, eventErrs, err := rcv.Process(ctx, &webhook.Request{
//		Body:    body,
//		Header:  r.Header,
//		RemoteAddr: r.RemoteAddr,
//	})
//
// Verification failure is terminal: normalization never runs on an
// unverified payload. Per-event failures (a malformed timestamp inside a
// batch) come back in eventErrs alongside the events that did normalize.
//
// A generic HMAC scheme (signature and unix timestamp headers computed
// over the raw body) is included for first-party webhook producers and for
// providers that support custom signing; SignPayload produces headers the
// HMACVerifier accepts.
package webhook
