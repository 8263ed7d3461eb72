// Package espbridge unifies transactional email delivery and tracking
// across multiple email service providers behind one canonical model:
// messages are encoded into provider wire formats, send responses resolve
// into per-recipient outcomes with a classified error taxonomy, and
// provider webhooks verify and normalize into a single event stream.
//
// # Package Organization
//
// The module is organized into core packages (the provider-agnostic
// model and machinery) and integration packages (one per provider, plus
// infrastructure collaborators).
//
// # Core Packages
//
//	github.com/espbridge/espbridge/core/mail      - Canonical message model, attachments, send results
//	github.com/espbridge/espbridge/core/tracking  - Canonical tracking event model
//	github.com/espbridge/espbridge/core/provider  - Provider contract, capabilities, strictness policy
//	github.com/espbridge/espbridge/core/classify  - Transient/permanent/configuration error taxonomy
//	github.com/espbridge/espbridge/core/dispatch  - Send dispatcher: fan-out, chunking, result assembly
//	github.com/espbridge/espbridge/core/webhook   - Webhook verification schemes, receiver, dedup
//	github.com/espbridge/espbridge/core/config    - Type-safe environment variable loading
//	github.com/espbridge/espbridge/core/logger    - Structured logging helpers over log/slog
//
// # Integration Packages
//
//	github.com/espbridge/espbridge/integration/esp/sendgrid  - SendGrid v3 API and event webhook
//	github.com/espbridge/espbridge/integration/esp/mailgun   - Mailgun v3 API and signed webhooks
//	github.com/espbridge/espbridge/integration/esp/postmark  - Postmark API and RecordType webhooks
//	github.com/espbridge/espbridge/integration/esp/amazonses - Amazon SES v2 API, SigV4 signing, SNS events
//	github.com/espbridge/espbridge/integration/transport     - Default HTTP transport for provider calls
//	github.com/espbridge/espbridge/integration/dedup/redis   - Redis-backed cross-process event dedup
//
// # Utility Packages
//
//	github.com/espbridge/espbridge/pkg/async - Future-style helpers for concurrent sends
//
// # Typical Wiring
//
// A send path pairs a provider with the dispatcher:
//
//	sg := sendgrid.MustNew(cfg)
//	d := dispatch.New(transport.New(), dispatch.WithStrictness(cfg.Strictness))
//	result, err := d.Send(ctx, sg, msg)
//
// A receive path pairs the provider's verifier and normalizer:
//
//	rcv := webhook.NewReceiver(sg.Verifier(), sendgrid.NewNormalizer(),
//		webhook.WithDeduper(deduper))
//	events, eventErrs, err := rcv.Process(ctx, req)
package espbridge
