// Package dispatch orchestrates the send path: encode a canonical message
// for a provider, execute the transport call, and parse the response into
// per-recipient results.
//
// The dispatcher owns the policy decisions the encoders do not:
//
//   - merge sends on providers without batch templating fan out into N
//     single-recipient calls;
//   - messages exceeding a provider's single-call recipient limit split
//     into multiple calls, independently classified, with results
//     concatenated in original recipient order;
//   - encoding failures return before any network call and classify as
//     configuration errors;
//   - transport failures classify as transient and retryable — but
//     nothing here retries; retry policy belongs to the caller.
//
// The transport is an injected capability; this package never opens
// sockets:
//
//	d := dispatch.New(transport,
//		dispatch.WithStrictness(provider.StrictMode),
//		dispatch.WithLogger(log),
//	)
//
//	res, err := d.Send(ctx, sendgridProvider, msg)
//
// Split calls are sequential by default; WithConcurrency enables parallel
// issuance with order-preserving reassembly.
package dispatch
