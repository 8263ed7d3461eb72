// Package classify maps heterogeneous provider failures onto a single
// retry/permanent taxonomy.
//
// Providers disagree wildly on error codes and response shapes; callers
// need exactly one question answered: can retrying help, and if not, whose
// fault is it. Classification answers that with a Kind plus a retryable
// flag and an optional provider-suggested backoff:
//
//	res, err := dispatcher.Send(ctx, prov, msg)
//	if err != nil {
//		var ce *classify.Error
//		if errors.As(err, &ce) && ce.Retryable() {
//			queue.RetryAfter(ce.RetryAfter())
//		}
//	}
//
// Nothing in this module retries automatically; every retryable condition
// is labeled so an external retry policy can act on it.
//
// FromStatusCode provides the default HTTP mapping; provider packages
// layer their own error-code tables on top of it as static data.
package classify
