// Package async provides small future-style helpers for running
// error-returning functions concurrently.
//
// Exec starts a function on its own goroutine and returns an ExecFuture
// for its error:
//
//	future := async.Exec(ctx, payload, func(ctx context.Context, p Payload) error {
//		return deliver(ctx, p)
//	})
//	if err := future.Await(); err != nil {
//		log.Println("delivery failed:", err)
//	}
//
// AwaitAll waits for every future of a batch and returns their errors in
// order, which lets a caller that fanned work out over shared slices read
// them safely afterwards.
//
// A context canceled before the function starts fails the future with the
// context's error without running the function.
package async
