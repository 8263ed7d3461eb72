package async

import (
	"context"
)

// ExecFuture is the handle of a function launched with Exec.
type ExecFuture struct {
	err  error
	done chan struct{}
}

// Await blocks until the function has returned and reports its error.
func (f *ExecFuture) Await() error {
	<-f.done
	return f.err
}

// Exec runs fn on its own goroutine and returns a future for its error.
// A context that is already canceled fails the future with ctx.Err()
// without running fn.
func Exec[T any](ctx context.Context, param T, fn func(context.Context, T) error) *ExecFuture {
	f := &ExecFuture{done: make(chan struct{})}

	go func() {
		defer close(f.done)

		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}

		f.err = fn(ctx, param)
	}()

	return f
}

// AwaitAll waits for every future and returns their errors in order. Every
// future is awaited even when an earlier one failed, so callers can read
// anything the goroutines wrote once AwaitAll returns.
func AwaitAll(futures ...*ExecFuture) []error {
	errs := make([]error, len(futures))
	for i, f := range futures {
		errs[i] = f.Await()
	}
	return errs
}
