package async

import (
	"context"
	"time"
)

// Future is the eventual result of an asynchronous operation. It completes
// exactly once and may be awaited any number of times.
type Future[T any] struct {
	result T
	err    error
	done   chan struct{}
}

// Run executes fn on its own goroutine and returns a Future for its
// result. A context cancelled before fn starts completes the Future with
// the context error without running fn.
func Run[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		select {
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		default:
		}
		f.result, f.err = fn(ctx)
	}()
	return f
}

// Completed returns an already-resolved Future. The no-op strategies use
// it so a deactivated operation still hands the caller something awaitable.
func Completed[T any](result T, err error) *Future[T] {
	f := &Future[T]{result: result, err: err, done: make(chan struct{})}
	close(f.done)
	return f
}

// Await blocks until the future completes.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	return f.result, f.err
}

// AwaitWithTimeout blocks until completion or the timeout, whichever comes
// first. On timeout it returns ErrTimeout; the computation is not
// cancelled.
func (f *Future[T]) AwaitWithTimeout(timeout time.Duration) (T, error) {
	select {
	case <-f.done:
		return f.result, f.err
	case <-time.After(timeout):
		var zero T
		return zero, ErrTimeout
	}
}

// IsComplete reports completion without blocking.
func (f *Future[T]) IsComplete() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Then invokes fn with the result once the future completes, on the
// future's goroutine timeline, and returns the receiver for chaining. The
// callback runs even when the future completed with an error.
func (f *Future[T]) Then(fn func(T, error)) *Future[T] {
	go func() {
		<-f.done
		fn(f.result, f.err)
	}()
	return f
}
