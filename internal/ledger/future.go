package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPanicked wraps a panic raised by a deferred operation.
var ErrPanicked = errors.New("operation panicked")

// Future is the pending result of an operation started with Defer.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Defer runs fn on its own goroutine after delay and returns immediately.
// If ctx ends during the delay fn never runs and the future resolves to the
// context error. Once fn has started it always runs to completion. A panic in
// fn resolves the future to an error wrapping ErrPanicked.
func Defer[T any](ctx context.Context, delay time.Duration, fn func(context.Context) (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				var zero T
				f.val, f.err = zero, fmt.Errorf("%w: %v", ErrPanicked, r)
			}
		}()
		if delay > 0 {
			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				f.err = ctx.Err()
				return
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			f.err = err
			return
		}
		f.val, f.err = fn(context.WithoutCancel(ctx))
	}()
	return f
}

// Await blocks until the future resolves or ctx ends.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} { return f.done }
