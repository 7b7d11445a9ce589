package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrCancelled is wrapped by WithTimeout when the caller's context ended
// before fn finished, as opposed to the timeout firing.
var ErrCancelled = errors.New("cancelled by caller")

// WithTimeout runs fn with a derived context that is cancelled after the
// given timeout. If fn has not returned by then, WithTimeout returns an error
// wrapping context.DeadlineExceeded without waiting for fn; fn is expected to
// observe ctx and unwind on its own. Failures caused by ctx itself ending
// wrap ErrCancelled.
func WithTimeout(ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- fn(timeoutCtx)
	}()
	select {
	case err := <-done:
		if err != nil && ctx.Err() != nil {
			return fmt.Errorf("%s: %w: %w", name, ErrCancelled, err)
		}
		return err
	case <-timeoutCtx.Done():
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w: %w", name, ErrCancelled, ctx.Err())
		}
		return fmt.Errorf("%s: %w (limit: %v)", name, context.DeadlineExceeded, timeout)
	}
}
