package http

import (
	"context"
	"time"
)

const (
	// DefaultTries is the total number of attempts when Retry is not called
	DefaultTries = 1

	// DefaultRetryDelay is the delay before each retry when Retry is not called
	DefaultRetryDelay = 100 * time.Millisecond
)

// sleepContext blocks for d or until ctx is done.
var sleepContext = func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// retryPolicy drives the attempt loop. times is the total number of attempts,
// not the number of extra retries.
type retryPolicy struct {
	times int
	sleep time.Duration
	// when may veto a retry for a given error; nil retries every error
	when func(error) bool
	// onRetry is called after a failed attempt that will be retried
	onRetry func(attempt, remaining int, err error)
}

// run calls fn until it succeeds or the policy gives up. The remaining counter
// is decremented before fn's result is evaluated, so a failure with fewer than
// one attempt left ends the loop. Only the last error is returned.
func (p retryPolicy) run(ctx context.Context, fn func(attempt int) (*Response, error)) (*Response, error) {
	remaining := p.times
	attempt := 0

	for {
		attempt++
		remaining--

		resp, err := fn(attempt)
		if err == nil {
			return resp, nil
		}

		if remaining < 1 || (p.when != nil && !p.when(err)) || ctx.Err() != nil {
			return resp, err
		}

		if p.onRetry != nil {
			p.onRetry(attempt, remaining, err)
		}

		if p.sleep > 0 {
			if sleepErr := sleepContext(ctx, p.sleep); sleepErr != nil {
				return resp, NewConnectionError("retry aborted", sleepErr)
			}
		}
	}
}
