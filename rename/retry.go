package rename

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds how often a filesystem call is repeated. The delay
// between attempts is fixed.
type RetryPolicy struct {
	Attempts  int
	Delay     time.Duration
	Retryable func(error) bool
	// Sleep waits between attempts; tests replace it with a fake clock.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy returns a policy that retries transient failures such
// as a file briefly locked by another process.
func DefaultRetryPolicy(attempts int, delay time.Duration) RetryPolicy {
	return RetryPolicy{
		Attempts:  attempts,
		Delay:     delay,
		Retryable: IsTransient,
		Sleep:     sleepContext,
	}
}

// IsTransient reports errors worth another attempt. A destination that
// appeared or a source that vanished will not change by waiting.
func IsTransient(err error) bool {
	return err != nil && !errors.Is(err, fs.ErrExist) && !errors.Is(err, fs.ErrNotExist)
}

// Do runs fn until it succeeds, returns a non-retryable error or the
// attempts are used up. It returns the number of attempts made and the last
// error.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsTransient
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	delay := p.Delay
	backoff := retry.WithMaxRetries(uint64(attempts-1), retry.BackoffFunc(func() (time.Duration, bool) {
		return delay, false
	}))

	made := 0
	for {
		made++
		err := fn(ctx)
		if err == nil {
			return made, nil
		}
		if !retryable(err) {
			return made, err
		}

		next, stop := backoff.Next()
		if stop {
			return made, err
		}
		if serr := sleep(ctx, next); serr != nil {
			return made, errors.Join(err, serr)
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
