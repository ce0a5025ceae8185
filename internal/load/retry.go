package load

import (
	"context"

	dserr "github.com/aevon-lab/project-dimsync/internal/core/errors"
	"github.com/cenkalti/backoff/v4"
)

// newBackoff builds the exponential schedule for one unit of work.
func (p RetryPolicy) newBackoff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	eb.MaxInterval = p.MaxInterval
	eb.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
}

// withRetry runs op until it succeeds, fails with a non-retryable error, or
// the attempts are used up. Only storage errors are retried.
func withRetry(ctx context.Context, policy RetryPolicy, op func() error) error {
	return backoff.Retry(func() error {
		if err := ctx.Err(); err != nil {
			return backoff.Permanent(err)
		}
		err := op()
		if err != nil && !dserr.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy.newBackoff(ctx))
}
