package client

import (
	"context"
	"errors"

	"github.com/cenkalti/backoff"

	"github.com/trellisdb/trellis/pkg/core"
)

// withRetry runs fn with bounded exponential backoff. Only transient errors
// (KindUnavailable, KindTimeout) are retried; validation and access errors
// abort immediately. Each attempt gets its own timeout, independent of the
// backoff delay. Exhausted retries surface as KindTimeout.
func (c *Client) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialBackoff
	bo.MaxInterval = c.maxBackoff
	bo.MaxElapsedTime = 0 // bounded by attempt count, not wall clock

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		actx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		err := fn(actx)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			// The caller canceled; this must not surface as a user-visible
			// failure past the cancellation boundary.
			return backoff.Permanent(core.Wrap(core.KindCanceled, ctx.Err(), op+" canceled"))
		}
		if errors.Is(err, context.DeadlineExceeded) {
			// The attempt deadline fired: transient, worth another try.
			err = core.Wrap(core.KindTimeout, err, op+" attempt timed out")
		}
		if !core.IsTransient(err) {
			return backoff.Permanent(err)
		}
		c.logger.Warn("transient failure, retrying", "op", op, "attempt", attempt, "error", err)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx))

	if err == nil {
		return nil
	}
	if core.IsTransient(err) && core.KindOf(err) != core.KindTimeout {
		err = core.Wrap(core.KindTimeout, err, op+": retries exhausted")
	}
	return err
}
