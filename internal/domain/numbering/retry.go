package numbering

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"docnum/internal/core/apperror"
	"docnum/internal/core/numerator"
	"docnum/pkg/logger"
)

// RetryConfig bounds the compare-and-swap retry loop.
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first one.
	MaxAttempts int
	// InitialBackoff is the first wait after a conflict; later waits grow exponentially.
	InitialBackoff time.Duration
	// MaxBackoff caps a single wait.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns the production retry bounds.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     200 * time.Millisecond,
	}
}

func (c RetryConfig) backOff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialBackoff
	b.MaxInterval = c.MaxBackoff
	b.RandomizationFactor = 0.5
	b.MaxElapsedTime = 0
	b.Reset()

	retries := c.MaxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(retries)), ctx)
}

// retryOnConflict runs op until it succeeds or fails with anything other than a
// version conflict. When the attempts are used up, exhausted builds the returned
// error. Other failures are mapped through apperror.Wrap.
func retryOnConflict(
	ctx context.Context,
	cfg RetryConfig,
	key numerator.Key,
	exhausted func(attempts int) *apperror.AppError,
	op func(ctx context.Context) error,
) (int, error) {
	attempts := 0
	err := backoff.RetryNotify(
		func() error {
			attempts++
			err := op(ctx)
			if err == nil || errors.Is(err, numerator.ErrVersionConflict) {
				return err
			}
			return backoff.Permanent(err)
		},
		cfg.backOff(ctx),
		func(err error, wait time.Duration) {
			logger.Debug(ctx, "sequence version conflict, retrying",
				"sequence", key.String(),
				"attempt", attempts,
				"wait", wait,
			)
		},
	)
	if err == nil {
		return attempts, nil
	}
	if errors.Is(err, numerator.ErrVersionConflict) {
		return attempts, exhausted(attempts).WithCause(err)
	}
	return attempts, apperror.Wrap(err)
}
