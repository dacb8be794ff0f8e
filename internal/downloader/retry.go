package downloader

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"drivemanager/internal/remote"
)

// RetryPolicy controls how often a failed remote call is attempted again.
// The zero value makes a single attempt.
type RetryPolicy struct {
	// Attempts is the number of retries after the first attempt.
	Attempts int

	// InitialInterval is the first backoff delay. Default: 500ms
	InitialInterval time.Duration

	// MaxInterval caps the backoff delay. Default: 30s
	MaxInterval time.Duration
}

func (p RetryPolicy) do(ctx context.Context, op func() error) error {
	if p.Attempts <= 0 {
		return op()
	}

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.Attempts)), ctx)
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

// A missing object or an unwritable destination will not change on retry.
func retryable(err error) bool {
	return !errors.Is(err, remote.ErrNotFound) &&
		!errors.Is(err, remote.ErrLocalIO) &&
		!errors.Is(err, context.Canceled)
}
