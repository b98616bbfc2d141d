package database

import (
	"context"
	"time"

	"github.com/Dzhud/issue-tracker/pkg/logger"
	"github.com/pkg/errors"
)

// Retry calls connect up to attempts times, doubling the wait between
// failures starting at backoff. It tolerates startup races where the store
// container comes up after the service.
func Retry[T any](ctx context.Context, name string, attempts int, backoff time.Duration, connect func(ctx context.Context) (T, error)) (T, error) {
	var (
		zero T
		err  error
	)
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		var v T
		v, err = connect(ctx)
		if err == nil {
			return v, nil
		}
		logger.Warnf("attempt %d/%d: failed to connect to %s: %v", attempt, attempts, name, err)
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return zero, errors.WithStack(ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return zero, errors.Wrapf(err, "could not connect to %s after %d attempts", name, attempts)
}
