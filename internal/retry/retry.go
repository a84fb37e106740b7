// Package retry implements exponential retry policy.
package retry

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/logging"
)

var log = logging.Module("retry")

//nolint:gochecknoglobals
var (
	maxAttempts             = 5
	retryInitialSleepAmount = 250 * time.Millisecond
	retryMaxSleepAmount     = 8 * time.Second
)

// AttemptFunc performs an attempt and returns a value and an error.
type AttemptFunc[T any] func() (T, error)

// IsRetriableFunc is a function that determines whether an error is retriable.
type IsRetriableFunc func(err error) bool

// WithExponentialBackoff runs the provided attempt until it succeeds, retrying on all errors that are
// deemed retriable by the provided function. The delay between retries grows exponentially up to
// a certain limit. The last error is returned wrapped when all attempts fail.
func WithExponentialBackoff[T any](ctx context.Context, desc string, attempt AttemptFunc[T], isRetriableError IsRetriableFunc) (T, error) {
	sleepAmount := retryInitialSleepAmount

	for i := range maxAttempts {
		v, err := attempt()
		if err == nil || !isRetriableError(err) {
			return v, err
		}

		if i == maxAttempts-1 {
			return v, errors.Wrapf(err, "unable to complete %v despite %v attempts", desc, maxAttempts)
		}

		log(ctx).Debugf("got error %v when %v (#%v), sleeping for %v before retrying", err, desc, i, sleepAmount)

		select {
		case <-ctx.Done():
			var zero T

			return zero, errors.Wrapf(ctx.Err(), "%v canceled", desc)

		case <-time.After(sleepAmount):
		}

		sleepAmount = min(sleepAmount*2, retryMaxSleepAmount) //nolint:mnd
	}

	panic("unreachable")
}
