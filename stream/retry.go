package stream

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/retry"
)

// Retrying is a Source that retries opening resources of the underlying Source
// when it fails with errkind.ErrIOFailure. Streams that were already opened are not retried.
type Retrying struct {
	Source Source
}

// WithRetry wraps src with Retrying.
func WithRetry(src Source) Source {
	return Retrying{src}
}

func isTransient(err error) bool {
	return errors.Is(err, errkind.ErrIOFailure)
}

// OpenRead implements Source.
func (s Retrying) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	return retry.WithExponentialBackoff(ctx, "opening "+name+" for reading", func() (io.ReadCloser, error) {
		return s.Source.OpenRead(ctx, name)
	}, isTransient)
}

// OpenWrite implements Source.
func (s Retrying) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	return retry.WithExponentialBackoff(ctx, "opening "+name+" for writing", func() (io.WriteCloser, error) {
		return s.Source.OpenWrite(ctx, name)
	}, isTransient)
}
