package stream

import (
	"context"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/kopia/streamvault/errkind"
)

// UploadFunc consumes the contents of a stream being written, typically by sending it to remote storage.
type UploadFunc func(ctx context.Context, r io.Reader) error

type pipeWriter struct {
	pw     *io.PipeWriter
	eg     *errgroup.Group
	closed bool
	err    error
}

func (w *pipeWriter) Write(p []byte) (int, error) {
	n, err := w.pw.Write(p)
	if err != nil {
		// the upload has failed, report its error instead of io.ErrClosedPipe
		if uerr := w.wait(); uerr != nil {
			return n, uerr
		}

		return n, errkind.Wrap(errkind.ErrIOFailure, err, "write failed")
	}

	return n, nil
}

func (w *pipeWriter) wait() error {
	if !w.closed {
		w.closed = true
		w.err = w.eg.Wait()
	}

	return w.err
}

func (w *pipeWriter) Close() error {
	if w.closed {
		return w.err
	}

	w.pw.Close() //nolint:errcheck

	return w.wait()
}

// CloseWithError fails the upload with cause instead of signaling the end of data,
// then waits for it to return.
func (w *pipeWriter) CloseWithError(cause error) error {
	if w.closed {
		return w.err
	}

	w.pw.CloseWithError(errkind.Wrap(errkind.ErrIOFailure, cause, "upload aborted")) //nolint:errcheck

	if err := w.wait(); err != nil {
		return err
	}

	return errkind.Wrap(errkind.ErrIOFailure, cause, "upload aborted")
}

// NewUploadWriter returns a WriteCloser whose contents are streamed to upload running in the background.
// Close waits for upload to complete and returns its error. CloseWithError makes upload
// observe a read error so that it fails without committing.
func NewUploadWriter(ctx context.Context, upload UploadFunc) io.WriteCloser {
	pr, pw := io.Pipe()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		err := upload(ctx, pr)

		// unblock writers if upload returned before consuming everything.
		pr.CloseWithError(errUploadFinished(err)) //nolint:errcheck

		return err
	})

	return &pipeWriter{pw: pw, eg: eg}
}

func errUploadFinished(err error) error {
	if err != nil {
		return err
	}

	return io.ErrClosedPipe
}
