package stream

import (
	"bytes"
	"context"
	"io"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/iocopy"
)

// ReadAll opens the resource, reads it until exhausted and returns its contents.
// The stream is closed on all paths.
func ReadAll(ctx context.Context, r Resource) (b []byte, err error) {
	rc, err := r.OpenInputStream(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			b, err = nil, errkind.Wrap(errkind.ErrIOFailure, cerr, "error closing input stream")
		}
	}()

	var buf bytes.Buffer

	if _, err := iocopy.Copy(&buf, rc); err != nil {
		return nil, errkind.Wrap(errkind.ErrIOFailure, err, "error reading input stream")
	}

	return buf.Bytes(), nil
}

// WriteAll opens the resource for writing, writes b as its entire contents and closes the stream.
// The error from Close is reported, since Close is where buffered and encrypted data is finalized.
// If writing fails the stream is aborted instead of closed.
func WriteAll(ctx context.Context, r Resource, b []byte) error {
	wc, err := r.OpenOutputStream(ctx)
	if err != nil {
		return err
	}

	if _, err := wc.Write(b); err != nil {
		Abort(wc, err) //nolint:errcheck

		return errkind.Wrap(errkind.ErrIOFailure, err, "error writing output stream")
	}

	if err := wc.Close(); err != nil {
		return errkind.Wrap(errkind.ErrIOFailure, err, "error closing output stream")
	}

	return nil
}

// Slurp returns the entire contents of the resource as text.
func Slurp(ctx context.Context, r Resource) (string, error) {
	b, err := ReadAll(ctx, r)

	return string(b), err
}

// Spit replaces the entire contents of the resource with the provided text.
func Spit(ctx context.Context, r Resource, s string) error {
	return WriteAll(ctx, r, []byte(s))
}

// Copy streams the contents of src into dst. The output stream is closed when src is exhausted
// and aborted if reading src or writing dst fails, so a partial copy is never committed.
func Copy(ctx context.Context, dst Resource, src io.Reader) (int64, error) {
	wc, err := dst.OpenOutputStream(ctx)
	if err != nil {
		return 0, err
	}

	n, err := iocopy.Copy(wc, src)
	if err != nil {
		Abort(wc, err) //nolint:errcheck

		return n, errkind.Wrap(errkind.ErrIOFailure, err, "error copying data")
	}

	if err := wc.Close(); err != nil {
		return n, errkind.Wrap(errkind.ErrIOFailure, err, "error closing output stream")
	}

	return n, nil
}

// WriteTo streams the contents of src into w, closing the input stream on all paths.
func WriteTo(ctx context.Context, w io.Writer, src Resource) (n int64, err error) {
	rc, err := src.OpenInputStream(ctx)
	if err != nil {
		return 0, err
	}

	defer func() {
		if cerr := rc.Close(); cerr != nil && err == nil {
			err = errkind.Wrap(errkind.ErrIOFailure, cerr, "error closing input stream")
		}
	}()

	n, err = iocopy.Copy(w, rc)
	if err != nil {
		return n, errkind.Wrap(errkind.ErrIOFailure, err, "error copying data")
	}

	return n, nil
}
