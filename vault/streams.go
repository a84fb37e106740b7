package vault

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/cipherstream"
	"github.com/kopia/streamvault/stream"
)

// encryptingWriter writes plaintext through the compressor and cipher into the raw stream.
type encryptingWriter struct {
	ctx    context.Context //nolint:containedctx
	name   string
	comp   io.WriteCloser
	cipher *cipherstream.Writer
	raw    io.WriteCloser
	closed bool
	err    error
}

func (w *encryptingWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errkind.Wrap(errkind.ErrIOFailure, io.ErrClosedPipe, "write to closed vault stream")
	}

	n, err := w.comp.Write(p)
	if err != nil {
		return n, errors.Wrapf(err, "error writing %v", w.name)
	}

	return n, nil
}

// Close flushes the compressor, seals the final segment and closes the raw stream.
// The raw stream is closed even if flushing fails.
func (w *encryptingWriter) Close() error {
	if w.closed {
		return w.err
	}

	w.closed = true

	var err error

	if cerr := w.comp.Close(); cerr != nil {
		err = errkind.Wrapf(errkind.ErrIOFailure, cerr, "error flushing %v", w.name)
	}

	if cerr := w.cipher.Close(); cerr != nil && err == nil {
		err = errors.Wrapf(cerr, "error finalizing %v", w.name)
	}

	if cerr := w.raw.Close(); cerr != nil && err == nil {
		err = errors.Wrapf(cerr, "error closing %v", w.name)
	}

	reportBytesEncrypted(w.cipher.PlaintextBytes())

	log(w.ctx).Debugw("closed output stream",
		"data", w.name,
		"plaintextBytes", w.cipher.PlaintextBytes(),
		"ciphertextBytes", w.cipher.CiphertextBytes(),
		"error", err)

	w.err = err

	return err
}

// CloseWithError abandons the stream without sealing the final segment and aborts the raw stream.
// Whatever reached the raw stream fails authentication when read back.
func (w *encryptingWriter) CloseWithError(cause error) error {
	if w.closed {
		return w.err
	}

	w.closed = true
	w.err = errkind.Wrapf(errkind.ErrIOFailure, cause, "output stream for %v aborted", w.name)

	stream.Abort(w.raw, w.err) //nolint:errcheck

	log(w.ctx).Debugw("aborted output stream",
		"data", w.name,
		"plaintextBytes", w.cipher.PlaintextBytes(),
		"cause", cause)

	return nil
}

// decryptingReader reads plaintext from the raw stream through the cipher and decompressor.
type decryptingReader struct {
	ctx    context.Context //nolint:containedctx
	name   string
	decomp io.ReadCloser
	cipher *cipherstream.Reader
	raw    io.ReadCloser
	closed bool
}

func (r *decryptingReader) Read(p []byte) (int, error) {
	n, err := r.decomp.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		if errkind.Of(err) == nil {
			err = errkind.Wrap(errkind.ErrCorruptFormat, err, "error decompressing data")
		}

		return n, errors.Wrapf(err, "error reading %v", r.name)
	}

	return n, err //nolint:wrapcheck
}

func (r *decryptingReader) Close() error {
	if r.closed {
		return nil
	}

	r.closed = true

	derr := r.decomp.Close()
	rerr := r.raw.Close()

	reportBytesDecrypted(r.cipher.PlaintextBytes())

	log(r.ctx).Debugw("closed input stream", "data", r.name, "plaintextBytes", r.cipher.PlaintextBytes())

	if rerr != nil {
		return errkind.Wrapf(errkind.ErrIOFailure, rerr, "error closing %v", r.name)
	}

	if derr != nil {
		return errkind.Wrapf(errkind.ErrIOFailure, derr, "error closing decompressor for %v", r.name)
	}

	return nil
}
