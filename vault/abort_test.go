package vault_test

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/kopia/streamvault/internal/cipherstream"
	"github.com/kopia/streamvault/internal/testlogging"
	"github.com/kopia/streamvault/stream"
	"github.com/kopia/streamvault/vault"
)

var errBrokenInput = errors.New("broken input")

// brokenInput returns more than one segment worth of data and then fails.
func brokenInput() io.Reader {
	return io.MultiReader(
		bytes.NewReader(bytes.Repeat([]byte("partial"), cipherstream.ChunkSize/7+100)),
		iotest.ErrReader(errBrokenInput),
	)
}

func TestFailedCopyIsNotCommitted(t *testing.T) {
	cases := []struct {
		desc     string
		src      stream.Source
		keepsOld bool
	}{
		{"filesystem", stream.Filesystem{}, false},
		{"atomic filesystem", stream.Filesystem{AtomicWrites: true}, true},
		{"memory", &stream.Memory{}, true},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			ctx := testlogging.Context(t)
			dir := t.TempDir()

			v := vault.New(filepath.Join(dir, "data.enc"), filepath.Join(dir, "keystore.jks"), "secret",
				&vault.Options{Keystore: testKeystore, Source: tc.src})

			require.NoError(t, v.Initialize(ctx))
			require.NoError(t, v.WriteString(ctx, "old"))

			_, err := stream.Copy(ctx, v, brokenInput())
			require.ErrorIs(t, err, errBrokenInput)
			require.ErrorIs(t, err, vault.ErrIOFailure)

			s, err := v.ReadString(ctx)
			if tc.keepsOld {
				require.NoError(t, err)
				require.Equal(t, "old", s)

				return
			}

			require.ErrorIs(t, err, vault.ErrAuthFailure)
			require.Empty(t, s)
		})
	}
}

func TestAbortedOutputStream(t *testing.T) {
	ctx := testlogging.Context(t)
	dir := t.TempDir()

	v := vault.New(filepath.Join(dir, "data.enc"), filepath.Join(dir, "keystore.jks"), "secret",
		&vault.Options{Keystore: testKeystore, Source: stream.Filesystem{AtomicWrites: true}})

	require.NoError(t, v.Initialize(ctx))
	require.NoError(t, v.WriteString(ctx, "old"))

	w, err := v.OpenOutputStream(ctx)
	require.NoError(t, err)
	require.Implements(t, (*stream.Aborter)(nil), w)

	_, err = io.WriteString(w, "new")
	require.NoError(t, err)

	errCancel := errors.New("cancelled by user")

	require.NoError(t, stream.Abort(w, errCancel))

	err = w.Close()
	require.ErrorIs(t, err, errCancel)
	require.ErrorIs(t, err, vault.ErrIOFailure)

	_, err = w.Write([]byte("x"))
	require.Error(t, err)

	s, err := v.ReadString(ctx)
	require.NoError(t, err)
	require.Equal(t, "old", s)
}

// headerRejectingSource opens writers that fail every write and records how they were released.
type headerRejectingSource struct {
	*stream.Memory

	writers []*rejectingWriter
}

func (s *headerRejectingSource) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	w := &rejectingWriter{}
	s.writers = append(s.writers, w)

	return w, nil
}

var errWriteRejected = errors.New("write rejected")

type rejectingWriter struct {
	closed, aborted bool
}

func (w *rejectingWriter) Write(p []byte) (int, error) { return 0, errWriteRejected }

func (w *rejectingWriter) Close() error {
	w.closed = true
	return nil
}

func (w *rejectingWriter) CloseWithError(cause error) error {
	w.aborted = true
	return nil
}

func TestOpenOutputStreamAbortsOnSetupFailure(t *testing.T) {
	ctx := testlogging.Context(t)
	dir := t.TempDir()
	src := &headerRejectingSource{Memory: stream.NewMemory()}

	v := vault.New("data.enc", filepath.Join(dir, "keystore.jks"), "secret",
		&vault.Options{Keystore: testKeystore, Source: src})

	require.NoError(t, v.Initialize(ctx))

	_, err := v.OpenOutputStream(ctx)
	require.ErrorIs(t, err, errWriteRejected)
	require.ErrorIs(t, err, vault.ErrIOFailure)

	require.Len(t, src.writers, 1)
	require.True(t, src.writers[0].aborted)
	require.False(t, src.writers[0].closed)
}
