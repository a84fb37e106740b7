package cipherstream_test

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/require"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/cipherstream"
)

var (
	testKey  = bytes.Repeat([]byte{1}, 32)
	otherKey = bytes.Repeat([]byte{2}, 32)
)

func encrypt(t *testing.T, key, plain []byte, writeSize int) []byte {
	t.Helper()

	var buf bytes.Buffer

	w, err := cipherstream.NewWriter(&buf, key, 0)
	require.NoError(t, err)

	for p := plain; len(p) > 0; {
		n := min(writeSize, len(p))

		written, err := w.Write(p[:n])
		require.NoError(t, err)
		require.Equal(t, n, written)

		p = p[n:]
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	require.EqualValues(t, len(plain), w.PlaintextBytes())
	require.EqualValues(t, buf.Len(), w.CiphertextBytes())

	return buf.Bytes()
}

func decrypt(key, cipherText []byte) ([]byte, error) {
	r, err := cipherstream.NewReader(bytes.NewReader(cipherText), key)
	if err != nil {
		return nil, err
	}

	return io.ReadAll(r)
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()

	b := make([]byte, n)
	_, err := rand.Read(b)
	require.NoError(t, err)

	return b
}

func TestRoundTrip(t *testing.T) {
	sizes := []int{
		0, 1, 100,
		cipherstream.ChunkSize - 1,
		cipherstream.ChunkSize,
		cipherstream.ChunkSize + 1,
		3 * cipherstream.ChunkSize,
		3*cipherstream.ChunkSize + 12345,
	}

	for _, size := range sizes {
		plain := randomBytes(t, size)

		for _, writeSize := range []int{1000, 7, cipherstream.ChunkSize * 2} {
			if size > 100000 && writeSize < 100 {
				continue
			}

			cipherText := encrypt(t, testKey, plain, writeSize)

			got, err := decrypt(testKey, cipherText)
			require.NoError(t, err, "size %v", size)
			require.True(t, bytes.Equal(plain, got), "size %v", size)
		}
	}
}

func TestReaderWithOneByteReads(t *testing.T) {
	plain := randomBytes(t, 2*cipherstream.ChunkSize+10)
	cipherText := encrypt(t, testKey, plain, 4096)

	r, err := cipherstream.NewReader(iotest.OneByteReader(bytes.NewReader(cipherText)), testKey)
	require.NoError(t, err)

	got, err := io.ReadAll(iotest.OneByteReader(r))
	require.NoError(t, err)
	require.Equal(t, plain, got)
	require.EqualValues(t, len(plain), r.PlaintextBytes())
}

func TestCiphertextDiffersForSamePlaintext(t *testing.T) {
	plain := []byte("hello vault")

	c1 := encrypt(t, testKey, plain, 100)
	c2 := encrypt(t, testKey, plain, 100)

	require.NotEqual(t, c1, c2)
	require.NotContains(t, string(c1), "hello vault")
}

func TestWrongKey(t *testing.T) {
	cipherText := encrypt(t, testKey, []byte("hello vault"), 100)

	_, err := decrypt(otherKey, cipherText)
	require.ErrorIs(t, err, errkind.ErrAuthFailure)
}

func TestTamperedCiphertext(t *testing.T) {
	cipherText := encrypt(t, testKey, randomBytes(t, 1000), 100)

	for _, pos := range []int{5, 20, 30, len(cipherText) - 1} {
		c := bytes.Clone(cipherText)
		c[pos] ^= 0x80

		_, err := decrypt(testKey, c)
		require.Error(t, err, "pos %v", pos)
	}
}

func TestTruncatedCiphertext(t *testing.T) {
	plain := randomBytes(t, 2*cipherstream.ChunkSize+100)
	cipherText := encrypt(t, testKey, plain, 10000)

	// drop the final segment entirely, which leaves a valid-looking sequence of full segments.
	segLen := cipherstream.ChunkSize + 16
	atBoundary := cipherText[0 : len(cipherText)-(100+16)]
	require.Equal(t, 0, (len(atBoundary)-25)%segLen)

	_, err := decrypt(testKey, atBoundary)
	require.ErrorIs(t, err, errkind.ErrAuthFailure)

	_, err = decrypt(testKey, cipherText[0:len(cipherText)-5])
	require.ErrorIs(t, err, errkind.ErrAuthFailure)

	_, err = decrypt(testKey, cipherText[0:25])
	require.ErrorIs(t, err, errkind.ErrCorruptFormat)
}

func TestInvalidHeader(t *testing.T) {
	_, err := decrypt(testKey, nil)
	require.ErrorIs(t, err, errkind.ErrCorruptFormat)

	_, err = decrypt(testKey, []byte("SVLT"))
	require.ErrorIs(t, err, errkind.ErrCorruptFormat)

	cipherText := encrypt(t, testKey, []byte("hello"), 100)

	c := bytes.Clone(cipherText)
	copy(c, "XXXX")
	_, err = decrypt(testKey, c)
	require.ErrorIs(t, err, errkind.ErrCorruptFormat)

	c = bytes.Clone(cipherText)
	c[4] = 99
	_, err = decrypt(testKey, c)
	require.ErrorIs(t, err, errkind.ErrCorruptFormat)
}

func TestCompressionIDInHeader(t *testing.T) {
	var buf bytes.Buffer

	w, err := cipherstream.NewWriter(&buf, testKey, 0x1234)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := cipherstream.NewReader(bytes.NewReader(buf.Bytes()), testKey)
	require.NoError(t, err)
	require.EqualValues(t, 0x1234, r.Header.CompressionID)
	require.EqualValues(t, cipherstream.Version, r.Header.Version)
}

func TestWriteAfterClose(t *testing.T) {
	w, err := cipherstream.NewWriter(io.Discard, testKey, 0)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("x"))
	require.ErrorIs(t, err, errkind.ErrIOFailure)
}

func TestWriterPropagatesIOErrors(t *testing.T) {
	_, err := cipherstream.NewWriter(failingWriter{}, testKey, 0)
	require.ErrorIs(t, err, errkind.ErrIOFailure)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, io.ErrShortWrite
}
