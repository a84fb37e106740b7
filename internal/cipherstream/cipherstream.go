// Package cipherstream implements the chunked authenticated encryption format used for vault data.
//
// A stream consists of a fixed-size header followed by a sequence of segments:
//
//	header:  "SVLT" | version (1 byte) | compression header ID (uint32 BE) | salt (16 bytes)
//	segment: AES-256-GCM(chunk), chunk <= ChunkSize bytes of plaintext
//
// Each stream has its own AEAD key derived with HKDF from the caller's key and the random salt,
// so nonces (segment counter plus a final-segment flag) are never reused under one key.
// The header is authenticated as additional data of every segment. Truncation, reordering
// and use of a wrong key are detected when segments are opened.
package cipherstream

import (
	"bytes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/crypto"
)

const (
	magic = "SVLT"

	// Version is the version of the stream format written by NewWriter.
	Version = 1

	// ChunkSize is the maximum amount of plaintext in a single segment.
	ChunkSize = 64 << 10

	saltLength   = 16
	headerLength = len(magic) + 1 + 4 + saltLength

	purposeDataKey = "streamvault-data"

	lastSegmentFlag = 1
)

// Header describes an encrypted stream.
type Header struct {
	Version       byte
	CompressionID uint32
	Salt          [saltLength]byte
}

func (h *Header) marshal() []byte {
	b := make([]byte, 0, headerLength)
	b = append(b, magic...)
	b = append(b, h.Version)
	b = binary.BigEndian.AppendUint32(b, h.CompressionID)
	b = append(b, h.Salt[:]...)

	return b
}

func parseHeader(b []byte) (*Header, error) {
	if len(b) != headerLength || !bytes.Equal(b[0:len(magic)], []byte(magic)) {
		return nil, errkind.Wrap(errkind.ErrCorruptFormat, nil, "not an encrypted vault stream")
	}

	h := &Header{Version: b[len(magic)]}
	if h.Version != Version {
		return nil, errkind.Wrapf(errkind.ErrCorruptFormat, nil, "unsupported stream version %v", h.Version)
	}

	h.CompressionID = binary.BigEndian.Uint32(b[len(magic)+1:])
	copy(h.Salt[:], b[len(magic)+5:])

	return h, nil
}

func newStreamAEAD(key []byte, salt []byte) (cipher.AEAD, error) {
	k, err := crypto.DeriveKeyFromMasterKey(key, salt, purposeDataKey, crypto.AES256KeyLength)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "unable to derive stream key")
	}

	aead, err := crypto.NewAes256Gcm(k)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "unable to initialize cipher")
	}

	return aead, nil
}

// segmentNonce returns the nonce of the segment with a given index.
func segmentNonce(dst []byte, counter uint64, last bool) []byte {
	clear(dst)
	binary.BigEndian.PutUint64(dst, counter)

	if last {
		dst[len(dst)-1] = lastSegmentFlag
	}

	return dst
}

// Writer encrypts data written to it and writes segments to the underlying writer.
// Close must be called to seal the final segment; it does not close the underlying writer.
type Writer struct {
	out      io.Writer
	aead     cipher.AEAD
	header   []byte
	buf      []byte
	sealed   []byte
	nonce    []byte
	counter  uint64
	err      error
	closed   bool
	written  int64
	produced int64
}

// NewWriter writes the stream header to out and returns a Writer that encrypts with a key derived from key.
func NewWriter(out io.Writer, key []byte, compressionID uint32) (*Writer, error) {
	h := Header{Version: Version, CompressionID: compressionID}

	if _, err := io.ReadFull(rand.Reader, h.Salt[:]); err != nil {
		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "error reading random bytes for salt")
	}

	aead, err := newStreamAEAD(key, h.Salt[:])
	if err != nil {
		return nil, err
	}

	w := &Writer{
		out:    out,
		aead:   aead,
		header: h.marshal(),
		buf:    make([]byte, 0, ChunkSize),
		sealed: make([]byte, 0, ChunkSize+aead.Overhead()),
		nonce:  make([]byte, aead.NonceSize()),
	}

	if _, err := out.Write(w.header); err != nil {
		return nil, errkind.Wrap(errkind.ErrIOFailure, err, "error writing stream header")
	}

	w.produced = int64(len(w.header))

	return w, nil
}

func (w *Writer) sealSegment(last bool) error {
	w.sealed = w.aead.Seal(w.sealed[:0], segmentNonce(w.nonce, w.counter, last), w.buf, w.header)
	w.counter++
	w.buf = w.buf[:0]

	if _, err := w.out.Write(w.sealed); err != nil {
		return errkind.Wrap(errkind.ErrIOFailure, err, "error writing encrypted segment")
	}

	w.produced += int64(len(w.sealed))

	return nil
}

// Write implements io.Writer.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errkind.Wrap(errkind.ErrIOFailure, io.ErrClosedPipe, "write after close")
	}

	if w.err != nil {
		return 0, w.err
	}

	n := 0

	for len(p) > 0 {
		// a full buffer is sealed only once more data arrives, so the final segment is never empty
		// unless the whole stream is.
		if len(w.buf) == ChunkSize {
			if w.err = w.sealSegment(false); w.err != nil {
				return n, w.err
			}
		}

		c := copy(w.buf[len(w.buf):ChunkSize], p)
		w.buf = w.buf[:len(w.buf)+c]
		p = p[c:]
		n += c
		w.written += int64(c)
	}

	return n, nil
}

// Close seals the final segment. It is safe to call Close more than once.
func (w *Writer) Close() error {
	if w.closed {
		return w.err
	}

	w.closed = true

	if w.err != nil {
		return w.err
	}

	w.err = w.sealSegment(true)

	return w.err
}

// PlaintextBytes returns the number of plaintext bytes written so far.
func (w *Writer) PlaintextBytes() int64 {
	return w.written
}

// CiphertextBytes returns the number of bytes written to the underlying writer so far.
func (w *Writer) CiphertextBytes() int64 {
	return w.produced
}

// ReadHeader reads and validates the stream header from r.
func ReadHeader(r io.Reader) (*Header, []byte, error) {
	hb := make([]byte, headerLength)

	switch _, err := io.ReadFull(r, hb); {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return nil, nil, errkind.Wrap(errkind.ErrCorruptFormat, err, "encrypted stream too short")
	case err != nil:
		return nil, nil, errkind.Wrap(errkind.ErrIOFailure, err, "error reading stream header")
	}

	h, err := parseHeader(hb)
	if err != nil {
		return nil, nil, err
	}

	return h, hb, nil
}
