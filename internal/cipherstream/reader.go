package cipherstream

import (
	"bufio"
	"crypto/cipher"
	"io"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
)

// Reader decrypts a stream produced by Writer.
type Reader struct {
	in      *bufio.Reader
	aead    cipher.AEAD
	header  []byte
	seg     []byte
	plain   []byte
	nonce   []byte
	counter uint64
	done    bool
	err     error
	read    int64

	// Header is the parsed stream header.
	Header Header
}

// NewReader reads the stream header from in and returns a Reader that decrypts with a key derived from key.
func NewReader(in io.Reader, key []byte) (*Reader, error) {
	br := bufio.NewReader(in)

	h, hb, err := ReadHeader(br)
	if err != nil {
		return nil, err
	}

	aead, err := newStreamAEAD(key, h.Salt[:])
	if err != nil {
		return nil, err
	}

	return &Reader{
		in:     br,
		aead:   aead,
		header: hb,
		seg:    make([]byte, ChunkSize+aead.Overhead()),
		nonce:  make([]byte, aead.NonceSize()),
		Header: *h,
	}, nil
}

// nextSegment reads and opens the next segment.
func (r *Reader) nextSegment() error {
	n, err := io.ReadFull(r.in, r.seg)

	var last bool

	switch {
	case errors.Is(err, io.EOF):
		return errkind.Wrap(errkind.ErrCorruptFormat, io.ErrUnexpectedEOF, "encrypted stream ends without final segment")

	case errors.Is(err, io.ErrUnexpectedEOF):
		last = true

	case err != nil:
		return errkind.Wrap(errkind.ErrIOFailure, err, "error reading encrypted segment")

	default:
		// full segment, it is the last one only if nothing follows.
		if _, perr := r.in.Peek(1); perr != nil {
			if !errors.Is(perr, io.EOF) {
				return errkind.Wrap(errkind.ErrIOFailure, perr, "error reading encrypted segment")
			}

			last = true
		}
	}

	plain, err := r.aead.Open(r.seg[:0], segmentNonce(r.nonce, r.counter, last), r.seg[:n], r.header)
	if err != nil {
		return errkind.Wrapf(errkind.ErrAuthFailure, nil, "unable to decrypt segment %v, invalid key or corrupted data", r.counter)
	}

	r.counter++
	r.plain = plain
	r.done = last

	return nil
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(r.plain) == 0 {
		if r.err != nil {
			return 0, r.err
		}

		if r.done {
			return 0, io.EOF
		}

		if err := r.nextSegment(); err != nil {
			r.err = err
			return 0, err
		}
	}

	n := copy(p, r.plain)
	r.plain = r.plain[n:]
	r.read += int64(n)

	return n, nil
}

// PlaintextBytes returns the number of plaintext bytes returned so far.
func (r *Reader) PlaintextBytes() int64 {
	return r.read
}
