// Package compression manages streaming compression applied to vault data before encryption.
package compression

import (
	"fmt"
	"io"
	"sort"

	"github.com/pkg/errors"
)

// HeaderID is the identifier of a compression algorithm stored in the encrypted stream header.
type HeaderID uint32

// Name is the name of the compressor to use.
type Name string

// NoneHeaderID designates uncompressed data.
const NoneHeaderID HeaderID = 0

// header IDs of supported compressors.
const (
	headerZstdDefault           HeaderID = 0x1100
	headerZstdFastest           HeaderID = 0x1101
	headerZstdBetterCompression HeaderID = 0x1102
	headerS2Default             HeaderID = 0x1200
	headerS2Better              HeaderID = 0x1201
	headerPgzipDefault          HeaderID = 0x1300
	headerPgzipBestSpeed        HeaderID = 0x1301
	headerPgzipBestCompression  HeaderID = 0x1302
	headerLZ4Default            HeaderID = 0x1400
)

// Compressor wraps streams with compression and decompression.
type Compressor interface {
	HeaderID() HeaderID

	// NewWriter returns a writer that compresses data written to it into w.
	// Closing the returned writer flushes it but does not close w.
	NewWriter(w io.Writer) (io.WriteCloser, error)

	// NewReader returns a reader that decompresses data read from r.
	NewReader(r io.Reader) (io.ReadCloser, error)
}

// maps of registered compressors by header ID and name.
var (
	ByHeaderID = map[HeaderID]Compressor{} //nolint:gochecknoglobals
	ByName     = map[Name]Compressor{}     //nolint:gochecknoglobals
)

// RegisterCompressor registers the provided compressor implementation.
func RegisterCompressor(name Name, c Compressor) {
	if ByHeaderID[c.HeaderID()] != nil {
		panic(fmt.Sprintf("compressor with HeaderID %x already registered", c.HeaderID()))
	}

	if ByName[name] != nil {
		panic(fmt.Sprintf("compressor with name %q already registered", name))
	}

	ByHeaderID[c.HeaderID()] = c
	ByName[name] = c
}

// SupportedNames returns sorted names of registered compressors.
func SupportedNames() []string {
	var result []string

	for n := range ByName {
		result = append(result, string(n))
	}

	sort.Strings(result)

	return result
}

// Lookup returns the header ID for the compressor with the given name.
// An empty name or "none" designates no compression.
func Lookup(name Name) (HeaderID, error) {
	if name == "" || name == "none" {
		return NoneHeaderID, nil
	}

	c := ByName[name]
	if c == nil {
		return 0, errors.Errorf("unsupported compression %q", name)
	}

	return c.HeaderID(), nil
}

// NewWriter returns a compressing writer for the given header ID; NoneHeaderID passes data through.
func NewWriter(id HeaderID, w io.Writer) (io.WriteCloser, error) {
	if id == NoneHeaderID {
		return nopWriteCloser{w}, nil
	}

	c := ByHeaderID[id]
	if c == nil {
		return nil, errors.Errorf("unsupported compression header %x", id)
	}

	return c.NewWriter(w)
}

// NewReader returns a decompressing reader for the given header ID; NoneHeaderID passes data through.
func NewReader(id HeaderID, r io.Reader) (io.ReadCloser, error) {
	if id == NoneHeaderID {
		return io.NopCloser(r), nil
	}

	c := ByHeaderID[id]
	if c == nil {
		return nil, errors.Errorf("unsupported compression header %x", id)
	}

	return c.NewReader(r)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
