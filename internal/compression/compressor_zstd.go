package compression

import (
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

func init() {
	RegisterCompressor("zstd", &zstdCompressor{headerZstdDefault, zstd.SpeedDefault})
	RegisterCompressor("zstd-fastest", &zstdCompressor{headerZstdFastest, zstd.SpeedFastest})
	RegisterCompressor("zstd-better-compression", &zstdCompressor{headerZstdBetterCompression, zstd.SpeedBetterCompression})
}

type zstdCompressor struct {
	id    HeaderID
	level zstd.EncoderLevel
}

func (c *zstdCompressor) HeaderID() HeaderID {
	return c.id
}

func (c *zstdCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(c.level))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create compressor")
	}

	return enc, nil
}

func (c *zstdCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open zstd stream")
	}

	return dec.IOReadCloser(), nil
}
