package compression

import (
	"io"

	"github.com/pierrec/lz4"
)

func init() {
	RegisterCompressor("lz4", &lz4Compressor{headerLZ4Default})
}

type lz4Compressor struct {
	id HeaderID
}

func (c *lz4Compressor) HeaderID() HeaderID {
	return c.id
}

func (c *lz4Compressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return lz4.NewWriter(w), nil
}

func (c *lz4Compressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(lz4.NewReader(r)), nil
}
