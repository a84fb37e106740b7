package compression

import (
	"io"

	"github.com/klauspost/compress/s2"
)

func init() {
	RegisterCompressor("s2-default", &s2Compressor{id: headerS2Default})
	RegisterCompressor("s2-better", &s2Compressor{id: headerS2Better, opts: []s2.WriterOption{s2.WriterBetterCompression()}})
}

type s2Compressor struct {
	id   HeaderID
	opts []s2.WriterOption
}

func (c *s2Compressor) HeaderID() HeaderID {
	return c.id
}

func (c *s2Compressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	return s2.NewWriter(w, c.opts...), nil
}

func (c *s2Compressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(s2.NewReader(r)), nil
}
