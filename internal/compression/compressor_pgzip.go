package compression

import (
	"io"

	"github.com/klauspost/pgzip"
	"github.com/pkg/errors"
)

func init() {
	RegisterCompressor("pgzip", &pgzipCompressor{headerPgzipDefault, pgzip.DefaultCompression})
	RegisterCompressor("pgzip-best-speed", &pgzipCompressor{headerPgzipBestSpeed, pgzip.BestSpeed})
	RegisterCompressor("pgzip-best-compression", &pgzipCompressor{headerPgzipBestCompression, pgzip.BestCompression})
}

type pgzipCompressor struct {
	id    HeaderID
	level int
}

func (c *pgzipCompressor) HeaderID() HeaderID {
	return c.id
}

func (c *pgzipCompressor) NewWriter(w io.Writer) (io.WriteCloser, error) {
	gw, err := pgzip.NewWriterLevel(w, c.level)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create compressor")
	}

	return gw, nil
}

func (c *pgzipCompressor) NewReader(r io.Reader) (io.ReadCloser, error) {
	gr, err := pgzip.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open gzip stream")
	}

	return gr, nil
}
