// Package webdav implements a stream source backed by a WebDAV server.
package webdav

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/studio-b12/gowebdav"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/tlsutil"
	"github.com/kopia/streamvault/logging"
	"github.com/kopia/streamvault/stream"
)

var log = logging.Module("webdav")

const (
	defaultFilePerm = 0o600
	defaultDirPerm  = 0o700
)

// Source implements stream.Source on top of a WebDAV server.
// Uploads are streamed to a temporary file that is renamed over the target on Close.
type Source struct {
	Options

	cli *gowebdav.Client
}

var _ stream.Source = (*Source)(nil)

// OpenRead implements stream.Source.
func (d *Source) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := d.cli.ReadStream(name)
	if err != nil {
		return nil, d.translateError(err, name)
	}

	log(ctx).Debugw("opened WebDAV file for reading", "name", name)

	return rc, nil
}

// OpenWrite implements stream.Source.
func (d *Source) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	tmpPath := fmt.Sprintf("%v-%v", name, rand.Int64()) //nolint:gosec

	if dir := path.Dir(name); dir != "." && dir != "/" {
		if err := d.cli.MkdirAll(dir, defaultDirPerm); err != nil {
			return nil, d.translateError(err, dir)
		}
	}

	log(ctx).Debugw("opened WebDAV file for writing", "name", name, "temp", tmpPath)

	return stream.NewUploadWriter(ctx, func(_ context.Context, r io.Reader) error {
		if err := d.cli.WriteStream(tmpPath, r, defaultFilePerm); err != nil {
			return d.translateError(err, tmpPath)
		}

		if err := d.cli.Rename(tmpPath, name, true); err != nil {
			d.cli.Remove(tmpPath) //nolint:errcheck

			return d.translateError(err, name)
		}

		return nil
	}), nil
}

func httpErrorCode(err error) int {
	var pe *os.PathError
	if errors.As(err, &pe) {
		code, err := strconv.Atoi(strings.Split(pe.Err.Error(), " ")[0])
		if err == nil {
			return code
		}
	}

	return 0
}

func (d *Source) translateError(err error, name string) error {
	if httpErrorCode(err) == http.StatusNotFound || errors.Is(err, os.ErrNotExist) {
		return errkind.Wrapf(errkind.ErrNotFound, err, "WebDAV file %v", name)
	}

	return errkind.Wrapf(errkind.ErrIOFailure, err, "WebDAV error on %v", name)
}

// New returns a WebDAV-backed Source for the server at opts.URL.
func New(ctx context.Context, opts *Options) (*Source, error) {
	if opts.URL == "" {
		return nil, errors.New("WebDAV URL must be provided")
	}

	cli := gowebdav.NewClient(opts.URL, opts.Username, opts.Password)

	if opts.TrustedServerCertificateFingerprint != "" {
		cli.SetTransport(tlsutil.TransportTrustingSingleCertificate(opts.TrustedServerCertificateFingerprint))
	}

	log(ctx).Debugw("using WebDAV server", "url", opts.URL)

	return &Source{Options: *opts, cli: cli}, nil
}
