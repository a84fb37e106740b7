package stream

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/atomicfile"
	"github.com/kopia/streamvault/logging"
)

var log = logging.Module("stream")

const (
	fileMode = 0o600
	dirMode  = 0o700
)

// Filesystem is a Source of local files, names are file paths.
type Filesystem struct {
	// AtomicWrites causes written files to become visible only after a successful Close.
	AtomicWrites bool
}

// OpenRead implements Source.
func (fs Filesystem) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(atomicfile.MaybePrefixLongFilenameOnWindows(name)) //nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errkind.Wrapf(errkind.ErrNotFound, err, "file %v", name)
		}

		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unable to open file %v", name)
	}

	log(ctx).Debugf("opened %v for reading", name)

	return f, nil
}

// OpenWrite implements Source. Missing parent directories are created.
func (fs Filesystem) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	if err := os.MkdirAll(filepath.Dir(name), dirMode); err != nil {
		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unable to create directory for %v", name)
	}

	if fs.AtomicWrites {
		log(ctx).Debugf("opened %v for atomic writing", name)

		return NewUploadWriter(ctx, func(_ context.Context, r io.Reader) error {
			if err := atomicfile.Write(name, r); err != nil {
				return errkind.Wrapf(errkind.ErrIOFailure, err, "unable to write file %v", name)
			}

			return nil
		}), nil
	}

	f, err := os.OpenFile(atomicfile.MaybePrefixLongFilenameOnWindows(name), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode) //nolint:gosec
	if err != nil {
		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unable to open file %v for writing", name)
	}

	log(ctx).Debugf("opened %v for writing", name)

	return &syncingFile{f}, nil
}

// syncingFile flushes file contents to stable storage before closing.
type syncingFile struct {
	*os.File
}

func (f *syncingFile) Close() error {
	serr := f.File.Sync()
	cerr := f.File.Close()

	if serr != nil {
		return errors.Wrap(serr, "sync error")
	}

	return errors.Wrap(cerr, "close error")
}
