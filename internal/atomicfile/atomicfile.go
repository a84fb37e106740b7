// Package atomicfile provides wrappers for atomically writing files in a manner compatible with long filenames.
package atomicfile

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/natefinch/atomic"
	"github.com/pkg/errors"
)

const (
	maxPathLength = 260

	dirMode = 0o700
)

// MaybePrefixLongFilenameOnWindows prefixes the given filename with \\?\ on Windows
// if the filename is longer than 260 characters, which is required to be able to
// use some low-level Windows APIs.
func MaybePrefixLongFilenameOnWindows(fname string) string {
	if runtime.GOOS != "windows" {
		return fname
	}

	if len(fname) < maxPathLength {
		return fname
	}

	fixed, err := filepath.Abs(fname)
	if err != nil {
		return fname
	}

	return "\\\\?\\" + fixed
}

// Write is a wrapper around atomic.WriteFile that handles long file names on Windows.
// Readers of the file observe either its previous contents or the complete new contents.
func Write(filename string, r io.Reader) error {
	//nolint:wrapcheck
	return atomic.WriteFile(MaybePrefixLongFilenameOnWindows(filename), r)
}

// WriteBytes atomically replaces the contents of filename with b, creating the parent directory if needed.
func WriteBytes(filename string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), dirMode); err != nil {
		return errors.Wrap(err, "unable to create parent directory")
	}

	return Write(filename, bytes.NewReader(b))
}
