package stream

import (
	"io"
)

// Aborter is implemented by output streams that can be released without committing
// what was written to them.
type Aborter interface {
	CloseWithError(cause error) error
}

// Abort releases w without committing its contents when w implements Aborter,
// and closes it otherwise.
func Abort(w io.WriteCloser, cause error) error {
	if a, ok := w.(Aborter); ok {
		return a.CloseWithError(cause)
	}

	return w.Close() //nolint:wrapcheck
}
