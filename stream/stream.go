// Package stream provides read/write access to byte-oriented resources such as files,
// sockets, URLs, in-memory buffers and remote object stores.
package stream

import (
	"context"
	"io"
)

// Source opens raw byte streams for named resources.
type Source interface {
	// OpenRead returns a stream over the contents of the named resource.
	// It returns an error wrapping errkind.ErrNotFound if the resource does not exist.
	OpenRead(ctx context.Context, name string) (io.ReadCloser, error)

	// OpenWrite returns a stream that replaces the contents of the named resource.
	// Data is guaranteed to be persisted only after Close returns nil.
	OpenWrite(ctx context.Context, name string) (io.WriteCloser, error)
}

// Resource is a single resource that can be opened for reading or writing.
type Resource interface {
	OpenInputStream(ctx context.Context) (io.ReadCloser, error)
	OpenOutputStream(ctx context.Context) (io.WriteCloser, error)
}

type boundResource struct {
	src  Source
	name string
}

func (r boundResource) OpenInputStream(ctx context.Context) (io.ReadCloser, error) {
	return r.src.OpenRead(ctx, r.name)
}

func (r boundResource) OpenOutputStream(ctx context.Context) (io.WriteCloser, error) {
	return r.src.OpenWrite(ctx, r.name)
}

// Bind returns a Resource that refers to the named resource in a Source.
func Bind(src Source, name string) Resource {
	return boundResource{src, name}
}
