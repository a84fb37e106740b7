// Package iocopy is a wrapper around io.Copy() that recycles shared buffers.
package iocopy

import (
	"bytes"
	"io"
	"sync"
)

// BufSize is the size of the pooled copy buffers.
const BufSize = 65536

var bufferPool = sync.Pool{ //nolint:gochecknoglobals
	New: func() interface{} {
		p := make([]byte, BufSize)

		return &p
	},
}

// GetBuffer returns a pooled buffer of BufSize bytes; it must be returned with ReleaseBuffer.
func GetBuffer() []byte {
	return *bufferPool.Get().(*[]byte) //nolint:forcetypeassert
}

// ReleaseBuffer returns a buffer obtained from GetBuffer to the pool.
func ReleaseBuffer(b []byte) {
	if cap(b) < BufSize {
		return
	}

	b = b[:BufSize]
	bufferPool.Put(&b)
}

// Copy is equivalent to io.Copy().
func Copy(dst io.Writer, src io.Reader) (int64, error) {
	buf := GetBuffer()
	defer ReleaseBuffer(buf)

	//nolint:wrapcheck
	return io.CopyBuffer(dst, src, buf)
}

// ReadAll reads src until EOF using a pooled buffer.
func ReadAll(src io.Reader) ([]byte, error) {
	var out bytes.Buffer

	_, err := Copy(&out, src)

	return out.Bytes(), err
}
