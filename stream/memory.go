package stream

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/kopia/streamvault/errkind"
)

// Memory is a Source of in-memory resources. It is safe for concurrent use and
// the zero value is ready to use. Written data becomes visible when the writer is closed.
type Memory struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory Source.
func NewMemory() *Memory {
	return &Memory{data: map[string][]byte{}}
}

// OpenRead implements Source.
func (m *Memory) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.data[name]
	if !ok {
		return nil, errkind.Wrapf(errkind.ErrNotFound, nil, "memory resource %q", name)
	}

	return io.NopCloser(bytes.NewReader(b)), nil
}

// OpenWrite implements Source.
func (m *Memory) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	return &memoryWriter{m: m, name: name}, nil
}

// Get returns a copy of the current contents of the named resource.
func (m *Memory) Get(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.data[name]

	return bytes.Clone(b), ok
}

// Put replaces the contents of the named resource.
func (m *Memory) Put(name string, b []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		m.data = map[string][]byte{}
	}

	m.data[name] = bytes.Clone(b)
}

// Names returns sorted names of all resources.
func (m *Memory) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []string
	for k := range m.data {
		result = append(result, k)
	}

	sort.Strings(result)

	return result
}

type memoryWriter struct {
	m      *Memory
	name   string
	buf    bytes.Buffer
	closed bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errkind.Wrap(errkind.ErrIOFailure, io.ErrClosedPipe, "write after close")
	}

	return w.buf.Write(p) //nolint:wrapcheck
}

func (w *memoryWriter) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true
	w.m.Put(w.name, w.buf.Bytes())

	return nil
}

// CloseWithError discards the written data.
func (w *memoryWriter) CloseWithError(cause error) error {
	w.closed = true
	w.buf.Reset()

	return nil
}
