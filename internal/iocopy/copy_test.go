package iocopy_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopia/streamvault/internal/iocopy"
)

func TestCopy(t *testing.T) {
	src := strings.Repeat("abcdefgh", iocopy.BufSize/4)

	var dst bytes.Buffer

	n, err := iocopy.Copy(&dst, strings.NewReader(src))
	require.NoError(t, err)
	require.EqualValues(t, len(src), n)
	require.Equal(t, src, dst.String())
}

func TestReadAll(t *testing.T) {
	b, err := iocopy.ReadAll(strings.NewReader("hello"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))

	b, err = iocopy.ReadAll(strings.NewReader(""))
	require.NoError(t, err)
	require.Empty(t, b)
}

func TestBufferPool(t *testing.T) {
	b := iocopy.GetBuffer()
	require.Len(t, b, iocopy.BufSize)
	iocopy.ReleaseBuffer(b)
	iocopy.ReleaseBuffer(make([]byte, 10))
}
