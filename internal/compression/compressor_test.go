package compression

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompressor(t *testing.T) {
	data := []byte(strings.Repeat("hello vault, this text compresses well. ", 5000))

	for name, comp := range ByName {
		t.Run(string(name), func(t *testing.T) {
			var buf bytes.Buffer

			w, err := comp.NewWriter(&buf)
			require.NoError(t, err)

			_, err = w.Write(data)
			require.NoError(t, err)
			require.NoError(t, w.Close())

			require.Less(t, buf.Len(), len(data))

			r, err := comp.NewReader(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)

			got, err := io.ReadAll(r)
			require.NoError(t, err)
			require.NoError(t, r.Close())
			require.Equal(t, data, got)
		})
	}
}

func TestLookup(t *testing.T) {
	id, err := Lookup("")
	require.NoError(t, err)
	require.Equal(t, NoneHeaderID, id)

	id, err = Lookup("none")
	require.NoError(t, err)
	require.Equal(t, NoneHeaderID, id)

	id, err = Lookup("zstd")
	require.NoError(t, err)
	require.Equal(t, headerZstdDefault, id)

	_, err = Lookup("no-such")
	require.Error(t, err)

	require.Contains(t, SupportedNames(), "s2-default")
}

func TestNoneRoundTrip(t *testing.T) {
	var buf bytes.Buffer

	w, err := NewWriter(NoneHeaderID, &buf)
	require.NoError(t, err)

	_, err = io.WriteString(w, "plain")
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.Equal(t, "plain", buf.String())

	r, err := NewReader(NoneHeaderID, &buf)
	require.NoError(t, err)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, "plain", string(got))

	_, err = NewWriter(0xdead, &buf)
	require.Error(t, err)

	_, err = NewReader(0xdead, &buf)
	require.Error(t, err)
}
