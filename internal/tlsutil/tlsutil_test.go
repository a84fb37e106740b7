package tlsutil_test

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopia/streamvault/internal/tlsutil"
)

func TestTransportTrustingSingleCertificate(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	h := sha256.Sum256(server.Certificate().Raw)
	fingerprint := hex.EncodeToString(h[:])

	t.Run("matching fingerprint", func(t *testing.T) {
		cli := &http.Client{Transport: tlsutil.TransportTrustingSingleCertificate(strings.ToUpper(fingerprint))}

		resp, err := cli.Get(server.URL)
		require.NoError(t, err)

		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.Equal(t, "ok", string(b))
	})

	t.Run("other fingerprint", func(t *testing.T) {
		cli := &http.Client{Transport: tlsutil.TransportTrustingSingleCertificate(strings.Repeat("00", 32))}

		_, err := cli.Get(server.URL) //nolint:bodyclose
		require.ErrorContains(t, err, "can't find certificate matching SHA256 fingerprint")
	})
}
