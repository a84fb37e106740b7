package azure

import (
	"net/http"
	"os"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/stretchr/testify/require"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/testlogging"
	"github.com/kopia/streamvault/stream"
)

func getEnvOrSkip(t *testing.T, name string) string {
	t.Helper()

	value := os.Getenv(name)
	if value == "" {
		t.Skipf("%s not provided", name)
	}

	return value
}

func TestTranslateError(t *testing.T) {
	require.ErrorIs(t, translateError(&azcore.ResponseError{StatusCode: http.StatusNotFound}, "x"), errkind.ErrNotFound)
	require.ErrorIs(t, translateError(&azcore.ResponseError{ErrorCode: "BlobNotFound", StatusCode: http.StatusNotFound}, "x"), errkind.ErrNotFound)
	require.ErrorIs(t, translateError(&azcore.ResponseError{StatusCode: http.StatusForbidden}, "x"), errkind.ErrIOFailure)
}

func TestServiceURL(t *testing.T) {
	require.Equal(t, "https://acct.blob.core.windows.net/", serviceURL(&Options{StorageAccount: "acct"}))
	require.Equal(t, "http://acct.localhost:10000/", serviceURL(&Options{StorageAccount: "acct", StorageDomain: "localhost:10000", DoNotUseTLS: true}))
}

func TestNewValidatesOptions(t *testing.T) {
	ctx := testlogging.Context(t)

	_, err := New(ctx, &Options{StorageAccount: "acct"})
	require.Error(t, err)

	_, err = New(ctx, &Options{Container: "c"})
	require.Error(t, err)
}

func TestAzureSource(t *testing.T) {
	ctx := testlogging.Context(t)

	src, err := New(ctx, &Options{
		Container:      getEnvOrSkip(t, "STREAMVAULT_AZURE_TEST_CONTAINER"),
		StorageAccount: getEnvOrSkip(t, "STREAMVAULT_AZURE_TEST_STORAGE_ACCOUNT"),
		StorageKey:     getEnvOrSkip(t, "STREAMVAULT_AZURE_TEST_STORAGE_KEY"),
		Prefix:         "streamvault-test/" + t.Name() + "/",
	})
	require.NoError(t, err)

	_, err = stream.Bind(src, "missing").OpenInputStream(ctx)
	require.ErrorIs(t, err, errkind.ErrNotFound)

	res := stream.Bind(src, "data.enc")
	require.NoError(t, stream.Spit(ctx, res, "hello azure"))

	s, err := stream.Slurp(ctx, res)
	require.NoError(t, err)
	require.Equal(t, "hello azure", s)
}
