package vault_test

import (
	"bytes"
	"crypto/rand"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/kopia/streamvault/internal/cipherstream"
	"github.com/kopia/streamvault/internal/compression"
	"github.com/kopia/streamvault/internal/crypto"
	"github.com/kopia/streamvault/internal/testlogging"
	"github.com/kopia/streamvault/keystore"
	"github.com/kopia/streamvault/stream"
	"github.com/kopia/streamvault/vault"
)

var testKeystore = keystore.File{KeyDerivationAlgorithm: crypto.ScryptLightAlgorithm}

func newTestVault(t *testing.T, passphrase string) *vault.Vault {
	t.Helper()

	dir := t.TempDir()

	return vault.New(
		filepath.Join(dir, "data.enc"),
		filepath.Join(dir, "keystore.jks"),
		passphrase,
		&vault.Options{Keystore: testKeystore},
	)
}

func TestScenario(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	require.NoError(t, v.Initialize(ctx))
	require.NoError(t, v.WriteString(ctx, "hello vault"))

	s, err := v.ReadString(ctx)
	require.NoError(t, err)
	require.Equal(t, "hello vault", s)

	raw, err := os.ReadFile(v.DataPath())
	require.NoError(t, err)
	require.NotContains(t, string(raw), "hello vault")

	require.NoError(t, v.Initialize(ctx))

	s, err = v.ReadString(ctx)
	require.ErrorIs(t, err, vault.ErrAuthFailure)
	require.Empty(t, s)
}

func TestRoundTrip(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	require.NoError(t, v.Initialize(ctx))

	for _, size := range []int{0, 1, 100, cipherstream.ChunkSize - 1, cipherstream.ChunkSize, cipherstream.ChunkSize + 1, 3*cipherstream.ChunkSize + 17} {
		b := make([]byte, size)
		rand.Read(b)

		require.NoError(t, v.WriteAll(ctx, b))

		got, err := v.ReadAll(ctx)
		require.NoError(t, err)
		require.True(t, bytes.Equal(b, got), "size %v", size)
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	ctx := testlogging.Context(t)
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog "), 10000)

	for _, name := range compression.SupportedNames() {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			v := vault.New(filepath.Join(dir, "data"), filepath.Join(dir, "ks"), "secret", &vault.Options{
				Keystore:    testKeystore,
				Compression: compression.Name(name),
			})

			require.NoError(t, v.Initialize(ctx))
			require.NoError(t, v.WriteAll(ctx, payload))

			st, err := os.Stat(v.DataPath())
			require.NoError(t, err)
			require.Less(t, st.Size(), int64(len(payload)))

			got, err := v.ReadAll(ctx)
			require.NoError(t, err)
			require.Equal(t, payload, got)

			// the compression recorded in the data is used regardless of vault options.
			plain := vault.New(v.DataPath(), v.KeystorePath(), "secret", &vault.Options{Keystore: testKeystore})

			got, err = plain.ReadAll(ctx)
			require.NoError(t, err)
			require.Equal(t, payload, got)
		})
	}
}

func TestUnsupportedCompression(t *testing.T) {
	ctx := testlogging.Context(t)
	dir := t.TempDir()
	v := vault.New(filepath.Join(dir, "data"), filepath.Join(dir, "ks"), "secret", &vault.Options{
		Keystore:    testKeystore,
		Compression: "no-such-compression",
	})

	require.NoError(t, v.Initialize(ctx))

	_, err := v.OpenOutputStream(ctx)
	require.ErrorIs(t, err, vault.ErrCryptoFailure)
}

func TestWrongPassphrase(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	require.NoError(t, v.Initialize(ctx))
	require.NoError(t, v.WriteString(ctx, "hello vault"))

	wrong := vault.New(v.DataPath(), v.KeystorePath(), "not-the-secret", &vault.Options{Keystore: testKeystore})

	_, err := wrong.ReadString(ctx)
	require.ErrorIs(t, err, vault.ErrAuthFailure)

	require.ErrorIs(t, wrong.WriteString(ctx, "overwrite"), vault.ErrAuthFailure)

	// failed open must not touch the data.
	s, err := v.ReadString(ctx)
	require.NoError(t, err)
	require.Equal(t, "hello vault", s)
}

func TestMissingDataFile(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	require.NoError(t, v.Initialize(ctx))

	_, err := v.OpenInputStream(ctx)
	require.ErrorIs(t, err, vault.ErrNotFound)
}

func TestMissingKeystore(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	_, err := v.OpenInputStream(ctx)
	require.ErrorIs(t, err, vault.ErrNotFound)

	_, err = v.OpenOutputStream(ctx)
	require.ErrorIs(t, err, vault.ErrNotFound)

	_, err = os.Stat(v.DataPath())
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCorruptKeystore(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	require.NoError(t, os.WriteFile(v.KeystorePath(), []byte("garbage"), 0o600))

	_, err := v.ReadString(ctx)
	require.ErrorIs(t, err, vault.ErrCorruptFormat)
}

func TestIdempotentRead(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	require.NoError(t, v.Initialize(ctx))
	require.NoError(t, v.WriteString(ctx, "hello vault"))

	s1, err := v.ReadString(ctx)
	require.NoError(t, err)

	s2, err := v.ReadString(ctx)
	require.NoError(t, err)

	require.Equal(t, s1, s2)
}

func TestRepeatedWritesProduceDifferentCiphertext(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	require.NoError(t, v.Initialize(ctx))

	require.NoError(t, v.WriteString(ctx, "hello vault"))
	c1, err := os.ReadFile(v.DataPath())
	require.NoError(t, err)

	require.NoError(t, v.WriteString(ctx, "hello vault"))
	c2, err := os.ReadFile(v.DataPath())
	require.NoError(t, err)

	require.NotEqual(t, c1, c2)
}

func TestTruncatedData(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	require.NoError(t, v.Initialize(ctx))
	require.NoError(t, v.WriteAll(ctx, bytes.Repeat([]byte{1}, 2*cipherstream.ChunkSize+5)))

	raw, err := os.ReadFile(v.DataPath())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(v.DataPath(), raw[:len(raw)-10], 0o600))

	_, err = v.ReadAll(ctx)
	require.ErrorIs(t, err, vault.ErrAuthFailure)

	require.NoError(t, os.WriteFile(v.DataPath(), raw[:10], 0o600))

	_, err = v.ReadAll(ctx)
	require.ErrorIs(t, err, vault.ErrCorruptFormat)
}

func TestStreamingAndCloseTwice(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	require.NoError(t, v.Initialize(ctx))

	w, err := v.OpenOutputStream(ctx)
	require.NoError(t, err)

	for range 100 {
		_, err = io.WriteString(w, "0123456789")
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	_, err = w.Write([]byte("x"))
	require.Error(t, err)

	r, err := v.OpenInputStream(ctx)
	require.NoError(t, err)

	b, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Len(t, b, 1000)
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
}

func TestMemorySourceAndKeyring(t *testing.T) {
	keyring.MockInit()

	ctx := testlogging.Context(t)
	mem := stream.NewMemory()

	v := vault.New("data.enc", "/vaults/test", "secret", &vault.Options{
		Keystore: keystore.Keyring{Service: "streamvault-test", KeyDerivationAlgorithm: crypto.ScryptLightAlgorithm},
		Source:   mem,
	})

	require.NoError(t, v.Initialize(ctx))
	require.NoError(t, v.WriteString(ctx, "hello vault"))

	raw, ok := mem.Get("data.enc")
	require.True(t, ok)
	require.NotContains(t, string(raw), "hello vault")

	s, err := stream.Slurp(ctx, v)
	require.NoError(t, err)
	require.Equal(t, "hello vault", s)
}

func TestMetrics(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	encrypted := testutil.ToFloat64(vault.MetricBytesEncrypted())
	decrypted := testutil.ToFloat64(vault.MetricBytesDecrypted())

	require.NoError(t, v.Initialize(ctx))
	require.NoError(t, v.WriteString(ctx, "hello vault"))

	_, err := v.ReadString(ctx)
	require.NoError(t, err)

	require.InDelta(t, encrypted+11, testutil.ToFloat64(vault.MetricBytesEncrypted()), 0.1)
	require.InDelta(t, decrypted+11, testutil.ToFloat64(vault.MetricBytesDecrypted()), 0.1)
}

func TestUnlock(t *testing.T) {
	ctx := testlogging.Context(t)
	v := newTestVault(t, "secret")

	require.ErrorIs(t, v.Unlock(ctx), vault.ErrNotFound)
	require.NoError(t, v.Initialize(ctx))
	require.NoError(t, v.Unlock(ctx))

	wrong := vault.New(v.DataPath(), v.KeystorePath(), "wrong", &vault.Options{Keystore: testKeystore})
	require.ErrorIs(t, wrong.Unlock(ctx), vault.ErrAuthFailure)

	// unlocking does not create the data resource.
	require.NoFileExists(t, v.DataPath())
}
