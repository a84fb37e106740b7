package keystore_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/kopia/streamvault/internal/crypto"
	"github.com/kopia/streamvault/internal/testlogging"
	"github.com/kopia/streamvault/keystore"
)

var testStores = map[string]keystore.Store{
	"file":    keystore.File{KeyDerivationAlgorithm: crypto.ScryptLightAlgorithm},
	"keyring": keystore.Keyring{Service: "streamvault-test", KeyDerivationAlgorithm: crypto.ScryptLightAlgorithm},
}

func TestCreateAndLoad(t *testing.T) {
	keyring.MockInit()

	for name, ks := range testStores {
		t.Run(name, func(t *testing.T) {
			ctx := testlogging.Context(t)
			path := filepath.Join(t.TempDir(), "keystore.jks")

			created, err := ks.Create(ctx, path, "secret")
			require.NoError(t, err)
			require.Equal(t, 32, created.Len())
			require.Equal(t, keystore.KeyAlgorithm, created.Algorithm())

			loaded, err := ks.Load(ctx, path, "secret")
			require.NoError(t, err)
			require.Equal(t, created.Bytes(), loaded.Bytes())
			require.Equal(t, created.Algorithm(), loaded.Algorithm())

			_, err = ks.Load(ctx, path, "wrong")
			require.ErrorIs(t, err, keystore.ErrAuthFailure)

			// re-creating replaces the key.
			recreated, err := ks.Create(ctx, path, "secret")
			require.NoError(t, err)
			require.NotEqual(t, created.Bytes(), recreated.Bytes())

			loaded, err = ks.Load(ctx, path, "secret")
			require.NoError(t, err)
			require.Equal(t, recreated.Bytes(), loaded.Bytes())

			_, err = ks.Load(ctx, filepath.Join(t.TempDir(), "missing"), "secret")
			require.ErrorIs(t, err, keystore.ErrNotFound)
		})
	}
}

func TestKeyBytesReturnsCopy(t *testing.T) {
	ctx := testlogging.Context(t)
	path := filepath.Join(t.TempDir(), "ks")

	k, err := testStores["file"].Create(ctx, path, "secret")
	require.NoError(t, err)

	b := k.Bytes()
	b[0] ^= 0xff

	require.NotEqual(t, b, k.Bytes())
}

func TestFileFormat(t *testing.T) {
	ctx := testlogging.Context(t)
	path := filepath.Join(t.TempDir(), "sub", "keystore.jks")

	_, err := keystore.File{}.Create(ctx, path, "secret")
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	require.Equal(t, "streamvault-keystore", m["format"])
	require.EqualValues(t, 1, m["version"])
	require.Equal(t, crypto.DefaultKeyDerivationAlgorithm, m["keyAlgo"])
	require.Contains(t, m["entries"], keystore.EntryName)

	st, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, st.Mode().Perm()&0o077, "keystore must not be accessible to others")
}

func TestCorruptKeystore(t *testing.T) {
	ctx := testlogging.Context(t)
	dir := t.TempDir()
	ks := testStores["file"]

	valid := filepath.Join(dir, "valid")
	_, err := ks.Create(ctx, valid, "secret")
	require.NoError(t, err)

	b, err := os.ReadFile(valid)
	require.NoError(t, err)

	mutate := func(f func(m map[string]interface{})) []byte {
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(b, &m))
		f(m)

		out, err := json.Marshal(m)
		require.NoError(t, err)

		return out
	}

	cases := map[string][]byte{
		"not-json":        []byte("this is not a keystore"),
		"empty":           nil,
		"wrong-format":    mutate(func(m map[string]interface{}) { m["format"] = "JKS" }),
		"wrong-version":   mutate(func(m map[string]interface{}) { m["version"] = 99 }),
		"wrong-algorithm": mutate(func(m map[string]interface{}) { m["encryption"] = "ROT13" }),
		"no-entry":        mutate(func(m map[string]interface{}) { m["entries"] = map[string]interface{}{} }),
		"short-id":        mutate(func(m map[string]interface{}) { m["uniqueID"] = "AAAA" }),
	}

	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, contents, 0o600))

			_, err := ks.Load(ctx, path, "secret")
			require.ErrorIs(t, err, keystore.ErrCorruptFormat)
		})
	}
}

func TestKeyringDelete(t *testing.T) {
	keyring.MockInit()

	ctx := testlogging.Context(t)
	ks := keystore.Keyring{KeyDerivationAlgorithm: crypto.ScryptLightAlgorithm}

	_, err := ks.Create(ctx, "/some/vault", "secret")
	require.NoError(t, err)

	require.NoError(t, ks.Delete(ctx, "/some/vault"))
	require.NoError(t, ks.Delete(ctx, "/some/vault"))

	_, err = ks.Load(ctx, "/some/vault", "secret")
	require.ErrorIs(t, err, keystore.ErrNotFound)
}
