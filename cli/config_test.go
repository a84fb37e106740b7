package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/keystore"
)

func TestSaveLoadConfig(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "sub", "streamvault.config")

	want := &Config{
		Keystore:        "/tmp/ks.jks",
		KeystoreBackend: keystoreBackendKeyring,
		KeyDerivation:   "scrypt-16384-4-1",
		Data:            "data.enc",
		Compression:     "zstd",
		Storage: StorageConfig{
			Type:   "sftp",
			Config: json.RawMessage(`{"path":"/upload","host":"example.com","port":22,"username":"u"}`),
		},
	}

	require.NoError(t, SaveConfig(fname, want))

	got, err := LoadConfig(fname)
	require.NoError(t, err)

	// RawMessage is compared semantically, indentation may differ.
	var wantOpts, gotOpts map[string]any

	require.NoError(t, json.Unmarshal(want.Storage.Config, &wantOpts))
	require.NoError(t, json.Unmarshal(got.Storage.Config, &gotOpts))

	if diff := cmp.Diff(wantOpts, gotOpts); diff != "" {
		t.Fatalf("unexpected storage options (-want +got):\n%s", diff)
	}

	got.Storage.Config, want.Storage.Config = nil, nil

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadConfig(filepath.Join(dir, "missing"))
	require.ErrorIs(t, err, errkind.ErrNotFound)

	bad := filepath.Join(dir, "bad")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))

	_, err = LoadConfig(bad)
	require.ErrorIs(t, err, errkind.ErrCorruptFormat)
}

func TestNewKeystore(t *testing.T) {
	ks, err := newKeystore("", "")
	require.NoError(t, err)
	require.IsType(t, keystore.File{}, ks)

	ks, err = newKeystore(keystoreBackendKeyring, "pbkdf2-sha256-600000")
	require.NoError(t, err)
	require.Equal(t, keystore.Keyring{KeyDerivationAlgorithm: "pbkdf2-sha256-600000"}, ks)

	_, err = newKeystore("floppy", "")
	require.Error(t, err)
}
