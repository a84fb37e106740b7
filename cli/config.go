package cli

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/atomicfile"
	"github.com/kopia/streamvault/internal/compression"
	"github.com/kopia/streamvault/internal/crypto"
	"github.com/kopia/streamvault/internal/ospath"
	"github.com/kopia/streamvault/keystore"
)

const (
	keystoreBackendFile    = "file"
	keystoreBackendKeyring = "keyring"

	defaultConfigBaseName   = "streamvault.config"
	defaultKeystoreBaseName = "keystore.jks"
	defaultDataBaseName     = "data.enc"
)

// Config is the persistent configuration of a vault used by the CLI.
type Config struct {
	Keystore        string        `json:"keystore"`
	KeystoreBackend string        `json:"keystoreBackend,omitempty"`
	KeyDerivation   string        `json:"keyDerivation,omitempty"`
	Data            string        `json:"data"`
	Compression     string        `json:"compression,omitempty"`
	Storage         StorageConfig `json:"storage"`
}

// StorageConfig selects the storage holding the encrypted data and its options.
type StorageConfig struct {
	Type   string          `json:"type"`
	Config json.RawMessage `json:"config,omitempty"`
}

func (cfg *Config) compressionName() compression.Name {
	return compression.Name(cfg.Compression)
}

func defaultConfigFileName() string {
	return filepath.Join(ospath.ConfigDir(), defaultConfigBaseName)
}

// LoadConfig reads the configuration from a given file.
func LoadConfig(fname string) (*Config, error) {
	b, err := os.ReadFile(fname) //nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errkind.Wrapf(errkind.ErrNotFound, err, "config file %v not found, use 'streamvault init' to create it", fname)
		}

		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unable to read config file %v", fname)
	}

	cfg := &Config{}
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, errkind.Wrapf(errkind.ErrCorruptFormat, err, "invalid config file %v", fname)
	}

	return cfg, nil
}

// SaveConfig atomically writes the configuration to a given file.
func SaveConfig(fname string, cfg *Config) error {
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "unable to marshal config")
	}

	if err := atomicfile.WriteBytes(fname, b); err != nil {
		return errkind.Wrapf(errkind.ErrIOFailure, err, "unable to write config file %v", fname)
	}

	return nil
}

func newKeystore(backend, keyDerivation string) (keystore.Store, error) {
	switch backend {
	case "", keystoreBackendFile:
		return keystore.File{KeyDerivationAlgorithm: keyDerivation}, nil
	case keystoreBackendKeyring:
		return keystore.Keyring{KeyDerivationAlgorithm: keyDerivation}, nil
	default:
		return nil, errors.Errorf("unsupported keystore backend %q", backend)
	}
}

func keyDerivationAlgorithms() []string {
	return crypto.SupportedKeyDerivationAlgorithms()
}
