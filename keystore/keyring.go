package keystore

import (
	"context"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"

	"github.com/kopia/streamvault/errkind"
)

// DefaultKeyringService is the OS keychain service name used by Keyring when none is configured.
const DefaultKeyringService = "streamvault"

// Keyring is a Store that keeps the keystore container in the OS keychain
// (macOS Keychain, Windows Credential Manager, Secret Service on Linux).
// The path identifies the keychain item, the container is still protected by the passphrase.
type Keyring struct {
	Service string

	// KeyDerivationAlgorithm used to protect new keystores, crypto.DefaultKeyDerivationAlgorithm if empty.
	KeyDerivationAlgorithm string
}

var _ Store = Keyring{}

func (k Keyring) service() string {
	if k.Service == "" {
		return DefaultKeyringService
	}

	return k.Service
}

// Create implements Store.
func (k Keyring) Create(ctx context.Context, path, passphrase string) (*Key, error) {
	key, err := generateKey()
	if err != nil {
		return nil, err
	}

	c, err := newContainer(key, passphrase, keyDerivationAlgorithmOrDefault(k.KeyDerivationAlgorithm))
	if err != nil {
		return nil, err
	}

	b, err := c.marshal()
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "unable to create keystore")
	}

	if err := keyring.Set(k.service(), path, string(b)); err != nil {
		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unable to save keystore %v in OS keyring", path)
	}

	log(ctx).Debugw("created keystore in OS keyring", "service", k.service(), "path", path)

	return key, nil
}

// Load implements Store.
func (k Keyring) Load(ctx context.Context, path, passphrase string) (*Key, error) {
	s, err := keyring.Get(k.service(), path)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, errkind.Wrapf(errkind.ErrNotFound, err, "keystore %v in OS keyring", path)
		}

		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unable to read keystore %v from OS keyring", path)
	}

	c, err := parseContainer([]byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "keystore %v", path)
	}

	key, err := c.unlock(EntryName, passphrase)
	if err != nil {
		return nil, errors.Wrapf(err, "keystore %v", path)
	}

	log(ctx).Debugw("loaded keystore from OS keyring", "service", k.service(), "path", path)

	return key, nil
}

// Delete removes the keystore from the OS keychain.
func (k Keyring) Delete(ctx context.Context, path string) error {
	if err := keyring.Delete(k.service(), path); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return errkind.Wrapf(errkind.ErrIOFailure, err, "unable to delete keystore %v from OS keyring", path)
	}

	return nil
}
