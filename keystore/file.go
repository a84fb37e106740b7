package keystore

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/atomicfile"
	"github.com/kopia/streamvault/internal/crypto"
)

// File is a Store that keeps the keystore container in a local file.
type File struct {
	// KeyDerivationAlgorithm used to protect new keystores, crypto.DefaultKeyDerivationAlgorithm if empty.
	// Existing keystores are always opened with the algorithm recorded in them.
	KeyDerivationAlgorithm string
}

var _ Store = File{}

func keyDerivationAlgorithmOrDefault(algo string) string {
	if algo == "" {
		return crypto.DefaultKeyDerivationAlgorithm
	}

	return algo
}

// Create implements Store.
func (f File) Create(ctx context.Context, path, passphrase string) (*Key, error) {
	key, err := generateKey()
	if err != nil {
		return nil, err
	}

	c, err := newContainer(key, passphrase, keyDerivationAlgorithmOrDefault(f.KeyDerivationAlgorithm))
	if err != nil {
		return nil, err
	}

	b, err := c.marshal()
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "unable to create keystore")
	}

	if err := atomicfile.WriteBytes(path, b); err != nil {
		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unable to write keystore %v", path)
	}

	log(ctx).Debugw("created keystore", "path", path, "keyAlgo", c.KeyAlgo)

	return key, nil
}

// Load implements Store.
func (f File) Load(ctx context.Context, path, passphrase string) (*Key, error) {
	b, err := os.ReadFile(atomicfile.MaybePrefixLongFilenameOnWindows(path)) //nolint:gosec
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errkind.Wrapf(errkind.ErrNotFound, err, "keystore %v", path)
		}

		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unable to read keystore %v", path)
	}

	c, err := parseContainer(b)
	if err != nil {
		return nil, errors.Wrapf(err, "keystore %v", path)
	}

	k, err := c.unlock(EntryName, passphrase)
	if err != nil {
		return nil, errors.Wrapf(err, "keystore %v", path)
	}

	log(ctx).Debugw("loaded keystore", "path", path)

	return k, nil
}
