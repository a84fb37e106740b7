// Package keystore persists a single passphrase-protected symmetric key.
package keystore

import (
	"context"
	"crypto/rand"
	"io"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/crypto"
	"github.com/kopia/streamvault/logging"
)

var log = logging.Module("keystore")

// EntryName is the name of the keystore entry holding the vault key.
const EntryName = "vault-key"

// KeyAlgorithm is the algorithm of keys generated by Create.
const KeyAlgorithm = "AES-256"

// Error kinds returned by stores.
var (
	ErrNotFound      = errkind.ErrNotFound
	ErrAuthFailure   = errkind.ErrAuthFailure
	ErrCorruptFormat = errkind.ErrCorruptFormat
	ErrCryptoFailure = errkind.ErrCryptoFailure
	ErrIOFailure     = errkind.ErrIOFailure
)

// Store persists and retrieves one named passphrase-protected symmetric key.
type Store interface {
	// Create generates a fresh key, writes a new keystore protected by passphrase at path,
	// replacing any existing keystore there, and returns the key.
	Create(ctx context.Context, path, passphrase string) (*Key, error)

	// Load unlocks the keystore at path with passphrase and returns its key.
	Load(ctx context.Context, path, passphrase string) (*Key, error)
}

// Key is a symmetric secret key.
type Key struct {
	algorithm string
	data      []byte
}

// Algorithm returns the name of the key algorithm.
func (k *Key) Algorithm() string {
	return k.algorithm
}

// Bytes returns a copy of the key bytes.
func (k *Key) Bytes() []byte {
	return append([]byte(nil), k.data...)
}

// Len returns the length of the key in bytes.
func (k *Key) Len() int {
	return len(k.data)
}

// generateKey returns a new random key of the default size.
func generateKey() (*Key, error) {
	b := make([]byte, crypto.AES256KeyLength)

	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "unable to generate key")
	}

	return &Key{algorithm: KeyAlgorithm, data: b}, nil
}
