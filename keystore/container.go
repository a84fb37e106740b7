package keystore

import (
	"crypto/rand"
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/crypto"
)

const (
	containerFormat  = "streamvault-keystore"
	containerVersion = 1

	// entries are sealed with the same scheme the rest of the codebase uses for small secrets.
	entryEncryption = "AES256-GCM-HMAC-SHA256"

	entryTypeSecret = "secret"

	uniqueIDLength = 32
)

// container is the on-disk representation of a keystore.
type container struct {
	Format     string            `json:"format"`
	Version    int               `json:"version"`
	UniqueID   []byte            `json:"uniqueID"`
	KeyAlgo    string            `json:"keyAlgo"`
	Encryption string            `json:"encryption"`
	Entries    map[string]*entry `json:"entries"`
}

type entry struct {
	Type      string    `json:"type"`
	Algorithm string    `json:"algorithm"`
	Created   time.Time `json:"created"`
	Data      []byte    `json:"data"`
}

// newContainer returns a container with a single entry holding key, protected by passphrase.
func newContainer(key *Key, passphrase, keyAlgo string) (*container, error) {
	c := &container{
		Format:     containerFormat,
		Version:    containerVersion,
		UniqueID:   make([]byte, uniqueIDLength),
		KeyAlgo:    keyAlgo,
		Encryption: entryEncryption,
		Entries:    map[string]*entry{},
	}

	if _, err := io.ReadFull(rand.Reader, c.UniqueID); err != nil {
		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "unable to generate keystore ID")
	}

	masterKey, err := c.masterKey(passphrase)
	if err != nil {
		return nil, err
	}

	sealed, err := crypto.EncryptAes256Gcm(key.data, masterKey, c.entrySalt(EntryName))
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "unable to protect key")
	}

	c.Entries[EntryName] = &entry{
		Type:      entryTypeSecret,
		Algorithm: key.algorithm,
		Created:   time.Now().UTC().Truncate(time.Second),
		Data:      sealed,
	}

	return c, nil
}

func (c *container) masterKey(passphrase string) ([]byte, error) {
	k, err := crypto.DeriveKeyFromPassword(passphrase, c.UniqueID, crypto.AES256KeyLength, c.KeyAlgo)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "unable to derive keystore key")
	}

	return k, nil
}

// entrySalt binds sealed entries to both the keystore and the entry name.
func (c *container) entrySalt(name string) []byte {
	return append(append([]byte(nil), c.UniqueID...), name...)
}

// unlock returns the key stored in the named entry.
func (c *container) unlock(name, passphrase string) (*Key, error) {
	e := c.Entries[name]
	if e == nil {
		return nil, errkind.Wrapf(errkind.ErrCorruptFormat, nil, "keystore entry %q", name)
	}

	if e.Type != entryTypeSecret {
		return nil, errkind.Wrapf(errkind.ErrCorruptFormat, nil, "keystore entry %q is not a secret key", name)
	}

	masterKey, err := c.masterKey(passphrase)
	if err != nil {
		return nil, err
	}

	data, err := crypto.DecryptAes256Gcm(e.Data, masterKey, c.entrySalt(name))
	if err != nil {
		if errors.Is(err, crypto.ErrInvalidCredentials) {
			return nil, errkind.Wrap(errkind.ErrAuthFailure, nil, "invalid keystore passphrase")
		}

		return nil, errkind.Wrap(errkind.ErrCorruptFormat, err, "unable to read keystore entry")
	}

	return &Key{algorithm: e.Algorithm, data: data}, nil
}

func (c *container) marshal() ([]byte, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal keystore")
	}

	return b, nil
}

func parseContainer(b []byte) (*container, error) {
	c := &container{}

	if err := json.Unmarshal(b, c); err != nil {
		return nil, errkind.Wrap(errkind.ErrCorruptFormat, err, "invalid keystore")
	}

	if c.Format != containerFormat {
		return nil, errkind.Wrapf(errkind.ErrCorruptFormat, nil, "unrecognized keystore format %q", c.Format)
	}

	if c.Version != containerVersion {
		return nil, errkind.Wrapf(errkind.ErrCorruptFormat, nil, "unsupported keystore version %v", c.Version)
	}

	if c.Encryption != entryEncryption {
		return nil, errkind.Wrapf(errkind.ErrCorruptFormat, nil, "unsupported keystore encryption %q", c.Encryption)
	}

	if len(c.UniqueID) < uniqueIDLength {
		return nil, errkind.Wrap(errkind.ErrCorruptFormat, nil, "keystore ID too short")
	}

	return c, nil
}
