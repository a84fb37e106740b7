// Package crypto implements common symmetric-encryption and key-derivation functions.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/pkg/errors"
)

const (
	purposeAESKey   = "AES"
	purposeAuthData = "CHECKSUM"

	// AES256KeyLength is the length of AES-256 keys in bytes.
	AES256KeyLength = 32
)

// ErrInvalidCredentials is returned when a sealed payload cannot be opened with the provided key.
var ErrInvalidCredentials = errors.New("unable to decrypt, invalid credentials?")

var errPlaintextTooLarge = errors.New("plaintext data is too large to be encrypted")

// NewAes256Gcm returns AES-256-GCM AEAD keyed with the provided 32-byte key.
func NewAes256Gcm(key []byte) (cipher.AEAD, error) {
	if len(key) != AES256KeyLength {
		return nil, errors.Errorf("invalid AES-256 key length: %v", len(key))
	}

	blk, err := aes.NewCipher(key)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create cipher")
	}

	aead, err := cipher.NewGCM(blk)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create cipher")
	}

	return aead, nil
}

func initCrypto(masterKey, salt []byte) (cipher.AEAD, []byte, error) {
	aesKey, err := DeriveKeyFromMasterKey(masterKey, salt, purposeAESKey, AES256KeyLength)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot derive AES key")
	}

	authData, err := DeriveKeyFromMasterKey(masterKey, salt, purposeAuthData, 32) //nolint:mnd
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot derive auth data")
	}

	aead, err := NewAes256Gcm(aesKey)
	if err != nil {
		return nil, nil, err
	}

	return aead, authData, nil
}

// EncryptAes256Gcm encrypts data with AES 256 GCM using a key derived from masterKey and salt.
// The random nonce is stored at the beginning of the returned ciphertext.
func EncryptAes256Gcm(data, masterKey, salt []byte) ([]byte, error) {
	aead, authData, err := initCrypto(masterKey, salt)
	if err != nil {
		return nil, errors.Wrap(err, "unable to initialize crypto")
	}

	nonceLength := aead.NonceSize()
	noncePlusOverhead := nonceLength + aead.Overhead()

	const maxInt = int(^uint(0) >> 1)
	if len(data) > maxInt-noncePlusOverhead {
		return nil, errPlaintextTooLarge
	}

	cipherText := make([]byte, len(data)+noncePlusOverhead)

	// Store nonce at the beginning of ciphertext.
	nonce := cipherText[0:nonceLength]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Wrap(err, "error reading random bytes for nonce")
	}

	b := aead.Seal(cipherText[nonceLength:nonceLength], nonce, data, authData)

	return cipherText[0 : nonceLength+len(b)], nil
}

// DecryptAes256Gcm decrypts data produced by EncryptAes256Gcm.
// It returns ErrInvalidCredentials when the payload does not authenticate.
func DecryptAes256Gcm(data, masterKey, salt []byte) ([]byte, error) {
	aead, authData, err := initCrypto(masterKey, salt)
	if err != nil {
		return nil, errors.Wrap(err, "cannot initialize cipher")
	}

	if len(data) < aead.NonceSize()+aead.Overhead() {
		return nil, errors.New("invalid encrypted payload, too short")
	}

	data = append([]byte(nil), data...)

	nonce := data[0:aead.NonceSize()]
	payload := data[aead.NonceSize():]

	plainText, err := aead.Open(payload[:0], nonce, payload, authData)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return plainText, nil
}
