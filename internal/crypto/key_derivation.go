package crypto

import (
	"crypto/hkdf"
	"crypto/sha256"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// DefaultKeyDerivationAlgorithm is the key derivation algorithm for new keystores.
const DefaultKeyDerivationAlgorithm = ScryptAlgorithm

var errInvalidMasterKey = errors.New("invalid primary key")

// passwordBasedKeyDeriver stretches a password into a key of a given size.
type passwordBasedKeyDeriver interface {
	deriveKeyFromPassword(password string, salt []byte, keySize int) ([]byte, error)
}

var (
	keyDeriversMu sync.RWMutex                               //nolint:gochecknoglobals
	keyDerivers   = map[string]passwordBasedKeyDeriver{} //nolint:gochecknoglobals
)

func registerPBKeyDeriver(name string, keyDeriver passwordBasedKeyDeriver) {
	keyDeriversMu.Lock()
	defer keyDeriversMu.Unlock()

	if _, ok := keyDerivers[name]; ok {
		panic("key deriver already registered: " + name)
	}

	keyDerivers[name] = keyDeriver
}

func lookupPBKeyDeriver(name string) (passwordBasedKeyDeriver, bool) {
	keyDeriversMu.RLock()
	defer keyDeriversMu.RUnlock()

	kd, ok := keyDerivers[name]

	return kd, ok
}

// SupportedKeyDerivationAlgorithms returns the names of registered password-based key derivation algorithms.
func SupportedKeyDerivationAlgorithms() []string {
	keyDeriversMu.RLock()
	defer keyDeriversMu.RUnlock()

	var result []string
	for k := range keyDerivers {
		result = append(result, k)
	}

	sort.Strings(result)

	return result
}

// DeriveKeyFromPassword derives encryption key using the provided password and per-keystore unique ID.
func DeriveKeyFromPassword(password string, salt []byte, keySize int, algorithm string) ([]byte, error) {
	kd, ok := lookupPBKeyDeriver(algorithm)
	if !ok {
		return nil, errors.Errorf("unsupported key algorithm: %v", algorithm)
	}

	return kd.deriveKeyFromPassword(password, salt, keySize)
}

// DeriveKeyFromMasterKey computes a key for a specific purpose and length using HKDF based on the master key.
func DeriveKeyFromMasterKey(masterKey, salt []byte, purpose string, length int) (derivedKey []byte, err error) {
	if len(masterKey) == 0 {
		return nil, errors.Wrap(errInvalidMasterKey, "empty key")
	}

	if derivedKey, err = hkdf.Key(sha256.New, masterKey, salt, purpose, length); err != nil {
		return nil, errors.Wrap(err, "unable to derive key")
	}

	return derivedKey, nil
}
