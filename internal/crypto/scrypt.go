package crypto

import (
	"github.com/pkg/errors"
	"golang.org/x/crypto/scrypt"
)

const (
	// ScryptAlgorithm is the registration name for the default scrypt parameters (64MB memory).
	ScryptAlgorithm = "scrypt-65536-8-1"

	// ScryptLightAlgorithm uses reduced scrypt parameters (8MB memory).
	ScryptLightAlgorithm = "scrypt-16384-4-1"

	// scrypt uses SHA256 internally, the salt should be at least 128 bits.
	scryptMinSaltLength = 16
)

func init() {
	registerPBKeyDeriver(ScryptAlgorithm, &scryptKeyDeriver{n: 65536, r: 8, p: 1, minSaltLength: scryptMinSaltLength})      //nolint:mnd
	registerPBKeyDeriver(ScryptLightAlgorithm, &scryptKeyDeriver{n: 16384, r: 4, p: 1, minSaltLength: scryptMinSaltLength}) //nolint:mnd
}

type scryptKeyDeriver struct {
	// n is scrypt's CPU/memory cost parameter.
	n int
	// r is scrypt's work factor.
	r int
	// p is scrypt's parallelization parameter.
	p int

	minSaltLength int
}

func (s *scryptKeyDeriver) deriveKeyFromPassword(password string, salt []byte, keySize int) ([]byte, error) {
	if len(salt) < s.minSaltLength {
		return nil, errors.Errorf("required salt size is at least %d bytes", s.minSaltLength)
	}

	k, err := scrypt.Key([]byte(password), salt, s.n, s.r, s.p, keySize)

	return k, errors.Wrap(err, "unable to derive key")
}
