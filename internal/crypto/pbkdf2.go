package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// Pbkdf2Algorithm is the full algorithm name for PBKDF2.
	Pbkdf2Algorithm = "pbkdf2-sha256-600000"

	// NIST recommended minimum salt size for pbkdf2.
	pbkdf2Sha256MinSaltLength = 16

	// NIST recommended iterations for PBKDF2 with SHA256.
	pbkdf2Sha256Iterations = 600_000
)

func init() {
	registerPBKeyDeriver(Pbkdf2Algorithm, &pbkdf2KeyDeriver{
		iterations:    pbkdf2Sha256Iterations,
		minSaltLength: pbkdf2Sha256MinSaltLength,
	})
}

// NewPBKDF2KeyDeriverWithIterations registers a PBKDF2 key deriver with the specified number of iterations
// and returns its algorithm name. Registering the same iteration count twice returns the existing name.
func NewPBKDF2KeyDeriverWithIterations(iterations int) string {
	algorithmName := fmt.Sprintf("pbkdf2-sha256-%d", iterations)

	keyDeriversMu.Lock()
	defer keyDeriversMu.Unlock()

	if _, ok := keyDerivers[algorithmName]; !ok {
		keyDerivers[algorithmName] = &pbkdf2KeyDeriver{
			iterations:    iterations,
			minSaltLength: pbkdf2Sha256MinSaltLength,
		}
	}

	return algorithmName
}

type pbkdf2KeyDeriver struct {
	iterations    int
	minSaltLength int
}

func (s *pbkdf2KeyDeriver) deriveKeyFromPassword(password string, salt []byte, keySize int) ([]byte, error) {
	if len(salt) < s.minSaltLength {
		return nil, errors.Errorf("required salt size is at least %d bytes", s.minSaltLength)
	}

	return pbkdf2.Key([]byte(password), salt, s.iterations, keySize, sha256.New), nil
}
