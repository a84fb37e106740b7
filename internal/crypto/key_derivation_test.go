package crypto_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kopia/streamvault/internal/crypto"
)

func TestDeriveKeyFromMasterKey(t *testing.T) {
	const testPurpose = "the-test-purpose"

	var (
		testMasterKey = []byte("ABCDEFGHIJKLMNOP")
		testSalt      = []byte("0123456789012345")
	)

	t.Run("ReturnsKey", func(t *testing.T) {
		key, err := crypto.DeriveKeyFromMasterKey(testMasterKey, testSalt, testPurpose, 32)
		require.NoError(t, err)

		expected := "828769ee8969bc37f11dbaa32838f8db6c19daa6e3ae5f5eed2da2d94d8faddb"
		got := fmt.Sprintf("%02x", key)
		require.Equal(t, expected, got)
	})

	t.Run("ErrorOnNilMasterKey", func(t *testing.T) {
		k, err := crypto.DeriveKeyFromMasterKey(nil, testSalt, testPurpose, 32)
		require.Error(t, err)
		require.Nil(t, k)
	})

	t.Run("ErrorOnEmptyMasterKey", func(t *testing.T) {
		k, err := crypto.DeriveKeyFromMasterKey([]byte{}, testSalt, testPurpose, 32)
		require.Error(t, err)
		require.Nil(t, k)
	})
}

func TestDeriveKeyFromPassword(t *testing.T) {
	salt := []byte("0123456789012345")

	for _, algo := range []string{crypto.ScryptLightAlgorithm, crypto.NewPBKDF2KeyDeriverWithIterations(1000)} {
		t.Run(algo, func(t *testing.T) {
			k1, err := crypto.DeriveKeyFromPassword("testpassword", salt, 32, algo)
			require.NoError(t, err)
			require.Len(t, k1, 32)

			k2, err := crypto.DeriveKeyFromPassword("testpassword", salt, 32, algo)
			require.NoError(t, err)
			require.Equal(t, k1, k2)

			k3, err := crypto.DeriveKeyFromPassword("otherpassword", salt, 32, algo)
			require.NoError(t, err)
			require.NotEqual(t, k1, k3)

			_, err = crypto.DeriveKeyFromPassword("testpassword", []byte("short"), 32, algo)
			require.Error(t, err)
		})
	}

	_, err := crypto.DeriveKeyFromPassword("testpassword", salt, 32, "no-such-algorithm")
	require.ErrorContains(t, err, "unsupported key algorithm")
}

func TestNewPBKDF2KeyDeriverWithIterations(t *testing.T) {
	algo1 := crypto.NewPBKDF2KeyDeriverWithIterations(2000)
	algo2 := crypto.NewPBKDF2KeyDeriverWithIterations(3000)

	require.Equal(t, "pbkdf2-sha256-2000", algo1)
	require.Equal(t, algo1, crypto.NewPBKDF2KeyDeriverWithIterations(2000))
	require.NotEqual(t, algo1, algo2)
	require.Contains(t, crypto.SupportedKeyDerivationAlgorithms(), algo1)
	require.Contains(t, crypto.SupportedKeyDerivationAlgorithms(), crypto.ScryptAlgorithm)
	require.Contains(t, crypto.SupportedKeyDerivationAlgorithms(), crypto.Pbkdf2Algorithm)
}
