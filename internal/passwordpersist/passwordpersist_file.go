package passwordpersist

import (
	"context"
	"encoding/base64"
	"os"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/internal/atomicfile"
)

// File is a Strategy that keeps the base64-encoded password in a file next to the keystore.
func File() Strategy {
	return filePasswordStorage{}
}

type filePasswordStorage struct{}

func (filePasswordStorage) GetPassword(ctx context.Context, keystorePath string) (string, error) {
	b, err := os.ReadFile(PasswordFileName(keystorePath)) //nolint:gosec
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrPasswordNotFound
	}

	if err != nil {
		return "", errors.Wrap(err, "error reading persisted password")
	}

	s, err := base64.StdEncoding.DecodeString(string(b))
	if err != nil {
		return "", errors.Wrap(err, "invalid persisted password")
	}

	log(ctx).Debugf("password for %v retrieved from password file", keystorePath)

	return string(s), nil
}

func (filePasswordStorage) PersistPassword(ctx context.Context, keystorePath, password string) error {
	fn := PasswordFileName(keystorePath)
	log(ctx).Debugf("saving password to file %v", fn)

	//nolint:wrapcheck
	return atomicfile.WriteBytes(fn, []byte(base64.StdEncoding.EncodeToString([]byte(password))))
}

func (filePasswordStorage) DeletePassword(ctx context.Context, keystorePath string) error {
	if err := os.Remove(PasswordFileName(keystorePath)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "error deleting password file")
	}

	return nil
}

// PasswordFileName returns the name of the file holding the persisted password for a keystore.
func PasswordFileName(keystorePath string) string {
	return keystorePath + ".streamvault-password"
}
