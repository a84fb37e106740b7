package passwordpersist

import (
	"context"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

const keyringService = "streamvault-password"

// Keyring is a Strategy that keeps the password in the OS keychain.
func Keyring() Strategy {
	return keyringStrategy{}
}

type keyringStrategy struct{}

func (keyringStrategy) GetPassword(ctx context.Context, keystorePath string) (string, error) {
	pass, err := keyring.Get(keyringService, keystorePath)

	switch {
	case err == nil:
		log(ctx).Debugf("password for %v retrieved from OS keyring", keystorePath)
		return pass, nil
	case errors.Is(err, keyring.ErrNotFound):
		return "", ErrPasswordNotFound
	case errors.Is(err, keyring.ErrUnsupportedPlatform):
		return "", ErrPasswordNotFound
	default:
		return "", errors.Wrap(err, "error retrieving password from OS keyring")
	}
}

func (keyringStrategy) PersistPassword(ctx context.Context, keystorePath, password string) error {
	log(ctx).Debugf("saving password to OS keyring")

	err := keyring.Set(keyringService, keystorePath, password)

	switch {
	case err == nil:
		return nil
	case errors.Is(err, keyring.ErrUnsupportedPlatform):
		return ErrUnsupported
	default:
		return errors.Wrap(err, "error saving password in OS keyring")
	}
}

func (keyringStrategy) DeletePassword(ctx context.Context, keystorePath string) error {
	err := keyring.Delete(keyringService, keystorePath)

	switch {
	case err == nil, errors.Is(err, keyring.ErrNotFound):
		return nil
	case errors.Is(err, keyring.ErrUnsupportedPlatform):
		return ErrUnsupported
	default:
		return errors.Wrap(err, "error deleting password from OS keyring")
	}
}
