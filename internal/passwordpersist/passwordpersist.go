// Package passwordpersist remembers vault passphrases between CLI invocations.
package passwordpersist

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/logging"
)

// ErrPasswordNotFound is returned when a password cannot be found in a persistent storage.
var ErrPasswordNotFound = errors.New("password not found")

// ErrUnsupported is returned when a password storage is not supported.
var ErrUnsupported = errors.New("password storage not supported")

var log = logging.Module("passwordpersist")

// Strategy encapsulates persisting and fetching passphrases of a vault identified by its keystore path.
type Strategy interface {
	// GetPassword gets persisted password, returns ErrPasswordNotFound or fatal errors.
	GetPassword(ctx context.Context, keystorePath string) (string, error)

	// PersistPassword persists a password, returns ErrUnsupported or fatal errors.
	PersistPassword(ctx context.Context, keystorePath, password string) error

	// DeletePassword deletes any persisted password, returns fatal errors.
	DeletePassword(ctx context.Context, keystorePath string) error
}

// Default returns the strategy that prefers the OS keyring and falls back to a password file.
func Default() Strategy {
	return Chain{Keyring(), File()}
}

// OnSuccess persists the password when err is nil and deletes any persisted password otherwise.
func OnSuccess(ctx context.Context, err error, s Strategy, keystorePath, password string) error {
	if err != nil {
		if err2 := s.DeletePassword(ctx, keystorePath); err2 != nil {
			log(ctx).Infof("unable to delete persistent password: %v", err2)
		}

		return err
	}

	return errors.Wrap(s.PersistPassword(ctx, keystorePath, password), "unable to persist password")
}
