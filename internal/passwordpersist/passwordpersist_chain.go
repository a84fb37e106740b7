package passwordpersist

import (
	"context"

	"github.com/pkg/errors"
)

var _ Strategy = Chain{}

// Chain consults strategies in order of preference. A passphrase is remembered by the first
// strategy that supports it and copies held by less preferred strategies are dropped, so a
// stale passphrase cannot surface when the preferred storage becomes unavailable.
type Chain []Strategy

// GetPassword returns the passphrase from the most preferred strategy that has one.
func (c Chain) GetPassword(ctx context.Context, keystorePath string) (string, error) {
	for _, s := range c {
		pass, err := s.GetPassword(ctx, keystorePath)

		switch {
		case err == nil:
			return pass, nil
		case errors.Is(err, ErrPasswordNotFound):
		default:
			return "", errors.Wrapf(err, "error looking up passphrase for %v", keystorePath)
		}
	}

	return "", ErrPasswordNotFound
}

// PersistPassword stores the passphrase with the first strategy that supports it,
// and removes it from the strategies after that one.
func (c Chain) PersistPassword(ctx context.Context, keystorePath, password string) error {
	for i, s := range c {
		err := s.PersistPassword(ctx, keystorePath, password)
		if errors.Is(err, ErrUnsupported) {
			continue
		}

		if err != nil {
			return errors.Wrapf(err, "error remembering passphrase for %v", keystorePath)
		}

		if err := c[i+1:].DeletePassword(ctx, keystorePath); err != nil {
			log(ctx).Warnf("unable to remove older copy of passphrase: %v", err)
		}

		return nil
	}

	return ErrUnsupported
}

// DeletePassword removes the passphrase from every strategy.
func (c Chain) DeletePassword(ctx context.Context, keystorePath string) error {
	for _, s := range c {
		err := s.DeletePassword(ctx, keystorePath)
		if err != nil && !errors.Is(err, ErrPasswordNotFound) && !errors.Is(err, ErrUnsupported) {
			return errors.Wrapf(err, "error forgetting passphrase for %v", keystorePath)
		}
	}

	return nil
}
