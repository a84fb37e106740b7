package passwordpersist

import "context"

// None is a strategy that does not persist the password at all.
func None() Strategy {
	return noneStrategy{}
}

type noneStrategy struct{}

func (noneStrategy) GetPassword(_ context.Context, _ string) (string, error) {
	return "", ErrPasswordNotFound
}

func (noneStrategy) PersistPassword(_ context.Context, _, _ string) error {
	return nil
}

func (noneStrategy) DeletePassword(_ context.Context, _ string) error {
	return nil
}
