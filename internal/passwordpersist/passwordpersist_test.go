package passwordpersist_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/kopia/streamvault/internal/passwordpersist"
	"github.com/kopia/streamvault/internal/testlogging"
)

func TestFileStrategy(t *testing.T) {
	ctx := testlogging.Context(t)
	ks := filepath.Join(t.TempDir(), "keystore.jks")
	s := passwordpersist.File()

	_, err := s.GetPassword(ctx, ks)
	require.ErrorIs(t, err, passwordpersist.ErrPasswordNotFound)

	require.NoError(t, s.PersistPassword(ctx, ks, "secret"))

	st, err := os.Stat(passwordpersist.PasswordFileName(ks))
	require.NoError(t, err)
	require.Zero(t, st.Mode().Perm()&0o077)

	pass, err := s.GetPassword(ctx, ks)
	require.NoError(t, err)
	require.Equal(t, "secret", pass)

	require.NoError(t, s.DeletePassword(ctx, ks))
	require.NoError(t, s.DeletePassword(ctx, ks))

	_, err = s.GetPassword(ctx, ks)
	require.ErrorIs(t, err, passwordpersist.ErrPasswordNotFound)
}

func TestKeyringStrategy(t *testing.T) {
	keyring.MockInit()

	ctx := testlogging.Context(t)
	s := passwordpersist.Keyring()

	_, err := s.GetPassword(ctx, "/vault/ks")
	require.ErrorIs(t, err, passwordpersist.ErrPasswordNotFound)

	require.NoError(t, s.PersistPassword(ctx, "/vault/ks", "secret"))

	pass, err := s.GetPassword(ctx, "/vault/ks")
	require.NoError(t, err)
	require.Equal(t, "secret", pass)

	require.NoError(t, s.DeletePassword(ctx, "/vault/ks"))

	_, err = s.GetPassword(ctx, "/vault/ks")
	require.ErrorIs(t, err, passwordpersist.ErrPasswordNotFound)
}

type unsupportedStrategy struct{}

func (unsupportedStrategy) GetPassword(context.Context, string) (string, error) {
	return "", passwordpersist.ErrPasswordNotFound
}

func (unsupportedStrategy) PersistPassword(context.Context, string, string) error {
	return passwordpersist.ErrUnsupported
}

func (unsupportedStrategy) DeletePassword(context.Context, string) error {
	return passwordpersist.ErrUnsupported
}

func TestChainStrategy(t *testing.T) {
	ctx := testlogging.Context(t)
	ks := filepath.Join(t.TempDir(), "ks")

	m := passwordpersist.Chain{unsupportedStrategy{}, passwordpersist.File()}

	_, err := m.GetPassword(ctx, ks)
	require.ErrorIs(t, err, passwordpersist.ErrPasswordNotFound)

	require.NoError(t, m.PersistPassword(ctx, ks, "secret"))

	pass, err := passwordpersist.File().GetPassword(ctx, ks)
	require.NoError(t, err)
	require.Equal(t, "secret", pass)

	pass, err = m.GetPassword(ctx, ks)
	require.NoError(t, err)
	require.Equal(t, "secret", pass)

	require.NoError(t, m.DeletePassword(ctx, ks))

	require.ErrorIs(t, passwordpersist.Chain{unsupportedStrategy{}}.PersistPassword(ctx, ks, "x"), passwordpersist.ErrUnsupported)
}

func TestChainDropsStaleCopies(t *testing.T) {
	keyring.MockInit()

	ctx := testlogging.Context(t)
	ks := filepath.Join(t.TempDir(), "ks")

	require.NoError(t, passwordpersist.File().PersistPassword(ctx, ks, "stale"))

	c := passwordpersist.Chain{passwordpersist.Keyring(), passwordpersist.File()}
	require.NoError(t, c.PersistPassword(ctx, ks, "fresh"))

	pass, err := passwordpersist.Keyring().GetPassword(ctx, ks)
	require.NoError(t, err)
	require.Equal(t, "fresh", pass)

	_, err = passwordpersist.File().GetPassword(ctx, ks)
	require.ErrorIs(t, err, passwordpersist.ErrPasswordNotFound)

	require.NoError(t, c.DeletePassword(ctx, ks))

	_, err = c.GetPassword(ctx, ks)
	require.ErrorIs(t, err, passwordpersist.ErrPasswordNotFound)
}

type brokenStrategy struct{ unsupportedStrategy }

var errBrokenStorage = errors.New("storage unavailable")

func (brokenStrategy) GetPassword(context.Context, string) (string, error) {
	return "", errBrokenStorage
}

func TestChainStopsOnStorageError(t *testing.T) {
	ctx := testlogging.Context(t)
	ks := filepath.Join(t.TempDir(), "ks")

	require.NoError(t, passwordpersist.File().PersistPassword(ctx, ks, "secret"))

	_, err := passwordpersist.Chain{brokenStrategy{}, passwordpersist.File()}.GetPassword(ctx, ks)
	require.ErrorIs(t, err, errBrokenStorage)
}

func TestOnSuccess(t *testing.T) {
	ctx := testlogging.Context(t)
	ks := filepath.Join(t.TempDir(), "ks")
	s := passwordpersist.File()

	require.NoError(t, passwordpersist.OnSuccess(ctx, nil, s, ks, "secret"))

	pass, err := s.GetPassword(ctx, ks)
	require.NoError(t, err)
	require.Equal(t, "secret", pass)

	someErr := errors.New("some error")
	require.ErrorIs(t, passwordpersist.OnSuccess(ctx, someErr, s, ks, "secret"), someErr)

	_, err = s.GetPassword(ctx, ks)
	require.ErrorIs(t, err, passwordpersist.ErrPasswordNotFound)
}

func TestNoneStrategy(t *testing.T) {
	ctx := testlogging.Context(t)
	s := passwordpersist.None()

	require.NoError(t, s.PersistPassword(ctx, "ks", "secret"))

	_, err := s.GetPassword(ctx, "ks")
	require.ErrorIs(t, err, passwordpersist.ErrPasswordNotFound)
	require.NoError(t, s.DeletePassword(ctx, "ks"))
}
