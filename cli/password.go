package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/term"

	"github.com/kopia/streamvault/internal/passwordpersist"
	"github.com/kopia/streamvault/vault"
)

const maxPasswordPromptAttempts = 5

func askForNewVaultPassword(out io.Writer) (string, error) {
	for {
		p1, err := askPass(out, "Enter passphrase to protect the new vault key: ")
		if err != nil {
			return "", errors.Wrap(err, "password entry")
		}

		p2, err := askPass(out, "Re-enter passphrase for verification: ")
		if err != nil {
			return "", errors.Wrap(err, "password verification")
		}

		if p1 == p2 {
			return p1, nil
		}

		fmt.Fprintln(out, "Passphrases don't match!") //nolint:errcheck
	}
}

func askForExistingVaultPassword(out io.Writer) (string, error) {
	p1, err := askPass(out, "Enter passphrase to open vault: ")
	if err != nil {
		return "", err
	}

	fmt.Fprintln(out) //nolint:errcheck

	return p1, nil
}

// getPassword returns the passphrase from --password, persistent storage or an interactive prompt, in this order.
func (c *App) getPassword(ctx context.Context, keystorePath string, isCreate bool) (string, error) {
	switch {
	case c.password != "":
		return strings.TrimSpace(c.password), nil

	case isCreate:
		return askForNewVaultPassword(c.stderrWriter)

	default:
		pass, err := c.passwordPersistenceStrategy().GetPassword(ctx, keystorePath)
		if err == nil {
			c.passwordFromStore = true
			return pass, nil
		}

		if !errors.Is(err, passwordpersist.ErrPasswordNotFound) {
			return "", errors.Wrap(err, "error getting persistent password")
		}
	}

	return askForExistingVaultPassword(c.stderrWriter)
}

// updatePersistedPassword forgets a persisted passphrase that no longer unlocks the keystore
// and remembers a newly entered one that does.
func (c *App) updatePersistedPassword(ctx context.Context, err error, keystorePath, pass string) {
	strategy := c.passwordPersistenceStrategy()

	switch {
	case errors.Is(err, vault.ErrAuthFailure):
		if derr := strategy.DeletePassword(ctx, keystorePath); derr != nil {
			log(ctx).Debugf("unable to delete persisted password: %v", derr)
		}

	case err == nil && !c.passwordFromStore:
		if perr := strategy.PersistPassword(ctx, keystorePath, pass); perr != nil && !errors.Is(perr, passwordpersist.ErrUnsupported) {
			log(ctx).Warnf("unable to persist password: %v", perr)
		}
	}
}

// askPass presents a given prompt and asks the user for password.
func askPass(out io.Writer, prompt string) (string, error) {
	for range maxPasswordPromptAttempts {
		fmt.Fprint(out, prompt) //nolint:errcheck

		passBytes, err := term.ReadPassword(int(os.Stdin.Fd())) //nolint:gosec
		if err != nil {
			return "", errors.Wrap(err, "password prompt error")
		}

		fmt.Fprintln(out) //nolint:errcheck

		if len(passBytes) == 0 {
			continue
		}

		return string(passBytes), nil
	}

	return "", errors.New("can't get password")
}
