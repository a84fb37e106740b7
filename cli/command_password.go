package cli

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/internal/passwordpersist"
	"github.com/kopia/streamvault/vault"
)

type commandPassword struct {
	persist commandPasswordPersist
	forget  commandPasswordForget
}

func (c *commandPassword) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("password", "Manage the persisted vault passphrase.")

	c.persist.setup(svc, cmd)
	c.forget.setup(svc, cmd)
}

type commandPasswordPersist struct{}

func (c *commandPasswordPersist) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("persist", "Verify the passphrase and remember it in the OS keyring or a password file.")
	cmd.Action(svc.vaultAction(c.run))
}

func (c *commandPasswordPersist) run(ctx context.Context, v *vault.Vault, _ *Config) error {
	// vaultAction persists the passphrase after a successful unlock.
	return v.Unlock(ctx) //nolint:wrapcheck
}

type commandPasswordForget struct {
	svc appServices
}

func (c *commandPasswordForget) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("forget", "Remove the persisted passphrase.")

	c.svc = svc

	cmd.Action(svc.baseActionWithContext(c.run))
}

func (c *commandPasswordForget) run(ctx context.Context) error {
	cfg, err := LoadConfig(c.svc.configFileName())
	if err != nil {
		return err
	}

	c.svc.overrideConfig(cfg)

	if err := passwordpersist.Default().DeletePassword(ctx, cfg.Keystore); err != nil {
		return errors.Wrap(err, "unable to remove persisted password")
	}

	log(ctx).Infof("Persisted password for %v removed.", cfg.Keystore)

	return nil
}
