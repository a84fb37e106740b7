package cli

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/internal/atomicfile"
	"github.com/kopia/streamvault/stream"
	"github.com/kopia/streamvault/vault"
)

type commandRead struct {
	output string

	svc appServices
}

func (c *commandRead) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("read", "Decrypt the vault data.")
	cmd.Flag("output", "Write plaintext to a given file instead of standard output").Short('o').StringVar(&c.output)

	c.svc = svc

	cmd.Action(svc.vaultAction(c.run))
}

func (c *commandRead) run(ctx context.Context, v *vault.Vault, _ *Config) error {
	if c.output == "" || c.output == "-" {
		_, err := stream.WriteTo(ctx, c.svc.stdout(), v)

		return errors.Wrap(err, "unable to read vault data")
	}

	rc, err := v.OpenInputStream(ctx)
	if err != nil {
		return errors.Wrap(err, "unable to read vault data")
	}

	defer rc.Close() //nolint:errcheck

	// the output file is replaced only when the whole stream authenticates.
	if err := atomicfile.Write(c.output, rc); err != nil {
		return errors.Wrapf(err, "unable to write %v", c.output)
	}

	log(ctx).Infof("Decrypted data written to %v", c.output)

	return nil
}
