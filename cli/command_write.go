package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/stream"
	"github.com/kopia/streamvault/vault"
)

type commandWrite struct {
	input   string
	text    string
	textSet bool

	svc appServices
}

func (c *commandWrite) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("write", "Encrypt data into the vault, replacing previous contents.")
	cmd.Flag("input", "Read plaintext from a given file instead of standard input").Short('i').ExistingFileVar(&c.input)
	cmd.Flag("text", "Encrypt the provided text").IsSetByUser(&c.textSet).StringVar(&c.text)

	c.svc = svc

	cmd.Action(svc.vaultAction(c.run))
}

func (c *commandWrite) openInput() (io.ReadCloser, error) {
	switch {
	case c.textSet:
		return io.NopCloser(strings.NewReader(c.text)), nil

	case c.input == "" || c.input == "-":
		return io.NopCloser(c.svc.stdin()), nil

	default:
		f, err := os.Open(c.input) //nolint:gosec
		if err != nil {
			return nil, errors.Wrap(err, "unable to open input file")
		}

		return f, nil
	}
}

func (c *commandWrite) run(ctx context.Context, v *vault.Vault, _ *Config) error {
	in, err := c.openInput()
	if err != nil {
		return err
	}

	defer in.Close() //nolint:errcheck

	n, err := stream.Copy(ctx, v, in)
	if err != nil {
		return errors.Wrap(err, "unable to write vault data")
	}

	fmt.Fprintf(c.svc.stderr(), "Encrypted %v bytes into %v\n", n, v.DataPath()) //nolint:errcheck

	return nil
}
