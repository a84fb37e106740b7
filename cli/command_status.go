package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/cipherstream"
	"github.com/kopia/streamvault/internal/compression"
	"github.com/kopia/streamvault/vault"
)

//nolint:gochecknoglobals
var (
	okColor   = color.New(color.FgHiGreen)
	failColor = color.New(color.FgHiRed)
)

type commandStatus struct {
	unlock bool

	svc appServices
}

func (c *commandStatus) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("status", "Show vault configuration and the state of its keystore and data.")
	cmd.Flag("unlock", "Verify that the passphrase opens the keystore").BoolVar(&c.unlock)

	c.svc = svc

	cmd.Action(svc.baseActionWithContext(c.run))
}

func compressionNameOf(id compression.HeaderID) string {
	if id == compression.NoneHeaderID {
		return "none"
	}

	for n, comp := range compression.ByName {
		if comp.HeaderID() == id {
			return string(n)
		}
	}

	return fmt.Sprintf("unknown (0x%x)", uint32(id))
}

func (c *commandStatus) run(ctx context.Context) error {
	cfg, err := LoadConfig(c.svc.configFileName())
	if err != nil {
		return err
	}

	c.svc.overrideConfig(cfg)

	out := c.svc.stdout()

	fmt.Fprintf(out, "Config file:         %v\n", c.svc.configFileName())                                             //nolint:errcheck
	fmt.Fprintf(out, "Keystore:            %v (%v)\n", cfg.Keystore, orDefault(cfg.KeystoreBackend, keystoreBackendFile)) //nolint:errcheck
	fmt.Fprintf(out, "Data:                %v (%v)\n", cfg.Data, orDefault(cfg.Storage.Type, "filesystem"))              //nolint:errcheck
	fmt.Fprintf(out, "Write compression:   %v\n", orDefault(cfg.Compression, "none"))                                    //nolint:errcheck

	c.printDataStatus(ctx, out, cfg)

	if !c.unlock {
		return nil
	}

	return c.printUnlockStatus(ctx, out, cfg)
}

func (c *commandStatus) printDataStatus(ctx context.Context, out io.Writer, cfg *Config) {
	fmt.Fprint(out, "Data header:         ") //nolint:errcheck

	h, err := readDataHeader(ctx, cfg)

	switch {
	case errors.Is(err, errkind.ErrNotFound):
		fmt.Fprintln(out, "not written yet") //nolint:errcheck

	case err != nil:
		failColor.Fprintf(out, "%v\n", err) //nolint:errcheck

	default:
		okColor.Fprintf(out, "version %v, compression %v\n", h.Version, compressionNameOf(compression.HeaderID(h.CompressionID))) //nolint:errcheck
	}
}

func readDataHeader(ctx context.Context, cfg *Config) (*cipherstream.Header, error) {
	src, closeSource, err := openSource(ctx, &cfg.Storage)
	if err != nil {
		return nil, err
	}

	defer closeSource() //nolint:errcheck

	rc, err := src.OpenRead(ctx, cfg.Data)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	defer rc.Close() //nolint:errcheck

	h, _, err := cipherstream.ReadHeader(rc)

	return h, err
}

func (c *commandStatus) printUnlockStatus(ctx context.Context, out io.Writer, cfg *Config) error {
	pass, err := c.svc.getPassword(ctx, cfg.Keystore, false)
	if err != nil {
		return err
	}

	ks, err := newKeystore(cfg.KeystoreBackend, cfg.KeyDerivation)
	if err != nil {
		return err
	}

	v := vault.New(cfg.Data, cfg.Keystore, pass, &vault.Options{Keystore: ks})

	fmt.Fprint(out, "Passphrase:          ") //nolint:errcheck

	if err := v.Unlock(ctx); err != nil {
		failColor.Fprintf(out, "%v\n", err) //nolint:errcheck

		return err //nolint:wrapcheck
	}

	okColor.Fprintln(out, "OK") //nolint:errcheck

	return nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}

	return s
}
