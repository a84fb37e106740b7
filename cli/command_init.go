package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/compression"
	"github.com/kopia/streamvault/internal/crypto"
	"github.com/kopia/streamvault/internal/ospath"
	"github.com/kopia/streamvault/internal/passwordpersist"
	"github.com/kopia/streamvault/vault"
)

type commandInit struct {
	compression     string
	keyDerivation   string
	keystoreBackend string
	force           bool

	svc appServices
}

func (c *commandInit) setup(svc appServices, parent commandParent) {
	cmd := parent.Command("init", "Create a new vault key and save the vault configuration.")

	cmd.Flag("compression", "Compression applied to plaintext before encryption").PlaceHolder("ALGO").Default("none").EnumVar(&c.compression, append([]string{"none"}, compression.SupportedNames()...)...)
	cmd.Flag("key-derivation", "Key derivation algorithm protecting the keystore").PlaceHolder("ALGO").Default(crypto.DefaultKeyDerivationAlgorithm).EnumVar(&c.keyDerivation, keyDerivationAlgorithms()...)
	cmd.Flag("keystore-backend", "Where to keep the keystore").Default(keystoreBackendFile).EnumVar(&c.keystoreBackend, keystoreBackendFile, keystoreBackendKeyring)
	cmd.Flag("force", "Replace an existing keystore, making previously written data unreadable").BoolVar(&c.force)

	c.svc = svc

	for _, prov := range storageProviders {
		sf := prov.NewFlags()
		cc := cmd.Command(prov.Name, "Initialize a vault storing encrypted data in "+prov.Description)
		sf.Setup(svc, cc)
		cc.Action(svc.baseActionWithContext(func(ctx context.Context) error {
			return c.run(ctx, prov.Name, sf)
		}))
	}
}

func (c *commandInit) newConfig(storageType string, sf StorageFlags) (*Config, error) {
	sc, err := storageConfigFromFlags(storageType, sf)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Keystore:        filepath.Join(ospath.ConfigDir(), defaultKeystoreBaseName),
		KeystoreBackend: c.keystoreBackend,
		KeyDerivation:   c.keyDerivation,
		Data:            sf.DefaultData(),
		Compression:     c.compression,
		Storage:         *sc,
	}

	c.svc.overrideConfig(cfg)

	if cfg.Data == "" {
		return nil, errors.Errorf("--data is required for %v storage", storageType)
	}

	if cfg.KeystoreBackend == keystoreBackendFile {
		if cfg.Keystore, err = absPath(cfg.Keystore); err != nil {
			return nil, err
		}
	}

	if storageType == "filesystem" {
		if cfg.Data, err = absPath(cfg.Data); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// absPath makes local paths stored in the config independent of the working directory.
func absPath(p string) (string, error) {
	p, err := filepath.Abs(ospath.ResolveUserFriendlyPath(p, false))

	return p, errors.Wrap(err, "unable to resolve path")
}

func (c *commandInit) ensureNoKeystore(ctx context.Context, cfg *Config) error {
	if c.force {
		return nil
	}

	ks, err := newKeystore(cfg.KeystoreBackend, cfg.KeyDerivation)
	if err != nil {
		return err
	}

	if _, err := ks.Load(ctx, cfg.Keystore, ""); !errors.Is(err, errkind.ErrNotFound) {
		return errors.Errorf("keystore %v already exists, use --force to replace it", cfg.Keystore)
	}

	return nil
}

func (c *commandInit) run(ctx context.Context, storageType string, sf StorageFlags) error {
	cfg, err := c.newConfig(storageType, sf)
	if err != nil {
		return err
	}

	if err := c.ensureNoKeystore(ctx, cfg); err != nil {
		return err
	}

	src, closeSource, err := openSource(ctx, &cfg.Storage)
	if err != nil {
		return errors.Wrap(err, "unable to open storage")
	}

	defer closeSource() //nolint:errcheck

	pass, err := c.svc.getPassword(ctx, cfg.Keystore, true)
	if err != nil {
		return errors.Wrap(err, "getting password")
	}

	ks, err := newKeystore(cfg.KeystoreBackend, cfg.KeyDerivation)
	if err != nil {
		return err
	}

	out := c.svc.stderr()

	fmt.Fprintf(out, "Initializing vault with:\n")                                     //nolint:errcheck
	fmt.Fprintf(out, "  keystore:         %v (%v)\n", cfg.Keystore, cfg.KeystoreBackend) //nolint:errcheck
	fmt.Fprintf(out, "  key derivation:   %v\n", cfg.KeyDerivation)                      //nolint:errcheck
	fmt.Fprintf(out, "  data:             %v (%v)\n", cfg.Data, storageType)             //nolint:errcheck
	fmt.Fprintf(out, "  compression:      %v\n", cfg.Compression)                        //nolint:errcheck

	v := vault.New(cfg.Data, cfg.Keystore, pass, &vault.Options{
		Keystore:    ks,
		Source:      src,
		Compression: cfg.compressionName(),
	})

	if err := v.Initialize(ctx); err != nil {
		return err
	}

	if err := SaveConfig(c.svc.configFileName(), cfg); err != nil {
		return err
	}

	log(ctx).Infof("Vault configuration saved to %v", c.svc.configFileName())

	return passwordpersist.OnSuccess(ctx, nil, c.svc.passwordPersistenceStrategy(), cfg.Keystore, pass)
}
