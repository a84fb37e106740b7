// Package cli implements the streamvault command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"

	"github.com/kopia/streamvault/internal/passwordpersist"
	"github.com/kopia/streamvault/logging"
	"github.com/kopia/streamvault/vault"
)

var log = logging.Module("streamvault/cli")

type commandParent interface {
	Command(name, help string) *kingpin.CmdClause
}

// appServices are the services provided by App to individual commands.
type appServices interface {
	EnvName(s string) string

	baseActionWithContext(act func(ctx context.Context) error) func(*kingpin.ParseContext) error
	vaultAction(act func(ctx context.Context, v *vault.Vault, cfg *Config) error) func(*kingpin.ParseContext) error

	configFileName() string
	overrideConfig(cfg *Config)
	passwordPersistenceStrategy() passwordpersist.Strategy
	getPassword(ctx context.Context, keystorePath string, isCreate bool) (string, error)

	stdin() io.Reader
	stdout() io.Writer
	stderr() io.Writer
}

// App contains per-invocation flags and state of the streamvault CLI.
type App struct {
	configPath      string
	keystorePath    string
	dataPath        string
	password        string
	persistPassword bool
	metricsOutput   string

	// set when the passphrase was retrieved from persistent storage
	passwordFromStore bool

	envNamePrefix string

	// global state
	loggerFactory logging.LoggerFactory
	stdinReader   io.Reader
	stdoutWriter  io.Writer
	stderrWriter  io.Writer
	rootctx       context.Context //nolint:containedctx

	// subcommands
	initialize commandInit
	write      commandWrite
	read       commandRead
	status     commandStatus
	pass       commandPassword
}

// NewApp creates a new instance of App.
func NewApp() *App {
	return &App{
		stdinReader:  os.Stdin,
		stdoutWriter: os.Stdout,
		stderrWriter: os.Stderr,
		rootctx:      context.Background(),
	}
}

// SetLoggerFactory sets the logger factory to be used by the CLI.
func (c *App) SetLoggerFactory(loggerForModule logging.LoggerFactory) {
	c.loggerFactory = loggerForModule
}

// SetIO overrides standard input and output streams.
func (c *App) SetIO(stdin io.Reader, stdout, stderr io.Writer) {
	c.stdinReader = stdin
	c.stdoutWriter = stdout
	c.stderrWriter = stderr
}

// SetEnvNamePrefix sets the prefix for environment variable names consulted by flags.
func (c *App) SetEnvNamePrefix(s string) {
	c.envNamePrefix = s
}

// EnvName returns the name of the environment variable with the configured prefix.
func (c *App) EnvName(s string) string {
	return c.envNamePrefix + s
}

// Stderr returns the stderr writer.
func (c *App) Stderr() io.Writer {
	return c.stderrWriter
}

func (c *App) stdin() io.Reader {
	return c.stdinReader
}

func (c *App) stdout() io.Writer {
	return c.stdoutWriter
}

func (c *App) stderr() io.Writer {
	return c.stderrWriter
}

// Attach attaches the CLI parser to the application.
func (c *App) Attach(app *kingpin.Application) {
	app.Flag("config-file", "Specify the config file to use").Default(defaultConfigFileName()).Envar(c.EnvName("STREAMVAULT_CONFIG")).StringVar(&c.configPath)
	app.Flag("keystore", "Override keystore location").Envar(c.EnvName("STREAMVAULT_KEYSTORE")).StringVar(&c.keystorePath)
	app.Flag("data", "Override encrypted data location").Envar(c.EnvName("STREAMVAULT_DATA")).StringVar(&c.dataPath)
	app.Flag("password", "Vault passphrase").Envar(c.EnvName("STREAMVAULT_PASSWORD")).Short('p').StringVar(&c.password)
	app.Flag("persist-password", "Persist the passphrase in the OS keyring or a password file").Envar(c.EnvName("STREAMVAULT_PERSIST_PASSWORD")).Default("true").BoolVar(&c.persistPassword)
	app.Flag("metrics-output", "Write Prometheus metrics to a given file when the command completes").Hidden().StringVar(&c.metricsOutput)

	c.initialize.setup(c, app)
	c.write.setup(c, app)
	c.read.setup(c, app)
	c.status.setup(c, app)
	c.pass.setup(c, app)
}

func (c *App) rootContext() context.Context {
	return logging.WithLogger(c.rootctx, c.loggerFactory)
}

func (c *App) baseActionWithContext(act func(ctx context.Context) error) func(*kingpin.ParseContext) error {
	return func(_ *kingpin.ParseContext) error {
		ctx := c.rootContext()

		err := act(ctx)

		if merr := c.writeMetrics(); merr != nil {
			log(ctx).Errorf("unable to write metrics: %v", merr)
		}

		return err
	}
}

// vaultAction loads the config, resolves the passphrase and opens the vault before invoking act.
func (c *App) vaultAction(act func(ctx context.Context, v *vault.Vault, cfg *Config) error) func(*kingpin.ParseContext) error {
	return c.baseActionWithContext(func(ctx context.Context) error {
		cfg, err := LoadConfig(c.configFileName())
		if err != nil {
			return err
		}

		c.overrideConfig(cfg)

		pass, err := c.getPassword(ctx, cfg.Keystore, false)
		if err != nil {
			return err
		}

		src, closeSource, err := openSource(ctx, &cfg.Storage)
		if err != nil {
			return errors.Wrap(err, "unable to open storage")
		}

		defer closeSource() //nolint:errcheck

		ks, err := newKeystore(cfg.KeystoreBackend, cfg.KeyDerivation)
		if err != nil {
			return err
		}

		v := vault.New(cfg.Data, cfg.Keystore, pass, &vault.Options{
			Keystore:    ks,
			Source:      src,
			Compression: cfg.compressionName(),
		})

		err = act(ctx, v, cfg)

		c.updatePersistedPassword(ctx, err, cfg.Keystore, pass)

		return err
	})
}

func (c *App) configFileName() string {
	return c.configPath
}

// overrideConfig applies --keystore and --data to a loaded configuration.
func (c *App) overrideConfig(cfg *Config) {
	if c.keystorePath != "" {
		cfg.Keystore = c.keystorePath
	}

	if c.dataPath != "" {
		cfg.Data = c.dataPath
	}
}

func (c *App) passwordPersistenceStrategy() passwordpersist.Strategy {
	if !c.persistPassword {
		return passwordpersist.None()
	}

	return passwordpersist.Default()
}
