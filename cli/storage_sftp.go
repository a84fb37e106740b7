package cli

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"

	"github.com/kopia/streamvault/internal/ospath"
	"github.com/kopia/streamvault/stream/sftp"
)

type storageSFTPFlags struct {
	options          sftp.Options
	embedCredentials bool
}

func (c *storageSFTPFlags) Setup(svc StorageProviderServices, cmd *kingpin.CmdClause) {
	cmd.Flag("path", "Path to the directory on the SFTP server").Required().StringVar(&c.options.Path)
	cmd.Flag("host", "SFTP host").Required().StringVar(&c.options.Host)
	cmd.Flag("username", "SFTP user name").Required().StringVar(&c.options.Username)
	cmd.Flag("sftp-password", "SFTP password").Envar(svc.EnvName("STREAMVAULT_SFTP_PASSWORD")).StringVar(&c.options.Password)
	cmd.Flag("port", "SFTP port").Default("22").IntVar(&c.options.Port)
	cmd.Flag("keyfile", "path to private key file for SFTP connection").StringVar(&c.options.Keyfile)
	cmd.Flag("key-data", "private key data").Envar(svc.EnvName("STREAMVAULT_SFTP_KEY_DATA")).StringVar(&c.options.KeyData)
	cmd.Flag("known-hosts", "path to known_hosts file").StringVar(&c.options.KnownHostsFile)
	cmd.Flag("known-hosts-data", "known_hosts file entries").StringVar(&c.options.KnownHostsData)
	cmd.Flag("embed-credentials", "Embed key and known_hosts in the config file").BoolVar(&c.embedCredentials)
}

func (c *storageSFTPFlags) Options() (any, error) {
	o := c.options

	if o.Keyfile != "" {
		o.Keyfile = ospath.ResolveUserFriendlyPath(o.Keyfile, true)
	}

	if o.KnownHostsFile != "" {
		o.KnownHostsFile = ospath.ResolveUserFriendlyPath(o.KnownHostsFile, true)
	}

	if c.embedCredentials {
		if o.KeyData == "" && o.Keyfile != "" {
			d, err := os.ReadFile(o.Keyfile)
			if err != nil {
				return nil, errors.Wrap(err, "unable to read key file")
			}

			o.KeyData = string(d)
			o.Keyfile = ""
		}

		if o.KnownHostsData == "" && o.KnownHostsFile != "" {
			d, err := os.ReadFile(o.KnownHostsFile)
			if err != nil {
				return nil, errors.Wrap(err, "unable to read known hosts file")
			}

			o.KnownHostsData = string(d)
			o.KnownHostsFile = ""
		}
	}

	return &o, nil
}

func (c *storageSFTPFlags) DefaultData() string {
	return defaultDataBaseName
}
