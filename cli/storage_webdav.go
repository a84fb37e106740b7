package cli

import (
	"github.com/alecthomas/kingpin/v2"

	"github.com/kopia/streamvault/stream/webdav"
)

type storageWebDAVFlags struct {
	options webdav.Options
}

func (c *storageWebDAVFlags) Setup(svc StorageProviderServices, cmd *kingpin.CmdClause) {
	cmd.Flag("url", "URL of WebDAV server").Required().StringVar(&c.options.URL)
	cmd.Flag("webdav-username", "WebDAV username").Envar(svc.EnvName("STREAMVAULT_WEBDAV_USERNAME")).StringVar(&c.options.Username)
	cmd.Flag("webdav-password", "WebDAV password").Envar(svc.EnvName("STREAMVAULT_WEBDAV_PASSWORD")).StringVar(&c.options.Password)
	cmd.Flag("trusted-server-certificate-fingerprint", "Trust the server certificate with a given SHA256 fingerprint").StringVar(&c.options.TrustedServerCertificateFingerprint)
}

func (c *storageWebDAVFlags) Options() (any, error) {
	return &c.options, nil
}

func (c *storageWebDAVFlags) DefaultData() string {
	return defaultDataBaseName
}
