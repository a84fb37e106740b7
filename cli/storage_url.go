package cli

import (
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kopia/streamvault/internal/tlsutil"
	"github.com/kopia/streamvault/stream"
)

type urlOptions struct {
	Timeout                             time.Duration `json:"timeout,omitempty"`
	TrustedServerCertificateFingerprint string        `json:"trustedServerCertificateFingerprint,omitempty"`
}

func (o *urlOptions) source() stream.URL {
	if o.Timeout == 0 && o.TrustedServerCertificateFingerprint == "" {
		return stream.URL{}
	}

	cli := &http.Client{Timeout: o.Timeout}

	if o.TrustedServerCertificateFingerprint != "" {
		cli.Transport = tlsutil.TransportTrustingSingleCertificate(o.TrustedServerCertificateFingerprint)
	}

	return stream.URL{Client: cli}
}

type storageURLFlags struct {
	options urlOptions
}

func (c *storageURLFlags) Setup(_ StorageProviderServices, cmd *kingpin.CmdClause) {
	cmd.Flag("timeout", "HTTP request timeout").DurationVar(&c.options.Timeout)
	cmd.Flag("trusted-server-certificate-fingerprint", "Trust the server certificate with a given SHA256 fingerprint").StringVar(&c.options.TrustedServerCertificateFingerprint)
}

func (c *storageURLFlags) Options() (any, error) {
	return &c.options, nil
}

// DefaultData is empty, the URL must be provided with --data.
func (c *storageURLFlags) DefaultData() string {
	return ""
}

type tcpOptions struct {
	DialTimeout time.Duration `json:"dialTimeout,omitempty"`
}

type storageTCPFlags struct {
	options tcpOptions
}

func (c *storageTCPFlags) Setup(_ StorageProviderServices, cmd *kingpin.CmdClause) {
	cmd.Flag("dial-timeout", "Connection timeout").DurationVar(&c.options.DialTimeout)
}

func (c *storageTCPFlags) Options() (any, error) {
	return &c.options, nil
}

// DefaultData is empty, the host:port address must be provided with --data.
func (c *storageTCPFlags) DefaultData() string {
	return ""
}
