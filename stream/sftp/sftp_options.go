package sftp

import (
	"os"
	"path/filepath"
)

// Options defines options for SFTP-backed streams.
type Options struct {
	// Path is the remote directory that stream names are resolved against.
	Path string `json:"path"`

	Host           string `json:"host"`
	Port           int    `json:"port"`
	Username       string `json:"username"`
	Password       string `json:"password,omitempty"`
	Keyfile        string `json:"keyfile,omitempty"`
	KeyData        string `json:"keyData,omitempty"`
	KnownHostsFile string `json:"knownHostsFile,omitempty"`
	KnownHostsData string `json:"knownHostsData,omitempty"`
}

func (o *Options) port() int {
	if o.Port == 0 {
		return defaultPort
	}

	return o.Port
}

func (o *Options) knownHostsFile() string {
	if o.KnownHostsFile == "" {
		d, _ := os.UserHomeDir()

		return filepath.Join(d, ".ssh", "known_hosts")
	}

	return o.KnownHostsFile
}
