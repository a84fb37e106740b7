package cli

import (
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"

	"github.com/kopia/streamvault/internal/ospath"
)

type filesystemOptions struct {
	AtomicWrites bool `json:"atomicWrites,omitempty"`
}

type storageFilesystemFlags struct {
	options filesystemOptions
}

func (c *storageFilesystemFlags) Setup(_ StorageProviderServices, cmd *kingpin.CmdClause) {
	cmd.Flag("atomic-writes", "Replace the data file only after it has been fully written").BoolVar(&c.options.AtomicWrites)
}

func (c *storageFilesystemFlags) Options() (any, error) {
	return c.options, nil
}

func (c *storageFilesystemFlags) DefaultData() string {
	return filepath.Join(ospath.ConfigDir(), defaultDataBaseName)
}
