package cli

import (
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"

	"github.com/kopia/streamvault/stream/gcs"
)

type storageGCSFlags struct {
	options          gcs.Options
	embedCredentials bool
}

func (c *storageGCSFlags) Setup(_ StorageProviderServices, cmd *kingpin.CmdClause) {
	cmd.Flag("bucket", "Name of the Google Cloud Storage bucket").Required().StringVar(&c.options.BucketName)
	cmd.Flag("prefix", "Prefix to use for objects in the bucket").StringVar(&c.options.Prefix)
	cmd.Flag("read-only", "Use read-only GCS scope to prevent write access").BoolVar(&c.options.ReadOnly)
	cmd.Flag("credentials-file", "Use the provided JSON file with credentials").ExistingFileVar(&c.options.ServiceAccountCredentialsFile)
	cmd.Flag("embed-credentials", "Embed GCS credentials JSON in the config file").BoolVar(&c.embedCredentials)
	cmd.Flag("endpoint", "Override the GCS API endpoint").Hidden().StringVar(&c.options.Endpoint)
}

func (c *storageGCSFlags) Options() (any, error) {
	o := c.options

	if c.embedCredentials {
		data, err := os.ReadFile(o.ServiceAccountCredentialsFile)
		if err != nil {
			return nil, errors.Wrap(err, "unable to open service account credentials file")
		}

		o.ServiceAccountCredentialJSON = data
		o.ServiceAccountCredentialsFile = ""
	}

	return &o, nil
}

func (c *storageGCSFlags) DefaultData() string {
	return defaultDataBaseName
}
