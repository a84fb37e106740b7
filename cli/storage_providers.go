package cli

import (
	"context"
	"encoding/json"

	"github.com/alecthomas/kingpin/v2"
	"github.com/pkg/errors"

	"github.com/kopia/streamvault/stream"
	"github.com/kopia/streamvault/stream/azure"
	"github.com/kopia/streamvault/stream/gcs"
	"github.com/kopia/streamvault/stream/s3"
	"github.com/kopia/streamvault/stream/sftp"
	"github.com/kopia/streamvault/stream/webdav"
)

// StorageProviderServices is implemented by the cli App that allows the cli
// and tests to mutate the default storage providers.
type StorageProviderServices interface {
	EnvName(s string) string
}

// StorageFlags is implemented by cli storage providers which need to support a
// particular backend. This requires the common setup and selection methods.
type StorageFlags interface {
	Setup(sps StorageProviderServices, cmd *kingpin.CmdClause)

	// Options returns the backend options to be stored in the config file.
	Options() (any, error)

	// DefaultData returns the default name of the encrypted data resource in the storage.
	DefaultData() string
}

// StorageProvider is a CLI provider for storage options and allows the CLI to
// instantiate a StorageFlags from a storage specific Name.
type StorageProvider struct {
	Name        string
	Description string
	NewFlags    func() StorageFlags
}

// storageProviders is a list of available storage providers.
//
//nolint:gochecknoglobals
var storageProviders = []StorageProvider{
	{"filesystem", "a local filesystem", func() StorageFlags { return &storageFilesystemFlags{} }},
	{"sftp", "an SFTP server", func() StorageFlags { return &storageSFTPFlags{} }},
	{"webdav", "a WebDAV server", func() StorageFlags { return &storageWebDAVFlags{} }},
	{"s3", "an S3-compatible bucket", func() StorageFlags { return &storageS3Flags{} }},
	{"gcs", "a Google Cloud Storage bucket", func() StorageFlags { return &storageGCSFlags{} }},
	{"azure", "an Azure blob storage container", func() StorageFlags { return &storageAzureFlags{} }},
	{"url", "an HTTP(S) server accepting GET and PUT", func() StorageFlags { return &storageURLFlags{} }},
	{"tcp", "a TCP socket", func() StorageFlags { return &storageTCPFlags{} }},
}

func storageConfigFromFlags(name string, sf StorageFlags) (*StorageConfig, error) {
	opt, err := sf.Options()
	if err != nil {
		return nil, err
	}

	b, err := json.Marshal(opt)
	if err != nil {
		return nil, errors.Wrap(err, "unable to marshal storage options")
	}

	return &StorageConfig{Type: name, Config: b}, nil
}

func unmarshalStorageOptions(sc *StorageConfig, opt any) error {
	if len(sc.Config) == 0 {
		return nil
	}

	return errors.Wrapf(json.Unmarshal(sc.Config, opt), "invalid %v storage options", sc.Type)
}

// openSource returns the stream.Source described by a storage configuration and a function that releases it.
// Sources reached over the network retry transient failures to open a stream.
func openSource(ctx context.Context, sc *StorageConfig) (stream.Source, func() error, error) {
	noClose := func() error { return nil }

	switch sc.Type {
	case "", "filesystem":
		var o filesystemOptions
		if err := unmarshalStorageOptions(sc, &o); err != nil {
			return nil, nil, err
		}

		return stream.Filesystem{AtomicWrites: o.AtomicWrites}, noClose, nil

	case "sftp":
		var o sftp.Options
		if err := unmarshalStorageOptions(sc, &o); err != nil {
			return nil, nil, err
		}

		s, err := sftp.New(ctx, &o)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to connect to SFTP server")
		}

		return stream.WithRetry(s), s.Close, nil

	case "webdav":
		var o webdav.Options
		if err := unmarshalStorageOptions(sc, &o); err != nil {
			return nil, nil, err
		}

		s, err := webdav.New(ctx, &o)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to connect to WebDAV server")
		}

		return stream.WithRetry(s), noClose, nil

	case "s3":
		var o s3.Options
		if err := unmarshalStorageOptions(sc, &o); err != nil {
			return nil, nil, err
		}

		s, err := s3.New(ctx, &o)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to connect to S3")
		}

		return stream.WithRetry(s), noClose, nil

	case "gcs":
		var o gcs.Options
		if err := unmarshalStorageOptions(sc, &o); err != nil {
			return nil, nil, err
		}

		s, err := gcs.New(ctx, &o)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to connect to GCS")
		}

		return stream.WithRetry(s), s.Close, nil

	case "azure":
		var o azure.Options
		if err := unmarshalStorageOptions(sc, &o); err != nil {
			return nil, nil, err
		}

		s, err := azure.New(ctx, &o)
		if err != nil {
			return nil, nil, errors.Wrap(err, "unable to connect to Azure")
		}

		return stream.WithRetry(s), noClose, nil

	case "url":
		var o urlOptions
		if err := unmarshalStorageOptions(sc, &o); err != nil {
			return nil, nil, err
		}

		return stream.WithRetry(o.source()), noClose, nil

	case "tcp":
		var o tcpOptions
		if err := unmarshalStorageOptions(sc, &o); err != nil {
			return nil, nil, err
		}

		return stream.TCP{DialTimeout: o.DialTimeout}, noClose, nil

	default:
		return nil, nil, errors.Errorf("unsupported storage type %q", sc.Type)
	}
}
