// Package azure implements a stream source based on Azure Blob Storage.
package azure

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/logging"
	"github.com/kopia/streamvault/stream"
)

var log = logging.Module("azure")

const defaultStorageDomain = "blob.core.windows.net"

// Source implements stream.Source on top of an Azure storage container.
type Source struct {
	Options

	service *azblob.Client
}

var _ stream.Source = (*Source)(nil)

func (az *Source) blobName(name string) string {
	return az.Prefix + name
}

// OpenRead implements stream.Source.
func (az *Source) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	resp, err := az.service.DownloadStream(ctx, az.Container, az.blobName(name), nil)
	if err != nil {
		return nil, translateError(err, name)
	}

	log(ctx).Debugw("opened Azure blob for reading", "container", az.Container, "blob", az.blobName(name))

	return resp.Body, nil
}

// OpenWrite implements stream.Source.
// The blob is committed when Close returns nil.
func (az *Source) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	log(ctx).Debugw("opened Azure blob for writing", "container", az.Container, "blob", az.blobName(name))

	return stream.NewUploadWriter(ctx, func(ctx context.Context, r io.Reader) error {
		if _, err := az.service.UploadStream(ctx, az.Container, az.blobName(name), r, nil); err != nil {
			return translateError(err, name)
		}

		return nil
	}), nil
}

func translateError(err error, name string) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return errkind.Wrapf(errkind.ErrNotFound, err, "Azure blob %v", name)
	}

	var re *azcore.ResponseError
	if errors.As(err, &re) && re.StatusCode == http.StatusNotFound {
		return errkind.Wrapf(errkind.ErrNotFound, err, "Azure blob %v", name)
	}

	return errkind.Wrapf(errkind.ErrIOFailure, err, "unexpected Azure error on %v", name)
}

func serviceURL(opt *Options) string {
	storageDomain := opt.StorageDomain
	if storageDomain == "" {
		storageDomain = defaultStorageDomain
	}

	scheme := "https"
	if opt.DoNotUseTLS {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s.%s/", scheme, opt.StorageAccount, storageDomain)
}

func newClient(opt *Options) (*azblob.Client, error) {
	u := serviceURL(opt)

	switch {
	case opt.SASToken != "":
		//nolint:wrapcheck
		return azblob.NewClientWithNoCredential(u+"?"+opt.SASToken, nil)

	case opt.StorageKey != "":
		cred, err := azblob.NewSharedKeyCredential(opt.StorageAccount, opt.StorageKey)
		if err != nil {
			return nil, errors.Wrap(err, "unable to initialize storage access key credentials")
		}

		//nolint:wrapcheck
		return azblob.NewClientWithSharedKeyCredential(u, cred, nil)

	case opt.ClientSecret != "":
		cred, err := azidentity.NewClientSecretCredential(opt.TenantID, opt.ClientID, opt.ClientSecret, nil)
		if err != nil {
			return nil, errors.Wrap(err, "unable to initialize client secret credential")
		}

		//nolint:wrapcheck
		return azblob.NewClient(u, cred, nil)

	default:
		cred, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, errors.Wrap(err, "unable to initialize default Azure credential")
		}

		//nolint:wrapcheck
		return azblob.NewClient(u, cred, nil)
	}
}

// New creates new Azure Blob Storage-backed Source with specified options:
//
// - the 'Container' and 'StorageAccount' fields are required and all other parameters are optional.
func New(ctx context.Context, opt *Options) (*Source, error) {
	if opt.Container == "" {
		return nil, errors.New("container name must be specified")
	}

	if opt.StorageAccount == "" {
		return nil, errors.New("storage account must be specified")
	}

	cli, err := newClient(opt)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open Azure storage")
	}

	log(ctx).Debugw("using Azure storage", "account", opt.StorageAccount, "container", opt.Container)

	return &Source{Options: *opt, service: cli}, nil
}
