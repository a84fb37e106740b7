// Package gcs implements a stream source based on Google Cloud Storage bucket.
package gcs

import (
	"context"
	"encoding/json"
	"io"
	"os"

	gcsclient "cloud.google.com/go/storage"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/logging"
	"github.com/kopia/streamvault/stream"
)

var log = logging.Module("gcs")

const writerChunkSize = 1 << 20

// Source implements stream.Source on top of a GCS bucket.
type Source struct {
	Options

	storageClient *gcsclient.Client
	bucket        *gcsclient.BucketHandle
}

var _ stream.Source = (*Source)(nil)

func (gcs *Source) objectName(name string) string {
	return gcs.Prefix + name
}

// OpenRead implements stream.Source.
func (gcs *Source) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	r, err := gcs.bucket.Object(gcs.objectName(name)).NewReader(ctx)
	if err != nil {
		return nil, translateError(err, name)
	}

	log(ctx).Debugw("opened GCS object for reading", "bucket", gcs.BucketName, "object", gcs.objectName(name))

	return r, nil
}

// OpenWrite implements stream.Source.
// The object is committed when Close returns nil.
func (gcs *Source) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	wctx, cancel := context.WithCancel(ctx)

	w := gcs.bucket.Object(gcs.objectName(name)).NewWriter(wctx)
	w.ChunkSize = writerChunkSize
	w.ContentType = "application/octet-stream"

	log(ctx).Debugw("opened GCS object for writing", "bucket", gcs.BucketName, "object", gcs.objectName(name))

	return &objectWriter{w: w, name: name, cancel: cancel}, nil
}

type objectWriter struct {
	w      *gcsclient.Writer
	name   string
	cancel context.CancelFunc
}

func (o *objectWriter) Write(p []byte) (int, error) {
	n, err := o.w.Write(p)
	if err != nil {
		return n, translateError(err, o.name)
	}

	return n, nil
}

func (o *objectWriter) Close() error {
	defer o.cancel()

	if err := o.w.Close(); err != nil {
		return translateError(err, o.name)
	}

	return nil
}

// CloseWithError cancels the upload, the object is not created or replaced.
func (o *objectWriter) CloseWithError(cause error) error {
	o.cancel()
	o.w.Close() //nolint:errcheck

	return nil
}

// Close releases the GCS client.
func (gcs *Source) Close() error {
	return errors.Wrap(gcs.storageClient.Close(), "error closing GCS client")
}

func translateError(err error, name string) error {
	var ae *googleapi.Error

	switch {
	case errors.Is(err, gcsclient.ErrObjectNotExist), errors.Is(err, gcsclient.ErrBucketNotExist):
		return errkind.Wrapf(errkind.ErrNotFound, err, "GCS object %v", name)
	case errors.As(err, &ae) && ae.Code == 404:
		return errkind.Wrapf(errkind.ErrNotFound, err, "GCS object %v", name)
	default:
		return errkind.Wrapf(errkind.ErrIOFailure, err, "unexpected GCS error on %v", name)
	}
}

func tokenSourceFromCredentialsFile(ctx context.Context, fn string, scopes ...string) (oauth2.TokenSource, error) {
	data, err := os.ReadFile(fn) //nolint:gosec
	if err != nil {
		return nil, errors.Wrap(err, "error reading credentials file")
	}

	return tokenSourceFromCredentialsJSON(ctx, data, scopes...)
}

func tokenSourceFromCredentialsJSON(ctx context.Context, data json.RawMessage, scopes ...string) (oauth2.TokenSource, error) {
	creds, err := google.CredentialsFromJSON(ctx, data, scopes...)
	if err != nil {
		return nil, errors.Wrap(err, "google.CredentialsFromJSON")
	}

	return creds.TokenSource, nil
}

func clientOptions(ctx context.Context, opt *Options) ([]option.ClientOption, error) {
	if opt.Endpoint != "" {
		return []option.ClientOption{option.WithEndpoint(opt.Endpoint), option.WithoutAuthentication()}, nil
	}

	scope := gcsclient.ScopeReadWrite
	if opt.ReadOnly {
		scope = gcsclient.ScopeReadOnly
	}

	var (
		ts  oauth2.TokenSource
		err error
	)

	if sa := opt.ServiceAccountCredentialJSON; len(sa) > 0 {
		ts, err = tokenSourceFromCredentialsJSON(ctx, sa, scope)
	} else if sa := opt.ServiceAccountCredentialsFile; sa != "" {
		ts, err = tokenSourceFromCredentialsFile(ctx, sa, scope)
	} else {
		ts, err = google.DefaultTokenSource(ctx, scope)
	}

	if err != nil {
		return nil, errors.Wrap(err, "unable to initialize token source")
	}

	return []option.ClientOption{option.WithHTTPClient(oauth2.NewClient(ctx, ts))}, nil
}

// New creates new Google Cloud Storage-backed Source with specified options:
//
// - the 'BucketName' field is required and all other parameters are optional.
//
// By default the connection reuses credentials managed by (https://cloud.google.com/sdk/).
func New(ctx context.Context, opt *Options) (*Source, error) {
	if opt.BucketName == "" {
		return nil, errors.New("bucket name must be specified")
	}

	opts, err := clientOptions(ctx, opt)
	if err != nil {
		return nil, err
	}

	cli, err := gcsclient.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create GCS client")
	}

	return &Source{
		Options:       *opt,
		storageClient: cli,
		bucket:        cli.Bucket(opt.BucketName),
	}, nil
}
