// Package s3 implements a stream source backed by objects in S3-compatible storage.
package s3

import (
	"context"
	"crypto/tls"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/logging"
	"github.com/kopia/streamvault/stream"
)

var log = logging.Module("s3")

// Source implements stream.Source on top of an S3 bucket.
type Source struct {
	Options

	cli *minio.Client
}

var _ stream.Source = (*Source)(nil)

func (s *Source) objectName(name string) string {
	return s.Prefix + name
}

// OpenRead implements stream.Source.
func (s *Source) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	o, err := s.cli.GetObject(ctx, s.BucketName, s.objectName(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, translateError(err, name)
	}

	// GetObject does not contact the server until the first read.
	if _, err := o.Stat(); err != nil {
		o.Close() //nolint:errcheck

		return nil, translateError(err, name)
	}

	log(ctx).Debugw("opened S3 object for reading", "bucket", s.BucketName, "object", s.objectName(name))

	return o, nil
}

// OpenWrite implements stream.Source.
// The object is uploaded in parts while it is written and becomes visible when Close returns.
func (s *Source) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	log(ctx).Debugw("opened S3 object for writing", "bucket", s.BucketName, "object", s.objectName(name))

	return stream.NewUploadWriter(ctx, func(ctx context.Context, r io.Reader) error {
		info, err := s.cli.PutObject(ctx, s.BucketName, s.objectName(name), r, -1, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		})
		if err != nil {
			return translateError(err, name)
		}

		log(ctx).Debugw("uploaded S3 object", "object", info.Key, "size", info.Size)

		return nil
	}), nil
}

func translateError(err error, name string) error {
	var me minio.ErrorResponse

	if errors.As(err, &me) {
		if me.StatusCode == http.StatusNotFound || me.Code == "NoSuchKey" {
			return errkind.Wrapf(errkind.ErrNotFound, err, "S3 object %v", name)
		}
	}

	return errkind.Wrapf(errkind.ErrIOFailure, err, "S3 error on %v", name)
}

func getCustomTransport(insecureSkipVerify bool) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone() //nolint:forcetypeassert
	t.TLSClientConfig = &tls.Config{InsecureSkipVerify: insecureSkipVerify} //nolint:gosec

	return t
}

// New creates new S3-backed Source with specified options:
//
// - the 'BucketName' field is required and all other parameters are optional.
func New(ctx context.Context, opt *Options) (*Source, error) {
	if opt.BucketName == "" {
		return nil, errors.New("bucket name must be specified")
	}

	minioOpts := &minio.Options{
		Creds:  credentials.NewStaticV4(opt.AccessKeyID, opt.SecretAccessKey, opt.SessionToken),
		Secure: !opt.DoNotUseTLS,
		Region: opt.Region,
	}

	if opt.DoNotVerifyTLS {
		minioOpts.Transport = getCustomTransport(true)
	}

	cli, err := minio.New(opt.Endpoint, minioOpts)
	if err != nil {
		return nil, errors.Wrap(err, "unable to create client")
	}

	ok, err := cli.BucketExists(ctx, opt.BucketName)
	if err != nil {
		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unable to determine if bucket %q exists", opt.BucketName)
	}

	if !ok {
		return nil, errkind.Wrapf(errkind.ErrNotFound, nil, "bucket %q does not exist", opt.BucketName)
	}

	return &Source{Options: *opt, cli: cli}, nil
}
