package stream

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
)

// URL is a Source of HTTP resources, names are absolute http:// or https:// URLs.
// Reads use GET and writes stream the body of a PUT request.
type URL struct {
	// Client is the HTTP client to use, http.DefaultClient if nil.
	Client *http.Client
}

func (u URL) client() *http.Client {
	if u.Client != nil {
		return u.Client
	}

	return http.DefaultClient
}

// OpenRead implements Source.
func (u URL) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, name, http.NoBody)
	if err != nil {
		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "invalid URL %v", name)
	}

	resp, err := u.client().Do(req)
	if err != nil {
		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "GET %v", name)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close() //nolint:errcheck
		return nil, errkind.Wrapf(errkind.ErrNotFound, nil, "GET %v", name)

	case resp.StatusCode >= http.StatusBadRequest:
		resp.Body.Close() //nolint:errcheck
		return nil, errkind.Wrapf(errkind.ErrIOFailure, errors.Errorf("unexpected status %v", resp.Status), "GET %v", name)
	}

	log(ctx).Debugf("GET %v: %v", name, resp.Status)

	return resp.Body, nil
}

// OpenWrite implements Source.
func (u URL) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	if _, err := http.NewRequestWithContext(ctx, http.MethodPut, name, http.NoBody); err != nil {
		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "invalid URL %v", name)
	}

	return NewUploadWriter(ctx, func(ctx context.Context, r io.Reader) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, name, r)
		if err != nil {
			return errkind.Wrapf(errkind.ErrIOFailure, err, "invalid URL %v", name)
		}

		resp, err := u.client().Do(req)
		if err != nil {
			return errkind.Wrapf(errkind.ErrIOFailure, err, "PUT %v", name)
		}

		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode >= http.StatusBadRequest {
			return errkind.Wrapf(errkind.ErrIOFailure, errors.Errorf("unexpected status %v", resp.Status), "PUT %v", name)
		}

		log(ctx).Debugf("PUT %v: %v", name, resp.Status)

		return nil
	}), nil
}
