package stream

import (
	"context"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
)

const defaultDialTimeout = 30 * time.Second

// TCP is a Source of socket streams, names are host:port addresses.
// A refused connection is reported as errkind.ErrNotFound, other dial failures
// including timeouts and resolution errors as errkind.ErrIOFailure.
// Reading returns everything the peer sends until it closes the connection.
// Writing sends data and half-closes the connection on Close.
type TCP struct {
	DialTimeout time.Duration
}

func (s TCP) dial(ctx context.Context, address string) (net.Conn, error) {
	timeout := s.DialTimeout
	if timeout == 0 {
		timeout = defaultDialTimeout
	}

	d := net.Dialer{Timeout: timeout}

	conn, err := d.DialContext(ctx, "tcp", address)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return nil, errkind.Wrapf(errkind.ErrNotFound, err, "nothing listening at %v", address)
		}

		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unable to connect to %v", address)
	}

	log(ctx).Debugf("connected to %v", address)

	return conn, nil
}

// OpenRead implements Source.
func (s TCP) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	conn, err := s.dial(ctx, name)
	if err != nil {
		return nil, err
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		tc.CloseWrite() //nolint:errcheck
	}

	return conn, nil
}

// OpenWrite implements Source.
func (s TCP) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	conn, err := s.dial(ctx, name)
	if err != nil {
		return nil, err
	}

	return &tcpWriter{conn}, nil
}

type tcpWriter struct {
	net.Conn
}

func (w *tcpWriter) Close() error {
	if tc, ok := w.Conn.(*net.TCPConn); ok {
		if err := tc.CloseWrite(); err != nil {
			w.Conn.Close() //nolint:errcheck
			return errors.Wrap(err, "unable to close connection for writing")
		}
	}

	return errors.Wrap(w.Conn.Close(), "unable to close connection")
}

// CloseWithError resets the connection so the peer does not see a clean end of data.
func (w *tcpWriter) CloseWithError(cause error) error {
	if tc, ok := w.Conn.(*net.TCPConn); ok {
		tc.SetLinger(0) //nolint:errcheck
	}

	return errors.Wrap(w.Conn.Close(), "unable to close connection")
}
