// Package sftp implements a stream source backed by files on an SFTP/SSH server.
package sftp

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/logging"
	"github.com/kopia/streamvault/stream"
)

var log = logging.Module("sftp")

const (
	defaultPort             = 22
	tempFileRandomSuffixLen = 8

	packetSize = 1 << 15
)

// Source implements stream.Source on top of an SFTP connection.
// Writes go to a temporary file that replaces the target on Close.
type Source struct {
	root      string
	cli       *sftp.Client
	closeFunc func() error
}

var _ stream.Source = (*Source)(nil)

// OpenRead implements stream.Source.
func (s *Source) OpenRead(ctx context.Context, name string) (io.ReadCloser, error) {
	fullPath := s.fullPath(name)

	f, err := s.cli.Open(fullPath)
	if isNotExist(err) {
		return nil, errkind.Wrapf(errkind.ErrNotFound, err, "SFTP file %v", fullPath)
	}

	if err != nil {
		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unrecognized error when opening SFTP file %v", fullPath)
	}

	log(ctx).Debugw("opened SFTP file for reading", "path", fullPath)

	return f, nil
}

// OpenWrite implements stream.Source.
func (s *Source) OpenWrite(ctx context.Context, name string) (io.WriteCloser, error) {
	fullPath := s.fullPath(name)

	randSuffix := make([]byte, tempFileRandomSuffixLen)
	if _, err := rand.Read(randSuffix); err != nil {
		return nil, errkind.Wrap(errkind.ErrIOFailure, err, "can't get random bytes")
	}

	tempFile := fmt.Sprintf("%s.tmp.%x", fullPath, randSuffix)

	f, err := s.createTempFileAndDir(tempFile)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrIOFailure, err, "cannot create temporary file")
	}

	log(ctx).Debugw("opened SFTP file for writing", "path", fullPath, "temp", tempFile)

	return &tempFileWriter{ctx: ctx, s: s, File: f, tempFile: tempFile, fullPath: fullPath}, nil
}

func (s *Source) fullPath(name string) string {
	if path.IsAbs(name) || s.root == "" {
		return name
	}

	return path.Join(s.root, name)
}

func (s *Source) createTempFileAndDir(tempFile string) (*sftp.File, error) {
	flags := os.O_CREATE | os.O_WRONLY | os.O_EXCL

	f, err := s.cli.OpenFile(tempFile, flags)
	if isNotExist(err) {
		parentDir := path.Dir(tempFile)
		if err = s.cli.MkdirAll(parentDir); err != nil {
			return nil, errors.Wrap(err, "cannot create directory")
		}

		//nolint:wrapcheck
		return s.cli.OpenFile(tempFile, flags)
	}

	return f, errors.Wrapf(err, "unrecognized error when creating temp file on SFTP: %v", tempFile)
}

// Close closes the SFTP client and the underlying connection.
func (s *Source) Close() error {
	if err := s.cli.Close(); err != nil {
		return errors.Wrap(err, "closing SFTP client")
	}

	if s.closeFunc == nil {
		return nil
	}

	if err := s.closeFunc(); err != nil {
		return errors.Wrap(err, "closing SFTP connection")
	}

	return nil
}

type tempFileWriter struct {
	*sftp.File

	ctx      context.Context //nolint:containedctx
	s        *Source
	tempFile string
	fullPath string
	closed   bool
}

func (w *tempFileWriter) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	if err := w.File.Close(); err != nil {
		w.removeTemp()

		return errkind.Wrap(errkind.ErrIOFailure, err, "can't close temporary file")
	}

	if err := w.s.cli.PosixRename(w.tempFile, w.fullPath); err != nil {
		w.removeTemp()

		return errkind.Wrap(errkind.ErrIOFailure, err, "unexpected error renaming file on SFTP")
	}

	return nil
}

// CloseWithError closes and removes the temporary file, leaving the target untouched.
func (w *tempFileWriter) CloseWithError(cause error) error {
	if w.closed {
		return nil
	}

	w.closed = true

	w.File.Close() //nolint:errcheck
	w.removeTemp()

	return nil
}

func (w *tempFileWriter) removeTemp() {
	if err := w.s.cli.Remove(w.tempFile); err != nil {
		log(w.ctx).Errorf("warning: can't remove temp file: %v", err)
	}
}

func isNotExist(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		return true
	}

	return strings.Contains(err.Error(), "does not exist")
}

// getHostKeyCallback returns a HostKeyCallback that validates the connected host based on KnownHostsFile or KnownHostsData.
func getHostKeyCallback(opt *Options) (ssh.HostKeyCallback, error) {
	if opt.KnownHostsData != "" {
		// knownhosts.New() only accepts file names.
		tmpFile, err := writeKnownHostsDataStringToTempFile(opt.KnownHostsData)
		if err != nil {
			return nil, err
		}

		defer os.Remove(tmpFile) //nolint:errcheck

		//nolint:wrapcheck
		return knownhosts.New(tmpFile)
	}

	if f := opt.knownHostsFile(); !filepath.IsAbs(f) {
		return nil, errors.New("known hosts path must be absolute")
	}

	//nolint:wrapcheck
	return knownhosts.New(opt.knownHostsFile())
}

func writeKnownHostsDataStringToTempFile(data string) (string, error) {
	tf, err := os.CreateTemp("", "streamvault-known-hosts")
	if err != nil {
		return "", errors.Wrap(err, "error creating temp file")
	}

	defer tf.Close() //nolint:errcheck

	if _, err := io.WriteString(tf, data); err != nil {
		return "", errors.Wrap(err, "error writing temporary file")
	}

	return tf.Name(), nil
}

// getAuthMethods returns public key authentication when a key is configured, password authentication otherwise.
func getAuthMethods(opts *Options) ([]ssh.AuthMethod, error) {
	if opts.Keyfile == "" && opts.KeyData == "" {
		if opts.Password == "" {
			return nil, errors.New("must specify the location of the ssh private key, the key data or a password")
		}

		return []ssh.AuthMethod{ssh.Password(opts.Password)}, nil
	}

	privateKeyData := []byte(opts.KeyData)

	if opts.KeyData == "" {
		if !filepath.IsAbs(opts.Keyfile) {
			return nil, errors.New("key file path must be absolute")
		}

		var err error

		privateKeyData, err = os.ReadFile(opts.Keyfile)
		if err != nil {
			return nil, errors.Wrap(err, "error reading private key file")
		}
	}

	signer, err := ssh.ParsePrivateKey(privateKeyData)
	if err != nil {
		return nil, errors.Wrap(err, "error parsing private key")
	}

	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func createSSHConfig(ctx context.Context, opts *Options) (*ssh.ClientConfig, error) {
	log(ctx).Debugf("using built-in SSH connection")

	hostKeyCallback, err := getHostKeyCallback(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to getHostKey: %s", opts.Host)
	}

	auth, err := getAuthMethods(opts)
	if err != nil {
		return nil, err
	}

	return &ssh.ClientConfig{
		User:            opts.Username,
		Auth:            auth,
		HostKeyCallback: hostKeyCallback,
	}, nil
}

// New connects to the SFTP server described by opts.
func New(ctx context.Context, opts *Options) (*Source, error) {
	config, err := createSSHConfig(ctx, opts)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "invalid SSH configuration")
	}

	addr := net.JoinHostPort(opts.Host, strconv.Itoa(opts.port()))

	conn, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return nil, errkind.Wrapf(errkind.ErrIOFailure, err, "unable to dial [%s]", addr)
	}

	c, err := sftp.NewClient(conn, sftp.MaxPacket(packetSize))
	if err != nil {
		conn.Close() //nolint:errcheck

		return nil, errkind.Wrap(errkind.ErrIOFailure, err, "unable to create sftp client")
	}

	return &Source{root: opts.Path, cli: c, closeFunc: conn.Close}, nil
}

// NewWithClient returns a Source that uses an established SFTP client, resolving names against root.
func NewWithClient(cli *sftp.Client, root string) *Source {
	return &Source{root: root, cli: cli}
}
