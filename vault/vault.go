// Package vault implements transparent encryption at rest of a single data resource
// with a passphrase-protected key kept in a keystore.
package vault

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/kopia/streamvault/errkind"
	"github.com/kopia/streamvault/internal/cipherstream"
	"github.com/kopia/streamvault/internal/compression"
	"github.com/kopia/streamvault/keystore"
	"github.com/kopia/streamvault/logging"
	"github.com/kopia/streamvault/stream"
)

var log = logging.Module("vault")

// Error kinds returned by vault operations.
var (
	ErrNotFound      = errkind.ErrNotFound
	ErrAuthFailure   = errkind.ErrAuthFailure
	ErrCorruptFormat = errkind.ErrCorruptFormat
	ErrCryptoFailure = errkind.ErrCryptoFailure
	ErrIOFailure     = errkind.ErrIOFailure
)

// Options customizes the behavior of a Vault.
type Options struct {
	// Keystore holds the vault key, keystore.File if nil.
	Keystore keystore.Store

	// Source provides raw data streams, stream.Filesystem if nil.
	Source stream.Source

	// Compression applied to plaintext before encryption, none if empty.
	Compression compression.Name
}

// Vault encrypts a single data resource with a key loaded from a passphrase-protected keystore.
// The key is loaded from the keystore every time a stream is opened.
type Vault struct {
	dataPath     string
	keystorePath string
	passphrase   string

	keystore    keystore.Store
	source      stream.Source
	compression compression.Name
}

var _ stream.Resource = (*Vault)(nil)

// New returns a Vault for the data resource at dataPath protected by the keystore at keystorePath.
func New(dataPath, keystorePath, passphrase string, opts *Options) *Vault {
	if opts == nil {
		opts = &Options{}
	}

	v := &Vault{
		dataPath:     dataPath,
		keystorePath: keystorePath,
		passphrase:   passphrase,
		keystore:     opts.Keystore,
		source:       opts.Source,
		compression:  opts.Compression,
	}

	if v.keystore == nil {
		v.keystore = keystore.File{}
	}

	if v.source == nil {
		v.source = stream.Filesystem{}
	}

	return v
}

// DataPath returns the name of the encrypted data resource.
func (v *Vault) DataPath() string {
	return v.dataPath
}

// KeystorePath returns the location of the keystore.
func (v *Vault) KeystorePath() string {
	return v.keystorePath
}

// Initialize creates a new key and writes it to the keystore, replacing the previous one.
// Data encrypted with the previous key can no longer be read.
func (v *Vault) Initialize(ctx context.Context) error {
	if _, err := v.keystore.Create(ctx, v.keystorePath, v.passphrase); err != nil {
		return errors.Wrap(err, "unable to initialize vault")
	}

	log(ctx).Debugw("initialized vault", "keystore", v.keystorePath)

	return nil
}

// Unlock verifies that the passphrase opens the keystore without touching the data resource.
func (v *Vault) Unlock(ctx context.Context) error {
	_, err := v.loadKey(ctx)

	return err
}

func (v *Vault) loadKey(ctx context.Context) ([]byte, error) {
	k, err := v.keystore.Load(ctx, v.keystorePath, v.passphrase)
	reportKeyLoad(err)

	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	return k.Bytes(), nil
}

// OpenOutputStream returns a stream that encrypts everything written to it into the data resource,
// replacing its contents. The data is complete only after Close returns nil. The returned stream
// implements stream.Aborter, aborting it leaves data that fails authentication on read or, for
// sources that commit on Close, the previous contents.
func (v *Vault) OpenOutputStream(ctx context.Context) (io.WriteCloser, error) {
	compressionID, err := compression.Lookup(v.compression)
	if err != nil {
		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "invalid compression")
	}

	key, err := v.loadKey(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := v.source.OpenWrite(ctx, v.dataPath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %v for writing", v.dataPath)
	}

	cw, err := cipherstream.NewWriter(raw, key, uint32(compressionID))
	if err != nil {
		stream.Abort(raw, err) //nolint:errcheck

		return nil, err //nolint:wrapcheck
	}

	comp, err := compression.NewWriter(compressionID, cw)
	if err != nil {
		stream.Abort(raw, err) //nolint:errcheck

		return nil, errkind.Wrap(errkind.ErrCryptoFailure, err, "unable to initialize compression")
	}

	log(ctx).Debugw("opened output stream", "data", v.dataPath, "compression", v.compression)

	return &encryptingWriter{ctx: ctx, name: v.dataPath, comp: comp, cipher: cw, raw: raw}, nil
}

// OpenInputStream returns a stream that decrypts the contents of the data resource.
func (v *Vault) OpenInputStream(ctx context.Context) (io.ReadCloser, error) {
	key, err := v.loadKey(ctx)
	if err != nil {
		return nil, err
	}

	raw, err := v.source.OpenRead(ctx, v.dataPath)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %v for reading", v.dataPath)
	}

	cr, err := cipherstream.NewReader(raw, key)
	if err != nil {
		raw.Close() //nolint:errcheck

		return nil, errors.Wrapf(err, "unable to read %v", v.dataPath)
	}

	decomp, err := compression.NewReader(compression.HeaderID(cr.Header.CompressionID), cr)
	if err != nil {
		raw.Close() //nolint:errcheck

		return nil, errkind.Wrapf(errkind.ErrCorruptFormat, err, "unable to read %v", v.dataPath)
	}

	log(ctx).Debugw("opened input stream", "data", v.dataPath)

	return &decryptingReader{ctx: ctx, name: v.dataPath, decomp: decomp, cipher: cr, raw: raw}, nil
}

// ReadAll returns the decrypted contents of the data resource.
func (v *Vault) ReadAll(ctx context.Context) ([]byte, error) {
	return stream.ReadAll(ctx, v) //nolint:wrapcheck
}

// WriteAll replaces the contents of the data resource with encrypted b.
func (v *Vault) WriteAll(ctx context.Context, b []byte) error {
	return stream.WriteAll(ctx, v, b) //nolint:wrapcheck
}

// ReadString returns the decrypted contents of the data resource as a string.
func (v *Vault) ReadString(ctx context.Context) (string, error) {
	return stream.Slurp(ctx, v) //nolint:wrapcheck
}

// WriteString replaces the contents of the data resource with encrypted s.
func (v *Vault) WriteString(ctx context.Context, s string) error {
	return stream.Spit(ctx, v, s) //nolint:wrapcheck
}
