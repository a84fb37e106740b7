// Package errkind defines the kinds of failures reported by the vault and its collaborators.
package errkind

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error kinds. Callers should test for them with errors.Is().
var (
	// ErrNotFound is returned when the keystore or the data resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAuthFailure is returned when a passphrase or key does not unlock the data.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrCorruptFormat is returned when a keystore or data stream is not in a recognized format.
	ErrCorruptFormat = errors.New("corrupt format")

	// ErrCryptoFailure is returned when key generation or cipher setup fails.
	ErrCryptoFailure = errors.New("crypto failure")

	// ErrIOFailure is returned when the underlying read or write fails.
	ErrIOFailure = errors.New("I/O failure")
)

// kindError attaches a kind to an underlying cause while preserving both for errors.Is/As.
type kindError struct {
	kind  error
	cause error
	msg   string
}

func (e *kindError) Error() string {
	switch {
	case e.cause == nil:
		return e.msg + ": " + e.kind.Error()
	case e.msg == "":
		return e.kind.Error() + ": " + e.cause.Error()
	default:
		return e.msg + ": " + e.kind.Error() + ": " + e.cause.Error()
	}
}

func (e *kindError) Is(target error) bool {
	return target == e.kind
}

func (e *kindError) Unwrap() error {
	return e.cause
}

// Wrap returns an error of the given kind with msg describing the operation and err as the cause.
// Errors that already carry one of the kinds are returned wrapped with msg, keeping their kind.
func Wrap(kind, err error, msg string) error {
	if err != nil && Of(err) != nil {
		return errors.Wrap(err, msg)
	}

	return &kindError{kind: kind, cause: err, msg: msg}
}

// Wrapf is like Wrap with a formatted message.
func Wrapf(kind, err error, format string, args ...interface{}) error {
	return Wrap(kind, err, fmt.Sprintf(format, args...))
}

// Of returns the kind of the provided error or nil if it has none.
func Of(err error) error {
	for _, k := range []error{ErrNotFound, ErrAuthFailure, ErrCorruptFormat, ErrCryptoFailure, ErrIOFailure} {
		if errors.Is(err, k) {
			return k
		}
	}

	return nil
}
