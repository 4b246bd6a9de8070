package contentkit

import (
	"errors"
	"fmt"
)

// Resolution errors
var (
	// ErrSchemeConflict is returned when a backend is registered for a scheme
	// that already has one.
	ErrSchemeConflict = errors.New("scheme already registered")
	// ErrProviderNotFound is returned when no backend is registered for a scheme.
	ErrProviderNotFound = errors.New("no provider registered for scheme")
	// ErrUnsupportedOperation is returned when a resource lacks the capability
	// needed for an operation.
	ErrUnsupportedOperation = errors.New("operation not supported")
	// ErrInvalidURI is returned when URI components cannot be revived.
	ErrInvalidURI = errors.New("invalid uri")
)

// Storage errors
var (
	ErrNotExist            = errors.New("resource does not exist")
	ErrExist               = errors.New("resource already exists")
	ErrNotAllowed          = errors.New("operation not allowed")
	ErrIsDir               = errors.New("is a directory")
	ErrModified            = errors.New("resource modified since last stat")
	ErrReadOnly            = errors.New("storage is read-only")
	ErrInvalidSize         = errors.New("invalid content size")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
)

// URIError records an error and the operation and URI that caused it
type URIError struct {
	Op  string
	URI string
	Err error
}

// Error implements the error interface
func (e *URIError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URI, e.Err)
}

// Unwrap returns the underlying error
func (e *URIError) Unwrap() error {
	return e.Err
}

// NewURIError creates a new URIError.
func NewURIError(op, uri string, err error) *URIError {
	return &URIError{Op: op, URI: uri, Err: err}
}

// IsNotExist reports whether an error indicates that a resource does not exist
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}

// IsExist reports whether an error indicates that a resource already exists
func IsExist(err error) bool {
	return errors.Is(err, ErrExist)
}

// IsProviderNotFound reports whether an error indicates a scheme with no
// registered provider.
func IsProviderNotFound(err error) bool {
	return errors.Is(err, ErrProviderNotFound)
}

// IsUnsupportedOperation reports whether an error indicates a missing
// resource capability.
func IsUnsupportedOperation(err error) bool {
	return errors.Is(err, ErrUnsupportedOperation)
}
