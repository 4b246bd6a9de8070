package contentkit

import (
	"context"
	"errors"
)

// ============================================================================
// ReadOnlyStorage Decorator
// ============================================================================

// ReadOnlyStorage wraps a Storage to prevent all write operations.
// Reads are delegated; Create and SetContent fail with ErrReadOnly.
//
// Example:
//
//	store, _ := local.New("/data")
//	resolver := contentkit.NewResolver(contentkit.NewReadOnlyStorage(store))
//
//	// Reading file: URIs works normally, saving them fails with ErrReadOnly.
type ReadOnlyStorage struct {
	storage Storage
	opts    ReadOnlyOptions
}

// ReadOnlyOptions configures the ReadOnlyStorage behavior.
type ReadOnlyOptions struct {
	// AllowCreate permits creating empty entries in read-only mode.
	// Default: false
	AllowCreate bool

	// OnWriteAttempt is called when a write operation is attempted.
	// If nil, the default behavior returns ErrReadOnly.
	// If this function returns nil, the write is allowed (use carefully).
	OnWriteAttempt func(op, uri string) error

	// ErrorWrapper allows customizing the error returned for write attempts.
	// If nil, wraps with URIError containing ErrReadOnly.
	ErrorWrapper func(op, uri string, err error) error
}

// ReadOnlyOption is a functional option for configuring ReadOnlyStorage.
type ReadOnlyOption func(*ReadOnlyOptions)

// WithAllowCreate allows entry creation in read-only mode.
func WithAllowCreate(allow bool) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.AllowCreate = allow
	}
}

// WithWriteAttemptHandler sets a custom handler for write attempts.
func WithWriteAttemptHandler(handler func(op, uri string) error) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.OnWriteAttempt = handler
	}
}

// WithErrorWrapper sets a custom error wrapper for write attempts.
func WithErrorWrapper(wrapper func(op, uri string, err error) error) ReadOnlyOption {
	return func(o *ReadOnlyOptions) {
		o.ErrorWrapper = wrapper
	}
}

// NewReadOnlyStorage creates a read-only wrapper around a Storage.
func NewReadOnlyStorage(storage Storage, opts ...ReadOnlyOption) *ReadOnlyStorage {
	options := ReadOnlyOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	return &ReadOnlyStorage{
		storage: storage,
		opts:    options,
	}
}

// Unwrap returns the underlying Storage.
func (r *ReadOnlyStorage) Unwrap() Storage {
	return r.storage
}

// IsReadOnly returns true, indicating this is a read-only storage.
func (r *ReadOnlyStorage) IsReadOnly() bool {
	return true
}

// readOnlyError creates an appropriate error for write operations.
func (r *ReadOnlyStorage) readOnlyError(op, uri string) error {
	if r.opts.OnWriteAttempt != nil {
		if err := r.opts.OnWriteAttempt(op, uri); err != nil {
			if r.opts.ErrorWrapper != nil {
				return r.opts.ErrorWrapper(op, uri, err)
			}
			return NewURIError(op, uri, err)
		}
		// Handler returned nil, allow the operation
		return nil
	}

	if r.opts.ErrorWrapper != nil {
		return r.opts.ErrorWrapper(op, uri, ErrReadOnly)
	}
	return NewURIError(op, uri, ErrReadOnly)
}

// Exists delegates to the underlying storage.
func (r *ReadOnlyStorage) Exists(ctx context.Context, uri string) (bool, error) {
	return r.storage.Exists(ctx, uri)
}

// Stat delegates to the underlying storage.
func (r *ReadOnlyStorage) Stat(ctx context.Context, uri string) (*Metadata, error) {
	return r.storage.Stat(ctx, uri)
}

// ResolveContent delegates to the underlying storage.
func (r *ReadOnlyStorage) ResolveContent(ctx context.Context, uri string, opts *ReadOptions) (*Content, error) {
	return r.storage.ResolveContent(ctx, uri, opts)
}

// Create returns ErrReadOnly unless AllowCreate is enabled.
func (r *ReadOnlyStorage) Create(ctx context.Context, uri string) (*Metadata, error) {
	if !r.opts.AllowCreate {
		if err := r.readOnlyError("create", uri); err != nil {
			return nil, err
		}
	}
	return r.storage.Create(ctx, uri)
}

// SetContent returns ErrReadOnly.
func (r *ReadOnlyStorage) SetContent(ctx context.Context, md *Metadata, content string, opts *WriteOptions) error {
	if md == nil {
		return NewURIError("setcontent", "", ErrInvalidURI)
	}
	if err := r.readOnlyError("setcontent", md.URI); err != nil {
		return err
	}
	return r.storage.SetContent(ctx, md, content, opts)
}

var _ Storage = (*ReadOnlyStorage)(nil)

// IsReadOnlyError checks if an error is due to read-only restrictions.
func IsReadOnlyError(err error) bool {
	return errors.Is(err, ErrReadOnly)
}
