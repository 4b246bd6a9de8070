package contentkit

import (
	"context"
	"time"
)

// Metadata describes one entry of a Storage.
type Metadata struct {
	URI              string
	Size             int64
	LastModification time.Time
	ETag             string
	Encoding         string
}

// Content is the resolved content of a storage entry.
type Content struct {
	Metadata
	Value string
}

// Storage is the local storage engine behind the reserved local scheme.
// Addresses are canonical URI strings (see CanonicalString).
type Storage interface {
	// Exists reports whether an entry exists at uri.
	Exists(ctx context.Context, uri string) (bool, error)

	// Stat returns the metadata of the entry at uri.
	Stat(ctx context.Context, uri string) (*Metadata, error)

	// Create creates an empty entry at uri and returns its metadata.
	Create(ctx context.Context, uri string) (*Metadata, error)

	// SetContent writes content to the entry described by md.
	// Implementations reject md when the entry changed since it was obtained.
	SetContent(ctx context.Context, md *Metadata, content string, opts *WriteOptions) error

	// ResolveContent reads the entry at uri.
	ResolveContent(ctx context.Context, uri string, opts *ReadOptions) (*Content, error)
}
