package contentkit

import (
	"context"
	"net/url"
)

// ============================================================================
// Core Interfaces
// ============================================================================

// Resource is content addressed by a single URI.
// Every resource can be read; writing is an optional capability.
type Resource interface {
	// URI returns the URI this resource is bound to.
	URI() *url.URL

	// ReadContents returns the full content of the resource.
	ReadContents(ctx context.Context, opts *ReadOptions) (string, error)
}

// ============================================================================
// Optional Capability Interfaces
// ============================================================================
// Use a type assertion to check if a resource supports a capability:
//
//	if saver, ok := res.(CanSave); ok {
//	    saver.SaveContents(ctx, "content", nil)
//	}

// CanSave indicates the resource accepts writes.
type CanSave interface {
	// SaveContents replaces the content of the resource.
	SaveContents(ctx context.Context, content string, opts *WriteOptions) error
}

// Ensure both variants implement Resource and CanSave
var (
	_ Resource = (*LocalResource)(nil)
	_ CanSave  = (*LocalResource)(nil)
	_ Resource = (*RemoteResource)(nil)
	_ CanSave  = (*RemoteResource)(nil)
)
