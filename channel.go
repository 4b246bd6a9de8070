package contentkit

import (
	"context"
	"net/url"
)

// Handle identifies one remote backend instance across the call boundary.
// Handles are chosen by the remote side at registration time.
type Handle int

// Channel carries calls to remote backends. Each call is addressed to the
// backend identified by handle. Errors returned by a Channel are surfaced to
// callers unmodified.
type Channel interface {
	// Read asks the remote backend for the content at uri.
	Read(ctx context.Context, handle Handle, uri *url.URL, opts *ReadOptions) (string, error)

	// Write asks the remote backend to store content at uri.
	Write(ctx context.Context, handle Handle, uri *url.URL, content string, opts *WriteOptions) error
}
