package contentkit

import (
	"context"
	"net/url"
)

// RemoteResource is a resource served by a remote backend. Every operation is
// a call over the backend's Channel addressed to its Handle.
type RemoteResource struct {
	uri     *url.URL
	handle  Handle
	channel Channel
}

// URI implements Resource.
func (r *RemoteResource) URI() *url.URL {
	return r.uri
}

// Handle returns the handle of the owning backend.
func (r *RemoteResource) Handle() Handle {
	return r.handle
}

// ReadContents implements Resource.
func (r *RemoteResource) ReadContents(ctx context.Context, opts *ReadOptions) (string, error) {
	return r.channel.Read(ctx, r.handle, r.uri, opts)
}

// SaveContents implements CanSave. Remote backends are assumed writable; a
// backend without a writer reports that through the call's error.
func (r *RemoteResource) SaveContents(ctx context.Context, content string, opts *WriteOptions) error {
	return r.channel.Write(ctx, r.handle, r.uri, content, opts)
}
