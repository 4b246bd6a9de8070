package contentkit

import (
	"context"
	"net/url"
)

// LocalResource is a resource served by the local Storage.
type LocalResource struct {
	uri     *url.URL
	storage Storage
}

// NewLocalResource binds uri to storage.
func NewLocalResource(uri *url.URL, storage Storage) *LocalResource {
	return &LocalResource{uri: uri, storage: storage}
}

// URI implements Resource.
func (r *LocalResource) URI() *url.URL {
	return r.uri
}

// ReadContents implements Resource.
func (r *LocalResource) ReadContents(ctx context.Context, opts *ReadOptions) (string, error) {
	content, err := r.storage.ResolveContent(ctx, CanonicalString(r.uri), opts)
	if err != nil {
		return "", err
	}
	return content.Value, nil
}

// SaveContents implements CanSave.
//
// The entry is looked up, then stat'ed or created, then written. The steps are
// not atomic: a deletion between the lookup and the write is not guarded against.
func (r *LocalResource) SaveContents(ctx context.Context, content string, opts *WriteOptions) error {
	uri := CanonicalString(r.uri)

	exists, err := r.storage.Exists(ctx, uri)
	if err != nil {
		return err
	}

	var md *Metadata
	if exists {
		md, err = r.storage.Stat(ctx, uri)
	} else {
		md, err = r.storage.Create(ctx, uri)
	}
	if err != nil {
		return err
	}

	return r.storage.SetContent(ctx, md, content, opts)
}
