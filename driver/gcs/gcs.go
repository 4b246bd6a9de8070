package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/gobeaver/contentkit"
	"google.golang.org/api/googleapi"
)

// encodingMetadataKey is the custom object metadata key recording the content encoding.
const encodingMetadataKey = "contentkit-encoding"

// Adapter provides a Google Cloud Storage implementation of contentkit.Storage.
// Object generations serve as ETags, so writes are conditional on the
// generation the caller last observed.
type Adapter struct {
	client *storage.Client
	bucket string
	prefix string
}

// AdapterOption is a function that configures GCS Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for GCS objects
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		// Ensure prefix ends with a slash if it's not empty
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		a.prefix = prefix
	}
}

// New creates a new GCS storage adapter
func New(client *storage.Client, bucket string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
		bucket: bucket,
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

func (a *Adapter) object(key string) *storage.ObjectHandle {
	return a.client.Bucket(a.bucket).Object(key)
}

// Exists implements contentkit.Storage
func (a *Adapter) Exists(ctx context.Context, uri string) (bool, error) {
	key, err := contentkit.ObjectKey("exists", uri, a.prefix)
	if err != nil {
		return false, err
	}

	if _, err := a.object(key).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return false, nil
		}
		return false, mapGCSError("exists", uri, err)
	}
	return true, nil
}

// Stat implements contentkit.Storage
func (a *Adapter) Stat(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	key, err := contentkit.ObjectKey("stat", uri, a.prefix)
	if err != nil {
		return nil, err
	}

	attrs, err := a.object(key).Attrs(ctx)
	if err != nil {
		return nil, mapGCSError("stat", uri, err)
	}
	return metadataFromAttrs(uri, attrs), nil
}

// Create implements contentkit.Storage
func (a *Adapter) Create(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	key, err := contentkit.ObjectKey("create", uri, a.prefix)
	if err != nil {
		return nil, err
	}

	w := a.object(key).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return nil, contentkit.NewURIError("create", uri, contentkit.ErrExist)
		}
		return nil, mapGCSError("create", uri, err)
	}

	return metadataFromAttrs(uri, w.Attrs()), nil
}

// SetContent implements contentkit.Storage
func (a *Adapter) SetContent(ctx context.Context, md *contentkit.Metadata, content string, opts *contentkit.WriteOptions) error {
	if md == nil {
		return contentkit.NewURIError("setcontent", "", contentkit.ErrInvalidURI)
	}
	key, err := contentkit.ObjectKey("setcontent", md.URI, a.prefix)
	if err != nil {
		return err
	}

	enc := contentkit.WriteEncodingFor(md.Encoding, opts)
	data, err := contentkit.EncodeContent(content, enc)
	if err != nil {
		return contentkit.NewURIError("setcontent", md.URI, err)
	}

	obj := a.object(key)
	if md.ETag != "" {
		generation, err := strconv.ParseInt(md.ETag, 10, 64)
		if err != nil {
			return contentkit.NewURIError("setcontent", md.URI, contentkit.ErrModified)
		}
		obj = obj.If(storage.Conditions{GenerationMatch: generation})
	}

	w := obj.NewWriter(ctx)
	w.Metadata = map[string]string{encodingMetadataKey: enc}

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return mapGCSError("setcontent", md.URI, err)
	}
	if err := w.Close(); err != nil {
		if isPreconditionFailed(err) {
			return contentkit.NewURIError("setcontent", md.URI, contentkit.ErrModified)
		}
		return mapGCSError("setcontent", md.URI, err)
	}
	return nil
}

// ResolveContent implements contentkit.Storage. The content is read from the
// generation whose attributes were fetched, so metadata and value agree.
func (a *Adapter) ResolveContent(ctx context.Context, uri string, opts *contentkit.ReadOptions) (*contentkit.Content, error) {
	key, err := contentkit.ObjectKey("resolve", uri, a.prefix)
	if err != nil {
		return nil, err
	}

	obj := a.object(key)
	attrs, err := obj.Attrs(ctx)
	if err != nil {
		return nil, mapGCSError("resolve", uri, err)
	}

	r, err := obj.Generation(attrs.Generation).NewReader(ctx)
	if err != nil {
		return nil, mapGCSError("resolve", uri, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, contentkit.NewURIError("resolve", uri, err)
	}

	enc := opts.ReadEncoding()
	if enc == "" {
		enc = attrs.Metadata[encodingMetadataKey]
	}
	value, err := contentkit.DecodeContent(data, enc)
	if err != nil {
		return nil, contentkit.NewURIError("resolve", uri, err)
	}

	md := metadataFromAttrs(uri, attrs)
	md.Size = int64(len(data))
	md.Encoding = contentkit.NormalizeEncoding(enc)
	return &contentkit.Content{Metadata: *md, Value: value}, nil
}

func metadataFromAttrs(uri string, attrs *storage.ObjectAttrs) *contentkit.Metadata {
	if attrs == nil {
		return &contentkit.Metadata{URI: uri}
	}
	return &contentkit.Metadata{
		URI:              uri,
		Size:             attrs.Size,
		LastModification: attrs.Updated,
		ETag:             strconv.FormatInt(attrs.Generation, 10),
		Encoding:         attrs.Metadata[encodingMetadataKey],
	}
}

func isPreconditionFailed(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusPreconditionFailed
}

// mapGCSError maps GCS errors to contentkit errors
func mapGCSError(op, uri string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return contentkit.NewURIError(op, uri, contentkit.ErrNotExist)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusForbidden {
		return contentkit.NewURIError(op, uri, contentkit.ErrNotAllowed)
	}

	return contentkit.NewURIError(op, uri, err)
}

var _ contentkit.Storage = (*Adapter)(nil)
