package azure

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/gobeaver/contentkit"
)

// encodingMetadataKey records the content encoding. Azure metadata names
// must be valid C# identifiers.
const encodingMetadataKey = "contentkitencoding"

// Adapter provides an Azure Blob Storage implementation of contentkit.Storage
type Adapter struct {
	client        *azblob.Client
	containerName string
	prefix        string
}

// AdapterOption is a function that configures Azure Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for Azure blobs
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		// Ensure prefix ends with a slash if it's not empty
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		a.prefix = prefix
	}
}

// New creates a new Azure Blob Storage adapter
func New(client *azblob.Client, containerName string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client:        client,
		containerName: containerName,
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

func (a *Adapter) blobClient(name string) *blob.Client {
	return a.client.ServiceClient().NewContainerClient(a.containerName).NewBlobClient(name)
}

// Exists implements contentkit.Storage
func (a *Adapter) Exists(ctx context.Context, uri string) (bool, error) {
	name, err := contentkit.ObjectKey("exists", uri, a.prefix)
	if err != nil {
		return false, err
	}

	_, err = a.blobClient(name).GetProperties(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound) {
			return false, nil
		}
		return false, mapAzureError("exists", uri, err)
	}
	return true, nil
}

// Stat implements contentkit.Storage
func (a *Adapter) Stat(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	name, err := contentkit.ObjectKey("stat", uri, a.prefix)
	if err != nil {
		return nil, err
	}

	props, err := a.blobClient(name).GetProperties(ctx, nil)
	if err != nil {
		return nil, mapAzureError("stat", uri, err)
	}

	return &contentkit.Metadata{
		URI:              uri,
		Size:             deref(props.ContentLength),
		LastModification: deref(props.LastModified),
		ETag:             string(deref(props.ETag)),
		Encoding:         metadataValue(props.Metadata, encodingMetadataKey),
	}, nil
}

// Create implements contentkit.Storage. The empty blob is uploaded with
// If-None-Match: * so a blob created concurrently is not clobbered.
func (a *Adapter) Create(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	name, err := contentkit.ObjectKey("create", uri, a.prefix)
	if err != nil {
		return nil, err
	}

	_, err = a.client.UploadBuffer(ctx, a.containerName, name, []byte{}, &azblob.UploadBufferOptions{
		AccessConditions: &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfNoneMatch: ptr(azcore.ETagAny),
			},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, contentkit.NewURIError("create", uri, contentkit.ErrExist)
		}
		return nil, mapAzureError("create", uri, err)
	}

	return a.Stat(ctx, uri)
}

// SetContent implements contentkit.Storage. The upload is conditional on the
// blob still carrying md.ETag.
func (a *Adapter) SetContent(ctx context.Context, md *contentkit.Metadata, content string, opts *contentkit.WriteOptions) error {
	if md == nil {
		return contentkit.NewURIError("setcontent", "", contentkit.ErrInvalidURI)
	}
	name, err := contentkit.ObjectKey("setcontent", md.URI, a.prefix)
	if err != nil {
		return err
	}

	enc := contentkit.WriteEncodingFor(md.Encoding, opts)
	data, err := contentkit.EncodeContent(content, enc)
	if err != nil {
		return contentkit.NewURIError("setcontent", md.URI, err)
	}

	uploadOpts := &azblob.UploadBufferOptions{
		Metadata: map[string]*string{encodingMetadataKey: &enc},
	}
	if md.ETag != "" {
		uploadOpts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{
				IfMatch: ptr(azcore.ETag(md.ETag)),
			},
		}
	}

	if _, err := a.client.UploadBuffer(ctx, a.containerName, name, data, uploadOpts); err != nil {
		if isConditionFailed(err) {
			return contentkit.NewURIError("setcontent", md.URI, contentkit.ErrModified)
		}
		return mapAzureError("setcontent", md.URI, err)
	}
	return nil
}

// ResolveContent implements contentkit.Storage
func (a *Adapter) ResolveContent(ctx context.Context, uri string, opts *contentkit.ReadOptions) (*contentkit.Content, error) {
	name, err := contentkit.ObjectKey("resolve", uri, a.prefix)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, a.containerName, name, nil)
	if err != nil {
		return nil, mapAzureError("resolve", uri, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, contentkit.NewURIError("resolve", uri, err)
	}

	enc := opts.ReadEncoding()
	if enc == "" {
		enc = metadataValue(resp.Metadata, encodingMetadataKey)
	}
	value, err := contentkit.DecodeContent(data, enc)
	if err != nil {
		return nil, contentkit.NewURIError("resolve", uri, err)
	}

	return &contentkit.Content{
		Metadata: contentkit.Metadata{
			URI:              uri,
			Size:             int64(len(data)),
			LastModification: deref(resp.LastModified),
			ETag:             string(deref(resp.ETag)),
			Encoding:         contentkit.NormalizeEncoding(enc),
		},
		Value: value,
	}, nil
}

func ptr[T any](v T) *T {
	return &v
}

func deref[T any](v *T) T {
	var zero T
	if v == nil {
		return zero
	}
	return *v
}

// metadataValue looks key up ignoring case; the service may return
// metadata names with different casing than they were written with.
func metadataValue(metadata map[string]*string, key string) string {
	for k, v := range metadata {
		if strings.EqualFold(k, key) && v != nil {
			return *v
		}
	}
	return ""
}

func isConditionFailed(err error) bool {
	if bloberror.HasCode(err, bloberror.ConditionNotMet, bloberror.BlobAlreadyExists) {
		return true
	}
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == http.StatusPreconditionFailed
}

// mapAzureError maps Azure errors to contentkit errors
func mapAzureError(op, uri string, err error) error {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
		return contentkit.NewURIError(op, uri, contentkit.ErrNotExist)
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusNotFound:
			return contentkit.NewURIError(op, uri, contentkit.ErrNotExist)
		case http.StatusForbidden:
			return contentkit.NewURIError(op, uri, contentkit.ErrNotAllowed)
		}
	}

	return contentkit.NewURIError(op, uri, err)
}

var _ contentkit.Storage = (*Adapter)(nil)
