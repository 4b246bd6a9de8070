package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gobeaver/contentkit"
)

// encodingMetadataKey is the object metadata key recording the content encoding.
const encodingMetadataKey = "contentkit-encoding"

// Client is the subset of the S3 API used by the adapter. *s3.Client satisfies it.
type Client interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Adapter provides an S3 implementation of contentkit.Storage.
// The path of a file: URI becomes the object key below the configured prefix.
type Adapter struct {
	client Client
	bucket string
	prefix string
}

// AdapterOption is a function that configures Adapter
type AdapterOption func(*Adapter)

// WithPrefix sets the prefix for S3 objects
func WithPrefix(prefix string) AdapterOption {
	return func(a *Adapter) {
		// Ensure prefix ends with a slash if it's not empty
		if prefix != "" && !strings.HasSuffix(prefix, "/") {
			prefix += "/"
		}
		a.prefix = prefix
	}
}

// New creates a new S3 storage adapter
func New(client Client, bucket string, options ...AdapterOption) *Adapter {
	adapter := &Adapter{
		client: client,
		bucket: bucket,
	}

	for _, option := range options {
		option(adapter)
	}

	return adapter
}

// Exists implements contentkit.Storage
func (a *Adapter) Exists(ctx context.Context, uri string) (bool, error) {
	key, err := a.key("exists", uri)
	if err != nil {
		return false, err
	}

	_, err = a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, mapS3Error("exists", uri, err)
	}
	return true, nil
}

// Stat implements contentkit.Storage
func (a *Adapter) Stat(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	key, err := a.key("stat", uri)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapS3Error("stat", uri, err)
	}

	return &contentkit.Metadata{
		URI:              uri,
		Size:             aws.ToInt64(resp.ContentLength),
		LastModification: aws.ToTime(resp.LastModified),
		ETag:             aws.ToString(resp.ETag),
		Encoding:         resp.Metadata[encodingMetadataKey],
	}, nil
}

// Create implements contentkit.Storage. The empty object is written with
// If-None-Match so an object created concurrently is not clobbered.
func (a *Adapter) Create(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	key, err := a.key("create", uri)
	if err != nil {
		return nil, err
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
		IfNoneMatch:   aws.String("*"),
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return nil, contentkit.NewURIError("create", uri, contentkit.ErrExist)
		}
		return nil, mapS3Error("create", uri, err)
	}

	return a.Stat(ctx, uri)
}

// SetContent implements contentkit.Storage. The write is conditional on the
// object still carrying md.ETag.
func (a *Adapter) SetContent(ctx context.Context, md *contentkit.Metadata, content string, opts *contentkit.WriteOptions) error {
	if md == nil {
		return contentkit.NewURIError("setcontent", "", contentkit.ErrInvalidURI)
	}
	key, err := a.key("setcontent", md.URI)
	if err != nil {
		return err
	}

	enc := contentkit.WriteEncodingFor(md.Encoding, opts)
	data, err := contentkit.EncodeContent(content, enc)
	if err != nil {
		return contentkit.NewURIError("setcontent", md.URI, err)
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		Metadata:      map[string]string{encodingMetadataKey: enc},
	}
	if md.ETag != "" {
		input.IfMatch = aws.String(md.ETag)
	}

	if _, err := a.client.PutObject(ctx, input); err != nil {
		if isPreconditionFailed(err) {
			return contentkit.NewURIError("setcontent", md.URI, contentkit.ErrModified)
		}
		return mapS3Error("setcontent", md.URI, err)
	}
	return nil
}

// ResolveContent implements contentkit.Storage
func (a *Adapter) ResolveContent(ctx context.Context, uri string, opts *contentkit.ReadOptions) (*contentkit.Content, error) {
	key, err := a.key("resolve", uri)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapS3Error("resolve", uri, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, contentkit.NewURIError("resolve", uri, err)
	}

	enc := opts.ReadEncoding()
	if enc == "" {
		enc = resp.Metadata[encodingMetadataKey]
	}
	value, err := contentkit.DecodeContent(data, enc)
	if err != nil {
		return nil, contentkit.NewURIError("resolve", uri, err)
	}

	return &contentkit.Content{
		Metadata: contentkit.Metadata{
			URI:              uri,
			Size:             int64(len(data)),
			LastModification: aws.ToTime(resp.LastModified),
			ETag:             aws.ToString(resp.ETag),
			Encoding:         contentkit.NormalizeEncoding(enc),
		},
		Value: value,
	}, nil
}

// key maps a file: URI to its object key.
func (a *Adapter) key(op, uri string) (string, error) {
	return contentkit.ObjectKey(op, uri, a.prefix)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var notFound *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &notFound)
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}

// mapS3Error maps S3 errors to contentkit errors
func mapS3Error(op, uri string, err error) error {
	if isNotFound(err) {
		return contentkit.NewURIError(op, uri, contentkit.ErrNotExist)
	}
	return contentkit.NewURIError(op, uri, err)
}

var _ contentkit.Storage = (*Adapter)(nil)
