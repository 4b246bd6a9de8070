package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/gobeaver/contentkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.HeadObjectOutput)
	return out, args.Error(1)
}

func (m *mockClient) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockClient) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, params)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func keyIs(key string) interface{} {
	return mock.MatchedBy(func(in interface{}) bool {
		switch v := in.(type) {
		case *s3.HeadObjectInput:
			return aws.ToString(v.Key) == key
		case *s3.GetObjectInput:
			return aws.ToString(v.Key) == key
		case *s3.PutObjectInput:
			return aws.ToString(v.Key) == key
		}
		return false
	})
}

func TestWithPrefix(t *testing.T) {
	a := New(&mockClient{}, "bucket", WithPrefix("tenant"))
	assert.Equal(t, "tenant/", a.prefix)

	key, err := a.key("stat", "file:///docs/a.txt")
	require.NoError(t, err)
	assert.Equal(t, "tenant/docs/a.txt", key)

	_, err = a.key("stat", "mem://docs/a.txt")
	assert.True(t, errors.Is(err, contentkit.ErrNotAllowed))

	_, err = a.key("stat", "file:///")
	assert.True(t, errors.Is(err, contentkit.ErrInvalidURI))
}

func TestExists(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	a := New(client, "bucket")

	client.On("HeadObject", ctx, keyIs("there.txt")).Return(&s3.HeadObjectOutput{}, nil)
	client.On("HeadObject", ctx, keyIs("missing.txt")).Return(nil, &types.NotFound{})
	client.On("HeadObject", ctx, keyIs("broken.txt")).Return(nil, errors.New("throttled"))

	ok, err := a.Exists(ctx, "file:///there.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = a.Exists(ctx, "file:///missing.txt")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = a.Exists(ctx, "file:///broken.txt")
	require.Error(t, err)
	assert.False(t, contentkit.IsNotExist(err))
}

func TestStat(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	a := New(client, "bucket")
	modified := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	client.On("HeadObject", ctx, keyIs("a.txt")).Return(&s3.HeadObjectOutput{
		ContentLength: aws.Int64(12),
		LastModified:  aws.Time(modified),
		ETag:          aws.String(`"abc"`),
		Metadata:      map[string]string{encodingMetadataKey: "latin1"},
	}, nil)
	client.On("HeadObject", ctx, keyIs("gone.txt")).Return(nil, &types.NoSuchKey{})

	md, err := a.Stat(ctx, "file:///a.txt")
	require.NoError(t, err)
	assert.Equal(t, &contentkit.Metadata{
		URI:              "file:///a.txt",
		Size:             12,
		LastModification: modified,
		ETag:             `"abc"`,
		Encoding:         "latin1",
	}, md)

	_, err = a.Stat(ctx, "file:///gone.txt")
	assert.True(t, contentkit.IsNotExist(err))
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	a := New(client, "bucket")

	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "new.txt" && aws.ToString(in.IfNoneMatch) == "*"
	})).Return(&s3.PutObjectOutput{}, nil)
	client.On("HeadObject", ctx, keyIs("new.txt")).Return(&s3.HeadObjectOutput{
		ContentLength: aws.Int64(0),
		ETag:          aws.String(`"empty"`),
	}, nil)
	client.On("PutObject", ctx, keyIs("old.txt")).
		Return(nil, &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"})

	md, err := a.Create(ctx, "file:///new.txt")
	require.NoError(t, err)
	assert.Equal(t, `"empty"`, md.ETag)

	_, err = a.Create(ctx, "file:///old.txt")
	assert.True(t, contentkit.IsExist(err))
}

func TestSetContent(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	a := New(client, "bucket")

	var stored []byte
	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Key) == "a.txt" && aws.ToString(in.IfMatch) == `"v1"`
	})).Run(func(args mock.Arguments) {
		in := args.Get(1).(*s3.PutObjectInput)
		stored, _ = io.ReadAll(in.Body)
		assert.Equal(t, "latin1", in.Metadata[encodingMetadataKey])
	}).Return(&s3.PutObjectOutput{}, nil)
	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.IfMatch) == `"stale"`
	})).Return(nil, &smithy.GenericAPIError{Code: "PreconditionFailed"})

	md := &contentkit.Metadata{URI: "file:///a.txt", ETag: `"v1"`, Encoding: "latin1"}
	require.NoError(t, a.SetContent(ctx, md, "café", nil))
	assert.Equal(t, []byte{'c', 'a', 'f', 0xe9}, stored)

	stale := &contentkit.Metadata{URI: "file:///a.txt", ETag: `"stale"`}
	err := a.SetContent(ctx, stale, "x", nil)
	assert.True(t, errors.Is(err, contentkit.ErrModified))
}

func TestResolveContent(t *testing.T) {
	ctx := context.Background()
	client := &mockClient{}
	a := New(client, "bucket", WithPrefix("p/"))

	client.On("GetObject", ctx, keyIs("p/a.txt")).Return(&s3.GetObjectOutput{
		Body:     io.NopCloser(strings.NewReader("hello")),
		ETag:     aws.String(`"e"`),
		Metadata: map[string]string{encodingMetadataKey: "utf8"},
	}, nil)
	client.On("GetObject", ctx, keyIs("p/none.txt")).Return(nil, &types.NoSuchKey{})

	c, err := a.ResolveContent(ctx, "file:///a.txt", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Value)
	assert.Equal(t, int64(5), c.Size)
	assert.Equal(t, `"e"`, c.ETag)

	_, err = a.ResolveContent(ctx, "file:///none.txt", nil)
	assert.True(t, contentkit.IsNotExist(err))
}
