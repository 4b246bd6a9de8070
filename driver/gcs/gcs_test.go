package gcs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"cloud.google.com/go/storage"
	"github.com/gobeaver/contentkit"
	"github.com/stretchr/testify/assert"
	"google.golang.org/api/googleapi"
)

func TestMapGCSError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "object not found", err: storage.ErrObjectNotExist, want: contentkit.ErrNotExist},
		{name: "bucket not found", err: storage.ErrBucketNotExist, want: contentkit.ErrNotExist},
		{name: "wrapped not found", err: fmt.Errorf("attrs: %w", storage.ErrObjectNotExist), want: contentkit.ErrNotExist},
		{name: "forbidden", err: &googleapi.Error{Code: http.StatusForbidden}, want: contentkit.ErrNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapGCSError("stat", "file:///a.txt", tt.err)
			assert.True(t, errors.Is(err, tt.want))
		})
	}

	other := errors.New("deadline exceeded")
	assert.True(t, errors.Is(mapGCSError("resolve", "file:///a.txt", other), other))
}

func TestIsPreconditionFailed(t *testing.T) {
	assert.True(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusPreconditionFailed}))
	assert.True(t, isPreconditionFailed(fmt.Errorf("close: %w", &googleapi.Error{Code: http.StatusPreconditionFailed})))
	assert.False(t, isPreconditionFailed(&googleapi.Error{Code: http.StatusNotFound}))
	assert.False(t, isPreconditionFailed(errors.New("boom")))
}

func TestMetadataFromAttrs(t *testing.T) {
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	md := metadataFromAttrs("file:///a.txt", &storage.ObjectAttrs{
		Size:       42,
		Updated:    updated,
		Generation: 1714564800123456,
		Metadata:   map[string]string{encodingMetadataKey: "latin1"},
	})

	assert.Equal(t, &contentkit.Metadata{
		URI:              "file:///a.txt",
		Size:             42,
		LastModification: updated,
		ETag:             "1714564800123456",
		Encoding:         "latin1",
	}, md)

	assert.Equal(t, &contentkit.Metadata{URI: "file:///b.txt"}, metadataFromAttrs("file:///b.txt", nil))
}

func TestWithPrefix(t *testing.T) {
	a := New(nil, "bucket", WithPrefix("tenant"))
	assert.Equal(t, "tenant/", a.prefix)
}
