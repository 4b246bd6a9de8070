package contentkit

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestETag(t *testing.T) {
	now := time.Unix(1700000000, 0)

	a := ETag([]byte("hello"), now)
	assert.Equal(t, a, ETag([]byte("hello"), now))
	assert.NotEqual(t, a, ETag([]byte("hellp"), now))
	assert.NotEqual(t, a, ETag([]byte("hello"), now.Add(time.Second)))
}

func TestCheckETag(t *testing.T) {
	assert.NoError(t, CheckETag(nil, "x"))
	assert.NoError(t, CheckETag(&Metadata{}, "x"))
	assert.NoError(t, CheckETag(&Metadata{ETag: "x"}, "x"))

	err := CheckETag(&Metadata{URI: "file:///a", ETag: "x"}, "y")
	assert.True(t, errors.Is(err, ErrModified))
}
