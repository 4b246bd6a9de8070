package contentkit

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLocalResourceSaveNew(t *testing.T) {
	ctx := context.Background()
	storage := &mockStorage{}
	res := NewLocalResource(mustParse("file:///docs/new.txt"), storage)
	md := &Metadata{URI: "file:///docs/new.txt"}

	storage.On("Exists", ctx, "file:///docs/new.txt").Return(false, nil).Once()
	storage.On("Create", ctx, "file:///docs/new.txt").Return(md, nil).Once()
	storage.On("SetContent", ctx, md, "hello", (*WriteOptions)(nil)).Return(nil).Once()

	require.NoError(t, res.SaveContents(ctx, "hello", nil))

	storage.AssertExpectations(t)
	storage.AssertNotCalled(t, "Stat", mock.Anything, mock.Anything)
}

func TestLocalResourceSaveExisting(t *testing.T) {
	ctx := context.Background()
	storage := &mockStorage{}
	res := NewLocalResource(mustParse("file:///docs/old.txt"), storage)
	md := &Metadata{URI: "file:///docs/old.txt", Size: 3, ETag: "abc"}
	opts := &WriteOptions{Encoding: "latin1"}

	storage.On("Exists", ctx, "file:///docs/old.txt").Return(true, nil).Once()
	storage.On("Stat", ctx, "file:///docs/old.txt").Return(md, nil).Once()
	storage.On("SetContent", ctx, md, "world", opts).Return(nil).Once()

	require.NoError(t, res.SaveContents(ctx, "world", opts))

	storage.AssertExpectations(t)
	storage.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLocalResourceErrorsPassThrough(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk on fire")

	tests := []struct {
		name  string
		setup func(s *mockStorage)
	}{
		{
			name: "exists fails",
			setup: func(s *mockStorage) {
				s.On("Exists", ctx, mock.Anything).Return(false, boom)
			},
		},
		{
			name: "create fails",
			setup: func(s *mockStorage) {
				s.On("Exists", ctx, mock.Anything).Return(false, nil)
				s.On("Create", ctx, mock.Anything).Return(nil, boom)
			},
		},
		{
			name: "set content fails",
			setup: func(s *mockStorage) {
				s.On("Exists", ctx, mock.Anything).Return(true, nil)
				s.On("Stat", ctx, mock.Anything).Return(&Metadata{}, nil)
				s.On("SetContent", ctx, mock.Anything, mock.Anything, mock.Anything).Return(boom)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			storage := &mockStorage{}
			tt.setup(storage)

			err := NewLocalResource(mustParse("file:///x"), storage).SaveContents(ctx, "data", nil)
			assert.Same(t, boom, err)
		})
	}
}

func TestLocalResourceRead(t *testing.T) {
	ctx := context.Background()
	storage := &mockStorage{}
	opts := &ReadOptions{Encoding: "utf8"}

	storage.On("ResolveContent", ctx, "file:///docs/a.txt", opts).
		Return(&Content{Metadata: Metadata{URI: "file:///docs/a.txt"}, Value: "body"}, nil)

	content, err := NewLocalResource(mustParse("file:///docs/a.txt"), storage).ReadContents(ctx, opts)
	require.NoError(t, err)
	assert.Equal(t, "body", content)

	storage.On("ResolveContent", ctx, "file:///missing", (*ReadOptions)(nil)).
		Return(nil, NewURIError("resolve", "file:///missing", ErrNotExist))

	_, err = NewLocalResource(mustParse("file:///missing"), storage).ReadContents(ctx, nil)
	assert.True(t, IsNotExist(err))
}
