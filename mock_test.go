package contentkit

import (
	"context"
	"net/url"

	"github.com/stretchr/testify/mock"
)

type mockStorage struct {
	mock.Mock
}

func (m *mockStorage) Exists(ctx context.Context, uri string) (bool, error) {
	args := m.Called(ctx, uri)
	return args.Bool(0), args.Error(1)
}

func (m *mockStorage) Stat(ctx context.Context, uri string) (*Metadata, error) {
	args := m.Called(ctx, uri)
	md, _ := args.Get(0).(*Metadata)
	return md, args.Error(1)
}

func (m *mockStorage) Create(ctx context.Context, uri string) (*Metadata, error) {
	args := m.Called(ctx, uri)
	md, _ := args.Get(0).(*Metadata)
	return md, args.Error(1)
}

func (m *mockStorage) SetContent(ctx context.Context, md *Metadata, content string, opts *WriteOptions) error {
	args := m.Called(ctx, md, content, opts)
	return args.Error(0)
}

func (m *mockStorage) ResolveContent(ctx context.Context, uri string, opts *ReadOptions) (*Content, error) {
	args := m.Called(ctx, uri, opts)
	c, _ := args.Get(0).(*Content)
	return c, args.Error(1)
}

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) Read(ctx context.Context, handle Handle, uri *url.URL, opts *ReadOptions) (string, error) {
	args := m.Called(ctx, handle, uri, opts)
	return args.String(0), args.Error(1)
}

func (m *mockChannel) Write(ctx context.Context, handle Handle, uri *url.URL, content string, opts *WriteOptions) error {
	args := m.Called(ctx, handle, uri, content, opts)
	return args.Error(0)
}

func mustParse(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(err)
	}
	return u
}
