package rpc

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/gobeaver/contentkit"
)

// Provider serves calls on the remote side. Calls are addressed to the
// backend identified by handle.
type Provider interface {
	Read(ctx context.Context, handle contentkit.Handle, uri *url.URL, opts *contentkit.ReadOptions) (string, error)
	Write(ctx context.Context, handle contentkit.Handle, uri *url.URL, content string, opts *contentkit.WriteOptions) error
}

// Serve runs req against p and returns its response. Failures are reported
// in Response.Error, never as a Go error.
func Serve(ctx context.Context, p Provider, req *Request) *Response {
	resp := &Response{ID: req.ID}

	uri, err := contentkit.Revive(req.URI)
	if err != nil {
		resp.Error = NewCallError(err)
		return resp
	}

	switch req.Method {
	case MethodRead:
		resp.Content, err = p.Read(ctx, req.Handle, uri, req.ReadOptions)
	case MethodWrite:
		err = p.Write(ctx, req.Handle, uri, req.Content, req.WriteOptions)
	default:
		err = fmt.Errorf("%w: method %q", contentkit.ErrUnsupportedOperation, req.Method)
	}
	if err != nil {
		resp.Error = NewCallError(err)
	}
	return resp
}

// NewLoopback returns a Conn whose calls are served by p in-process. Each call
// runs on its own goroutine and completes through Deliver, as a response from
// a real transport would.
func NewLoopback(p Provider, opts ...ConnOption) *Conn {
	var c *Conn
	c = NewConn(func(ctx context.Context, req *Request) error {
		go func(req Request) {
			_ = c.Deliver(Serve(context.WithoutCancel(ctx), p, &req))
		}(*req)
		return nil
	}, opts...)
	return c
}

// StorageProvider serves every handle from one contentkit.Storage, reading
// and saving the way local resources do.
type StorageProvider struct {
	storage contentkit.Storage
}

// NewStorageProvider creates a Provider backed by storage.
func NewStorageProvider(storage contentkit.Storage) *StorageProvider {
	return &StorageProvider{storage: storage}
}

// Read implements Provider.
func (p *StorageProvider) Read(ctx context.Context, _ contentkit.Handle, uri *url.URL, opts *contentkit.ReadOptions) (string, error) {
	return contentkit.NewLocalResource(uri, p.storage).ReadContents(ctx, opts)
}

// Write implements Provider.
func (p *StorageProvider) Write(ctx context.Context, _ contentkit.Handle, uri *url.URL, content string, opts *contentkit.WriteOptions) error {
	return contentkit.NewLocalResource(uri, p.storage).SaveContents(ctx, content, opts)
}

// Mux routes calls to the Provider registered for their handle.
type Mux struct {
	mu        sync.RWMutex
	providers map[contentkit.Handle]Provider
}

// NewMux creates an empty Mux.
func NewMux() *Mux {
	return &Mux{providers: make(map[contentkit.Handle]Provider)}
}

// Handle registers p for handle, replacing any previous provider.
func (m *Mux) Handle(handle contentkit.Handle, p Provider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers[handle] = p
}

// Remove drops the provider registered for handle.
func (m *Mux) Remove(handle contentkit.Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.providers, handle)
}

func (m *Mux) lookup(handle contentkit.Handle) (Provider, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.providers[handle]
	if !ok {
		return nil, fmt.Errorf("%w: handle %d", contentkit.ErrProviderNotFound, handle)
	}
	return p, nil
}

// Read implements Provider.
func (m *Mux) Read(ctx context.Context, handle contentkit.Handle, uri *url.URL, opts *contentkit.ReadOptions) (string, error) {
	p, err := m.lookup(handle)
	if err != nil {
		return "", err
	}
	return p.Read(ctx, handle, uri, opts)
}

// Write implements Provider.
func (m *Mux) Write(ctx context.Context, handle contentkit.Handle, uri *url.URL, content string, opts *contentkit.WriteOptions) error {
	p, err := m.lookup(handle)
	if err != nil {
		return err
	}
	return p.Write(ctx, handle, uri, content, opts)
}

var (
	_ Provider = (*StorageProvider)(nil)
	_ Provider = (*Mux)(nil)
)
