package memory

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/gobeaver/contentkit"
)

// memoryEntry represents an entry stored in memory
type memoryEntry struct {
	content  []byte
	encoding string
	modTime  time.Time
	etag     string
}

func (e *memoryEntry) metadata(uri string) *contentkit.Metadata {
	return &contentkit.Metadata{
		URI:              uri,
		Size:             int64(len(e.content)),
		LastModification: e.modTime,
		ETag:             e.etag,
		Encoding:         e.encoding,
	}
}

// Adapter provides an in-memory implementation of contentkit.Storage
// Useful for testing and caching scenarios
type Adapter struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	maxSize int64 // Maximum total storage size (0 = unlimited)
	size    int64 // Current total size

	now func() time.Time
}

// Config holds configuration for the memory adapter
type Config struct {
	// MaxSize is the maximum total storage size in bytes (0 = unlimited)
	MaxSize int64
}

// New creates a new in-memory storage adapter
func New(cfg ...Config) *Adapter {
	var maxSize int64
	if len(cfg) > 0 {
		maxSize = cfg[0].MaxSize
	}

	return &Adapter{
		entries: make(map[string]*memoryEntry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Exists implements contentkit.Storage
func (a *Adapter) Exists(ctx context.Context, uri string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	key, err := normalizeURI("exists", uri)
	if err != nil {
		return false, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	_, exists := a.entries[key]
	return exists, nil
}

// Stat implements contentkit.Storage
func (a *Adapter) Stat(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := normalizeURI("stat", uri)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, exists := a.entries[key]
	if !exists {
		return nil, contentkit.NewURIError("stat", key, contentkit.ErrNotExist)
	}
	return entry.metadata(key), nil
}

// Create implements contentkit.Storage
func (a *Adapter) Create(ctx context.Context, uri string) (*contentkit.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := normalizeURI("create", uri)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.entries[key]; exists {
		return nil, contentkit.NewURIError("create", key, contentkit.ErrExist)
	}

	modTime := a.now()
	entry := &memoryEntry{
		content: []byte{},
		modTime: modTime,
		etag:    contentkit.ETag(nil, modTime),
	}
	a.entries[key] = entry

	return entry.metadata(key), nil
}

// SetContent implements contentkit.Storage
func (a *Adapter) SetContent(ctx context.Context, md *contentkit.Metadata, content string, opts *contentkit.WriteOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if md == nil {
		return contentkit.NewURIError("setcontent", "", contentkit.ErrInvalidURI)
	}

	key, err := normalizeURI("setcontent", md.URI)
	if err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	existing, exists := a.entries[key]
	if !exists {
		return contentkit.NewURIError("setcontent", key, contentkit.ErrNotExist)
	}
	if err := contentkit.CheckETag(md, existing.etag); err != nil {
		return err
	}

	enc := contentkit.WriteEncodingFor(existing.encoding, opts)
	data, err := contentkit.EncodeContent(content, enc)
	if err != nil {
		return contentkit.NewURIError("setcontent", key, err)
	}

	// Check max size limit
	newSize := a.size - int64(len(existing.content)) + int64(len(data))
	if a.maxSize > 0 && newSize > a.maxSize {
		return contentkit.NewURIError("setcontent", key, contentkit.ErrInvalidSize)
	}

	modTime := a.now()
	a.entries[key] = &memoryEntry{
		content:  data,
		encoding: enc,
		modTime:  modTime,
		etag:     contentkit.ETag(data, modTime),
	}
	a.size = newSize

	return nil
}

// ResolveContent implements contentkit.Storage
func (a *Adapter) ResolveContent(ctx context.Context, uri string, opts *contentkit.ReadOptions) (*contentkit.Content, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := normalizeURI("resolve", uri)
	if err != nil {
		return nil, err
	}

	a.mu.RLock()
	entry, exists := a.entries[key]
	a.mu.RUnlock()

	if !exists {
		return nil, contentkit.NewURIError("resolve", key, contentkit.ErrNotExist)
	}

	enc := opts.ReadEncoding()
	if enc == "" {
		enc = entry.encoding
	}
	value, err := contentkit.DecodeContent(entry.content, enc)
	if err != nil {
		return nil, contentkit.NewURIError("resolve", key, err)
	}

	md := entry.metadata(key)
	md.Encoding = contentkit.NormalizeEncoding(enc)
	return &contentkit.Content{Metadata: *md, Value: value}, nil
}

// Clear removes all entries
func (a *Adapter) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = make(map[string]*memoryEntry)
	a.size = 0
}

// Size returns the current total size of stored content
func (a *Adapter) Size() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.size
}

// EntryCount returns the number of stored entries
func (a *Adapter) EntryCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// normalizeURI returns the canonical form of uri used as the entry key.
func normalizeURI(op, uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return "", contentkit.NewURIError(op, uri, contentkit.ErrInvalidURI)
	}
	return contentkit.CanonicalString(u), nil
}

var _ contentkit.Storage = (*Adapter)(nil)
