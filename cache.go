package contentkit

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// ============================================================================
// Cache Interface
// ============================================================================

// Cache is a key-value store with optional expiration.
type Cache interface {
	// Get retrieves a value. The second result is false on a miss or
	// when the entry expired.
	Get(key string) (any, bool)

	// Set stores a value. A ttl of zero means no expiration.
	Set(key string, value any, ttl time.Duration)

	// Delete removes a value.
	Delete(key string)

	// Clear removes all values.
	Clear()
}

type cacheEntry struct {
	value      any
	expiration time.Time
	hasExpiry  bool
}

func (e *cacheEntry) expired(now time.Time) bool {
	return e.hasExpiry && now.After(e.expiration)
}

// MemoryCache is an in-memory Cache safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*cacheEntry),
	}
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		c.misses.Inc()
		return nil, false
	}

	if entry.expired(time.Now()) {
		c.mu.Lock()
		// the entry may have been replaced since the read lock was released
		if current, ok := c.entries[key]; ok && current == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		c.misses.Inc()
		return nil, false
	}

	c.hits.Inc()
	return entry.value, true
}

// Set stores a value in the cache.
func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	entry := &cacheEntry{value: value}
	if ttl > 0 {
		entry.expiration = time.Now().Add(ttl)
		entry.hasExpiry = true
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all values from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.mu.Unlock()
}

// Stats returns cache statistics.
func (c *MemoryCache) Stats() CacheStatistics {
	c.mu.RLock()
	size := int64(len(c.entries))
	c.mu.RUnlock()

	hits, misses := c.hits.Load(), c.misses.Load()
	stats := CacheStatistics{
		Hits:   hits,
		Misses: misses,
		Size:   size,
	}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats
}

// Cleanup removes expired entries.
func (c *MemoryCache) Cleanup() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
		}
	}
}

// ============================================================================
// CachingStorage Decorator
// ============================================================================

// CachingStorage wraps a Storage and caches Exists and Stat results.
// Writes made through the wrapper invalidate the entries of their URI.
// Content is never cached; ResolveContent always reaches the wrapped storage.
//
// Metadata changed behind the wrapper's back may be served stale until the
// TTL expires. SetContent still rejects it with ErrModified, since the
// wrapped storage checks the ETag.
type CachingStorage struct {
	storage Storage
	cache   Cache
	opts    CacheOptions
}

// CacheOptions configures the CachingStorage behavior.
type CacheOptions struct {
	// TTL is the expiration of cached entries. Zero means no expiration.
	// Default: 30 seconds
	TTL time.Duration

	// KeyPrefix is prepended to every cache key, so one Cache can be
	// shared by several wrappers.
	KeyPrefix string
}

// CacheOption is a functional option for configuring CachingStorage.
type CacheOption func(*CacheOptions)

// WithCacheTTL sets the expiration of cached entries.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(o *CacheOptions) {
		o.TTL = ttl
	}
}

// WithCacheKeyPrefix sets the prefix of cache keys.
func WithCacheKeyPrefix(prefix string) CacheOption {
	return func(o *CacheOptions) {
		o.KeyPrefix = prefix
	}
}

// NewCachingStorage creates a caching wrapper around storage. A nil cache
// gets a fresh MemoryCache.
func NewCachingStorage(storage Storage, cache Cache, opts ...CacheOption) *CachingStorage {
	options := CacheOptions{
		TTL: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if cache == nil {
		cache = NewMemoryCache()
	}

	return &CachingStorage{
		storage: storage,
		cache:   cache,
		opts:    options,
	}
}

// Unwrap returns the underlying Storage.
func (c *CachingStorage) Unwrap() Storage {
	return c.storage
}

// Cache returns the cache used by the wrapper.
func (c *CachingStorage) Cache() Cache {
	return c.cache
}

func (c *CachingStorage) cacheKey(op, uri string) string {
	var b strings.Builder
	b.WriteString(c.opts.KeyPrefix)
	b.WriteString(op)
	b.WriteByte(':')
	b.WriteString(uri)
	return b.String()
}

func (c *CachingStorage) invalidate(uri string) {
	c.cache.Delete(c.cacheKey("exists", uri))
	c.cache.Delete(c.cacheKey("stat", uri))
}

func (c *CachingStorage) remember(uri string, md *Metadata) {
	if md == nil {
		return
	}
	stored := *md
	c.cache.Set(c.cacheKey("stat", uri), &stored, c.opts.TTL)
	c.cache.Set(c.cacheKey("exists", uri), true, c.opts.TTL)
}

// Exists returns the cached answer or asks the wrapped storage.
func (c *CachingStorage) Exists(ctx context.Context, uri string) (bool, error) {
	key := c.cacheKey("exists", uri)
	if v, ok := c.cache.Get(key); ok {
		if exists, ok := v.(bool); ok {
			return exists, nil
		}
	}

	exists, err := c.storage.Exists(ctx, uri)
	if err != nil {
		return false, err
	}
	c.cache.Set(key, exists, c.opts.TTL)
	return exists, nil
}

// Stat returns a copy of the cached metadata or asks the wrapped storage.
// Errors are not cached.
func (c *CachingStorage) Stat(ctx context.Context, uri string) (*Metadata, error) {
	if v, ok := c.cache.Get(c.cacheKey("stat", uri)); ok {
		if md, ok := v.(*Metadata); ok {
			out := *md
			return &out, nil
		}
	}

	md, err := c.storage.Stat(ctx, uri)
	if err != nil {
		return nil, err
	}
	c.remember(uri, md)
	return md, nil
}

// Create delegates and caches the new entry's metadata.
func (c *CachingStorage) Create(ctx context.Context, uri string) (*Metadata, error) {
	c.invalidate(uri)
	md, err := c.storage.Create(ctx, uri)
	if err != nil {
		return nil, err
	}
	c.remember(uri, md)
	return md, nil
}

// SetContent delegates and invalidates the entry.
func (c *CachingStorage) SetContent(ctx context.Context, md *Metadata, content string, opts *WriteOptions) error {
	if md != nil {
		defer c.invalidate(md.URI)
	}
	return c.storage.SetContent(ctx, md, content, opts)
}

// ResolveContent delegates to the wrapped storage. A failed read drops the
// cached entries of uri.
func (c *CachingStorage) ResolveContent(ctx context.Context, uri string, opts *ReadOptions) (*Content, error) {
	content, err := c.storage.ResolveContent(ctx, uri, opts)
	if err != nil {
		c.invalidate(uri)
		return nil, err
	}
	return content, nil
}

var _ Storage = (*CachingStorage)(nil)
