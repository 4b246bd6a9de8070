package contentkit

import (
	"net/url"
	"sync"

	"go.uber.org/atomic"
)

// CacheStatistics contains cache usage counters of a Backend or MemoryCache.
type CacheStatistics struct {
	Hits    int64
	Misses  int64
	Size    int64
	HitRate float64
}

// Backend serves one scheme on behalf of a remote handle. It caches the
// resources it hands out, one instance per canonical URI string.
type Backend struct {
	scheme  string
	handle  Handle
	channel Channel

	mu    sync.Mutex
	cache map[string]Resource

	hits   atomic.Int64
	misses atomic.Int64
}

func newBackend(scheme string, handle Handle, ch Channel) *Backend {
	return &Backend{
		scheme:  scheme,
		handle:  handle,
		channel: ch,
		cache:   make(map[string]Resource),
	}
}

// Scheme returns the scheme served by the backend.
func (b *Backend) Scheme() string {
	return b.scheme
}

// Handle returns the remote handle the backend delegates to.
func (b *Backend) Handle() Handle {
	return b.handle
}

// Get returns the resource for uri, constructing and caching it on first use.
// Lookup and insert happen under a single lock, so concurrent first
// resolutions of one URI observe the same instance.
func (b *Backend) Get(uri *url.URL) Resource {
	key := CanonicalString(uri)

	b.mu.Lock()
	defer b.mu.Unlock()

	if res, ok := b.cache[key]; ok {
		b.hits.Inc()
		return res
	}
	b.misses.Inc()

	res := &RemoteResource{
		uri:     uri,
		handle:  b.handle,
		channel: b.channel,
	}
	b.cache[key] = res
	return res
}

// Dispose drops every cached resource. Resources already handed out keep
// working; the remote side is not told about the release.
func (b *Backend) Dispose() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cache = make(map[string]Resource)
}

// Stats returns cache statistics.
func (b *Backend) Stats() CacheStatistics {
	b.mu.Lock()
	size := int64(len(b.cache))
	b.mu.Unlock()

	hits, misses := b.hits.Load(), b.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStatistics{
		Hits:    hits,
		Misses:  misses,
		Size:    size,
		HitRate: hitRate,
	}
}
