package contentkit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendGetIdentity(t *testing.T) {
	b := newBackend("mem", 7, &mockChannel{})

	first := b.Get(mustParse("mem://a/b.txt"))
	again := b.Get(mustParse("mem://a/b.txt"))
	other := b.Get(mustParse("mem://a/c.txt"))

	assert.Same(t, first, again)
	assert.NotSame(t, first, other)

	stats := b.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(2), stats.Size)
	assert.InDelta(t, 1.0/3.0, stats.HitRate, 1e-9)
}

func TestBackendGetPathAndAuthorityAreDistinct(t *testing.T) {
	b := newBackend("mem", 7, &mockChannel{})

	byPath, err := Revive(Components{Scheme: "mem", Path: "a"})
	require.NoError(t, err)
	byAuthority, err := Revive(Components{Scheme: "mem", Authority: "a"})
	require.NoError(t, err)

	first := b.Get(byPath)
	second := b.Get(byAuthority)
	assert.NotSame(t, first, second)
	assert.Equal(t, "/a", first.URI().Path)
	assert.Equal(t, "a", second.URI().Host)
	assert.Equal(t, int64(2), b.Stats().Size)
}

func TestBackendGetBindsHandleAndChannel(t *testing.T) {
	ch := &mockChannel{}
	b := newBackend("mem", 7, ch)

	res := b.Get(mustParse("mem://a/b.txt"))
	remote, ok := res.(*RemoteResource)
	require.True(t, ok)
	assert.Equal(t, Handle(7), remote.Handle())
	assert.Same(t, ch, remote.channel)
	assert.Equal(t, "mem://a/b.txt", CanonicalString(remote.URI()))
}

func TestBackendDisposeDropsCache(t *testing.T) {
	b := newBackend("mem", 7, &mockChannel{})

	before := b.Get(mustParse("mem://a/b.txt"))
	b.Dispose()
	assert.Equal(t, int64(0), b.Stats().Size)

	after := b.Get(mustParse("mem://a/b.txt"))
	assert.NotSame(t, before, after)
}

func TestBackendConcurrentGet(t *testing.T) {
	b := newBackend("mem", 1, &mockChannel{})

	const workers = 32
	results := make([]Resource, workers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = b.Get(mustParse("mem://race/x"))
		}(i)
	}
	close(start)
	wg.Wait()

	for _, res := range results {
		assert.Same(t, results[0], res)
	}
	assert.Equal(t, int64(1), b.Stats().Misses)
}
