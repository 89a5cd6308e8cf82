package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusnest/forum/pkg/config"
)

type page struct {
	Rows  []string `json:"rows"`
	Total int64    `json:"total"`
}

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	c, err := New(&config.RedisConfig{URL: "redis://" + s.Addr(), Enabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, s
}

func TestHashKey(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{name: "single part", parts: []string{"test"}},
		{name: "multiple parts", parts: []string{"test", "key", "with", "many", "parts"}},
		{name: "empty parts", parts: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed := HashKey(tt.parts...)
			assert.Equal(t, hashed, HashKey(tt.parts...))
			assert.Len(t, hashed, 32)
		})
	}

	assert.NotEqual(t, HashKey("ab", "c"), HashKey("a", "bc"))
}

func TestCache_NamespaceKey(t *testing.T) {
	cache := &Cache{}

	tests := []struct {
		key      string
		expected string
	}{
		{key: "test", expected: "forum:test"},
		{key: "gen:posts", expected: "forum:gen:posts"},
		{key: "", expected: "forum:"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, cache.namespaceKey(tt.key))
	}
}

func TestNew_Disabled(t *testing.T) {
	c, err := New(&config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)

	ctx := context.Background()
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheDisabled)
	assert.ErrorIs(t, c.Set(ctx, "k", nil, time.Second), ErrCacheDisabled)
	assert.ErrorIs(t, c.Health(ctx), ErrCacheDisabled)
	assert.NoError(t, c.Close())
}

func TestNew_BadURL(t *testing.T) {
	_, err := New(&config.RedisConfig{URL: "://nope", Enabled: true})
	assert.Error(t, err)
}

func TestCache_GetSetDelete(t *testing.T) {
	c, s := newTestCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(got))
	assert.True(t, s.Exists("forum:k"))

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, c.Health(ctx))
}

func TestPages_LoadCachesUntilInvalidated(t *testing.T) {
	c, _ := newTestCache(t)
	pages := NewPages(c, time.Minute)
	ctx := context.Background()

	var fills int32
	fill := func(context.Context) (interface{}, error) {
		n := atomic.AddInt32(&fills, 1)
		return page{Rows: []string{"a"}, Total: int64(n)}, nil
	}

	var first page
	require.NoError(t, pages.Load(ctx, "posts", "q=a", &first, fill))
	assert.Equal(t, page{Rows: []string{"a"}, Total: 1}, first)

	var second page
	require.NoError(t, pages.Load(ctx, "posts", "q=a", &second, fill))
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&fills))

	require.NoError(t, pages.Invalidate(ctx, "posts"))
	gen, err := pages.Generation(ctx, "posts")
	require.NoError(t, err)
	assert.EqualValues(t, 1, gen)

	var third page
	require.NoError(t, pages.Load(ctx, "posts", "q=a", &third, fill))
	assert.EqualValues(t, 2, third.Total)
}

func TestPages_ScopesAreIndependent(t *testing.T) {
	c, _ := newTestCache(t)
	pages := NewPages(c, time.Minute)
	ctx := context.Background()

	var fills int32
	fill := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&fills, 1)
		return page{}, nil
	}

	var p page
	require.NoError(t, pages.Load(ctx, "groups", "all", &p, fill))
	require.NoError(t, pages.Load(ctx, "posts", "all", &p, fill))
	require.NoError(t, pages.Invalidate(ctx, "posts"))
	require.NoError(t, pages.Load(ctx, "groups", "all", &p, fill))
	assert.EqualValues(t, 2, atomic.LoadInt32(&fills))
}

func TestPages_FillErrorIsNotCached(t *testing.T) {
	c, _ := newTestCache(t)
	pages := NewPages(c, time.Minute)
	ctx := context.Background()
	boom := errors.New("boom")

	var p page
	err := pages.Load(ctx, "posts", "k", &p, func(context.Context) (interface{}, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)

	require.NoError(t, pages.Load(ctx, "posts", "k", &p, func(context.Context) (interface{}, error) {
		return page{Total: 7}, nil
	}))
	assert.EqualValues(t, 7, p.Total)
}

func TestPages_ExpiresWithTTL(t *testing.T) {
	c, s := newTestCache(t)
	pages := NewPages(c, time.Second)
	ctx := context.Background()

	var fills int32
	fill := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&fills, 1)
		return page{}, nil
	}

	var p page
	require.NoError(t, pages.Load(ctx, "groups", "k", &p, fill))
	s.FastForward(2 * time.Second)
	require.NoError(t, pages.Load(ctx, "groups", "k", &p, fill))
	assert.EqualValues(t, 2, atomic.LoadInt32(&fills))
}

func TestPages_RedisDownFallsBackToFill(t *testing.T) {
	c, s := newTestCache(t)
	pages := NewPages(c, time.Minute)
	s.Close()

	var p page
	err := pages.Load(context.Background(), "posts", "k", &p, func(context.Context) (interface{}, error) {
		return page{Total: 3}, nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, p.Total)
}

func TestPages_NilIsPassThrough(t *testing.T) {
	var pages *Pages
	var p page
	require.NoError(t, pages.Load(context.Background(), "posts", "k", &p, func(context.Context) (interface{}, error) {
		return page{Total: 5}, nil
	}))
	assert.EqualValues(t, 5, p.Total)
	assert.NoError(t, pages.Invalidate(context.Background(), "posts"))
}

func TestPages_ConcurrentLoads(t *testing.T) {
	c, _ := newTestCache(t)
	pages := NewPages(c, time.Minute)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var p page
			err := pages.Load(ctx, "groups", "k", &p, func(context.Context) (interface{}, error) {
				return page{Rows: []string{"x"}}, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, []string{"x"}, p.Rows)
		}()
	}
	wg.Wait()
}
