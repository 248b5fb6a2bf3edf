package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, capacity int, opts ...Option) (*Cache, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	return New(capacity, store, nil, opts...), store
}

func TestCacheSetGet(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 10)

	c.Set(ctx, "Create a click detector", "local cd = Instance.new(\"ClickDetector\")", "claude-4-sonnet", 500)

	entry := c.Get(ctx, "Create a click detector", "claude-4-sonnet")
	require.NotNil(t, entry)
	assert.Equal(t, "local cd = Instance.new(\"ClickDetector\")", entry.Response)
	assert.Equal(t, 1, entry.Hits)
	assert.Equal(t, 500, entry.SavedTokens)
}

func TestCacheMiss(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 10)

	assert.Nil(t, c.Get(ctx, "never cached", "claude-4-sonnet"))
}

func TestCacheNormalizesPrompts(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 10)

	c.Set(ctx, "Create a click detector", "resp", "claude-4-sonnet", 100)

	// Case, extra whitespace and quotes should all land on the same entry.
	for _, prompt := range []string{
		"create a click detector",
		"Create A   Click Detector",
		"  create a \"click\" detector  ",
		"create a 'click' detector",
	} {
		entry := c.Get(ctx, prompt, "claude-4-sonnet")
		require.NotNil(t, entry, "prompt %q should hit", prompt)
		assert.Equal(t, "resp", entry.Response)
	}
}

func TestCacheKeyedByModel(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 10)

	c.Set(ctx, "make a part", "resp", "claude-4-sonnet", 100)

	assert.Nil(t, c.Get(ctx, "make a part", "claude-3-5-haiku"))
	assert.NotEqual(t, Key("make a part", "claude-4-sonnet"), Key("make a part", "claude-3-5-haiku"))
}

func TestCacheHitCountAccumulates(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 10)

	c.Set(ctx, "prompt", "resp", "claude-4-sonnet", 100)
	for i := 1; i <= 3; i++ {
		entry := c.Get(ctx, "prompt", "claude-4-sonnet")
		require.NotNil(t, entry)
		assert.Equal(t, i, entry.Hits)
	}
}

func TestCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c, store := newTestCache(t, 10, WithClock(func() time.Time { return now }))

	c.Set(ctx, "prompt", "resp", "claude-4-sonnet", 100)

	now = now.Add(6 * 24 * time.Hour)
	require.NotNil(t, c.Get(ctx, "prompt", "claude-4-sonnet"))

	now = now.Add(2 * 24 * time.Hour)
	assert.Nil(t, c.Get(ctx, "prompt", "claude-4-sonnet"))

	// The expired entry is dropped from the durable tier on read.
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestCacheFIFOEviction(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 2)

	c.Set(ctx, "first", "r1", "m", 10)
	c.Set(ctx, "second", "r2", "m", 10)
	c.Set(ctx, "third", "r3", "m", 10)

	stats := c.GetStats(ctx)
	assert.Equal(t, 2, stats.MemoryEntries)
	assert.Equal(t, 3, stats.DurableEntries)

	// The evicted entry still hits via the durable tier and is promoted back.
	entry := c.Get(ctx, "first", "m")
	require.NotNil(t, entry)
	assert.Equal(t, "r1", entry.Response)
	assert.Equal(t, 2, c.GetStats(ctx).MemoryEntries)
}

type failingStore struct{}

func (failingStore) Get(ctx context.Context, key string) (*Entry, error) {
	return nil, errors.New("store down")
}
func (failingStore) Set(ctx context.Context, key string, entry *Entry) error {
	return errors.New("store down")
}
func (failingStore) Delete(ctx context.Context, key string) error { return errors.New("store down") }
func (failingStore) Keys(ctx context.Context) ([]string, error)   { return nil, errors.New("store down") }

func TestCacheDurableFailureDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	c := New(10, failingStore{}, nil)

	assert.Nil(t, c.Get(ctx, "prompt", "m"))

	// Writes still land in the memory tier.
	c.Set(ctx, "prompt", "resp", "m", 100)
	entry := c.Get(ctx, "prompt", "m")
	require.NotNil(t, entry)
	assert.Equal(t, "resp", entry.Response)
}

func TestCacheCleanup(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c, store := newTestCache(t, 10, WithClock(func() time.Time { return now }))

	c.Set(ctx, "old", "r1", "m", 10)
	now = now.Add(8 * 24 * time.Hour)
	c.Set(ctx, "fresh", "r2", "m", 10)

	c.Cleanup(ctx)

	assert.Nil(t, c.Get(ctx, "old", "m"))
	assert.NotNil(t, c.Get(ctx, "fresh", "m"))
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1)
}

func TestCacheStatsPatternBreakdown(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 10)

	c.Set(ctx, "create a click detector script", "r1", "m", 100)
	c.Set(ctx, "teleport player to spawn", "r2", "m", 100)
	c.Get(ctx, "create a click detector script", "m")
	c.Get(ctx, "create a click detector script", "m")

	stats := c.GetStats(ctx)
	assert.Equal(t, 2, stats.TotalHits)
	assert.Equal(t, PatternStats{Count: 1, Hits: 2}, stats.PatternBreakdown["click-detection"])
	assert.Equal(t, PatternStats{Count: 1, Hits: 0}, stats.PatternBreakdown["teleport"])
}

func TestCacheSeed(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, 10)

	n := c.Seed(ctx, "claude-4-sonnet")
	assert.Equal(t, 3, n)

	entry := c.Get(ctx, "Create a Click Detector Script", "claude-4-sonnet")
	require.NotNil(t, entry)
	assert.Contains(t, entry.Response, "ClickDetector")
}
