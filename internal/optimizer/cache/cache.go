// Package cache implements the two-tier response cache: a bounded in-memory
// FIFO tier in front of a durable key-value tier. Lookups normalize the
// prompt so trivially different phrasings of the same request share an entry.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"
)

// DefaultTTL is how long a cached response stays valid.
const DefaultTTL = 7 * 24 * time.Hour

// Entry is a cached prompt/response pair. Entries are owned exclusively by
// the cache; callers get copies.
type Entry struct {
	Prompt      string    `json:"prompt"`
	Response    string    `json:"response"`
	Model       string    `json:"model"`
	Pattern     string    `json:"pattern,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Hits        int       `json:"hits"`
	SavedTokens int       `json:"savedTokens"`
}

// Stats aggregates cache state for observability.
type Stats struct {
	MemoryEntries    int                     `json:"memoryEntries"`
	DurableEntries   int                     `json:"durableEntries"`
	TotalHits        int                     `json:"totalHits"`
	TotalSavedTokens int                     `json:"totalSavedTokens"`
	PatternBreakdown map[string]PatternStats `json:"patternBreakdown"`
}

// PatternStats counts entries and hits per pattern category.
type PatternStats struct {
	Count int `json:"count"`
	Hits  int `json:"hits"`
}

// Cache is the two-tier response cache.
type Cache struct {
	mu       sync.Mutex
	mem      map[string]*Entry
	order    []string // insertion order for FIFO eviction
	capacity int

	store Store
	ttl   time.Duration
	log   *slog.Logger
	now   func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the default entry lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// New creates a cache with the given memory-tier capacity and durable store.
func New(capacity int, store Store, logger *slog.Logger, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Cache{
		mem:      make(map[string]*Entry),
		capacity: capacity,
		store:    store,
		ttl:      DefaultTTL,
		log:      logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var (
	whitespaceRe  = regexp.MustCompile(`\s+`)
	quoteStripper = strings.NewReplacer(`'`, "", `"`, "")
)

// normalizePrompt lowercases, collapses whitespace and strips quotes so that
// near-identical prompts hash to the same key.
func normalizePrompt(prompt string) string {
	p := strings.ToLower(prompt)
	p = whitespaceRe.ReplaceAllString(p, " ")
	p = quoteStripper.Replace(p)
	return strings.TrimSpace(p)
}

// Key derives the deterministic cache key for a (prompt, model) pair.
func Key(prompt, model string) string {
	normalized := normalizePrompt(prompt)
	hash := sha256.Sum256([]byte(model + ":" + normalized))
	return hex.EncodeToString(hash[:])[:16]
}

// Get returns the cached entry for (prompt, model), or nil on miss. Expired
// entries are removed on read. Durable-tier failures degrade to a miss.
func (c *Cache) Get(ctx context.Context, prompt, model string) *Entry {
	key := Key(prompt, model)
	now := c.now()

	c.mu.Lock()
	if entry, ok := c.mem[key]; ok {
		if now.Sub(entry.Timestamp) < c.ttl {
			entry.Hits++
			cp := *entry
			c.mu.Unlock()
			// Keep the durable hit counter in sync, best effort.
			if err := c.store.Set(ctx, key, &cp); err != nil {
				c.log.Warn("cache durable write failed", "key", key, "error", err)
			}
			return &cp
		}
		c.evict(key)
	}
	c.mu.Unlock()

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		c.log.Warn("cache durable read failed", "key", key, "error", err)
		return nil
	}
	if entry == nil {
		return nil
	}
	if now.Sub(entry.Timestamp) >= c.ttl {
		if err := c.store.Delete(ctx, key); err != nil {
			c.log.Warn("cache durable delete failed", "key", key, "error", err)
		}
		return nil
	}

	entry.Hits++

	// Promote to the memory tier
	c.mu.Lock()
	c.insert(key, entry)
	cp := *entry
	c.mu.Unlock()

	if err := c.store.Set(ctx, key, &cp); err != nil {
		c.log.Warn("cache durable write failed", "key", key, "error", err)
	}
	return &cp
}

// Set stores a response in both tiers, tagging it with a pattern category
// when the prompt matches one.
func (c *Cache) Set(ctx context.Context, prompt, response, model string, tokenCount int) {
	key := Key(prompt, model)
	entry := &Entry{
		Prompt:      prompt,
		Response:    response,
		Model:       model,
		Pattern:     detectPattern(prompt),
		Timestamp:   c.now(),
		SavedTokens: tokenCount,
	}

	c.mu.Lock()
	c.insert(key, entry)
	c.mu.Unlock()

	if err := c.store.Set(ctx, key, entry); err != nil {
		c.log.Warn("cache durable write failed", "key", key, "error", err)
	}
}

// insert adds to the memory tier and evicts oldest-first once over capacity.
// Caller holds c.mu.
func (c *Cache) insert(key string, entry *Entry) {
	if _, ok := c.mem[key]; !ok {
		c.order = append(c.order, key)
	}
	c.mem[key] = entry

	for len(c.mem) > c.capacity && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.mem, oldest)
	}
}

// evict removes a key from the memory tier. Caller holds c.mu.
func (c *Cache) evict(key string) {
	delete(c.mem, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// Cleanup sweeps expired entries from both tiers. Intended to run on a
// periodic ticker.
func (c *Cache) Cleanup(ctx context.Context) {
	now := c.now()

	c.mu.Lock()
	for key, entry := range c.mem {
		if now.Sub(entry.Timestamp) >= c.ttl {
			c.evict(key)
		}
	}
	c.mu.Unlock()

	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.log.Warn("cache cleanup: listing keys failed", "error", err)
		return
	}
	for _, key := range keys {
		entry, err := c.store.Get(ctx, key)
		if err != nil || entry == nil {
			continue
		}
		if now.Sub(entry.Timestamp) >= c.ttl {
			if err := c.store.Delete(ctx, key); err != nil {
				c.log.Warn("cache cleanup: delete failed", "key", key, "error", err)
			}
		}
	}
}

// GetStats aggregates counts across both tiers.
func (c *Cache) GetStats(ctx context.Context) Stats {
	stats := Stats{PatternBreakdown: make(map[string]PatternStats)}

	c.mu.Lock()
	stats.MemoryEntries = len(c.mem)
	for _, entry := range c.mem {
		stats.TotalHits += entry.Hits
		stats.TotalSavedTokens += entry.SavedTokens * entry.Hits
		if entry.Pattern != "" {
			ps := stats.PatternBreakdown[entry.Pattern]
			ps.Count++
			ps.Hits += entry.Hits
			stats.PatternBreakdown[entry.Pattern] = ps
		}
	}
	c.mu.Unlock()

	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.log.Warn("cache stats: listing keys failed", "error", err)
		return stats
	}
	stats.DurableEntries = len(keys)
	return stats
}
