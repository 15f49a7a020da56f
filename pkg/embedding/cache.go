package embedding

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a cached embedding stays valid.
const DefaultCacheTTL = time.Hour

type cacheEntry struct {
	vector  []float32
	expires time.Time
}

// CachedEmbedder wraps an Embedder with an in-process TTL cache keyed by
// content hash. Query embeddings repeat heavily across retrieval attempts
// and refinement loops, so the cache saves round trips to the model.
type CachedEmbedder struct {
	inner Embedder
	ttl   time.Duration

	mu      sync.Mutex
	entries map[uint64]cacheEntry

	now func() time.Time
}

// NewCachedEmbedder wraps inner with a cache using DefaultCacheTTL.
func NewCachedEmbedder(inner Embedder) *CachedEmbedder {
	return NewCachedEmbedderTTL(inner, DefaultCacheTTL)
}

// NewCachedEmbedderTTL wraps inner with a cache using the given TTL.
func NewCachedEmbedderTTL(inner Embedder, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[uint64]cacheEntry),
		now:     time.Now,
	}
}

// EmbedText embeds document content, serving repeats from the cache.
func (c *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, c.inner.EmbedText)
}

// EmbedQuery embeds a query, serving repeats from the cache.
func (c *CachedEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return c.embed(ctx, query, c.inner.EmbedQuery)
}

// Dimensions reports the wrapped embedder's vector size.
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

func (c *CachedEmbedder) embed(ctx context.Context, text string, fn func(context.Context, string) ([]float32, error)) ([]float32, error) {
	key := hashText(text)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && c.now().Before(entry.expires) {
		c.mu.Unlock()
		return entry.vector, nil
	}
	c.mu.Unlock()

	vector, err := fn(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[key] = cacheEntry{vector: vector, expires: c.now().Add(c.ttl)}
	c.mu.Unlock()

	return vector, nil
}

func hashText(text string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(text))
	return h.Sum64()
}
