package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
}

func (c *countingEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	c.calls++
	return []float32{float32(len(text)), 1, 2}, nil
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return c.EmbedText(ctx, query)
}

func (c *countingEmbedder) Dimensions() int { return 3 }

func TestCachedEmbedderServesRepeats(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner)
	ctx := context.Background()

	first, err := cached.EmbedQuery(ctx, "apple revenue 2023")
	require.NoError(t, err)

	second, err := cached.EmbedQuery(ctx, "apple revenue 2023")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedEmbedderDistinctTexts(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCachedEmbedder(inner)
	ctx := context.Background()

	_, err := cached.EmbedQuery(ctx, "apple revenue")
	require.NoError(t, err)
	_, err = cached.EmbedQuery(ctx, "microsoft revenue")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}

func TestCachedEmbedderExpiry(t *testing.T) {
	inner := &countingEmbedder{}
	cached := NewCachedEmbedderTTL(inner, time.Hour)

	current := time.Unix(1700000000, 0)
	cached.now = func() time.Time { return current }

	ctx := context.Background()
	_, err := cached.EmbedQuery(ctx, "tesla deliveries")
	require.NoError(t, err)

	current = current.Add(2 * time.Hour)
	_, err = cached.EmbedQuery(ctx, "tesla deliveries")
	require.NoError(t, err)

	assert.Equal(t, 2, inner.calls)
}
