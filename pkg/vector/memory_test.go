package vector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/ragengine/pkg/models"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()
	err := store.Upsert(context.Background(), []Point{
		{
			ID:     "1",
			Vector: []float32{1, 0, 0},
			Payload: map[string]any{
				"user_id": "u1", "company": "apple", "fiscal_year": 2023,
				"content": "Apple revenue grew", "document_type": "10-K",
			},
		},
		{
			ID:     "2",
			Vector: []float32{0.9, 0.1, 0},
			Payload: map[string]any{
				"user_id": "u1", "company": "microsoft", "fiscal_year": 2022,
				"content": "Microsoft cloud revenue", "document_type": "10-K",
			},
		},
		{
			ID:     "3",
			Vector: []float32{0, 1, 0},
			Payload: map[string]any{
				"user_id": "u2", "company": "apple", "fiscal_year": 2023,
				"content": "Another user's chunk",
			},
		},
	})
	require.NoError(t, err)
	return store
}

func TestMemoryStoreScopesToUser(t *testing.T) {
	store := seedStore(t)

	chunks, err := store.Search(context.Background(), []float32{0, 1, 0}, "u1", models.QueryFilters{}, 10)
	require.NoError(t, err)

	for _, c := range chunks {
		assert.NotEqual(t, "Another user's chunk", c.Content)
	}
	assert.Len(t, chunks, 2)
}

func TestMemoryStoreCompanyFilter(t *testing.T) {
	store := seedStore(t)

	chunks, err := store.Search(context.Background(), []float32{1, 0, 0}, "u1",
		models.QueryFilters{Company: "Apple"}, 10)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, "apple", chunks[0].Company())
}

func TestMemoryStoreCompaniesFilter(t *testing.T) {
	store := seedStore(t)

	chunks, err := store.Search(context.Background(), []float32{1, 0, 0}, "u1",
		models.QueryFilters{Companies: []string{"apple", "microsoft"}}, 10)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestMemoryStoreYearRangeFilter(t *testing.T) {
	store := seedStore(t)

	chunks, err := store.Search(context.Background(), []float32{1, 0, 0}, "u1",
		models.QueryFilters{YearRange: &models.YearRange{Min: 2023, Max: 2024}}, 10)
	require.NoError(t, err)

	require.Len(t, chunks, 1)
	assert.Equal(t, 2023, chunks[0].FiscalYear())
}

func TestMemoryStoreOrdersByScore(t *testing.T) {
	store := seedStore(t)

	chunks, err := store.Search(context.Background(), []float32{1, 0, 0}, "u1", models.QueryFilters{}, 10)
	require.NoError(t, err)

	require.Len(t, chunks, 2)
	assert.Equal(t, "apple", chunks[0].Company())
	assert.GreaterOrEqual(t, chunks[0].Score, chunks[1].Score)
}

func TestMemoryStoreLimit(t *testing.T) {
	store := seedStore(t)

	chunks, err := store.Search(context.Background(), []float32{1, 0, 0}, "u1", models.QueryFilters{}, 1)
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}
