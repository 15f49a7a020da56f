// Package vector abstracts the vector database used for document chunks
// and conversation memory.
package vector

import (
	"context"

	"github.com/finsight-ai/ragengine/pkg/models"
)

// Point is a vector with its payload, ready for insertion.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// Store defines the operations the retrieval and memory layers need from
// a vector database. Every search is scoped to a user.
type Store interface {
	// Search returns the chunks most similar to vector, restricted to the
	// given user and metadata filters. Results carry raw similarity scores
	// in descending order.
	Search(ctx context.Context, vector []float32, userID string, filters models.QueryFilters, limit int) ([]models.RetrievedChunk, error)

	// Upsert inserts or replaces points.
	Upsert(ctx context.Context, points []Point) error

	// EnsureCollection creates the backing collection with the given
	// vector dimensionality if it does not exist yet.
	EnsureCollection(ctx context.Context, dims int) error

	// Close releases resources held by the store.
	Close() error
}
