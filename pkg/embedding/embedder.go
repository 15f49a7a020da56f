// Package embedding turns text into vectors for similarity search.
package embedding

import "context"

// Embedder generates dense vectors for documents and queries.
type Embedder interface {
	// EmbedText embeds document content for indexing.
	EmbedText(ctx context.Context, text string) ([]float32, error)
	// EmbedQuery embeds a search query.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	// Dimensions reports the vector size this embedder produces.
	Dimensions() int
}
