package embedding

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog/log"
)

const (
	// maxEmbedChars bounds the text sent to the embedding model; longer
	// chunks are truncated rather than rejected.
	maxEmbedChars = 2048

	embedMaxRetries = 3
	embedBaseDelay  = time.Second
	embedTimeout    = 10 * time.Second
)

// OllamaEmbedder produces embeddings through a local Ollama server.
type OllamaEmbedder struct {
	client *api.Client
	model  string
	dims   int
}

// NewOllamaEmbedder creates an embedder for the Ollama server at rawURL.
// dims must match the output dimensionality of the model.
func NewOllamaEmbedder(rawURL, model string, dims int) (*OllamaEmbedder, error) {
	if rawURL == "" {
		rawURL = "http://localhost:11434"
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama url: %w", err)
	}

	httpClient := &http.Client{Timeout: time.Minute}
	return &OllamaEmbedder{
		client: api.NewClient(parsed, httpClient),
		model:  model,
		dims:   dims,
	}, nil
}

// EmbedText embeds document content, truncating oversized chunks first.
func (e *OllamaEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if len(text) > maxEmbedChars {
		log.Debug().Int("limit", maxEmbedChars).Int("length", len(text)).
			Msg("truncating text before embedding")
		text = text[:maxEmbedChars]
	}
	return e.embed(ctx, text)
}

// EmbedQuery embeds a search query. Queries are short enough that no
// truncation is applied.
func (e *OllamaEmbedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	return e.embed(ctx, query)
}

// Dimensions reports the configured vector size.
func (e *OllamaEmbedder) Dimensions() int {
	return e.dims
}

func (e *OllamaEmbedder) embed(ctx context.Context, text string) ([]float32, error) {
	req := &api.EmbeddingRequest{
		Model:  e.model,
		Prompt: text,
	}

	var lastErr error
	for attempt := 0; attempt < embedMaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * embedBaseDelay
			log.Debug().Err(lastErr).Int("attempt", attempt).Dur("delay", delay).
				Msg("retrying embedding request")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, embedTimeout)
		resp, err := e.client.Embeddings(reqCtx, req)
		cancel()
		if err == nil {
			return toFloat32(resp.Embedding), nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", embedMaxRetries, lastErr)
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
