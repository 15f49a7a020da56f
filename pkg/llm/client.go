// Package llm provides the chat completion client used by query
// understanding, analysis and answer generation.
package llm

import (
	"context"

	"github.com/finsight-ai/ragengine/pkg/models"
)

// Client is the interface for chat completion backends.
type Client interface {
	// Chat sends a conversation and returns the assistant reply.
	Chat(ctx context.Context, messages []models.Message, opts Options) (models.Message, error)
	Close() error
}

// Options holds per-request generation parameters.
type Options struct {
	Temperature float32
	TopP        float32
	MaxTokens   int
	// JSON forces the model to emit a valid JSON object.
	JSON bool
}

// DefaultOptions returns the generation parameters used for free-form
// answer text.
func DefaultOptions() Options {
	return Options{
		Temperature: 0.7,
		TopP:        0.9,
		MaxTokens:   2048,
	}
}

// ExtractionOptions returns low-temperature parameters for structured
// extraction calls, where determinism matters more than fluency.
func ExtractionOptions() Options {
	return Options{
		Temperature: 0.1,
		TopP:        0.9,
		MaxTokens:   1024,
		JSON:        true,
	}
}
