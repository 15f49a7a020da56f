// Package config holds runtime configuration and the domain constants shared
// across the retrieval and orchestration packages.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Collection names inside the vector index. A single collection holds every
// user's chunks; isolation is enforced by the mandatory user_id filter.
const (
	DocumentChunksCollection     = "document_chunks"
	ConversationMemoryCollection = "conversation_memory"
)

// Retrieval constants.
const (
	// DefaultTopK is the final evidence size handed to the analysis stage.
	DefaultTopK = 8
	// MultiCompanyTopKMultiplier scales top-k per target company so that
	// post-filter balancing has headroom.
	MultiCompanyTopKMultiplier = 6
	// TopKInitial is the candidate pool requested before reranking.
	TopKInitial = 30
)

// Supported fiscal-year window for range expansion.
const (
	MinSupportedYear = 2015
	MaxSupportedYear = 2025
)

// Loop bounds for the orchestrator's self-correcting stages.
const (
	MaxRetrievalAttempts = 3
	MaxSelfHealAttempts  = 2
)

// Companies is the fixed enum of company names the extraction layer
// normalizes to. Also consulted by the keyword scorer for term boosting.
var Companies = []string{
	"apple",
	"microsoft",
	"amazon",
	"alphabet",
	"meta",
	"nvidia",
	"tesla",
}

// Config is the runtime configuration for the engine and its capabilities.
type Config struct {
	QdrantHost string `mapstructure:"qdrant_host"`
	QdrantPort int    `mapstructure:"qdrant_port"`

	OllamaURL      string `mapstructure:"ollama_url"`
	ChatModel      string `mapstructure:"chat_model"`
	EmbeddingModel string `mapstructure:"embedding_model"`
	EmbeddingDims  int    `mapstructure:"embedding_dims"`

	HybridAlpha float64 `mapstructure:"hybrid_alpha"`
	TopK        int     `mapstructure:"top_k"`
}

// Load reads configuration from FINRAG_* environment variables, applying
// defaults for anything unset.
func Load() (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("finrag")
	v.AutomaticEnv()

	v.SetDefault("qdrant_host", "localhost")
	v.SetDefault("qdrant_port", 6334)
	v.SetDefault("ollama_url", "http://localhost:11434")
	v.SetDefault("chat_model", "llama3")
	v.SetDefault("embedding_model", "llama3")
	v.SetDefault("embedding_dims", 4096)
	v.SetDefault("hybrid_alpha", 0.7)
	v.SetDefault("top_k", DefaultTopK)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.HybridAlpha < 0 || cfg.HybridAlpha > 1 {
		return Config{}, fmt.Errorf("hybrid_alpha must be in [0,1], got %v", cfg.HybridAlpha)
	}
	return cfg, nil
}
