package query

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/finsight-ai/ragengine/pkg/llm"
	"github.com/finsight-ai/ragengine/pkg/models"
)

// Decomposer detects compound queries and splits them into independently
// answerable sub-queries. Comparative queries are a single intent and are
// never split.
type Decomposer struct {
	llm llm.Client
}

// NewDecomposer returns a Decomposer using the given model client.
func NewDecomposer(client llm.Client) *Decomposer {
	return &Decomposer{llm: client}
}

// Decompose analyzes the query. Any model failure means the query is
// treated as a single question.
func (d *Decomposer) Decompose(ctx context.Context, queryText string) models.DecompositionResult {
	messages := []models.Message{
		{Role: models.RoleUser, Content: decompositionPrompt(queryText), Timestamp: time.Now()},
	}

	result, err := llm.Structured[models.DecompositionResult](ctx, d.llm, messages, llm.ExtractionOptions())
	if err != nil {
		log.Warn().Err(err).Msg("decomposition failed, treating as single query")
		return models.DecompositionResult{
			NeedsDecomposition: false,
			Reasoning:          "decomposition error: " + err.Error(),
		}
	}

	if result.NeedsDecomposition && len(result.SubQueries) == 0 {
		result.NeedsDecomposition = false
	}

	for i := range result.SubQueries {
		sq := &result.SubQueries[i]
		for j, c := range sq.Companies {
			sq.Companies[j] = strings.ToLower(c)
		}
		if sq.Intent == "" {
			sq.Intent = "general"
		}
	}

	log.Debug().Bool("needs_decomposition", result.NeedsDecomposition).
		Int("sub_queries", len(result.SubQueries)).Msg("decomposition complete")
	return result
}
