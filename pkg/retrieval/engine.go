// Package retrieval implements hybrid search over the document chunk
// store: semantic similarity blended with BM25 keyword relevance, with
// per-company balancing for comparative queries and keyword reranking.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/finsight-ai/ragengine/pkg/config"
	"github.com/finsight-ai/ragengine/pkg/embedding"
	"github.com/finsight-ai/ragengine/pkg/keyword"
	"github.com/finsight-ai/ragengine/pkg/models"
	"github.com/finsight-ai/ragengine/pkg/vector"
)

// Request describes one retrieval pass.
type Request struct {
	// QueryText is the augmented keyword query used for hybrid scoring and
	// reranking. Empty disables keyword scoring.
	QueryText string
	// Vector is the query embedding.
	Vector []float32
	// UserID scopes the search. Required.
	UserID string
	// TopK is the number of results to return. Zero means the default.
	TopK int
	// Filters restricts by company, fiscal year and document metadata.
	Filters models.QueryFilters
}

// Engine runs hybrid retrieval against a vector store.
type Engine struct {
	store    vector.Store
	embedder embedding.Embedder
	scorer   *keyword.Scorer
	alpha    float64
}

// NewEngine creates an Engine. alpha weights semantic similarity against
// keyword relevance (1 = semantic only).
func NewEngine(store vector.Store, embedder embedding.Embedder, alpha float64) *Engine {
	return &Engine{
		store:    store,
		embedder: embedder,
		scorer:   keyword.NewScorer(),
		alpha:    alpha,
	}
}

// Retrieve runs a hybrid search: a wide semantic pass, alpha-blended
// keyword scoring, per-company balancing for multi-company queries, and a
// final keyword rerank down to TopK.
func (e *Engine) Retrieve(ctx context.Context, req Request) ([]models.RetrievedChunk, error) {
	if req.UserID == "" {
		return nil, fmt.Errorf("user id is required for retrieval")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = config.DefaultTopK
	}

	companies := targetCompanies(req.Filters)
	multiCompany := len(companies) > 1

	// Wide candidate pool for reranking; wider still when the pool must
	// cover several companies before balancing.
	searchLimit := config.TopKInitial
	if multiCompany {
		searchLimit *= 3
	}

	chunks, err := e.store.Search(ctx, req.Vector, req.UserID, req.Filters, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	if req.QueryText != "" {
		chunks = e.blendScores(chunks, req.QueryText)
	}

	if multiCompany {
		chunks = NormalizePerCompany(chunks, companies)
		chunks = BalanceAcrossCompanies(chunks, companies, config.TopKInitial)
	} else {
		sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
		if len(chunks) > config.TopKInitial {
			chunks = chunks[:config.TopKInitial]
		}
	}

	rerankQuery := req.QueryText
	if rerankQuery != "" {
		chunks = Rerank(chunks, rerankQuery, e.scorer)
	}

	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

// blendScores combines normalized semantic similarity with keyword
// relevance using the configured alpha.
func (e *Engine) blendScores(chunks []models.RetrievedChunk, queryText string) []models.RetrievedChunk {
	for i := range chunks {
		semantic := NormalizeSemanticScore(chunks[i].Score)
		kw := e.scorer.Relevance(queryText, chunks[i].Content)

		chunks[i].Score = e.alpha*semantic + (1-e.alpha)*kw
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any)
		}
		chunks[i].Metadata["semantic_score"] = semantic
		chunks[i].Metadata["keyword_score"] = kw
	}
	return chunks
}

// RetrieveSubQueries fans out one retrieval per sub-query, tags every
// chunk with its sub-query intent, deduplicates across sub-queries and
// groups the results by intent. A failing sub-query contributes nothing
// rather than failing the whole pass.
func (e *Engine) RetrieveSubQueries(ctx context.Context, subQueries []models.SubQuery, userID string) ([]models.RetrievedChunk, map[string][]models.RetrievedChunk, error) {
	if userID == "" {
		return nil, nil, fmt.Errorf("user id is required for retrieval")
	}

	var mu sync.Mutex
	var merged []models.RetrievedChunk

	g, gctx := errgroup.WithContext(ctx)
	for _, sq := range subQueries {
		g.Go(func() error {
			chunks, err := e.retrieveOne(gctx, sq, userID)
			if err != nil {
				log.Error().Err(err).Str("intent", sq.Intent).Msg("sub-query retrieval failed")
				return nil
			}
			mu.Lock()
			merged = append(merged, chunks...)
			mu.Unlock()
			log.Debug().Str("intent", sq.Intent).Int("chunks", len(chunks)).Msg("sub-query retrieved")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })
	merged = Deduplicate(merged)

	byIntent := make(map[string][]models.RetrievedChunk, len(subQueries))
	for _, sq := range subQueries {
		for _, chunk := range merged {
			if chunk.Intent() == sq.Intent {
				byIntent[sq.Intent] = append(byIntent[sq.Intent], chunk)
			}
		}
	}
	return merged, byIntent, nil
}

func (e *Engine) retrieveOne(ctx context.Context, sq models.SubQuery, userID string) ([]models.RetrievedChunk, error) {
	text := sq.AugmentedQuery
	if text == "" {
		text = sq.Text
	}

	vec, err := e.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed sub-query: %w", err)
	}

	filters := models.QueryFilters{YearRange: sq.YearRange}
	if len(sq.Companies) == 1 {
		filters.Company = sq.Companies[0]
	} else if len(sq.Companies) > 1 {
		filters.Companies = sq.Companies
	}
	if len(sq.Years) == 1 && sq.YearRange == nil {
		filters.Year = sq.Years[0]
	}

	topK := config.DefaultTopK
	if n := len(sq.Companies); n > 1 && n*config.MultiCompanyTopKMultiplier > topK {
		topK = n * config.MultiCompanyTopKMultiplier
	}

	chunks, err := e.Retrieve(ctx, Request{
		QueryText: text,
		Vector:    vec,
		UserID:    userID,
		TopK:      topK,
		Filters:   filters,
	})
	if err != nil {
		return nil, err
	}

	for i := range chunks {
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]any)
		}
		chunks[i].Metadata["sub_query_intent"] = sq.Intent
		chunks[i].Metadata["sub_query"] = sq.Text
	}
	return chunks, nil
}

func targetCompanies(f models.QueryFilters) []string {
	if len(f.Companies) > 0 {
		return f.Companies
	}
	if f.Company != "" {
		return []string{f.Company}
	}
	return nil
}
