package retrieval

import (
	"sort"

	"github.com/finsight-ai/ragengine/pkg/keyword"
	"github.com/finsight-ai/ragengine/pkg/models"
)

// Rerank weights.
const (
	rerankSemanticWeight = 0.6
	rerankKeywordWeight  = 0.4
)

// Rerank orders chunks by a weighted blend of the (normalized) semantic
// score and a fresh keyword relevance pass against the query text.
func Rerank(chunks []models.RetrievedChunk, queryText string, scorer *keyword.Scorer) []models.RetrievedChunk {
	if len(chunks) == 0 {
		return chunks
	}

	reranked := make([]models.RetrievedChunk, len(chunks))
	copy(reranked, chunks)

	for i := range reranked {
		semantic := NormalizeSemanticScore(reranked[i].Score)
		kw := scorer.Relevance(queryText, reranked[i].Content)

		reranked[i].Score = rerankSemanticWeight*semantic + rerankKeywordWeight*kw
		if reranked[i].Metadata == nil {
			reranked[i].Metadata = make(map[string]any)
		}
		reranked[i].Metadata["keyword_rerank_score"] = kw
	}

	sort.SliceStable(reranked, func(i, j int) bool { return reranked[i].Score > reranked[j].Score })
	return reranked
}
