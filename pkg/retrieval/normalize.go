package retrieval

import (
	"math"

	"github.com/finsight-ai/ragengine/pkg/models"
)

// NormalizeSemanticScore maps a raw similarity score into [0,1]. Cosine
// scores can be negative; those are shifted with (s+1)/2 and clamped.
// Non-negative scores pass through unchanged.
func NormalizeSemanticScore(score float64) float64 {
	if score >= 0 {
		return score
	}
	return math.Max(0.0, math.Min(1.0, (score+1)/2))
}

// NormalizePerCompany applies z-score normalization to each company's
// scores independently so that companies with systematically higher raw
// similarity do not crowd out the others. When a company's scores have no
// variance they all collapse to 0.
func NormalizePerCompany(chunks []models.RetrievedChunk, companies []string) []models.RetrievedChunk {
	grouped := groupByCompany(chunks, companies)

	var out []models.RetrievedChunk
	for _, company := range normalizeNames(companies) {
		group := grouped[company]
		if len(group) == 0 {
			continue
		}

		var mean float64
		for _, c := range group {
			mean += c.Score
		}
		mean /= float64(len(group))

		var variance float64
		for _, c := range group {
			variance += (c.Score - mean) * (c.Score - mean)
		}
		std := math.Sqrt(variance / float64(len(group)))

		for i := range group {
			if std > 0 {
				group[i].Score = (group[i].Score - mean) / std
			} else {
				group[i].Score = 0.0
			}
		}
		out = append(out, group...)
	}
	return out
}
