package retrieval

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/ragengine/pkg/models"
)

func chunksFor(company string, scores ...float64) []models.RetrievedChunk {
	chunks := make([]models.RetrievedChunk, len(scores))
	for i, score := range scores {
		chunks[i] = models.RetrievedChunk{
			Content:  fmt.Sprintf("%s chunk %d", company, i),
			Score:    score,
			Metadata: map[string]any{"company": company},
		}
	}
	return chunks
}

func countByCompany(chunks []models.RetrievedChunk) map[string]int {
	counts := make(map[string]int)
	for _, c := range chunks {
		counts[c.Company()]++
	}
	return counts
}

func TestBalanceEqualRepresentation(t *testing.T) {
	var pool []models.RetrievedChunk
	pool = append(pool, chunksFor("apple", 0.9, 0.8, 0.7, 0.6, 0.5, 0.4)...)
	pool = append(pool, chunksFor("microsoft", 0.95, 0.85, 0.75, 0.65, 0.55, 0.45)...)

	balanced := BalanceAcrossCompanies(pool, []string{"apple", "microsoft"}, 10)

	counts := countByCompany(balanced)
	assert.Equal(t, 5, counts["apple"])
	assert.Equal(t, 5, counts["microsoft"])
}

func TestBalanceRemainderDistribution(t *testing.T) {
	var pool []models.RetrievedChunk
	pool = append(pool, chunksFor("apple", 0.9, 0.8, 0.7)...)
	pool = append(pool, chunksFor("microsoft", 0.95, 0.85, 0.75)...)
	pool = append(pool, chunksFor("nvidia", 0.93, 0.83, 0.73)...)

	balanced := BalanceAcrossCompanies(pool, []string{"apple", "microsoft", "nvidia"}, 7)

	require.Len(t, balanced, 7)
	counts := countByCompany(balanced)
	// 7/3 = 2 each plus one extra, handed out in target list order.
	assert.Equal(t, 3, counts["apple"])
	assert.Equal(t, 2, counts["microsoft"])
	assert.Equal(t, 2, counts["nvidia"])
}

func TestBalanceMissingCompany(t *testing.T) {
	pool := chunksFor("apple", 0.9, 0.8, 0.7, 0.6)

	balanced := BalanceAcrossCompanies(pool, []string{"apple", "tesla"}, 4)

	counts := countByCompany(balanced)
	assert.Zero(t, counts["tesla"])
	assert.Equal(t, 2, counts["apple"])
}

func TestBalancePreservesPerCompanyScoreOrder(t *testing.T) {
	var pool []models.RetrievedChunk
	pool = append(pool, chunksFor("apple", 0.5, 0.9, 0.7)...)
	pool = append(pool, chunksFor("microsoft", 0.6, 0.8)...)

	balanced := BalanceAcrossCompanies(pool, []string{"apple", "microsoft"}, 4)

	var appleScores, microsoftScores []float64
	for _, c := range balanced {
		switch c.Company() {
		case "apple":
			appleScores = append(appleScores, c.Score)
		case "microsoft":
			microsoftScores = append(microsoftScores, c.Score)
		}
	}
	assert.IsDecreasing(t, appleScores)
	assert.IsDecreasing(t, microsoftScores)
}

func TestBalanceCaseInsensitiveCompanies(t *testing.T) {
	var pool []models.RetrievedChunk
	pool = append(pool, chunksFor("apple", 0.9, 0.8)...)
	pool = append(pool, chunksFor("microsoft", 0.7, 0.6)...)

	balanced := BalanceAcrossCompanies(pool, []string{"Apple", "Microsoft"}, 4)
	assert.Len(t, balanced, 4)
}
