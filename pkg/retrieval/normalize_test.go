package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/ragengine/pkg/models"
)

func TestNormalizeSemanticScore(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"positive passthrough", 0.8, 0.8},
		{"zero passthrough", 0.0, 0.0},
		{"above one passthrough", 1.2, 1.2},
		{"negative shifted", -0.5, 0.25},
		{"minimum cosine", -1.0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NormalizeSemanticScore(tt.in), 1e-9)
		})
	}
}

func TestNormalizePerCompanyZScore(t *testing.T) {
	var pool []models.RetrievedChunk
	pool = append(pool, chunksFor("apple", 0.9, 0.7, 0.5)...)
	pool = append(pool, chunksFor("microsoft", 0.4, 0.3, 0.2)...)

	normalized := NormalizePerCompany(pool, []string{"apple", "microsoft"})
	require.Len(t, normalized, 6)

	// Within each company the scores are centered on zero.
	sums := make(map[string]float64)
	for _, c := range normalized {
		sums[c.Company()] += c.Score
	}
	assert.InDelta(t, 0.0, sums["apple"], 1e-9)
	assert.InDelta(t, 0.0, sums["microsoft"], 1e-9)
}

func TestNormalizePerCompanyZeroVariance(t *testing.T) {
	pool := chunksFor("apple", 0.5, 0.5, 0.5)

	normalized := NormalizePerCompany(pool, []string{"apple"})
	require.Len(t, normalized, 3)
	for _, c := range normalized {
		assert.Zero(t, c.Score)
	}
}

func TestNormalizePerCompanyDropsUntargeted(t *testing.T) {
	var pool []models.RetrievedChunk
	pool = append(pool, chunksFor("apple", 0.9, 0.7)...)
	pool = append(pool, chunksFor("tesla", 0.8)...)

	normalized := NormalizePerCompany(pool, []string{"apple"})
	assert.Len(t, normalized, 2)
}
