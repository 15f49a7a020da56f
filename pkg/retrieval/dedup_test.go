package retrieval

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/ragengine/pkg/models"
)

func TestDeduplicateKeepsFirstOccurrence(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Content: "Apple revenue was $394 billion", Score: 0.9},
		{Content: "Apple revenue was $394 billion", Score: 0.5},
		{Content: "Microsoft revenue was $198 billion", Score: 0.7},
	}

	unique := Deduplicate(chunks)
	require.Len(t, unique, 2)
	assert.Equal(t, 0.9, unique[0].Score)
}

func TestDeduplicateUsesContentPrefix(t *testing.T) {
	prefix := strings.Repeat("a", models.ContentHashLength)
	chunks := []models.RetrievedChunk{
		{Content: prefix + " first tail"},
		{Content: prefix + " second tail"},
	}

	// Identical first 200 characters collapse even when the tails differ.
	unique := Deduplicate(chunks)
	assert.Len(t, unique, 1)
}

func TestDeduplicateShortContentDiffers(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Content: "short one"},
		{Content: "short two"},
	}

	unique := Deduplicate(chunks)
	assert.Len(t, unique, 2)
}

func TestDeduplicateDeterministic(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{Content: "alpha"}, {Content: "beta"}, {Content: "alpha"}, {Content: "gamma"}, {Content: "beta"},
	}

	first := Deduplicate(chunks)
	second := Deduplicate(chunks)
	assert.Equal(t, first, second)
	assert.Len(t, first, 3)
}
