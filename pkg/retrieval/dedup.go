package retrieval

import "github.com/finsight-ai/ragengine/pkg/models"

// Deduplicate drops chunks whose content prefix hash was already seen,
// keeping first occurrences. Input order determines which duplicate wins.
func Deduplicate(chunks []models.RetrievedChunk) []models.RetrievedChunk {
	seen := make(map[uint64]bool, len(chunks))
	unique := make([]models.RetrievedChunk, 0, len(chunks))
	for _, chunk := range chunks {
		h := chunk.ContentHash()
		if seen[h] {
			continue
		}
		seen[h] = true
		unique = append(unique, chunk)
	}
	return unique
}
