package models

import (
	"hash/fnv"
	"strings"
)

// ContentHashLength is the number of leading content characters that
// participate in the dedup key for a retrieved chunk.
const ContentHashLength = 200

// RetrievedChunk is one evidence unit returned by the retrieval engine.
// All document attributes live in the metadata map; there are no redundant
// top-level fields.
type RetrievedChunk struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// Company returns the lowercase company the chunk belongs to, or "".
func (c RetrievedChunk) Company() string {
	if v, ok := c.Metadata["company"].(string); ok {
		return strings.ToLower(v)
	}
	return ""
}

// FiscalYear returns the chunk's fiscal year, or 0 when absent.
func (c RetrievedChunk) FiscalYear() int {
	switch v := c.Metadata["fiscal_year"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Intent returns the originating sub-query intent tag, or "".
func (c RetrievedChunk) Intent() string {
	if v, ok := c.Metadata["sub_query_intent"].(string); ok {
		return v
	}
	return ""
}

// ContentHash hashes the first ContentHashLength characters of the chunk
// content. Chunks with equal hashes collapse to one during pooling.
func (c RetrievedChunk) ContentHash() uint64 {
	content := c.Content
	if len(content) > ContentHashLength {
		content = content[:ContentHashLength]
	}
	h := fnv.New64a()
	h.Write([]byte(content))
	return h.Sum64()
}
