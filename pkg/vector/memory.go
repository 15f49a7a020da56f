package vector

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/finsight-ai/ragengine/pkg/models"
)

// MemoryStore is an in-process Store with exact cosine search. It backs
// tests and local development where no Qdrant server is available.
type MemoryStore struct {
	mu     sync.RWMutex
	points map[string]Point
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{points: make(map[string]Point)}
}

// Search scans all points, applying the same filter semantics as the
// Qdrant store.
func (s *MemoryStore) Search(ctx context.Context, vector []float32, userID string, filters models.QueryFilters, limit int) ([]models.RetrievedChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var chunks []models.RetrievedChunk
	for _, p := range s.points {
		if !matchesFilters(p.Payload, userID, filters) {
			continue
		}
		chunk := models.RetrievedChunk{
			Score:    cosine(vector, p.Vector),
			Metadata: clone(p.Payload),
		}
		if content, ok := chunk.Metadata["content"].(string); ok {
			chunk.Content = content
			delete(chunk.Metadata, "content")
		}
		chunks = append(chunks, chunk)
	}

	sort.SliceStable(chunks, func(i, j int) bool { return chunks[i].Score > chunks[j].Score })
	if len(chunks) > limit {
		chunks = chunks[:limit]
	}
	return chunks, nil
}

// Upsert stores the points, replacing existing IDs.
func (s *MemoryStore) Upsert(_ context.Context, points []Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.points[p.ID] = p
	}
	return nil
}

// EnsureCollection is a no-op for the in-memory store.
func (s *MemoryStore) EnsureCollection(context.Context, int) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// Len reports the number of stored points.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.points)
}

func matchesFilters(payload map[string]any, userID string, f models.QueryFilters) bool {
	if str(payload["user_id"]) != userID {
		return false
	}

	company := strings.ToLower(str(payload["company"]))
	if len(f.Companies) > 0 {
		found := false
		for _, c := range f.Companies {
			if strings.ToLower(c) == company {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	} else if f.Company != "" && strings.ToLower(f.Company) != company {
		return false
	}

	year := num(payload["fiscal_year"])
	if f.YearRange != nil {
		if year < f.YearRange.Min || year > f.YearRange.Max {
			return false
		}
	} else if f.Year != 0 && year != f.Year {
		return false
	}

	if f.DocumentType != "" && str(payload["document_type"]) != f.DocumentType {
		return false
	}
	if f.ChunkType != "" && str(payload["chunk_type"]) != f.ChunkType {
		return false
	}
	if f.FiscalQuarter != 0 && num(payload["fiscal_quarter"]) != f.FiscalQuarter {
		return false
	}
	if f.HasTable != nil {
		b, _ := payload["has_table"].(bool)
		if b != *f.HasTable {
			return false
		}
	}
	return true
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func num(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func clone(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
