// Package memory stores conversations and retrieves them across sessions
// by semantic similarity over their summaries.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/finsight-ai/ragengine/pkg/models"
)

// Repository is the structured side of conversation storage. The vector
// side lives in the conversation memory collection and holds only summary
// embeddings pointing back at repository records.
type Repository interface {
	Insert(ctx context.Context, conv models.Conversation) error
	Update(ctx context.Context, conv models.Conversation) error
	GetByIDs(ctx context.Context, ids []string) ([]models.Conversation, error)
	GetBySession(ctx context.Context, userID, sessionID string) ([]models.Conversation, error)
}

// InMemoryRepository keeps conversations in a map. Suitable for tests and
// single-process deployments.
type InMemoryRepository struct {
	mu            sync.RWMutex
	conversations map[string]models.Conversation
}

// NewInMemoryRepository returns an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{conversations: make(map[string]models.Conversation)}
}

// Insert stores a new conversation record.
func (r *InMemoryRepository) Insert(_ context.Context, conv models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversations[conv.ID] = conv
	return nil
}

// Update replaces an existing conversation record.
func (r *InMemoryRepository) Update(ctx context.Context, conv models.Conversation) error {
	return r.Insert(ctx, conv)
}

// GetByIDs returns the conversations with the given IDs, skipping unknown
// ones.
func (r *InMemoryRepository) GetByIDs(_ context.Context, ids []string) ([]models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Conversation
	for _, id := range ids {
		if conv, ok := r.conversations[id]; ok {
			out = append(out, conv)
		}
	}
	return out, nil
}

// GetBySession returns a user's conversations for one session, oldest
// first.
func (r *InMemoryRepository) GetBySession(_ context.Context, userID, sessionID string) ([]models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Conversation
	for _, conv := range r.conversations {
		if conv.UserID == userID && conv.SessionID == sessionID {
			out = append(out, conv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}
