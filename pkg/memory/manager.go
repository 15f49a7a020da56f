package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/finsight-ai/ragengine/pkg/embedding"
	"github.com/finsight-ai/ragengine/pkg/llm"
	"github.com/finsight-ai/ragengine/pkg/models"
	"github.com/finsight-ai/ragengine/pkg/vector"
)

// DefaultRelevantLimit caps how many past conversations a memory lookup
// returns.
const DefaultRelevantLimit = 5

const summarySystemPrompt = `You are a conversation summarizer for a financial analysis assistant.
Summarize the conversation in 2-3 sentences, capturing the companies, metrics,
years and conclusions discussed. Output plain text only.`

// Manager stores conversations in a repository and indexes their
// summaries in a vector collection for cross-session recall.
type Manager struct {
	repo     Repository
	store    vector.Store
	embedder embedding.Embedder
	llm      llm.Client
}

// NewManager wires the conversation repository, the summary vector store
// and the summarization model.
func NewManager(repo Repository, store vector.Store, embedder embedding.Embedder, client llm.Client) *Manager {
	return &Manager{repo: repo, store: store, embedder: embedder, llm: client}
}

// StoreConversation persists a conversation and, when a summary is
// present, indexes its embedding for semantic recall. Returns the new
// conversation ID.
func (m *Manager) StoreConversation(ctx context.Context, userID, sessionID string, messages []models.Message, summary string, metadata map[string]any) (string, error) {
	conv := models.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		SessionID: sessionID,
		Messages:  messages,
		Summary:   summary,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}
	if err := m.repo.Insert(ctx, conv); err != nil {
		return "", fmt.Errorf("failed to store conversation: %w", err)
	}

	if summary != "" {
		if err := m.indexSummary(ctx, conv); err != nil {
			return "", err
		}
	}

	log.Info().Str("conversation_id", conv.ID).Str("session_id", sessionID).
		Msg("stored conversation")
	return conv.ID, nil
}

func (m *Manager) indexSummary(ctx context.Context, conv models.Conversation) error {
	vec, err := m.embedder.EmbedText(ctx, conv.Summary)
	if err != nil {
		return fmt.Errorf("failed to embed summary: %w", err)
	}

	err = m.store.Upsert(ctx, []vector.Point{{
		ID:     conv.ID,
		Vector: vec,
		Payload: map[string]any{
			"user_id":         conv.UserID,
			"session_id":      conv.SessionID,
			"conversation_id": conv.ID,
			"timestamp":       conv.Timestamp.Format(time.RFC3339),
			"summary":         conv.Summary,
		},
	}})
	if err != nil {
		return fmt.Errorf("failed to index conversation summary: %w", err)
	}
	return nil
}

// RelevantMemory returns past conversations semantically related to the
// query. Lookup failures degrade to an empty result since memory context
// is optional.
func (m *Manager) RelevantMemory(ctx context.Context, userID, query string, limit int) []models.Conversation {
	if limit <= 0 {
		limit = DefaultRelevantLimit
	}

	vec, err := m.embedder.EmbedQuery(ctx, query)
	if err != nil {
		log.Error().Err(err).Msg("memory lookup: embedding failed")
		return nil
	}

	hits, err := m.store.Search(ctx, vec, userID, models.QueryFilters{}, limit)
	if err != nil {
		log.Error().Err(err).Msg("memory lookup: search failed")
		return nil
	}

	var ids []string
	for _, hit := range hits {
		if id, ok := hit.Metadata["conversation_id"].(string); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	conversations, err := m.repo.GetByIDs(ctx, ids)
	if err != nil {
		log.Error().Err(err).Msg("memory lookup: repository fetch failed")
		return nil
	}
	return conversations
}

// SessionConversations returns the user's conversations for one session,
// oldest first.
func (m *Manager) SessionConversations(ctx context.Context, userID, sessionID string) ([]models.Conversation, error) {
	return m.repo.GetBySession(ctx, userID, sessionID)
}

// Summarize produces a short summary of the conversation for memory
// indexing.
func (m *Manager) Summarize(ctx context.Context, messages []models.Message) (string, error) {
	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(string(msg.Role))
		b.WriteString(": ")
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}

	reply, err := m.llm.Chat(ctx, []models.Message{
		{Role: models.RoleSystem, Content: summarySystemPrompt, Timestamp: time.Now()},
		{Role: models.RoleUser, Content: b.String(), Timestamp: time.Now()},
	}, llm.Options{Temperature: 0.3, TopP: 0.9, MaxTokens: 256})
	if err != nil {
		return "", fmt.Errorf("failed to summarize conversation: %w", err)
	}
	return strings.TrimSpace(reply.Content), nil
}
