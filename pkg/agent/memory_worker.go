package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/finsight-ai/ragengine/pkg/llm"
	"github.com/finsight-ai/ragengine/pkg/memory"
	"github.com/finsight-ai/ragengine/pkg/models"
)

const (
	defaultMemoryQueueSize = 16
	memoryWriteTimeout     = 30 * time.Second
)

// memoryTask is one pending conversation write.
type memoryTask struct {
	userID    string
	sessionID string
	messages  []models.Message
	summary   string
	metadata  map[string]any
}

// memoryWorker persists conversations off the request path. The queue is
// bounded; a full queue drops the write rather than blocking a response,
// so each run stores its conversation at most once and possibly not at
// all.
type memoryWorker struct {
	manager *memory.Manager
	llm     llm.Client
	queue   chan memoryTask
	wg      sync.WaitGroup

	closeOnce sync.Once
}

func newMemoryWorker(manager *memory.Manager, client llm.Client, size int) *memoryWorker {
	w := &memoryWorker{
		manager: manager,
		llm:     client,
		queue:   make(chan memoryTask, size),
	}
	w.wg.Add(1)
	go w.run()
	return w
}

func (w *memoryWorker) run() {
	defer w.wg.Done()
	for task := range w.queue {
		w.store(task)
	}
}

// enqueue schedules a write without blocking. Reports whether the task
// was accepted.
func (w *memoryWorker) enqueue(task memoryTask) bool {
	select {
	case w.queue <- task:
		return true
	default:
		log.Warn().Str("session_id", task.sessionID).Msg("memory queue full, dropping write")
		return false
	}
}

// close stops the worker after draining queued writes.
func (w *memoryWorker) close() {
	w.closeOnce.Do(func() { close(w.queue) })
	w.wg.Wait()
}

// store runs under its own deadline: the originating request is already
// answered, so its context must not govern the write.
func (w *memoryWorker) store(task memoryTask) {
	ctx, cancel := context.WithTimeout(context.Background(), memoryWriteTimeout)
	defer cancel()

	summary := task.summary
	if summary == "" {
		var err error
		summary, err = w.manager.Summarize(ctx, task.messages)
		if err != nil {
			log.Warn().Err(err).Msg("memory summarization failed, using fallback")
			summary = fallbackSummary(task.messages)
		}
	}

	if _, err := w.manager.StoreConversation(ctx, task.userID, task.sessionID,
		task.messages, summary, task.metadata); err != nil {
		log.Error().Err(err).Str("session_id", task.sessionID).Msg("memory write failed")
	}
}

func fallbackSummary(messages []models.Message) string {
	var query, response string
	for _, msg := range messages {
		switch msg.Role {
		case models.RoleUser:
			if query == "" {
				query = msg.Content
			}
		case models.RoleAssistant:
			response = msg.Content
		}
	}
	if response == "" {
		response = "No response"
	}
	return fmt.Sprintf("Query: %s, Response: %s", query, response)
}

// memoryTaskFromState builds the write for a completed run. When the
// caller supplied no message history the exchange is reconstructed from
// the query and the generated answer.
func memoryTaskFromState(s *State) memoryTask {
	messages := s.Messages
	if len(messages) == 0 {
		now := time.Now()
		if s.Query != "" {
			messages = append(messages, models.Message{
				Role: models.RoleUser, Content: s.Query, Timestamp: now,
			})
		}
		if s.Response != nil && s.Response.Text != "" {
			messages = append(messages, models.Message{
				Role: models.RoleAssistant, Content: s.Response.Text, Timestamp: now,
			})
		}
	}

	metadata := make(map[string]any)
	if s.Processed != nil {
		if len(s.Processed.Companies) > 0 {
			metadata["companies"] = s.Processed.Companies
		}
		if len(s.Processed.Years) > 0 {
			metadata["years"] = s.Processed.Years
		}
		if s.Processed.QueryType != "" {
			metadata["topics"] = []string{s.Processed.QueryType}
		}
	}
	if s.Response != nil && len(s.Response.Charts) > 0 {
		metadata["charts"] = s.Response.Charts
		metadata["sources"] = s.Response.Sources
	}

	return memoryTask{
		userID:    s.UserID,
		sessionID: s.SessionID,
		messages:  messages,
		summary:   s.ConversationSummary,
		metadata:  metadata,
	}
}
