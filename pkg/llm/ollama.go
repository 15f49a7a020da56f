package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/rs/zerolog/log"

	"github.com/finsight-ai/ragengine/pkg/models"
)

const (
	chatMaxRetries = 3
	chatBaseDelay  = time.Second
)

// OllamaClient talks to a local Ollama server through its native API.
type OllamaClient struct {
	client *api.Client
	model  string
}

// NewOllamaClient creates a client for the Ollama server at rawURL using
// the given chat model.
func NewOllamaClient(rawURL, model string) (*OllamaClient, error) {
	if rawURL == "" {
		rawURL = "http://localhost:11434"
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ollama url: %w", err)
	}

	httpClient := &http.Client{Timeout: 5 * time.Minute}
	return &OllamaClient{
		client: api.NewClient(parsed, httpClient),
		model:  model,
	}, nil
}

// Chat sends the conversation and returns the complete assistant reply.
// Transient failures are retried with exponential backoff.
func (c *OllamaClient) Chat(ctx context.Context, messages []models.Message, opts Options) (models.Message, error) {
	apiMessages := make([]api.Message, len(messages))
	for i, msg := range messages {
		apiMessages[i] = api.Message{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: apiMessages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": opts.Temperature,
			"top_p":       opts.TopP,
			"num_predict": opts.MaxTokens,
		},
	}
	if opts.JSON {
		req.Format = json.RawMessage(`"json"`)
	}

	var content string
	var err error
	for attempt := 0; attempt < chatMaxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * chatBaseDelay
			log.Debug().Err(err).Int("attempt", attempt).Dur("delay", delay).
				Msg("retrying chat request")
			select {
			case <-ctx.Done():
				return models.Message{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		content = ""
		err = c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
			content += resp.Message.Content
			return nil
		})
		if err == nil {
			return models.Message{
				Role:      models.RoleAssistant,
				Content:   content,
				Timestamp: time.Now(),
			}, nil
		}
		if ctx.Err() != nil {
			return models.Message{}, ctx.Err()
		}
	}

	return models.Message{}, fmt.Errorf("failed to complete chat after %d attempts: %w", chatMaxRetries, err)
}

// Close releases client resources. The underlying HTTP client needs no
// explicit cleanup.
func (c *OllamaClient) Close() error {
	return nil
}
