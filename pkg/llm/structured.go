package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finsight-ai/ragengine/pkg/models"
)

// Structured sends the conversation in JSON mode and decodes the reply
// into T. Markdown code fences around the payload are tolerated since
// smaller models add them even when asked not to.
func Structured[T any](ctx context.Context, c Client, messages []models.Message, opts Options) (T, error) {
	var result T

	opts.JSON = true
	reply, err := c.Chat(ctx, messages, opts)
	if err != nil {
		return result, err
	}

	payload := StripFences(reply.Content)
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return result, fmt.Errorf("failed to decode structured response: %w", err)
	}
	return result, nil
}

// StripFences removes a surrounding markdown code fence, if present, and
// trims whitespace.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
