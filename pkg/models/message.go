package models

import "time"

// Role represents the role of a message sender
type Role string

const (
	// RoleUser represents a message from the user
	RoleUser Role = "user"
	// RoleAssistant represents a message from the assistant
	RoleAssistant Role = "assistant"
	// RoleSystem represents a system message
	RoleSystem Role = "system"
)

// Message represents a chat message
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one stored exchange: the messages of a workflow run plus
// the summary the memory layer indexes for cross-session recall.
type Conversation struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	SessionID string         `json:"session_id"`
	Messages  []Message      `json:"messages"`
	Summary   string         `json:"summary,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
