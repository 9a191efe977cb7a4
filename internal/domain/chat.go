package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// ChatMessage is one entry of a clarification transcript. The transcript is
// append-only and scoped to a single wizard session.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChatMessage(role ChatRole, content string) ChatMessage {
	return ChatMessage{ID: uuid.New(), Role: role, Content: content, Timestamp: time.Now()}
}
