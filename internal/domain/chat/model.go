package chat

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	DefaultTitle = "New Conversation"
)

// Conversation maps to the conversations table.
type Conversation struct {
	ID               uuid.UUID  `db:"id" json:"id"`
	UserID           string     `db:"user_id" json:"-"`
	Title            string     `db:"title" json:"title"`
	DocumentID       *uuid.UUID `db:"document_id" json:"document_id"`
	DocumentFilename *string    `db:"document_filename" json:"document_filename"`
	ExpertUsed       *string    `db:"expert_used" json:"expert_used"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updated_at"`
}

// Message maps to the messages table. Assistant messages carry the model
// bookkeeping; user messages leave it empty.
type Message struct {
	ID             uuid.UUID `db:"id" json:"id"`
	ConversationID uuid.UUID `db:"conversation_id" json:"-"`
	Role           string    `db:"role" json:"role"`
	Content        string    `db:"content" json:"content"`
	Model          *string   `db:"model" json:"model_used"`
	TokensUsed     *int      `db:"tokens_used" json:"tokens_used"`
	LatencyMS      *int64    `db:"latency_ms" json:"latency_ms"`
	Expert         *string   `db:"expert" json:"expert_used,omitempty"`
	HasDocument    *bool     `db:"has_document" json:"has_document_context"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type ConversationWithMessages struct {
	*Conversation
	Messages []*Message `json:"messages"`
}
