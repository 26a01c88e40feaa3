package chat

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("conversation not found")

type Repository interface {
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Conversation, int, error)
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) error
	LinkDocument(ctx context.Context, id, documentID uuid.UUID, filename string) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddMessage(ctx context.Context, m *Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error)
	// RecordReply stores an assistant message and stamps the conversation
	// with the expert that produced it, atomically.
	RecordReply(ctx context.Context, m *Message) error
}
