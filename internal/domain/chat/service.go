package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/carebridge/carebridge/internal/assistant"
	"github.com/carebridge/carebridge/internal/domain/documents"
	"github.com/carebridge/carebridge/pkg/pagination"
)

// ErrDocumentNotFound is returned when a referenced document is missing or
// belongs to someone else.
var ErrDocumentNotFound = errors.New("document not found")

// DocumentSource is satisfied by *documents.Service.
type DocumentSource interface {
	Get(ctx context.Context, id uuid.UUID, userID string) (*documents.Document, error)
	ContextForDocument(ctx context.Context, id uuid.UUID, userID string) string
	ContextForSelection(ctx context.Context, ids []string, userID string) string
	ContextForUser(ctx context.Context, userID string) string
}

// RoleResolver is satisfied by *users.Service.
type RoleResolver interface {
	RoleFor(ctx context.Context, userID, email string) string
}

type Service struct {
	repo      Repository
	docs      DocumentSource
	roles     RoleResolver
	assistant Assistant
	logger    zerolog.Logger
}

func NewService(repo Repository, docs DocumentSource, roles RoleResolver, asst Assistant, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		docs:      docs,
		roles:     roles,
		assistant: asst,
		logger:    logger.With().Str("component", "chat").Logger(),
	}
}

// Create starts a conversation, optionally linked to one of the caller's
// documents.
func (s *Service) Create(ctx context.Context, userID, title string, documentID *uuid.UUID) (*Conversation, error) {
	c := &Conversation{
		UserID: userID,
		Title:  strings.TrimSpace(title),
	}
	if c.Title == "" {
		c.Title = DefaultTitle
	}
	if documentID != nil {
		doc, err := s.document(ctx, *documentID, userID)
		if err != nil {
			return nil, err
		}
		c.DocumentID = &doc.ID
		c.DocumentFilename = lo.ToPtr(doc.Filename)
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("conversation_id", c.ID.String()).
		Bool("linked_document", c.DocumentID != nil).
		Msg("conversation created")
	return c, nil
}

// Get returns a conversation owned by userID. Someone else's conversation
// is reported as not found.
func (s *Service) Get(ctx context.Context, id uuid.UUID, userID string) (*Conversation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, ErrNotFound
	}
	return c, nil
}

func (s *Service) GetWithMessages(ctx context.Context, id uuid.UUID, userID string) (*ConversationWithMessages, error) {
	c, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if msgs == nil {
		msgs = []*Message{}
	}
	return &ConversationWithMessages{Conversation: c, Messages: msgs}, nil
}

func (s *Service) List(ctx context.Context, userID string, p pagination.Params) ([]*Conversation, int, error) {
	return s.repo.ListByUser(ctx, userID, p.Limit(), p.Offset())
}

func (s *Service) UpdateTitle(ctx context.Context, id uuid.UUID, userID, title string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.UpdateTitle(ctx, id, title)
}

// LinkDocument attaches a document to an existing conversation and returns
// the linked document.
func (s *Service) LinkDocument(ctx context.Context, id uuid.UUID, userID string, documentID uuid.UUID) (*documents.Document, error) {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return nil, err
	}
	doc, err := s.document(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.LinkDocument(ctx, id, doc.ID, doc.Filename); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("conversation_id", id.String()).
		Str("document_id", doc.ID.String()).
		Msg("document linked")
	return doc, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("conversation_id", id.String()).Msg("conversation deleted")
	return nil
}

func (s *Service) document(ctx context.Context, id uuid.UUID, userID string) (*documents.Document, error) {
	doc, err := s.docs.Get(ctx, id, userID)
	if errors.Is(err, documents.ErrNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	return doc, nil
}

// SendInput is one user turn.
type SendInput struct {
	Content     string
	DocumentIDs []string
	// IncludeAllDocuments uses every ready document of the user as context
	// when neither DocumentIDs nor a linked document apply.
	IncludeAllDocuments bool
	Email               string
}

// SendMessage stores the user's message, runs an assistant turn over the
// conversation history and stores the reply. The stored reply is returned.
func (s *Service) SendMessage(ctx context.Context, id uuid.UUID, userID string, in SendInput) (*Message, error) {
	conv, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	docContext := s.documentContext(ctx, conv, userID, in)
	role := s.roles.RoleFor(ctx, userID, in.Email)

	userMsg := &Message{ConversationID: conv.ID, Role: RoleUser, Content: in.Content}
	if err := s.repo.AddMessage(ctx, userMsg); err != nil {
		return nil, err
	}

	stored, err := s.repo.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	history := lo.FilterMap(stored, func(m *Message, _ int) (assistant.Turn, bool) {
		return assistant.Turn{Role: m.Role, Content: m.Content}, m.ID != userMsg.ID
	})

	res := s.assistant.Chat(ctx, assistant.TurnRequest{
		Query:           in.Content,
		Role:            role,
		DocumentContext: docContext,
		History:         history,
	})

	reply := &Message{
		ConversationID: conv.ID,
		Role:           RoleAssistant,
		Content:        res.Reply,
		Model:          lo.EmptyableToPtr(res.Model),
		TokensUsed:     lo.ToPtr(res.TokensUsed),
		LatencyMS:      lo.ToPtr(res.LatencyMS),
		Expert:         lo.ToPtr(string(res.Category)),
		HasDocument:    lo.ToPtr(res.HasDocument),
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.RecordReply(ctx, reply); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("conversation_id", conv.ID.String()).
		Str("expert", string(res.Category)).
		Str("tier", res.Tier.String()).
		Bool("has_document", res.HasDocument).
		Bool("degraded", res.Degraded).
		Int64("latency_ms", res.LatencyMS).
		Msg("chat reply stored")
	return reply, nil
}

// documentContext picks the context source: explicit selection first, then
// the linked document, then optionally all of the user's documents.
func (s *Service) documentContext(ctx context.Context, conv *Conversation, userID string, in SendInput) string {
	switch {
	case len(in.DocumentIDs) > 0:
		return s.docs.ContextForSelection(ctx, in.DocumentIDs, userID)
	case conv.DocumentID != nil:
		return s.docs.ContextForDocument(ctx, *conv.DocumentID, userID)
	case in.IncludeAllDocuments:
		return s.docs.ContextForUser(ctx, userID)
	}
	return ""
}
