package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/carebridge/carebridge/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const conversationCols = `id, user_id, title, document_id, document_filename, expert_used, created_at, updated_at`

const messageCols = `id, conversation_id, role, content, model, tokens_used, latency_ms, expert, has_document, created_at`

func scanConversation(row pgx.Row) (*Conversation, error) {
	var c Conversation
	err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.DocumentID, &c.DocumentFilename, &c.ExpertUsed, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &m.Model, &m.TokensUsed,
		&m.LatencyMS, &m.Expert, &m.HasDocument, &m.CreatedAt)
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, c *Conversation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO conversations (id, user_id, title, document_id, document_filename)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.Title, c.DocumentID, c.DocumentFilename).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	c, err := scanConversation(r.conn(ctx).QueryRow(ctx, `SELECT `+conversationCols+` FROM conversations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *repoPG) ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Conversation, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE user_id = $1`, userID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count conversations: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+conversationCols+` FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var items []*Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan conversation: %w", err)
		}
		items = append(items, c)
	}
	return items, total, rows.Err()
}

func (r *repoPG) exec(ctx context.Context, sql string, args ...interface{}) error {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) UpdateTitle(ctx context.Context, id uuid.UUID, title string) error {
	return r.exec(ctx, `UPDATE conversations SET title = $2, updated_at = NOW() WHERE id = $1`, id, title)
}

func (r *repoPG) LinkDocument(ctx context.Context, id, documentID uuid.UUID, filename string) error {
	return r.exec(ctx,
		`UPDATE conversations SET document_id = $2, document_filename = $3, updated_at = NOW() WHERE id = $1`,
		id, documentID, filename)
}

// Delete removes the conversation; messages go with it through ON DELETE CASCADE.
func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `DELETE FROM conversations WHERE id = $1`, id)
}

func (r *repoPG) AddMessage(ctx context.Context, m *Message) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, model, tokens_used, latency_ms, expert, has_document)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`,
		m.ID, m.ConversationID, m.Role, m.Content, m.Model, m.TokensUsed, m.LatencyMS, m.Expert, m.HasDocument).
		Scan(&m.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (r *repoPG) ListMessages(ctx context.Context, conversationID uuid.UUID) ([]*Message, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+messageCols+` FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC, id ASC`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var items []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) RecordReply(ctx context.Context, m *Message) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		if err := r.AddMessage(ctx, m); err != nil {
			return err
		}
		return r.exec(ctx,
			`UPDATE conversations SET expert_used = $2, updated_at = $3 WHERE id = $1`,
			m.ConversationID, m.Expert, m.CreatedAt)
	})
}
