package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

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

const documentCols = `id, user_id, filename, mime_type, document_type, size_bytes,
	content_hash, storage_key, COALESCE(ocr_text, ''), ocr_confidence, ocr_method, page_count,
	status, analysis, integrity_valid, last_verified_at, created_at, updated_at`

func scanDocument(row pgx.Row) (*Document, error) {
	var d Document
	var analysis []byte
	err := row.Scan(&d.ID, &d.UserID, &d.Filename, &d.MimeType, &d.DocumentType, &d.SizeBytes,
		&d.ContentHash, &d.StorageKey, &d.OCRText, &d.OCRConfidence, &d.OCRMethod, &d.PageCount,
		&d.Status, &analysis, &d.IntegrityValid, &d.LastVerifiedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(analysis) > 0 {
		d.Analysis = json.RawMessage(analysis)
	}
	return &d, nil
}

func (r *repoPG) Create(ctx context.Context, d *Document) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO documents (id, user_id, filename, mime_type, document_type, size_bytes,
			content_hash, storage_key, ocr_text, ocr_confidence, ocr_method, page_count, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING created_at, updated_at`,
		d.ID, d.UserID, d.Filename, d.MimeType, d.DocumentType, d.SizeBytes,
		d.ContentHash, d.StorageKey, d.OCRText, d.OCRConfidence, d.OCRMethod, d.PageCount, d.Status).
		Scan(&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	d, err := scanDocument(r.conn(ctx).QueryRow(ctx, `SELECT `+documentCols+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

func (r *repoPG) ListByUser(ctx context.Context, userID, docType string, limit, offset int) ([]*Document, int, error) {
	where := `user_id = $1 AND status <> 'deleted' AND ($2 = '' OR document_type = $2)`

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE `+where, userID, docType).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+documentCols+` FROM documents WHERE `+where+` ORDER BY created_at DESC LIMIT $3 OFFSET $4`,
		userID, docType, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	items, err := collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *repoPG) ListWithText(ctx context.Context, userID string) ([]*Document, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+documentCols+` FROM documents
		WHERE user_id = $1 AND status <> 'deleted' AND btrim(COALESCE(ocr_text, '')) <> ''
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents with text: %w", err)
	}
	return collect(rows)
}

func collect(rows pgx.Rows) ([]*Document, error) {
	defer rows.Close()
	var items []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
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

func (r *repoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return r.exec(ctx, `UPDATE documents SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
}

func (r *repoPG) SaveAnalysis(ctx context.Context, id uuid.UUID, analysis json.RawMessage) error {
	return r.exec(ctx, `UPDATE documents SET analysis = $2, updated_at = NOW() WHERE id = $1`, id, []byte(analysis))
}

func (r *repoPG) SaveVerification(ctx context.Context, id uuid.UUID, valid bool, at time.Time) error {
	return r.exec(ctx,
		`UPDATE documents SET integrity_valid = $2, last_verified_at = $3, updated_at = NOW() WHERE id = $1`,
		id, valid, at)
}
