package documents

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("document not found")

type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	// ListByUser returns non-deleted documents newest first. An empty
	// docType matches every type.
	ListByUser(ctx context.Context, userID, docType string, limit, offset int) ([]*Document, int, error)
	// ListWithText returns non-deleted documents that have extracted text,
	// newest first.
	ListWithText(ctx context.Context, userID string) ([]*Document, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	SaveAnalysis(ctx context.Context, id uuid.UUID, analysis json.RawMessage) error
	SaveVerification(ctx context.Context, id uuid.UUID, valid bool, at time.Time) error
}
