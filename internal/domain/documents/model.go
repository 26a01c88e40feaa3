package documents

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusDeleted    = "deleted"
)

const (
	TypeLabReport    = "lab_report"
	TypePrescription = "prescription"
	TypeImaging      = "imaging"
	TypeOther        = "other"
)

var validDocumentTypes = map[string]bool{
	TypeLabReport: true, TypePrescription: true, TypeImaging: true, TypeOther: true,
}

// Document maps to the documents table.
type Document struct {
	ID             uuid.UUID       `db:"id" json:"id"`
	UserID         string          `db:"user_id" json:"-"`
	Filename       string          `db:"filename" json:"filename"`
	MimeType       string          `db:"mime_type" json:"mime_type"`
	DocumentType   string          `db:"document_type" json:"document_type"`
	SizeBytes      int64           `db:"size_bytes" json:"file_size"`
	ContentHash    string          `db:"content_hash" json:"content_hash"`
	StorageKey     string          `db:"storage_key" json:"-"`
	OCRText        string          `db:"ocr_text" json:"ocr_text"`
	OCRConfidence  *float64        `db:"ocr_confidence" json:"ocr_confidence,omitempty"`
	OCRMethod      string          `db:"ocr_method" json:"ocr_method"`
	PageCount      int             `db:"page_count" json:"page_count"`
	Status         string          `db:"status" json:"status"`
	Analysis       json.RawMessage `db:"analysis" json:"analysis,omitempty"`
	IntegrityValid *bool           `db:"integrity_valid" json:"integrity_valid,omitempty"`
	LastVerifiedAt *time.Time      `db:"last_verified_at" json:"last_verified_at,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// OwnedBy reports whether the document is visible to userID.
func (d *Document) OwnedBy(userID string) bool {
	return d.UserID == userID && d.Status != StatusDeleted
}
