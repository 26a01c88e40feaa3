package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/carebridge/carebridge/internal/assistant"
	"github.com/carebridge/carebridge/internal/platform/blobstore"
	"github.com/carebridge/carebridge/internal/platform/ocr"
	"github.com/carebridge/carebridge/pkg/pagination"
	"github.com/carebridge/carebridge/pkg/textutil"
)

// MaxStoredTextChars caps the OCR text persisted with a document.
const MaxStoredTextChars = 15000

var (
	ErrEmptyFile           = errors.New("uploaded file is empty")
	ErrFileTooLarge        = errors.New("file too large")
	ErrUnsupportedType     = errors.New("unsupported file type")
	ErrInvalidDocumentType = errors.New("invalid document type")
	ErrFileUnavailable     = errors.New("file not available for download")
)

// TextExtractor is satisfied by *ocr.Extractor.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) ocr.Result
}

// Analyzer is satisfied by *assistant.Service.
type Analyzer interface {
	ExtractHealthData(ctx context.Context, ocrText string) []assistant.HealthRecord
	AnalyzeImage(ctx context.Context, data []byte, mimeType, query string) assistant.TurnResult
}

type Options struct {
	MaxFileSize      int64
	AllowedMIMETypes []string
}

type Service struct {
	repo     Repository
	blobs    blobstore.BlobStore
	ocr      TextExtractor
	analyzer Analyzer
	opts     Options
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, blobs blobstore.BlobStore, extractor TextExtractor, analyzer Analyzer, opts Options, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		blobs:    blobs,
		ocr:      extractor,
		analyzer: analyzer,
		opts:     opts,
		logger:   logger.With().Str("component", "documents").Logger(),
		now:      time.Now,
	}
}

// Upload is a file received from a client.
type Upload struct {
	Filename     string
	ContentType  string
	DocumentType string
	Data         []byte
}

// Upload validates, extracts text from, stores and records a document.
func (s *Service) Upload(ctx context.Context, userID string, in Upload) (*Document, error) {
	docType := in.DocumentType
	if docType == "" {
		docType = TypeOther
	}
	if !validDocumentTypes[docType] {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDocumentType, docType)
	}
	if len(in.Data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(in.Data)) > s.opts.MaxFileSize {
		return nil, fmt.Errorf("%w (%.1fMB). Maximum: %dMB", ErrFileTooLarge,
			float64(len(in.Data))/1024/1024, s.opts.MaxFileSize/(1024*1024))
	}

	mimeType, err := s.detectType(in.ContentType, in.Data)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ID:           uuid.New(),
		UserID:       userID,
		Filename:     in.Filename,
		MimeType:     mimeType,
		DocumentType: docType,
		SizeBytes:    int64(len(in.Data)),
		ContentHash:  blobstore.Hash(in.Data),
		Status:       StatusProcessing,
	}

	result := s.ocr.Extract(ctx, in.Data, mimeType)
	doc.OCRText = textutil.Truncate(result.Text, MaxStoredTextChars)
	doc.OCRMethod = result.Method
	doc.PageCount = result.PageCount
	if result.Text != "" {
		confidence := result.Confidence
		doc.OCRConfidence = &confidence
	}

	doc.StorageKey = storageKey(userID, doc.ID, in.Filename)
	if _, err := s.blobs.Put(ctx, doc.StorageKey, in.Data); err != nil {
		return nil, fmt.Errorf("store document file: %w", err)
	}

	doc.Status = StatusReady
	if err := s.repo.Create(ctx, doc); err != nil {
		if derr := s.blobs.Delete(ctx, doc.StorageKey); derr != nil && !errors.Is(derr, blobstore.ErrBlobNotFound) {
			s.logger.Warn().Err(derr).Str("document_id", doc.ID.String()).Msg("failed to remove orphaned blob")
		}
		return nil, fmt.Errorf("record document: %w", err)
	}

	s.logger.Info().
		Str("document_id", doc.ID.String()).
		Str("mime_type", mimeType).
		Int64("size_bytes", doc.SizeBytes).
		Int("ocr_chars", textutil.Len(doc.OCRText)).
		Str("ocr_method", doc.OCRMethod).
		Float64("ocr_confidence", result.Confidence).
		Msg("document uploaded")

	return doc, nil
}

// detectType checks the declared and sniffed content types against the
// allow-list and returns the sniffed type.
func (s *Service) detectType(declared string, data []byte) (string, error) {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mt
		}
	}
	if declared != "" && declared != "application/octet-stream" && !lo.Contains(s.opts.AllowedMIMETypes, declared) {
		return "", fmt.Errorf("%w: %s. Allowed: %s", ErrUnsupportedType, declared, strings.Join(s.opts.AllowedMIMETypes, ", "))
	}

	sniffed := mimetype.Detect(data)
	allowed, ok := lo.Find(s.opts.AllowedMIMETypes, func(t string) bool { return sniffed.Is(t) })
	if !ok {
		return "", fmt.Errorf("%w: content looks like %s", ErrUnsupportedType, sniffed.String())
	}
	return allowed, nil
}

var pathSeparators = strings.NewReplacer("/", "_", "\\", "_")

func storageKey(userID string, id uuid.UUID, filename string) string {
	owner := pathSeparators.Replace(userID)
	if owner == "" || owner == "." || owner == ".." {
		owner = "_"
	}
	return fmt.Sprintf("documents/%s/%s_%s", owner, id, pathSeparators.Replace(filename))
}

// Get returns a document owned by userID. Deleted and foreign documents are
// reported as ErrNotFound.
func (s *Service) Get(ctx context.Context, id uuid.UUID, userID string) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !doc.OwnedBy(userID) {
		return nil, ErrNotFound
	}
	return doc, nil
}

func (s *Service) List(ctx context.Context, userID, docType string, p pagination.Params) ([]*Document, int, error) {
	return s.repo.ListByUser(ctx, userID, docType, p.Limit(), p.Offset())
}

// Download returns the document and its original bytes.
func (s *Service) Download(ctx context.Context, id uuid.UUID, userID string) (*Document, []byte, error) {
	doc, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, nil, err
	}
	if doc.StorageKey == "" {
		return nil, nil, ErrFileUnavailable
	}
	data, err := s.blobs.Get(ctx, doc.StorageKey)
	if errors.Is(err, blobstore.ErrBlobNotFound) {
		return nil, nil, ErrFileUnavailable
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read document file: %w", err)
	}
	return doc, data, nil
}

// Delete marks the document deleted. The stored file is kept.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	if _, err := s.Get(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, id, StatusDeleted); err != nil {
		return err
	}
	s.logger.Info().Str("document_id", id.String()).Msg("document deleted")
	return nil
}

// Analysis is the outcome of structured health data extraction.
type Analysis struct {
	DocumentID  uuid.UUID                `json:"document_id"`
	Filename    string                   `json:"filename"`
	Records     []assistant.HealthRecord `json:"records"`
	RecordCount int                      `json:"record_count"`
	Message     string                   `json:"message,omitempty"`
	AnalyzedAt  *time.Time               `json:"analyzed_at,omitempty"`
}

type storedAnalysis struct {
	Records    []assistant.HealthRecord `json:"records"`
	AnalyzedAt time.Time                `json:"analyzed_at"`
}

// Analyze extracts structured health data from the document text and stores
// it with the document.
func (s *Service) Analyze(ctx context.Context, id uuid.UUID, userID string) (*Analysis, error) {
	doc, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	out := &Analysis{DocumentID: doc.ID, Filename: doc.Filename, Records: []assistant.HealthRecord{}}
	if strings.TrimSpace(doc.OCRText) == "" {
		out.Message = "No text available for analysis"
		return out, nil
	}

	records := s.analyzer.ExtractHealthData(ctx, doc.OCRText)
	now := s.now().UTC()
	raw, err := json.Marshal(storedAnalysis{Records: records, AnalyzedAt: now})
	if err != nil {
		return nil, fmt.Errorf("encode analysis: %w", err)
	}
	if err := s.repo.SaveAnalysis(ctx, doc.ID, raw); err != nil {
		return nil, fmt.Errorf("save analysis: %w", err)
	}

	out.Records = records
	out.RecordCount = len(records)
	out.AnalyzedAt = &now
	s.logger.Info().Str("document_id", doc.ID.String()).Int("records", len(records)).Msg("document analyzed")
	return out, nil
}

// ImageAnalysis is a vision model reading of an uploaded image.
type ImageAnalysis struct {
	DocumentID uuid.UUID `json:"document_id"`
	Filename   string    `json:"filename"`
	Analysis   string    `json:"analysis"`
	Model      string    `json:"model_used,omitempty"`
	TokensUsed int       `json:"tokens_used"`
	LatencyMS  int64     `json:"latency_ms"`
}

// AnalyzeImage runs the vision model over an image document. Only image
// types are accepted.
func (s *Service) AnalyzeImage(ctx context.Context, id uuid.UUID, userID, query string) (*ImageAnalysis, error) {
	doc, data, err := s.Download(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(doc.MimeType, "image/") {
		return nil, fmt.Errorf("%w: image analysis needs an image, got %s", ErrUnsupportedType, doc.MimeType)
	}

	res := s.analyzer.AnalyzeImage(ctx, data, doc.MimeType, query)
	s.logger.Info().
		Str("document_id", doc.ID.String()).
		Bool("degraded", res.Degraded).
		Int64("latency_ms", res.LatencyMS).
		Msg("image analyzed")

	return &ImageAnalysis{
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		Analysis:   res.Reply,
		Model:      res.Model,
		TokensUsed: res.TokensUsed,
		LatencyMS:  res.LatencyMS,
	}, nil
}

// Verification is the outcome of an integrity check.
type Verification struct {
	DocumentID  uuid.UUID `json:"document_id"`
	IsValid     bool      `json:"is_valid"`
	StoredHash  string    `json:"stored_hash"`
	CurrentHash string    `json:"current_hash"`
	VerifiedAt  time.Time `json:"verified_at"`
}

// Verify recomputes the hash of the stored file and compares it with the
// hash recorded at upload. A missing file is reported as invalid.
func (s *Service) Verify(ctx context.Context, id uuid.UUID, userID string) (*Verification, error) {
	doc, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	v := &Verification{DocumentID: doc.ID, StoredHash: doc.ContentHash, VerifiedAt: s.now().UTC()}
	if doc.StorageKey != "" {
		data, err := s.blobs.Get(ctx, doc.StorageKey)
		switch {
		case err == nil:
			v.CurrentHash = blobstore.Hash(data)
			v.IsValid = v.CurrentHash == doc.ContentHash
		case !errors.Is(err, blobstore.ErrBlobNotFound):
			return nil, fmt.Errorf("read document file: %w", err)
		}
	}

	if err := s.repo.SaveVerification(ctx, doc.ID, v.IsValid, v.VerifiedAt); err != nil {
		return nil, fmt.Errorf("save verification: %w", err)
	}
	s.logger.Info().Str("document_id", doc.ID.String()).Bool("valid", v.IsValid).Msg("document verified")
	return v, nil
}
