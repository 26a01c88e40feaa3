package documents

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carebridge/carebridge/pkg/textutil"
)

const (
	// MaxContextChars bounds the combined text of multi-document context.
	MaxContextChars = 12000
	// minContextRoom stops adding documents once this little budget is left.
	minContextRoom = 200
)

// ContextForDocument renders a single owned document for the assistant. It
// returns "" when the document is missing, not owned, or has no text.
func (s *Service) ContextForDocument(ctx context.Context, id uuid.UUID, userID string) string {
	doc, err := s.Get(ctx, id, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn().Err(err).Str("document_id", id.String()).Msg("document context lookup failed")
		}
		return ""
	}
	if strings.TrimSpace(doc.OCRText) == "" {
		return ""
	}

	s.logger.Debug().
		Str("document_id", doc.ID.String()).
		Int("chars", textutil.Len(doc.OCRText)).
		Str("document_type", doc.DocumentType).
		Msg("loaded document context")

	return fmt.Sprintf("=== MEDICAL DOCUMENT ===\nFilename: %s\nType: %s\n========================\n\n%s",
		doc.Filename, doc.DocumentType, doc.OCRText)
}

// ContextForSelection renders the documents the user picked, in the order
// given, within MaxContextChars. Unknown, foreign and deleted ids are skipped.
// Selected documents without text are still listed with a note.
func (s *Service) ContextForSelection(ctx context.Context, ids []string, userID string) string {
	b := newContextBuilder()
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		doc, err := s.Get(ctx, id, userID)
		if err != nil {
			continue
		}

		text := doc.OCRText
		if strings.TrimSpace(text) == "" {
			text = fmt.Sprintf("[Text extraction was not available for this document. File: %s, Type: %s, Size: %d bytes]",
				doc.Filename, doc.DocumentType, doc.SizeBytes)
		}
		if !b.add(doc, text) {
			break
		}
	}
	return b.render("SELECTED MEDICAL DOCUMENTS")
}

// ContextForUser renders every document of the user that has text, newest
// first, within MaxContextChars.
func (s *Service) ContextForUser(ctx context.Context, userID string) string {
	docs, err := s.repo.ListWithText(ctx, userID)
	if err != nil {
		s.logger.Warn().Err(err).Msg("user document context lookup failed")
		return ""
	}

	b := newContextBuilder()
	for _, doc := range docs {
		if !b.add(doc, doc.OCRText) {
			break
		}
	}
	return b.render("USER'S MEDICAL DOCUMENTS")
}

type contextBuilder struct {
	parts []string
	used  int
}

func newContextBuilder() *contextBuilder {
	return &contextBuilder{}
}

// add appends one document section, truncating text to the remaining budget.
// It returns false once the budget is exhausted.
func (b *contextBuilder) add(doc *Document, text string) bool {
	header := fmt.Sprintf("\n--- DOCUMENT: %s (Type: %s) ---\n", doc.Filename, doc.DocumentType)
	remaining := MaxContextChars - b.used - textutil.Len(header)
	if remaining <= minContextRoom {
		return false
	}
	text = textutil.Truncate(text, remaining)
	b.parts = append(b.parts, header+text)
	b.used += textutil.Len(header) + textutil.Len(text)
	return true
}

func (b *contextBuilder) render(title string) string {
	if len(b.parts) == 0 {
		return ""
	}
	return fmt.Sprintf("=== %s (%d document(s)) ===\n", title, len(b.parts)) +
		strings.Join(b.parts, "\n") +
		"\n\n=== END OF DOCUMENTS ==="
}
