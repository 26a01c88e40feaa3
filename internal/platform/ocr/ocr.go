// Package ocr extracts text from uploaded medical documents. Images go
// through a hosted vision model; PDFs use their embedded text layer.
package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/platform/llm"
)

// Extraction methods recorded on documents.
const (
	MethodVision        = "ai_vision"
	MethodPDFText       = "pdf_text_extraction"
	MethodPDFNoText     = "pdf_no_text"
	MethodPDFNoRenderer = "pdf_no_renderer"
	MethodUnsupported   = "unsupported"
	MethodUnavailable   = "unavailable"
	MethodError         = "error"
)

const visionPrompt = `Extract ALL text from this medical document image exactly as written.
Preserve the original structure, formatting and layout as much as possible.
Include:
- Headers, titles and subtitles
- Patient information fields
- All test names, values, units and reference ranges
- Dates, doctor names, clinic or hospital names
- Notes, comments and footnotes
- Descriptions of any stamps or signatures

Output ONLY the extracted text. Do not add commentary, interpretation or summaries.
If a section is hard to read, include your best attempt with [unclear] next to it.`

const pdfTextConfidence = 0.95

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/tiff": true,
	"image/bmp":  true,
	"image/webp": true,
}

// Result is the outcome of an extraction. Confidence is in [0, 1].
type Result struct {
	Text       string
	Confidence float64
	PageCount  int
	Method     string
}

// Completer is the vision model boundary.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Extractor runs OCR. A nil completer disables vision extraction.
type Extractor struct {
	completer Completer
	model     string
	timeout   time.Duration
	logger    zerolog.Logger
}

func NewExtractor(completer Completer, model string, timeout time.Duration, logger zerolog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Extractor{completer: completer, model: model, timeout: timeout, logger: logger}
}

// Supports reports whether mimeType can be processed.
func Supports(mimeType string) bool {
	return imageTypes[mimeType] || mimeType == "application/pdf"
}

// Extract never fails; problems are reported through Result.Method.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string) Result {
	switch {
	case imageTypes[mimeType]:
		return e.fromImage(ctx, data, mimeType)
	case mimeType == "application/pdf":
		return e.fromPDF(data)
	default:
		e.logger.Warn().Str("mime_type", mimeType).Msg("unsupported MIME type for OCR")
		return Result{Method: MethodUnsupported}
	}
}

func (e *Extractor) fromImage(ctx context.Context, data []byte, mimeType string) Result {
	if e.completer == nil {
		e.logger.Warn().Msg("vision OCR unavailable, no model configured")
		return Result{Method: MethodUnavailable, PageCount: 1}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.completer.Complete(ctx, llm.Request{
		Model: e.model,
		Messages: []llm.Message{{
			Role:  "user",
			Parts: []llm.ContentPart{llm.TextPart(visionPrompt), llm.ImagePart(mimeType, data)},
		}},
		Temperature: 0.1,
		MaxTokens:   4096,
	})
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) {
			return Result{Method: MethodUnavailable, PageCount: 1}
		}
		e.logger.Error().Err(err).Msg("vision OCR failed")
		return Result{Method: MethodError, PageCount: 1}
	}

	text := strings.TrimSpace(resp.Content)
	words := len(strings.Fields(text))
	confidence := visionConfidence(words)

	e.logger.Info().
		Int("words", words).
		Float64("confidence", confidence).
		Int64("latency_ms", time.Since(start).Milliseconds()).
		Msg("vision OCR completed")

	return Result{Text: text, Confidence: confidence, PageCount: 1, Method: MethodVision}
}

// visionConfidence grows with the word count and caps at 0.95.
func visionConfidence(words int) float64 {
	if words == 0 {
		return 0
	}
	c := math.Min(0.95, 0.6+(float64(words)/500)*0.35)
	return math.Round(c*100) / 100
}

func (e *Extractor) fromPDF(data []byte) Result {
	pages, pageCount, err := pdfText(data)
	if err != nil {
		e.logger.Error().Err(err).Msg("PDF processing failed")
		return Result{Method: MethodError}
	}

	if len(pages) > 0 {
		text := strings.TrimSpace(strings.Join(pages, "\n\n"))
		e.logger.Info().Int("chars", len(text)).Int("pages", pageCount).Msg("PDF native text extracted")
		return Result{Text: text, Confidence: pdfTextConfidence, PageCount: pageCount, Method: MethodPDFText}
	}

	// Scanned PDF. Pages would need rasterising before vision OCR.
	method := MethodPDFNoText
	if e.completer != nil {
		method = MethodPDFNoRenderer
	}
	e.logger.Warn().Int("pages", pageCount).Str("method", method).Msg("PDF has no text layer")
	return Result{PageCount: pageCount, Method: method}
}

// pdfText returns the non-empty text of every page and the page count.
func pdfText(data []byte) (pages []string, count int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, 0, fmt.Errorf("open pdf: %w", err)
	}

	count = reader.NumPage()
	for i := 1; i <= count; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, count, fmt.Errorf("read page %d: %w", i, err)
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}
	return pages, count, nil
}
