package documents

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/samber/lo"

	"github.com/carebridge/carebridge/internal/platform/auth"
	"github.com/carebridge/carebridge/pkg/pagination"
	"github.com/carebridge/carebridge/pkg/textutil"
)

const (
	uploadPreviewChars = 1000
	listPreviewChars   = 200
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/documents")
	g.POST("", h.Upload)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/text", h.Text)
	g.GET("/:id/download", h.Download)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/analyze", h.Analyze)
	g.POST("/:id/verify", h.Verify)
	g.POST("/:id/image-analysis", h.AnalyzeImage)
}

// withPreview returns a shallow copy whose OCR text is cut to n characters.
func withPreview(d *Document, n int) *Document {
	out := *d
	out.OCRText = textutil.Preview(d.OCRText, n)
	return &out
}

func (h *Handler) Upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, h.svc.opts.MaxFileSize+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}

	docType := c.QueryParam("document_type")
	if docType == "" {
		docType = c.FormValue("document_type")
	}

	userID := auth.UserIDFromContext(c.Request().Context())
	doc, err := h.svc.Upload(c.Request().Context(), userID, Upload{
		Filename:     fh.Filename,
		ContentType:  fh.Header.Get(echo.HeaderContentType),
		DocumentType: docType,
		Data:         data,
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, withPreview(doc, uploadPreviewChars))
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	userID := auth.UserIDFromContext(c.Request().Context())

	items, total, err := h.svc.List(c.Request().Context(), userID, c.QueryParam("document_type"), pg)
	if err != nil {
		return mapError(err)
	}
	previews := lo.Map(items, func(d *Document, _ int) *Document { return withPreview(d, listPreviewChars) })
	return c.JSON(http.StatusOK, pagination.NewResponse(previews, total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	doc, err := h.load(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Text(c echo.Context) error {
	doc, err := h.load(c)
	if err != nil {
		return err
	}
	method := doc.OCRMethod
	if method == "" {
		method = "unknown"
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"document_id": doc.ID,
		"filename":    doc.Filename,
		"text":        doc.OCRText,
		"confidence":  lo.FromPtr(doc.OCRConfidence),
		"method":      method,
	})
}

func (h *Handler) Download(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	doc, data, err := h.svc.Download(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return mapError(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", doc.Filename))
	return c.Blob(http.StatusOK, doc.MimeType, data)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context())); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "Document deleted", "id": id})
}

func (h *Handler) Analyze(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Analyze(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) AnalyzeImage(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.AnalyzeImage(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()), c.QueryParam("query"))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) Verify(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Verify(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) load(c echo.Context) (*Document, error) {
	id, err := parseID(c)
	if err != nil {
		return nil, err
	}
	doc, err := h.svc.Get(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return nil, mapError(err)
	}
	return doc, nil
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Document not found")
	case errors.Is(err, ErrFileUnavailable):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrFileTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, capitalize(err.Error()))
	case errors.Is(err, ErrUnsupportedType), errors.Is(err, ErrInvalidDocumentType), errors.Is(err, ErrEmptyFile):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, capitalize(err.Error()))
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
