package chat

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carebridge/carebridge/internal/platform/auth"
	"github.com/carebridge/carebridge/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/chat")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.PUT("/:id/link-document", h.LinkDocument)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/message", h.SendMessage)
}

type createRequest struct {
	Title      string     `json:"title" validate:"max=200"`
	DocumentID *uuid.UUID `json:"document_id"`
}

type messageRequest struct {
	Content             string   `json:"content" validate:"required"`
	DocumentIDs         []string `json:"document_ids" validate:"max=20"`
	IncludeAllDocuments bool     `json:"include_all_documents"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	conv, err := h.svc.Create(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), req.Title, req.DocumentID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusCreated, conv)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), pg)
	if err != nil {
		return mapError(err)
	}
	if items == nil {
		items = []*Conversation{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	conv, err := h.svc.GetWithMessages(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, conv)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	title := c.QueryParam("title")
	if title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if err := h.svc.UpdateTitle(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()), title); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "Conversation updated", "id": id})
}

func (h *Handler) LinkDocument(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	documentID, err := uuid.Parse(c.QueryParam("document_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "document_id is required")
	}
	doc, err := h.svc.LinkDocument(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()), documentID)
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":           "Document linked successfully",
		"conversation_id":   id,
		"document_id":       doc.ID,
		"document_filename": doc.Filename,
	})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context())); err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"message": "Conversation deleted", "id": id})
}

func (h *Handler) SendMessage(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	msg, err := h.svc.SendMessage(ctx, id, auth.UserIDFromContext(ctx), SendInput{
		Content:             req.Content,
		DocumentIDs:         req.DocumentIDs,
		IncludeAllDocuments: req.IncludeAllDocuments,
		Email:               auth.EmailFromContext(ctx),
	})
	if err != nil {
		return mapError(err)
	}
	return c.JSON(http.StatusOK, msg)
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
		return echo.NewHTTPError(http.StatusNotFound, "Conversation not found")
	case errors.Is(err, ErrDocumentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Document not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error").SetInternal(err)
	}
}
