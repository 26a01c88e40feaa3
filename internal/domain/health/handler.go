// Package health serves the liveness and readiness probes.
package health

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/platform/db"
)

// ModelBackend is satisfied by *llm.Client.
type ModelBackend interface {
	Configured() bool
}

type Handler struct {
	service string
	version string
	db      db.Pinger
	model   ModelBackend
	stats   func() *db.PoolStats
	logger  zerolog.Logger
}

type Option func(*Handler)

// WithPoolStats adds connection pool statistics to the readiness report.
func WithPoolStats(fn func() *db.PoolStats) Option {
	return func(h *Handler) { h.stats = fn }
}

func NewHandler(service, version string, pinger db.Pinger, model ModelBackend, logger zerolog.Logger, opts ...Option) *Handler {
	h := &Handler{
		service: service,
		version: version,
		db:      pinger,
		model:   model,
		logger:  logger,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/health", h.Live)
	api.GET("/health/ready", h.Ready)
}

func (h *Handler) Live(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": h.service,
		"version": h.version,
	})
}

type readiness struct {
	Ready  bool            `json:"ready"`
	Checks map[string]bool `json:"checks"`
	Pool   *db.PoolStats   `json:"pool,omitempty"`
}

// Ready reports 503 when any dependency is unavailable.
func (h *Handler) Ready(c echo.Context) error {
	report := h.check(c.Request().Context())
	code := http.StatusOK
	if !report.Ready {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, report)
}

func (h *Handler) check(ctx context.Context) readiness {
	r := readiness{Checks: map[string]bool{"api": true}}

	if err := db.Check(ctx, h.db); err != nil {
		h.logger.Warn().Err(err).Msg("readiness: database unavailable")
	} else {
		r.Checks["database"] = true
		if h.stats != nil {
			r.Pool = h.stats()
		}
	}
	r.Checks["ai_service"] = h.model != nil && h.model.Configured()

	r.Ready = r.Checks["api"] && r.Checks["database"] && r.Checks["ai_service"]
	return r
}
