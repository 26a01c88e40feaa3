package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/carebridge/carebridge/internal/platform/db"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubModel bool

func (s stubModel) Configured() bool { return bool(s) }

func serve(t *testing.T, h *Handler, fn func(echo.Context) error) (*httptest.ResponseRecorder, readiness) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := fn(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var r readiness
	json.Unmarshal(rec.Body.Bytes(), &r)
	return rec, r
}

func TestLive(t *testing.T) {
	h := NewHandler("CareBridge API", "2.0.0", nil, nil, zerolog.Nop())
	rec, _ := serve(t, h, h.Live)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["status"] != "healthy" || body["service"] != "CareBridge API" || body["version"] != "2.0.0" {
		t.Errorf("unexpected body: %v", body)
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		pinger   db.Pinger
		model    ModelBackend
		wantCode int
		wantDB   bool
		wantAI   bool
	}{
		{"all ok", stubPinger{}, stubModel(true), http.StatusOK, true, true},
		{"database down", stubPinger{err: errors.New("refused")}, stubModel(true), http.StatusServiceUnavailable, false, true},
		{"no database", nil, stubModel(true), http.StatusServiceUnavailable, false, true},
		{"model not configured", stubPinger{}, stubModel(false), http.StatusServiceUnavailable, true, false},
		{"no model", stubPinger{}, nil, http.StatusServiceUnavailable, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler("svc", "v", tt.pinger, tt.model, zerolog.Nop())
			rec, r := serve(t, h, h.Ready)

			if rec.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if !r.Checks["api"] {
				t.Error("expected api check to pass")
			}
			if r.Checks["database"] != tt.wantDB {
				t.Errorf("expected database %v, got %v", tt.wantDB, r.Checks["database"])
			}
			if r.Checks["ai_service"] != tt.wantAI {
				t.Errorf("expected ai_service %v, got %v", tt.wantAI, r.Checks["ai_service"])
			}
			if r.Ready != (tt.wantCode == http.StatusOK) {
				t.Errorf("ready flag %v disagrees with status %d", r.Ready, rec.Code)
			}
		})
	}
}

func TestReady_PoolStats(t *testing.T) {
	stats := &db.PoolStats{TotalConns: 3, MaxConns: 20}
	h := NewHandler("svc", "v", stubPinger{}, stubModel(true), zerolog.Nop(),
		WithPoolStats(func() *db.PoolStats { return stats }))

	_, r := serve(t, h, h.Ready)
	if r.Pool == nil || r.Pool.TotalConns != 3 || r.Pool.MaxConns != 20 {
		t.Errorf("expected pool stats in report, got %+v", r.Pool)
	}
}
