package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext("/"))

	if p.Page != 1 {
		t.Errorf("expected default page 1, got %d", p.Page)
	}
	if p.PerPage != DefaultPerPage {
		t.Errorf("expected default per_page %d, got %d", DefaultPerPage, p.PerPage)
	}
	if p.Offset() != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset())
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := FromContext(newContext("/?page=3&per_page=10"))

	if p.Page != 3 || p.PerPage != 10 {
		t.Errorf("expected page 3 per_page 10, got %+v", p)
	}
	if p.Limit() != 10 {
		t.Errorf("expected limit 10, got %d", p.Limit())
	}
	if p.Offset() != 20 {
		t.Errorf("expected offset 20, got %d", p.Offset())
	}
}

func TestFromContext_MaxPerPage(t *testing.T) {
	p := FromContext(newContext("/?per_page=500"))
	if p.PerPage != MaxPerPage {
		t.Errorf("expected per_page capped at %d, got %d", MaxPerPage, p.PerPage)
	}
}

func TestFromContext_InvalidValues(t *testing.T) {
	p := FromContext(newContext("/?page=-2&per_page=abc"))
	if p.Page != 1 {
		t.Errorf("expected page 1, got %d", p.Page)
	}
	if p.PerPage != DefaultPerPage {
		t.Errorf("expected default per_page, got %d", p.PerPage)
	}
}

func TestParams_HasNext(t *testing.T) {
	tests := []struct {
		name  string
		p     Params
		total int
		want  bool
	}{
		{"first page of many", Params{Page: 1, PerPage: 10}, 25, true},
		{"last partial page", Params{Page: 3, PerPage: 10}, 25, false},
		{"exact fit", Params{Page: 2, PerPage: 10}, 20, false},
		{"empty", Params{Page: 1, PerPage: 10}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.HasNext(tt.total); got != tt.want {
				t.Errorf("HasNext(%d) = %v, want %v", tt.total, got, tt.want)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	data := []string{"a", "b"}
	resp := NewResponse(data, 50, Params{Page: 2, PerPage: 20})

	if resp.Total != 50 {
		t.Errorf("expected total 50, got %d", resp.Total)
	}
	if resp.Page != 2 || resp.PerPage != 20 {
		t.Errorf("expected page 2 per_page 20, got %d/%d", resp.Page, resp.PerPage)
	}
	if !resp.HasMore {
		t.Error("expected has_more to be true")
	}
}
