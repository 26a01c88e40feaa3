package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestParseLimit(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1M", 1 << 20},
		{"512K", 512 << 10},
		{"2G", 2 << 30},
		{"55MB", 55 << 20},
		{"100", 100},
		{"", 1 << 20},
		{"garbage", 1 << 20},
		{"-5M", 1 << 20},
	}
	for _, tt := range tests {
		if got := parseLimit(tt.in); got != tt.want {
			t.Errorf("parseLimit(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func runBodyLimit(t *testing.T, mw echo.MiddlewareFunc, req *http.Request) (error, []byte) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var read []byte
	h := mw(func(c echo.Context) error {
		b, err := io.ReadAll(c.Request().Body)
		if err != nil {
			return err
		}
		read = b
		return c.NoContent(http.StatusOK)
	})
	return h(c), read
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/conversations", strings.NewReader(`{"title":"x"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	err, read := runBodyLimit(t, BodyLimit("1K", "1M"), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(read) != `{"title":"x"}` {
		t.Errorf("expected body to pass through, got %q", read)
	}
}

func TestBodyLimit_RejectsOversizedContentLength(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 2048)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/conversations", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)

	err, _ := runBodyLimit(t, BodyLimit("1K", "1M"), req)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", httpErr.Code)
	}
}

func TestBodyLimit_UsesUploadLimitForMultipart(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 2048)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEMultipartForm+"; boundary=xyz")

	err, read := runBodyLimit(t, BodyLimit("1K", "1M"), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(read) != 2048 {
		t.Errorf("expected 2048 bytes read, got %d", len(read))
	}
}

func TestBodyLimit_RejectsUploadOverLimit(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 4096)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEMultipartForm+"; boundary=xyz")

	err, _ := runBodyLimit(t, BodyLimit("1K", "2K"), req)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %v", err)
	}
}

func TestBodyLimit_SkipsNilBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)

	err, _ := runBodyLimit(t, BodyLimit("1", "1"), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBodyLimit_EnforcesLimitDuringRead(t *testing.T) {
	body := bytes.Repeat([]byte("a"), 2048)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat/conversations", io.NopCloser(bytes.NewReader(body)))
	req.ContentLength = -1

	err, _ := runBodyLimit(t, BodyLimit("1K", "1M"), req)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", httpErr.Code)
	}
}
