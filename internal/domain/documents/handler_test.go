package documents

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/carebridge/carebridge/internal/platform/auth"
)

func newTestHandler() (*Handler, *testDeps, *echo.Echo) {
	svc, deps := newTestService()
	return NewHandler(svc), deps, echo.New()
}

func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), userID, userID+"@example.com"))
}

func multipartUpload(t *testing.T, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	w.Close()
	return body, w.FormDataContentType()
}

func TestHandler_Upload(t *testing.T) {
	h, deps, e := newTestHandler()
	deps.ocr.result.Text = strings.Repeat("a", 1500)

	body, ct := multipartUpload(t, "labs.pdf", "application/pdf", pdfBytes)
	req := asUser(httptest.NewRequest(http.MethodPost, "/?document_type=lab_report", body), "u1")
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Upload(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["document_type"] != "lab_report" {
		t.Errorf("expected lab_report, got %v", resp["document_type"])
	}
	preview, _ := resp["ocr_text"].(string)
	if len(preview) != 1003 || !strings.HasSuffix(preview, "...") {
		t.Errorf("expected 1000-char preview with ellipsis, got %d chars", len(preview))
	}
	if _, leaked := resp["storage_key"]; leaked {
		t.Error("storage key must not be exposed")
	}
	if len(deps.repo.items) != 1 {
		t.Errorf("expected 1 stored document, got %d", len(deps.repo.items))
	}
}

func TestHandler_Upload_MissingFile(t *testing.T) {
	h, _, e := newTestHandler()
	req := asUser(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), "u1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Upload(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Upload_UnsupportedType(t *testing.T) {
	h, _, e := newTestHandler()
	body, ct := multipartUpload(t, "notes.txt", "text/plain", []byte("hello"))
	req := asUser(httptest.NewRequest(http.MethodPost, "/", body), "u1")
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Upload(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %v", err)
	}
}

func TestHandler_Upload_TooLarge(t *testing.T) {
	h, _, e := newTestHandler()
	body, ct := multipartUpload(t, "big.pdf", "application/pdf", append(append([]byte{}, pdfBytes...), make([]byte, 4096)...))
	req := asUser(httptest.NewRequest(http.MethodPost, "/", body), "u1")
	req.Header.Set(echo.HeaderContentType, ct)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Upload(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %v", err)
	}
}

func TestHandler_List(t *testing.T) {
	h, deps, e := newTestHandler()
	seed(deps, "u1", "a.pdf", TypeLabReport, strings.Repeat("x", 300))
	seed(deps, "u1", "b.pdf", TypeOther, "short")
	seed(deps, "u2", "c.pdf", TypeOther, "not mine")

	req := asUser(httptest.NewRequest(http.MethodGet, "/?page=1&per_page=1", nil), "u1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var resp struct {
		Data    []map[string]interface{} `json:"data"`
		Total   int                      `json:"total"`
		PerPage int                      `json:"per_page"`
		HasMore bool                     `json:"has_more"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Total != 2 || len(resp.Data) != 1 || !resp.HasMore {
		t.Errorf("unexpected page: total=%d len=%d has_more=%v", resp.Total, len(resp.Data), resp.HasMore)
	}
	if resp.Data[0]["filename"] != "b.pdf" {
		t.Errorf("expected newest document first, got %v", resp.Data[0]["filename"])
	}
}

func TestHandler_List_PreviewIsShort(t *testing.T) {
	h, deps, e := newTestHandler()
	seed(deps, "u1", "a.pdf", TypeLabReport, strings.Repeat("x", 300))

	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.List(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"ocr_text":"`+strings.Repeat("x", 200)+`..."`) {
		t.Error("expected 200-char preview in list")
	}
}

func TestHandler_Get_FullText(t *testing.T) {
	h, deps, e := newTestHandler()
	doc := seed(deps, "u1", "a.pdf", TypeLabReport, strings.Repeat("x", 3000))

	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(doc.ID.String())

	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), strings.Repeat("x", 3000)) {
		t.Error("expected full OCR text")
	}
}

func TestHandler_Get_NotFoundForOtherUser(t *testing.T) {
	h, deps, e := newTestHandler()
	doc := seed(deps, "owner", "a.pdf", TypeOther, "x")

	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), "intruder")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(doc.ID.String())

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_Get_InvalidID(t *testing.T) {
	h, _, e := newTestHandler()
	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")

	err := h.Get(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_Text(t *testing.T) {
	h, deps, e := newTestHandler()
	doc := seed(deps, "u1", "a.pdf", TypeOther, "hello")

	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(doc.ID.String())

	if err := h.Text(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp map[string]interface{}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["text"] != "hello" || resp["method"] != "unknown" || resp["confidence"] != float64(0) {
		t.Errorf("unexpected text response: %v", resp)
	}
}

func TestHandler_DownloadAndDelete(t *testing.T) {
	h, deps, e := newTestHandler()
	doc, err := h.svc.Upload(context.Background(), "u1",
		Upload{Filename: "labs.pdf", ContentType: "application/pdf", Data: pdfBytes})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	req := asUser(httptest.NewRequest(http.MethodGet, "/", nil), "u1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(doc.ID.String())
	if err := h.Download(c); err != nil {
		t.Fatalf("download: %v", err)
	}
	if rec.Header().Get(echo.HeaderContentType) != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", rec.Header().Get(echo.HeaderContentType))
	}
	if rec.Header().Get(echo.HeaderContentDisposition) != `attachment; filename="labs.pdf"` {
		t.Errorf("unexpected disposition %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
	if !bytes.Equal(rec.Body.Bytes(), pdfBytes) {
		t.Error("expected original bytes")
	}

	req = asUser(httptest.NewRequest(http.MethodDelete, "/", nil), "u1")
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(doc.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deps.repo.items[doc.ID].Status != StatusDeleted {
		t.Error("expected soft delete")
	}
}

func TestHandler_Verify(t *testing.T) {
	h, _, e := newTestHandler()
	doc, _ := h.svc.Upload(context.Background(), "u1",
		Upload{Filename: "labs.pdf", ContentType: "application/pdf", Data: pdfBytes})

	req := asUser(httptest.NewRequest(http.MethodPost, "/", nil), "u1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(doc.ID.String())

	if err := h.Verify(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"is_valid":true`) {
		t.Errorf("expected valid verification, got %s", rec.Body.String())
	}
}
