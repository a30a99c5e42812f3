package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/flr/internal/config"
	"github.com/JonMunkholm/flr/internal/core"
	"github.com/JonMunkholm/flr/internal/report"
	"github.com/JonMunkholm/flr/internal/schema"
	"github.com/JonMunkholm/flr/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

const ordersSchema = `
name: orders
description: Order batches
header:
  name: head
  pattern: "^H"
  unique_keys: [batch]
  fields:
    - {name: tag, length: 1}
    - {name: batch, length: 3}
body:
  - name: item
    pattern: "^I"
    length: 6
    unique_keys: [sku]
    fields:
      - {name: tag, length: 1}
      - {name: sku, length: 3}
      - {name: qty, length: 2, type: integer, pad: "0"}
`

type fakeImporter struct {
	saved []string
	err   error
}

func (f *fakeImporter) SaveFile(_ context.Context, name, schemaName string, file *core.File) (uuid.UUID, error) {
	if f.err != nil {
		return uuid.Nil, f.err
	}
	f.saved = append(f.saved, schemaName+"/"+name)
	return uuid.MustParse("00000000-0000-0000-0000-000000000001"), nil
}

func (f *fakeImporter) ListFiles(context.Context, int) ([]store.FileSummary, error) {
	return []store.FileSummary{{Name: "a.flr", Schema: "orders", ImportedAt: time.Unix(0, 0).UTC()}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Port: 8080},
		Parse:   config.ParseConfig{MaxFileSize: 1 << 20, MaxLineSize: 1024},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, imp Importer) *Server {
	t.Helper()
	sch, err := schema.Parse([]byte(ordersSchema))
	if err != nil {
		t.Fatalf("schema.Parse: %v", err)
	}
	c := schema.NewCatalog()
	c.Add(sch)
	return NewServer(c, imp, cfg)
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rec.Body.String())
	}
	return v
}

// ---- Read-only endpoint Tests ----

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := do(s, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decode[map[string]any](t, rec)
	want := map[string]any{
		"status":  "ok",
		"schemas": float64(1),
		"storage": false,
		"parses":  map[string]any{"active": float64(0), "available": float64(5), "max_concurrent": float64(5)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("health mismatch (-want +got):\n%s", diff)
	}
}

func TestListSchemas(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := do(s, http.MethodGet, "/api/schemas", "")
	got := decode[[]schema.Summary](t, rec)
	want := []schema.Summary{{Name: "orders", Description: "Order batches", Header: "head", Body: []string{"item"}}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("schemas mismatch (-want +got):\n%s", diff)
	}
}

func TestGetSchema(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := do(s, http.MethodGet, "/api/schemas/orders", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "name: orders") {
		t.Errorf("GET orders = %d %s", rec.Code, rec.Body.String())
	}

	rec = do(s, http.MethodGet, "/api/schemas/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "CFG003" {
		t.Errorf("code = %q, want CFG003", got.Code)
	}
}

func TestIndex(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := do(s, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "orders") {
		t.Errorf("index does not list schema: %s", rec.Body.String())
	}
}

// ---- Parse Tests ----

func TestParse(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := do(s, http.MethodPost, "/api/parse/orders", "HB01\nIA0105\nIA0203\nHB02\nIA0107\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	doc := decode[report.Document](t, rec)
	if doc.Records != 5 || len(doc.Stacks) != 2 {
		t.Fatalf("records = %d stacks = %d, want 5 and 2", doc.Records, len(doc.Stacks))
	}
	want := report.Record{Kind: "item", Fields: map[string]any{"tag": "I", "sku": "A01", "qty": float64(5)}}
	if diff := cmp.Diff(want, doc.Stacks[0].Body[0]); diff != "" {
		t.Errorf("first record mismatch (-want +got):\n%s", diff)
	}
	if doc.Stacks[1].Header.Fields["batch"] != "B02" {
		t.Errorf("second header = %v", doc.Stacks[1].Header)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		wantStatus int
		wantCode   string
		wantLine   int
	}{
		{"duplicate body key", "/api/parse/orders", "HB01\nIA0105\nIA0103\n", http.StatusUnprocessableEntity, "FLR004", 3},
		{"no matching type", "/api/parse/orders", "HB01\nX\n", http.StatusUnprocessableEntity, "FLR001", 2},
		{"bad integer", "/api/parse/orders", "HB01\nIA01x5\n", http.StatusUnprocessableEntity, "FLR003", 2},
		{"unknown schema", "/api/parse/nope", "HB01\n", http.StatusNotFound, "CFG003", 0},
		{"empty body", "/api/parse/orders", "", http.StatusBadRequest, "FILE004", 0},
	}
	s := newTestServer(t, testConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(s, http.MethodPost, tt.target, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			got := decode[ErrorResponse](t, rec)
			if got.Code != tt.wantCode || got.Line != tt.wantLine {
				t.Errorf("error = %+v, want code %s line %d", got, tt.wantCode, tt.wantLine)
			}
		})
	}
}

func TestParse_IgnoreUnique(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	rec := do(s, http.MethodPost, "/api/parse/orders?ignore_unique=true", "HB01\nIA0105\nIA0103\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	doc := decode[report.Document](t, rec)
	if len(doc.Stacks[0].Body) != 2 {
		t.Errorf("body records = %d, want both kept", len(doc.Stacks[0].Body))
	}
	if len(doc.Warnings) != 1 || doc.Warnings[0].Code != "FLR004" {
		t.Errorf("warnings = %+v, want one FLR004", doc.Warnings)
	}
}

func TestParse_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Parse.MaxFileSize = 8
	s := newTestServer(t, cfg, nil)

	rec := do(s, http.MethodPost, "/api/parse/orders", "HB01\nIA0105\nIA0203\n")
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "FILE003" {
		t.Errorf("code = %q, want FILE003", got.Code)
	}
}

func TestParse_Multipart(t *testing.T) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "orders.flr")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte("HB01\r\nIA0105\r\n"))
	mw.Close()

	s := newTestServer(t, testConfig(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/parse/orders", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if doc := decode[report.Document](t, rec); doc.LineBreak != "\r\n" || doc.Records != 2 {
		t.Errorf("line break = %q records = %d, want CRLF and 2", doc.LineBreak, doc.Records)
	}
}

func TestParse_HTMXErrorIsHTML(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/parse/orders", strings.NewReader("X\n"))
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q, want text/html", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "FLR001") {
		t.Errorf("alert missing code: %s", rec.Body.String())
	}
}

// ---- Validate Tests ----

func TestValidate(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)

	rec := do(s, http.MethodPost, "/api/validate/orders", "HB01\nIA0105\nHB02\nIA0105\n")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	want := report.Validation{Schema: "orders", Valid: true, Stacks: 2, Records: 4}
	if diff := cmp.Diff(want, decode[report.Validation](t, rec)); diff != "" {
		t.Errorf("validation mismatch (-want +got):\n%s", diff)
	}

	rec = do(s, http.MethodPost, "/api/validate/orders", "HB01\nIA0105\nHB01\n")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	got := decode[report.Validation](t, rec)
	if got.Valid || len(got.Errors) != 1 || got.Errors[0].Code != "FLR004" {
		t.Errorf("validation = %+v, want duplicate header error", got)
	}
}

// ---- Import Tests ----

func TestImport(t *testing.T) {
	imp := &fakeImporter{}
	s := newTestServer(t, testConfig(), imp)

	rec := do(s, http.MethodPost, "/api/import/orders?name=batch.flr", "HB01\nIA0105\n")
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	got := decode[ImportResponse](t, rec)
	if got.Stacks != 1 || got.Records != 2 || got.Name != "batch.flr" {
		t.Errorf("import = %+v", got)
	}
	if diff := cmp.Diff([]string{"orders/batch.flr"}, imp.saved); diff != "" {
		t.Errorf("saved mismatch (-want +got):\n%s", diff)
	}

	rec = do(s, http.MethodGet, "/api/files", "")
	if files := decode[[]store.FileSummary](t, rec); len(files) != 1 || files[0].Name != "a.flr" {
		t.Errorf("files = %+v", files)
	}
}

func TestImport_NotConfigured(t *testing.T) {
	s := newTestServer(t, testConfig(), nil)
	for _, target := range []string{"/api/import/orders", "/api/files"} {
		method := http.MethodPost
		if target == "/api/files" {
			method = http.MethodGet
		}
		rec := do(s, method, target, "HB01\n")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s status = %d, want 503", target, rec.Code)
		}
		if got := decode[ErrorResponse](t, rec); got.Code != "DB002" {
			t.Errorf("%s code = %q, want DB002", target, got.Code)
		}
	}
}

func TestImport_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}
	imp := &fakeImporter{}
	s := newTestServer(t, cfg, imp)

	rec := do(s, http.MethodPost, "/api/import/orders", "HB01\nIA0105\n")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/import/orders", strings.NewReader("HB01\nIA0105\n"))
	req.Header.Set("X-API-Key", "k1")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Errorf("status with key = %d, want 201", rec.Code)
	}
}

func TestListFiles_RequiresAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1"}}
	s := newTestServer(t, cfg, &fakeImporter{})

	rec := do(s, http.MethodGet, "/api/files", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("X-API-Key", "k1")
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with key = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if files := decode[[]store.FileSummary](t, rec); len(files) != 1 {
		t.Errorf("files = %+v", files)
	}
}

func TestImport_StoreError(t *testing.T) {
	imp := &fakeImporter{err: errors.New("dial tcp: connection refused")}
	s := newTestServer(t, testConfig(), imp)

	rec := do(s, http.MethodPost, "/api/import/orders", "HB01\nIA0105\n")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := decode[ErrorResponse](t, rec); got.Code != "DB001" {
		t.Errorf("code = %q, want DB001", got.Code)
	}
}

// ---- Helper Tests ----

func TestParseBoolParam(t *testing.T) {
	tests := []struct {
		query string
		def   bool
		want  bool
	}{
		{"", false, false},
		{"", true, true},
		{"ignore_unique", false, true},
		{"ignore_unique=false", true, false},
		{"ignore_unique=1", false, true},
		{"ignore_unique=maybe", true, true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/?"+tt.query, nil)
		if got := parseBoolParam(req, "ignore_unique", tt.def); got != tt.want {
			t.Errorf("parseBoolParam(%q, %v) = %v, want %v", tt.query, tt.def, got, tt.want)
		}
	}
}
