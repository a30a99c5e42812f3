package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/JonMunkholm/flr/internal/core"
	"github.com/JonMunkholm/flr/internal/lineio"
	"github.com/JonMunkholm/flr/internal/logging"
	"github.com/JonMunkholm/flr/internal/report"
	"github.com/JonMunkholm/flr/internal/schema"
	"github.com/JonMunkholm/flr/internal/store"
	"github.com/JonMunkholm/flr/internal/web/templates"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ImportResponse is returned by the import endpoint.
type ImportResponse struct {
	ID       uuid.UUID      `json:"id"`
	Name     string         `json:"name"`
	Schema   string         `json:"schema"`
	Stacks   int            `json:"stacks"`
	Records  int            `json:"records"`
	Warnings []report.Issue `json:"warnings,omitempty"`
}

func (s *Server) summaries() []schema.Summary {
	list := s.catalog.List()
	out := make([]schema.Summary, 0, len(list))
	for _, sch := range list {
		out = append(out, sch.Summary())
	}
	return out
}

// handleIndex renders the schema overview page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.Index(s.summaries()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"schemas": len(s.catalog.Names()),
		"storage": s.importer != nil,
		"parses":  s.limiter.status(),
	})
}

func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.summaries())
}

// handleGetSchema returns the schema document as YAML.
func (s *Server) handleGetSchema(w http.ResponseWriter, r *http.Request) {
	sch, err := s.catalog.Get(chi.URLParam(r, "schema"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	out, err := yaml.Marshal(sch)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("marshal schema: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Write(out)
}

// handleParse reads the uploaded file and returns its stacks as JSON.
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	sch, err := s.catalog.Get(chi.URLParam(r, "schema"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	body, name, err := s.openUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer body.Close()

	f, err := s.readFile(r, sch, body, name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report.Build(sch.Name, f))
}

// handleValidate reads the uploaded file and runs the write pre-pass. FLR
// errors are part of the result; request errors are not.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	sch, err := s.catalog.Get(chi.URLParam(r, "schema"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	body, name, err := s.openUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer body.Close()

	f, err := s.readFile(r, sch, body, name)
	if err != nil && isRequestError(err) {
		s.respondError(w, r, err)
		return
	}

	v := report.Validate(sch.Name, f, err)
	status := http.StatusOK
	if !v.Valid {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, v)
}

// handleImport reads the uploaded file and stores it.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		s.respondError(w, r, store.ErrNotConfigured)
		return
	}
	sch, err := s.catalog.Get(chi.URLParam(r, "schema"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	body, name, err := s.openUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer body.Close()

	f, err := s.readFile(r, sch, body, name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := f.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	id, err := s.importer.SaveFile(r.Context(), name, sch.Name, f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	records := 0
	for _, st := range f.Stacks() {
		records += st.Len()
	}
	writeJSON(w, http.StatusCreated, ImportResponse{
		ID:       id,
		Name:     name,
		Schema:   sch.Name,
		Stacks:   f.Len(),
		Records:  records,
		Warnings: report.Issues(f.Warnings()),
	})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		s.respondError(w, r, store.ErrNotConfigured)
		return
	}
	files, err := s.importer.ListFiles(r.Context(), parseIntParam(r, "limit", 50))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if files == nil {
		files = []store.FileSummary{}
	}
	writeJSON(w, http.StatusOK, files)
}

// openUpload returns the uploaded file and its name. Multipart forms carry
// the file in the "file" field; any other body is the file itself, named by
// the "name" query parameter.
func (s *Server) openUpload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, string, error) {
	maxSize := s.cfg.Parse.MaxFileSize
	if r.ContentLength > maxSize {
		return nil, "", fmt.Errorf("%w: limit is %d bytes", errTooLarge, maxSize)
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			return nil, "", uploadError(err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", errNoFile
		}
		return file, header.Filename, nil
	}

	if r.ContentLength == 0 {
		return nil, "", errNoFile
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		name = "upload"
	}
	return r.Body, name, nil
}

// readFile parses body with schema sch. The ignore_unique query parameter
// overrides the configured default.
func (s *Server) readFile(r *http.Request, sch *schema.Schema, body io.Reader, name string) (*core.File, error) {
	ctx := r.Context()
	logger := logging.WithFields(ctx, "schema", sch.Name, "file", name)

	ignore := parseBoolParam(r, "ignore_unique", s.cfg.Parse.IgnoreUnique)
	f, err := s.cfg.Parse.NewFile(sch,
		core.WithIgnoreUniqueConstraint(ignore),
		core.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	opts, err := s.cfg.Parse.ReaderOptions(sch)
	if err != nil {
		return nil, err
	}
	lr, err := lineio.NewReader(body, opts)
	if err != nil {
		return nil, err
	}
	if err := f.Read(ctx, lr); err != nil {
		// A body cut at the size limit ends in a partial line; report the
		// limit rather than whatever that line failed with.
		if lerr := bodyLimitErr(body); lerr != nil {
			return nil, lerr
		}
		return nil, uploadError(err)
	}

	logger.Info("file parsed",
		"stacks", f.Len(),
		"lines", lr.Lines(),
		"bytes", lr.BytesRead(),
		"warnings", len(f.Warnings()),
	)
	return f, nil
}

// uploadError marks body size failures so they map to 413.
func uploadError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return fmt.Errorf("%w: limit is %d bytes", errTooLarge, mbe.Limit)
	}
	return err
}

// bodyLimitErr returns errTooLarge when body has hit its size limit.
func bodyLimitErr(body io.Reader) error {
	_, err := body.Read(make([]byte, 1))
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return uploadError(err)
	}
	return nil
}

// isRequestError reports errors that are about the request rather than the
// file contents.
func isRequestError(err error) bool {
	return errors.Is(err, errTooLarge) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, lineio.ErrUnsupportedEncoding)
}
