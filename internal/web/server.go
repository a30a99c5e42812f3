// Package web provides the HTTP API for parsing, validating and importing
// FLR files.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/flr/internal/config"
	"github.com/JonMunkholm/flr/internal/core"
	"github.com/JonMunkholm/flr/internal/schema"
	"github.com/JonMunkholm/flr/internal/store"
	flrmw "github.com/JonMunkholm/flr/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Importer persists parsed files. *store.Store implements it.
type Importer interface {
	SaveFile(ctx context.Context, name, schemaName string, f *core.File) (uuid.UUID, error)
	ListFiles(ctx context.Context, limit int) ([]store.FileSummary, error)
}

// Server is the HTTP server for the FLR API.
type Server struct {
	catalog  *schema.Catalog
	importer Importer
	cfg      *config.Config
	limiter  *limiter
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a server for the schemas in catalog. importer may be nil,
// in which case the import endpoints answer 503.
func NewServer(catalog *schema.Catalog, importer Importer, cfg *config.Config) *Server {
	s := &Server{
		catalog:  catalog,
		importer: importer,
		cfg:      cfg,
		limiter:  newLimiter(cfg.Server.MaxConcurrent, cfg.Server.MaxWait),
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(flrmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(flrmw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.cfg.Server.RequestTimeout > 0 {
		s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	}
	s.router.Use(securityHeaders)
	s.router.Use(flrmw.RateLimit(&s.cfg.Rate))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/schemas", s.handleListSchemas)
		r.Get("/schemas/{schema}", s.handleGetSchema)

		r.With(s.limit).Post("/parse/{schema}", s.handleParse)
		r.With(s.limit).Post("/validate/{schema}", s.handleValidate)

		r.With(flrmw.APIKeyAuth(&s.cfg.Security)).Get("/files", s.handleListFiles)
		r.With(flrmw.APIKeyAuth(&s.cfg.Security), s.limit).Post("/import/{schema}", s.handleImport)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	slog.Info("server listening", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// WaitForIdle blocks until no file is being parsed or ctx is done.
func (s *Server) WaitForIdle(ctx context.Context) error {
	return s.limiter.drain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON with the given status.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
