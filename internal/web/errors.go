package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is mapped through core.MapError, logged with the technical
// detail and request id, and rendered as JSON for API clients or as an HTML
// alert for HTMX and browser clients.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/flr/internal/core"
	"github.com/JonMunkholm/flr/internal/lineio"
	"github.com/JonMunkholm/flr/internal/report"
	"github.com/JonMunkholm/flr/internal/schema"
	"github.com/JonMunkholm/flr/internal/store"
	"github.com/JonMunkholm/flr/internal/web/templates"
	"github.com/go-chi/chi/v5/middleware"
)

var (
	errNoFile   = errors.New("no file provided")
	errTooLarge = errors.New("file too large")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
	Stack   int    `json:"stack,omitempty"`
}

// respondError writes err with the status chosen by statusFor.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusFor(err)
	userMsg := core.MapError(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if isHTMX(r) || !wantsJSON(r) {
		renderErrorPartial(w, r, userMsg, statusCode)
		return
	}
	line, stack := report.Position(err)
	writeJSON(w, statusCode, ErrorResponse{
		Error:   err.Error(),
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
		Line:    line,
		Stack:   stack,
	})
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var (
		ce *core.ConfigurationError
		nm *core.NoMatchingTypeError
		am *core.AmbiguousMatchError
		de *core.DecodeError
	)
	switch {
	case errors.Is(err, schema.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile), errors.Is(err, lineio.ErrUnsupportedEncoding):
		return http.StatusBadRequest
	case errors.Is(err, errBusy):
		return http.StatusTooManyRequests
	case errors.Is(err, store.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &ce):
		return http.StatusInternalServerError
	case errors.As(err, &nm), errors.As(err, &am), errors.As(err, &de),
		core.IsUniqueViolation(err), errors.Is(err, core.ErrTooManyLines):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// renderErrorPartial renders the error alert component.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
		slog.Error("render error alert", "error", err)
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Accept"), "text/html") {
		return false
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
