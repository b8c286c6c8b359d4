package web

// errors.go turns service errors into responses.
//
// Every error is logged with its technical detail and the request id, then
// mapped through core.MapError so the client only sees the user message,
// the suggested action and a support code.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/salesmerge/internal/core"
	"github.com/JonMunkholm/salesmerge/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// SortKeyResponse is the 409 body returned when no file has the sort key.
type SortKeyResponse struct {
	ErrorResponse
	SortKey   string   `json:"sortKey"`
	Available []string `json:"available"`
	Truncated bool     `json:"truncated"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var pe *core.ParseError
	switch {
	case errors.Is(err, core.ErrNoFiles):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes the mapped message. API routes and
// clients asking for JSON get ErrorResponse, everything else plain text.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if !core.IsUserFacing(err) {
		level = slog.LevelError
	}
	logging.FromContext(r.Context()).Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if wantsJSON(r) {
		writeJSONStatus(w, statusCode, errorBody(userMsg))
		return
	}
	http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
}

func errorBody(msg core.UserMessage) ErrorResponse {
	return ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
}

// respondSortKeyWarning writes the 409 confirmation payload.
func (s *Server) respondSortKeyWarning(w http.ResponseWriter, r *http.Request, warn *core.SortKeyWarning) {
	logging.FromContext(r.Context()).Warn("sort key missing from all files",
		"sort_key", warn.SortKey,
		"available", warn.Available,
	)

	available := warn.Available
	if available == nil {
		available = []string{}
	}
	writeJSONStatus(w, http.StatusConflict, SortKeyResponse{
		ErrorResponse: errorBody(core.MapError(warn)),
		SortKey:       warn.SortKey,
		Available:     available,
		Truncated:     warn.Truncated,
	})
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// writeJSON encodes v as a 200 JSON response.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

// writeJSONStatus encodes v as JSON. Encoding errors are only logged since
// the header is already sent.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(context.Background()).Error("json encode error", "error", err)
	}
}
