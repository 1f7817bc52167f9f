package web

// errors.go provides unified error response handling for the web layer.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls s.respondError(w, r, err)
//  3. statusFor picks the HTTP status from the error kind
//  4. Technical error + context is logged with request ID for correlation
//  5. core.MapError's user message is returned as JSON

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/audience/internal/core"
	"github.com/JonMunkholm/audience/internal/logging"
	"github.com/JonMunkholm/audience/internal/reports"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	errNoFile      = errors.New("no file provided")
	errInvalidBody = &core.ValidationError{Field: "body", Reason: "invalid request body"}
)

// respondError logs err and writes its user message with the status that
// matches its kind.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	respondErrorJSON(w, userMsg, status)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor maps an engine error to an HTTP status. Not-found and
// duplicate-name are checked before CollaboratorError because the store
// reports them through it.
func statusFor(err error) int {
	var (
		ve  *core.ValidationError
		de  *core.DuplicateError
		cfg *core.ConfigurationError
		ce  *core.CollaboratorError
	)

	switch {
	case errors.Is(err, core.ErrNotFound), errors.Is(err, reports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateName), errors.As(err, &de):
		return http.StatusConflict
	case errors.Is(err, core.ErrEmptyInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusTooManyRequests
	case errors.As(err, &ve), errors.As(err, &cfg), errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &ce):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
