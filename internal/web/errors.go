package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/tablecfg/internal/core"
	"github.com/JonMunkholm/tablecfg/internal/core/diff"
	"github.com/JonMunkholm/tablecfg/internal/ingest"
	"github.com/JonMunkholm/tablecfg/internal/logging"
	"github.com/JonMunkholm/tablecfg/internal/web/templates"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and answers with the mapped operator
// message, as an HTML page for browsers and JSON otherwise.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	if wantsHTML(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = templates.ErrorPage(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
		return
	}

	writeJSON(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks the HTTP status of a failed run.
func statusFor(err error) int {
	var fe *ingest.FileError
	switch {
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	case errors.Is(err, core.ErrMissingInput),
		errors.Is(err, errInvalidForm),
		errors.Is(err, diff.ErrInvalidThreshold),
		errors.As(err, &fe):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// wantsHTML reports whether the client is a browser navigating the forms.
func wantsHTML(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return strings.Contains(accept, "text/html") && !strings.Contains(accept, "application/json")
}

// wantsJSON reports whether the client asked for a JSON result instead of
// the workbook.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		r.URL.Query().Get("format") == "json"
}
