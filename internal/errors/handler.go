package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// ErrorData is the payload of a failed response
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// ErrorResponse is the uniform failure envelope
type ErrorResponse struct {
	Success bool      `json:"success"`
	Data    ErrorData `json:"data"`

	status int
}

// Render implements the render.Renderer interface for chi/render
func (e *ErrorResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.status)
	return nil
}

// NewErrorResponse converts any error into the envelope. Internal causes are
// not echoed to the client.
func NewErrorResponse(err error) *ErrorResponse {
	resp := &ErrorResponse{status: HTTPStatus(err)}

	var e *Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		resp.status = http.StatusGatewayTimeout
		resp.Data = ErrorData{Code: "timeout", Message: "request timed out"}
	case errors.As(err, &e) && e.Kind != KindInternal:
		resp.Data = ErrorData{Code: e.Code, Message: e.Message, Field: e.Field}
	default:
		resp.Data = ErrorData{Code: "internal_error", Message: "An unexpected error occurred"}
	}
	return resp
}

// StatusCode returns the HTTP status the envelope renders with
func (e *ErrorResponse) StatusCode() int {
	return e.status
}

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError logs err and renders it as the failure envelope
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	resp := NewErrorResponse(err)
	level := slog.LevelWarn
	if resp.status >= http.StatusInternalServerError {
		level = slog.LevelError
	}

	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.String("kind", string(KindOf(err))),
		slog.Int("status", resp.status),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	_ = render.Render(w, r, resp)
}

// HandlePanic logs a recovered panic and renders an internal error envelope
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	attrs := []any{
		slog.Any("panic", recovered),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	}
	if h.includeStack {
		attrs = append(attrs, slog.String("stack", string(debug.Stack())))
	}
	h.logger.ErrorContext(r.Context(), "panic recovered", attrs...)

	_ = render.Render(w, r, NewErrorResponse(Internal(fmt.Errorf("panic: %v", recovered))))
}

// NotFound renders a 404 envelope for unknown routes
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	_ = render.Render(w, r, NewErrorResponse(NotFound("route "+r.URL.Path)))
}

// MethodNotAllowed renders a 405 envelope
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	resp := &ErrorResponse{
		status: http.StatusMethodNotAllowed,
		Data: ErrorData{
			Code:    "method_not_allowed",
			Message: fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		},
	}
	_ = render.Render(w, r, resp)
}
