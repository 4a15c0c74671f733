// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/app/system/requestid"
	"go.uber.org/zap"
)

// ErrorLogger turns service errors into JSON error responses.
type ErrorLogger struct {
	log *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	return &ErrorLogger{log: logger}
}

// Write maps err onto a status code and writes the error envelope. Internal
// errors are logged and reported without detail.
func (e *ErrorLogger) Write(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)

	msg := err.Error()
	switch kind {
	case apperr.KindInternal:
		e.log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestid.From(r.Context())),
			zap.Error(err))
		msg = "internal error"
	case apperr.KindConflict:
		e.log.Warn("request abandoned after version conflicts",
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestid.From(r.Context())),
			zap.Error(err))
		msg = "the resource is busy, retry the request"
		w.Header().Set("Retry-After", "1")
	}
	Error(w, status, string(kind), msg)
}

// Handler serves the router's fallback responses.
type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

// NotFound answers unknown routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusNotFound, string(apperr.KindNotFound), "no route for "+r.URL.Path)
}

// MethodNotAllowed answers known routes called with the wrong method.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", r.Method+" is not allowed on "+r.URL.Path)
}

// Unauthenticated answers requests that carry no caller identity.
func (h *Handler) Unauthenticated(w http.ResponseWriter, r *http.Request) {
	Error(w, http.StatusUnauthorized, "UNAUTHENTICATED", "caller identity is required")
}
