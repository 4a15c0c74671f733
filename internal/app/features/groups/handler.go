// internal/app/features/groups/handler.go
package groups

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	errorsfeature "github.com/dalemusser/groupchat/internal/app/features/errors"
	groupservice "github.com/dalemusser/groupchat/internal/app/service/groups"
	"github.com/dalemusser/groupchat/internal/app/system/apperr"
	"github.com/dalemusser/groupchat/internal/app/system/auth"
	"github.com/dalemusser/groupchat/internal/app/system/inputval"
	"github.com/dalemusser/groupchat/internal/app/system/ratelimit"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 64 << 10

// Handler is the JSON transport over the group service. It parses ids and
// bodies, calls exactly one service operation, and renders the result.
type Handler struct {
	svc       *groupservice.Service
	errLog    *errorsfeature.ErrorLogger
	log       *zap.Logger
	sendLimit *ratelimit.Limiter // nil means unlimited
}

func NewHandler(svc *groupservice.Service, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{svc: svc, errLog: errLog, log: logger}
}

// WithSendLimiter caps how many messages one caller may send per window.
func (h *Handler) WithSendLimiter(l *ratelimit.Limiter) *Handler {
	h.sendLimit = l
	return h
}

// caller returns the authenticated user id. RequireUser guarantees it is
// present on every route of this feature.
func caller(r *http.Request) string {
	id, _ := auth.CurrentUserID(r)
	return id
}

func pathID(r *http.Request, param, what string) (primitive.ObjectID, error) {
	return inputval.ObjectID(chi.URLParam(r, param), what)
}

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return apperr.Validation("request body larger than %d bytes", maxBodyBytes)
		}
		return apperr.Validation("malformed JSON body")
	}
	return nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.errLog.Write(w, r, err)
}
