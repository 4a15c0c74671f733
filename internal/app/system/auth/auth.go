// Package auth resolves the calling user. Authentication happens upstream:
// a trusted gateway forwards the verified user id in a request header, and
// this package only carries it into the request context.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/groupchat/internal/app/system/inputval"
	"go.uber.org/zap"
)

// DefaultHeader carries the caller's user id when no header is configured.
const DefaultHeader = "X-User-Id"

type ctxKey string

const userIDKey ctxKey = "userID"

// WithUserID returns ctx carrying userID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// CurrentUserID returns the caller's user id & “found?” flag.
func CurrentUserID(r *http.Request) (string, bool) {
	id, ok := r.Context().Value(userIDKey).(string)
	return id, ok && id != ""
}

// Identity reads the caller from the gateway header.
type Identity struct {
	header    string
	onMissing http.HandlerFunc
	log       *zap.Logger
}

// NewIdentity builds the middleware. onMissing answers requests without a
// usable identity; nil means a plain 401.
func NewIdentity(header string, onMissing http.HandlerFunc, logger *zap.Logger) *Identity {
	header = strings.TrimSpace(header)
	if header == "" {
		header = DefaultHeader
	}
	if onMissing == nil {
		onMissing = func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
		}
	}
	return &Identity{header: header, onMissing: onMissing, log: logger}
}

// Header returns the header name the middleware reads.
func (i *Identity) Header() string { return i.header }

// LoadUser injects the caller's id into the context when the header holds
// a well-formed id. Malformed ids are dropped and logged.
func (i *Identity) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(i.header))
		if id != "" {
			if err := inputval.UserID(id); err != nil {
				i.log.Warn("ignoring malformed caller id",
					zap.String("header", i.header),
					zap.String("path", r.URL.Path),
					zap.Error(err))
			} else {
				r = r.WithContext(WithUserID(r.Context(), id))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RequireUser ensures there is a caller id in context (set by LoadUser).
func (i *Identity) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUserID(r); !ok {
			i.onMissing(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}
