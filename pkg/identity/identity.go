// Package identity carries the authenticated caller id through a request.
// Authentication itself happens upstream; this service trusts the id
// forwarded in a request header.
package identity

import (
	"context"
	"net/http"
	apperrors "slotswap/pkg/errors"
	httputil "slotswap/pkg/http"
	"slotswap/pkg/logger"
	"strings"
)

const (
	DefaultHeader = "X-User-ID"
	maxUserIDLen  = 128
)

type userKey struct{}

func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// FromContext returns the caller id, or "" with ok=false when the request
// is anonymous.
func FromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userKey{}).(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}

// Middleware rejects requests without a usable identity header and stores
// the caller id in the request context otherwise.
func Middleware(header string, log *logger.Logger) func(http.Handler) http.Handler {
	if header == "" {
		header = DefaultHeader
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(header))
			if userID == "" || len(userID) > maxUserIDLen {
				log.WithContext(r.Context()).Warn("Rejected request without identity",
					"header", header,
					"path", r.URL.Path,
					"method", r.Method,
				)
				_ = httputil.WriteError(w, apperrors.Unauthenticated())
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), userID)))
		})
	}
}
