package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/platinummonkey/huddle/pkg/auth"
	"github.com/platinummonkey/huddle/pkg/contextkeys"
	"github.com/platinummonkey/huddle/pkg/httputil"
	"github.com/platinummonkey/huddle/pkg/rbac"
)

// Authenticator resolves a bearer token to the calling principal
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*rbac.Caller, error)
}

// AuthMiddleware attaches the caller named by the bearer token. Requests
// without an Authorization header continue anonymously and are judged by
// each operation's policy.
type AuthMiddleware struct {
	authenticator Authenticator
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(authenticator Authenticator) *AuthMiddleware {
	return &AuthMiddleware{authenticator: authenticator}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		// Format: "Bearer <token>"
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			httputil.WriteUnauthorized(w, "invalid authorization header format")
			return
		}

		caller, err := m.authenticator.Authenticate(r.Context(), strings.TrimSpace(token))
		if errors.Is(err, auth.ErrInvalidToken) {
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}
		if err != nil {
			httputil.WriteAppError(w, r, err)
			return
		}

		ctx := rbac.WithCaller(r.Context(), caller)
		ctx = contextkeys.WithUserID(ctx, caller.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
