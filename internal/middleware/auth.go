// CivicVoice | 2026
// auth.go

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/civicvoice/backend/internal/core"
)

// Identity is the authenticated caller attached to the request context.
type Identity struct {
	UserID string
	Email  string
	Role   string
}

// TokenResolver turns a bearer token into an Identity. The auth service
// provides the implementation; failures carry the sentinel token errors
// so they render as 401s.
type TokenResolver func(ctx context.Context, token string) (*Identity, error)

type contextKey string

const identityKey contextKey = "identity"

// ExtractToken pulls the bearer token from the Authorization header.
func ExtractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

// Authenticator rejects requests without a valid bearer token and
// attaches the resolved identity to the context.
func Authenticator(resolve TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" {
				core.Unauthorized(w, "Authentication required")
				return
			}

			identity, err := resolve(r.Context(), token)
			if err != nil {
				core.JSONError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route on the caller's role. Must run after
// Authenticator.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				core.Unauthorized(w, "")
				return
			}

			if identity.Role != role {
				core.Forbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func GetIdentity(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok
}

func GetUserID(ctx context.Context) string {
	if identity, ok := GetIdentity(ctx); ok {
		return identity.UserID
	}
	return ""
}

// WithIdentity attaches an identity to ctx. Used by handler tests that
// bypass the Authenticator.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}
