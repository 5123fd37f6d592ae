package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-accounts-api/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

// AccessVerifier resolves an access token to its active user.
type AccessVerifier interface {
	Verify(ctx context.Context, accessToken string) (*domain.User, error)
}

// Auth returns middleware that validates the Bearer access token and injects
// the resolved user into the request context. Refresh tokens are rejected
// here — verification is type-enforced.
func Auth(verifier AccessVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, `{"error":"missing or invalid authorization header"}`, http.StatusUnauthorized)
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
			u, err := verifier.Verify(r.Context(), tokenStr)
			if err != nil {
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserFromContext extracts the authenticated user from the request context.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(userKey).(*domain.User)
	return u, ok
}
