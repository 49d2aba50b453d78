package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/lskyplus/bridge/internal/response"
)

// contextKey is an unexported type for context keys in this package.
type contextKey string

// SiteKey is the context key for the calling CMS site ("sub" claim).
const SiteKey contextKey = "site"

// RequireAuth returns middleware that accepts only requests carrying a Bearer
// JWT signed with secret (HMAC). The token's subject names the calling site.
func RequireAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "authorization header required")
				return
			}

			scheme, raw, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || raw == "" {
				response.Unauthorized(w, "invalid authorization header format")
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
			if err != nil || !token.Valid {
				response.Unauthorized(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), SiteKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Site returns the authenticated site name, or "" when the request was not authenticated.
func Site(ctx context.Context) string {
	s, _ := ctx.Value(SiteKey).(string)
	return s
}
