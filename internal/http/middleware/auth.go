package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/clockset/accountd/internal/httputil"
	"github.com/clockset/accountd/pkg/auth"
)

type contextKey string

// UserIDKey is the context key for the authenticated user ID.
const UserIDKey contextKey = "user_id"

// Auth creates middleware that resolves the request identity from the
// access token once per request and passes the user ID down the chain via
// context. Checks the Authorization header first, then the cookie.
func Auth(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return identity(tokens.ValidateAccess, httputil.GetAccessTokenFromRequest)
}

// RequireRefresh creates middleware that validates the refresh token. The
// downstream handler receives the token subject; it never re-validates.
func RequireRefresh(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return identity(tokens.ValidateRefresh, httputil.GetRefreshTokenFromRequest)
}

func identity(validate func(string) (string, error), fromCookie func(*http.Request) (string, bool)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var tokenString string

			authHeader := r.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.SplitN(authHeader, " ", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
					tokenString = parts[1]
				}
			}

			if tokenString == "" {
				if token, ok := fromCookie(r); ok {
					tokenString = token
				}
			}

			if tokenString == "" {
				httputil.Error(w, http.StatusUnauthorized, "missing_authorization")
				return
			}

			userID, err := validate(tokenString)
			if err != nil {
				httputil.Error(w, http.StatusUnauthorized, "invalid_token")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts the authenticated user ID from the request context.
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}
