package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/contactbook/backend/internal/logging"
)

type contextKey string

const userIDKey contextKey = "user_id"

// TokenAuthenticator resolves a bearer token to a user identifier.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, value string) (string, error)
}

// Authenticate rejects requests without a valid bearer token and attaches the
// resolved user id to the request context.
func Authenticate(tokens TokenAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := BearerToken(r)
			if token == "" {
				unauthenticated(w)
				return
			}

			userID, err := tokens.Authenticate(ctx, token)
			if err != nil {
				logging.FromContext(ctx).Warn("rejected bearer token", "error", err)
				unauthenticated(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, userIDKey, userID)))
		})
	}
}

// BearerToken extracts the bearer credential from the Authorization header.
func BearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// UserID extracts the authenticated user id from the context.
func UserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// WithUserID stores a user id on the context. Useful for tests.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func unauthenticated(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"message":"unauthenticated"}` + "\n"))
}
