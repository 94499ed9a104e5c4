package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	dErrors "landcert/pkg/domainerrors"
)

// JWTClaims is the subset of token claims the transport layer needs.
type JWTClaims struct {
	UserID string
	Role   string
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	ValidateToken(token string) (*JWTClaims, error)
}

// RequireAuth guards registrar routes. Requests without a valid bearer token
// are rejected before reaching the handler.
func RequireAuth(validator TokenValidator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeAuthError(w, "missing authorization header")
				return
			}
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeAuthError(w, "authorization header must be a bearer token")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				log.Debug("token rejected",
					zap.Error(err),
					zap.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID returns the authenticated user, or "" on public routes.
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func writeAuthError(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   string(dErrors.CodeUnauthorized),
		"message": msg,
	})
}
