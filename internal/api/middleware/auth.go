package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dom/taskflow/internal/auth"
	"github.com/dom/taskflow/internal/domain"
	"github.com/sirupsen/logrus"
)

type contextKey string

const (
	ClaimsKey contextKey = "claims"
)

// TokenValidator turns a bearer token into verified claims.
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

func Auth(validator TokenValidator, log logrus.FieldLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := validator.ValidateToken(BearerToken(r))
			if err != nil {
				log.WithField("path", r.URL.Path).WithError(err).Debug("rejected request token")
				writeTokenError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := GetClaims(r.Context())
		if err := auth.AuthorizeAdminOnly(claims); err != nil {
			writeMessage(w, http.StatusForbidden, "Access denied. Admin privileges required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func GetClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. It returns "" when the header is absent or malformed.
func BearerToken(r *http.Request) string {
	parts := strings.Fields(r.Header.Get("Authorization"))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func writeTokenError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrMissingToken):
		writeMessage(w, http.StatusUnauthorized, "Access denied. No token provided.")
	case errors.Is(err, domain.ErrExpiredToken):
		writeMessage(w, http.StatusUnauthorized, "Token expired.")
	default:
		writeMessage(w, http.StatusUnauthorized, "Invalid token.")
	}
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}
