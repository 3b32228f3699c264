package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const AuthenticatedOperatorContextKey = ContextKey("authenticatedOperator")

// AuthenticatedOperator is the collections operator behind a campaign API call.
// Chat and webhook endpoints are unauthenticated; only campaign management
// requires an operator token.
type AuthenticatedOperator struct {
	ID       string
	Username string
	IsAdmin  bool
}

// AuthMiddleware validates the Bearer JWT on campaign management routes and
// puts the operator into the request context.
func AuthMiddleware(jwtSecret string, logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.WarnContext(r.Context(), "Authorization header missing")
				http.Error(w, "Authorization header required", http.StatusUnauthorized)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				logger.WarnContext(r.Context(), "Invalid Authorization header format")
				http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
				return
			}

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "Token validation failed", "error", err)
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			operator := AuthenticatedOperator{}
			if sub, err := claims.GetSubject(); err == nil {
				operator.ID = sub
			}
			if username, ok := claims["username"].(string); ok {
				operator.Username = username
			}
			if isAdmin, ok := claims["is_admin"].(bool); ok {
				operator.IsAdmin = isAdmin
			}
			if operator.ID == "" {
				logger.WarnContext(r.Context(), "Token missing subject claim")
				http.Error(w, "Invalid token claims", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), AuthenticatedOperatorContextKey, &operator)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
