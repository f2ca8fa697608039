// Package auth guards the HTTP transport with a bearer token: either a static
// service token or an HS256 JWT.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-logr/logr"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys for storing caller information
type contextKey string

const (
	UserContextKey contextKey = "user"

	serviceSubject = "service_account"
)

// UserContext represents the authenticated caller
type UserContext struct {
	Subject string
	Service bool
}

// AuthMiddleware creates HTTP middleware for authentication
type AuthMiddleware struct {
	serviceToken string
	jwtSecret    []byte
	log          logr.Logger
}

// NewAuthMiddleware returns nil when neither credential is configured, which
// leaves the server open.
func NewAuthMiddleware(serviceToken, jwtSecret string, log logr.Logger) *AuthMiddleware {
	if serviceToken == "" && jwtSecret == "" {
		return nil
	}
	return &AuthMiddleware{
		serviceToken: serviceToken,
		jwtSecret:    []byte(jwtSecret),
		log:          log.WithName("auth"),
	}
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Allow OPTIONS requests (CORS preflight) to pass through without auth
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		token := ExtractTokenFromHeader(r)
		// SSE clients cannot always set headers
		if token == "" {
			token = ExtractTokenFromQuery(r)
		}
		if token == "" {
			http.Error(w, "Unauthorized: missing authentication token", http.StatusUnauthorized)
			return
		}

		user, err := m.verify(token)
		if err != nil {
			m.log.V(1).Info("rejected bearer token", "path", r.URL.Path, "reason", err.Error())
			http.Error(w, fmt.Sprintf("Unauthorized: %v", err), http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) verify(token string) (*UserContext, error) {
	if m.serviceToken != "" && subtle.ConstantTimeCompare([]byte(token), []byte(m.serviceToken)) == 1 {
		return &UserContext{Subject: serviceSubject, Service: true}, nil
	}
	if len(m.jwtSecret) == 0 {
		return nil, errors.New("invalid token")
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return &UserContext{Subject: claims.Subject}, nil
}

// ExtractUserFromContext extracts user context from request context
func ExtractUserFromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(UserContextKey).(*UserContext)
	return user, ok
}

// ExtractTokenFromHeader extracts the bearer token from the Authorization header
func ExtractTokenFromHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	// Expected format: "Bearer <token>"
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}

	return parts[1]
}

// ExtractTokenFromQuery extracts the token from the query string
func ExtractTokenFromQuery(r *http.Request) string {
	return r.URL.Query().Get("token")
}
