package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/upb/wedding-platform/auth"
	"github.com/upb/wedding-platform/utils"
	"go.uber.org/zap"
)

// TokenValidator defines the interface for validating bearer tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*auth.ParsedClaims, error)
}

// AuthMiddleware provides authentication middleware functionality
type AuthMiddleware struct {
	validator   TokenValidator
	logger      *zap.Logger
	cookieNames []string
}

// sessionCookieName is accepted alongside the configured cookie
const sessionCookieName = "session"

// NewAuthMiddleware creates a new AuthMiddleware. cookieName is the primary
// token cookie; the Authorization header takes precedence over any cookie.
func NewAuthMiddleware(validator TokenValidator, cookieName string, logger *zap.Logger) *AuthMiddleware {
	names := []string{}
	if cookieName != "" {
		names = append(names, cookieName)
	}
	if cookieName != sessionCookieName {
		names = append(names, sessionCookieName)
	}
	return &AuthMiddleware{
		validator:   validator,
		logger:      logger,
		cookieNames: names,
	}
}

// RequireAuth rejects requests without a valid token and puts the caller's
// user ID into the request context
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := m.extractToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.validator.ValidateToken(ctx, token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("user_id", claims.UserID.String()))

		next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
	})
}

// extractToken reads the bearer token, falling back to the token cookies
func (m *AuthMiddleware) extractToken(r *http.Request) string {
	if token := extractBearerToken(r); token != "" {
		return token
	}
	for _, name := range m.cookieNames {
		if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	return ""
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
