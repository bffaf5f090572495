package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/auth"
	"github.com/upb/wedding-platform/internal/shared"
	"github.com/upb/wedding-platform/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// ClaimsKey is the context key for validated token claims
	ClaimsKey contextKey = "claims"

	// UserIDKey is the context key for the authenticated user ID
	UserIDKey contextKey = "user_id"

	// UserRoleKey is the context key for the role resolved by the access middleware
	UserRoleKey contextKey = "user_role"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	return shared.RequestID(ctx)
}

// GetClaimsFromContext retrieves token claims from context
func GetClaimsFromContext(ctx context.Context) *auth.ParsedClaims {
	if claims, ok := ctx.Value(ClaimsKey).(*auth.ParsedClaims); ok {
		return claims
	}
	return nil
}

// WithClaims adds token claims and the caller's user ID to the context
func WithClaims(ctx context.Context, claims *auth.ParsedClaims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return WithUserID(ctx, claims.UserID)
}

// GetUserIDFromContext retrieves the authenticated user ID from context
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok && userID != uuid.Nil
}

// WithUserID adds a user ID to the context
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// GetUserRoleFromContext returns the role stored by an access check earlier
// in the chain, if any
func GetUserRoleFromContext(ctx context.Context) (models.UserRole, bool) {
	role, ok := ctx.Value(UserRoleKey).(models.UserRole)
	return role, ok
}

// WithUserRole adds a resolved role to the context
func WithUserRole(ctx context.Context, role models.UserRole) context.Context {
	return context.WithValue(ctx, UserRoleKey, role)
}
