package middleware

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/services"
	"github.com/upb/wedding-platform/services/accesscontrol"
	"github.com/upb/wedding-platform/utils"
	"go.uber.org/zap"
)

// AccessChecker is the subset of the access control service used for route guards
type AccessChecker interface {
	RequireRole(ctx context.Context, userID uuid.UUID, required models.UserRole) (models.UserRole, error)
	RequireAnyRole(ctx context.Context, userID uuid.UUID, allowed []models.UserRole) (models.UserRole, error)
	CanPerformAction(ctx context.Context, check models.PermissionCheck) (accesscontrol.Decision, error)
	RequireGroupAccess(ctx context.Context, check models.GroupAccessCheck) (models.UserRole, error)
}

// ErrorHandler writes a service error to the response
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// GroupIDParam is the chi URL parameter holding the group ID
const GroupIDParam = "groupID"

var errInvalidGroupID = services.NewDomainError(services.CodeValidation, "groupID must be a valid UUID", nil)

// AccessMiddleware guards routes with role, permission and group checks.
// It must run after AuthMiddleware.RequireAuth.
type AccessMiddleware struct {
	access  AccessChecker
	onError ErrorHandler
	logger  *zap.Logger
}

// NewAccessMiddleware creates a new AccessMiddleware
func NewAccessMiddleware(access AccessChecker, onError ErrorHandler, logger *zap.Logger) *AccessMiddleware {
	return &AccessMiddleware{
		access:  access,
		onError: onError,
		logger:  logger,
	}
}

// RequireRole only admits callers whose stored role equals role
func (m *AccessMiddleware) RequireRole(role models.UserRole) func(http.Handler) http.Handler {
	return m.guard("require_role", func(r *http.Request, userID uuid.UUID) (models.UserRole, error) {
		return m.access.RequireRole(r.Context(), userID, role)
	})
}

// RequireAnyRole only admits callers whose stored role is one of roles
func (m *AccessMiddleware) RequireAnyRole(roles ...models.UserRole) func(http.Handler) http.Handler {
	return m.guard("require_any_role", func(r *http.Request, userID uuid.UUID) (models.UserRole, error) {
		return m.access.RequireAnyRole(r.Context(), userID, roles)
	})
}

// RequirePermission only admits callers whose role may perform action on resource
func (m *AccessMiddleware) RequirePermission(resource models.Resource, action models.Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			userID, ok := GetUserIDFromContext(ctx)
			if !ok {
				m.missingUser(w, r)
				return
			}

			decision, err := m.access.CanPerformAction(ctx, models.PermissionCheck{
				UserID:   userID,
				Resource: resource,
				Action:   action,
			})
			if err != nil {
				m.onError(w, r, err)
				return
			}
			if !decision.Allowed {
				m.logger.Warn("permission denied",
					zap.String("request_id", GetRequestIDFromContext(ctx)),
					zap.String("user_id", userID.String()),
					zap.String("resource", string(resource)),
					zap.String("action", string(action)))
				_ = utils.WriteForbidden(w, "Insufficient permissions", map[string]interface{}{
					"resource": string(resource),
					"action":   string(action),
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireGroupAccess only admits callers who may access the group named by
// the groupID URL parameter
func (m *AccessMiddleware) RequireGroupAccess(next http.Handler) http.Handler {
	return m.guard("require_group_access", func(r *http.Request, userID uuid.UUID) (models.UserRole, error) {
		groupID, err := uuid.Parse(chi.URLParam(r, GroupIDParam))
		if err != nil {
			return "", errInvalidGroupID
		}
		return m.access.RequireGroupAccess(r.Context(), models.GroupAccessCheck{
			UserID:  userID,
			GroupID: groupID,
		})
	})(next)
}

func (m *AccessMiddleware) guard(check string, fn func(*http.Request, uuid.UUID) (models.UserRole, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := GetUserIDFromContext(r.Context())
			if !ok {
				m.missingUser(w, r)
				return
			}

			role, err := fn(r, userID)
			if err != nil {
				m.logger.Debug("access check rejected request",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("check", check),
					zap.String("user_id", userID.String()),
					zap.Error(err))
				m.onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserRole(r.Context(), role)))
		})
	}
}

func (m *AccessMiddleware) missingUser(w http.ResponseWriter, r *http.Request) {
	m.logger.Error("user id not found in context",
		zap.String("request_id", GetRequestIDFromContext(r.Context())))
	_ = utils.WriteUnauthorized(w, "Authentication required")
}
