package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/middleware"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/services"
	"github.com/upb/wedding-platform/services/accesscontrol"
	"github.com/upb/wedding-platform/utils"
	"go.uber.org/zap"
)

// AccessService defines the access control queries exposed over HTTP
type AccessService interface {
	ResolveRole(ctx context.Context, userID uuid.UUID) (models.UserRole, error)
	HasRole(ctx context.Context, userID uuid.UUID, required models.UserRole) (accesscontrol.RoleCheck, error)
	HasAnyRole(ctx context.Context, userID uuid.UUID, allowed []models.UserRole) (accesscontrol.RoleCheck, error)
	CanPerformAction(ctx context.Context, check models.PermissionCheck) (accesscontrol.Decision, error)
	CanAccessGroup(ctx context.Context, check models.GroupAccessCheck) (accesscontrol.GroupAccess, error)
	GetUserGroups(ctx context.Context, userID uuid.UUID) (*accesscontrol.UserGroups, error)
}

// PermissionCheckRequest asks whether a role may act on a resource
type PermissionCheckRequest struct {
	Resource string          `json:"resource" validate:"required,max=64"`
	Action   models.Action   `json:"action" validate:"required,action"`
	Role     models.UserRole `json:"role,omitempty" validate:"omitempty,user_role"`
}

// PermissionCheckResponse is the answer to a PermissionCheckRequest
type PermissionCheckResponse struct {
	Allowed  bool            `json:"allowed"`
	Role     models.UserRole `json:"role"`
	Resource string          `json:"resource"`
	Action   models.Action   `json:"action"`
}

// AccessHandler answers access control questions about the caller
type AccessHandler struct {
	access AccessService
	logger *zap.Logger
}

// NewAccessHandler creates a new AccessHandler
func NewAccessHandler(access AccessService, logger *zap.Logger) *AccessHandler {
	return &AccessHandler{
		access: access,
		logger: logger,
	}
}

// HandleCheckPermission handles POST /api/v1/access/check.
// Only super admins may evaluate a role other than their own.
func (h *AccessHandler) HandleCheckPermission(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req PermissionCheckRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	role, err := h.access.ResolveRole(ctx, userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}
	if req.Role != "" && req.Role != role {
		if role != models.RoleSuperAdmin {
			_ = utils.WriteForbidden(w, "Only super_admin may evaluate another role", map[string]interface{}{
				"role": string(req.Role),
			})
			return
		}
		role = req.Role
	}

	decision, err := h.access.CanPerformAction(ctx, models.PermissionCheck{
		UserID:   userID,
		Role:     role,
		Resource: models.Resource(req.Resource),
		Action:   req.Action,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, PermissionCheckResponse{
		Allowed:  decision.Allowed,
		Role:     role,
		Resource: req.Resource,
		Action:   req.Action,
	})
}

// HandleCheckRoles handles GET /api/v1/access/roles?role=host&role=guest.
// A single role is an exact match; several roles match any of them.
func (h *AccessHandler) HandleCheckRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	roles, err := parseRoles(r.URL.Query()["role"])
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	var result accesscontrol.RoleCheck
	if len(roles) == 1 {
		result, err = h.access.HasRole(r.Context(), userID, roles[0])
	} else {
		result, err = h.access.HasAnyRole(r.Context(), userID, roles)
	}
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, result)
}

// HandleListGroups handles GET /api/v1/access/groups
func (h *AccessHandler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	groups, err := h.access.GetUserGroups(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, groups)
}

// HandleCheckGroup handles GET /api/v1/access/groups/{groupID}
func (h *AccessHandler) HandleCheckGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	groupID, err := utils.URLParamUUID(r, middleware.GroupIDParam)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	result, err := h.access.CanAccessGroup(r.Context(), models.GroupAccessCheck{
		UserID:  userID,
		GroupID: groupID,
	})
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, result)
}

// parseRoles accepts repeated and comma separated role parameters
func parseRoles(values []string) ([]models.UserRole, error) {
	var roles []models.UserRole
	for _, v := range values {
		for _, raw := range strings.Split(v, ",") {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			role, err := models.ParseUserRole(raw)
			if err != nil {
				return nil, services.NewDomainError(services.CodeValidation, "Invalid role", err).
					WithDetail("role", raw)
			}
			roles = append(roles, role)
		}
	}
	if len(roles) == 0 {
		return nil, services.NewDomainError(services.CodeValidation, "At least one role is required", nil)
	}
	return roles, nil
}

// callerID returns the authenticated user ID or writes 401
func callerID(w http.ResponseWriter, r *http.Request, logger *zap.Logger) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		logger.Error("missing user ID in context",
			zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))
		_ = utils.WriteUnauthorized(w, "Authentication required")
		return uuid.Nil, false
	}
	return userID, true
}
