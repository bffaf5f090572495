package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/middleware"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/services/users"
	"github.com/upb/wedding-platform/utils"
	"go.uber.org/zap"
)

// UserIDParam is the chi URL parameter holding a user ID
const UserIDParam = "userID"

// UserService defines the user operations exposed over HTTP
type UserService interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateEmail(ctx context.Context, userID uuid.UUID, email string) (*models.User, error)
	List(ctx context.Context, role string, limit, offset int) ([]*models.User, error)
	ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role models.UserRole) (*models.User, error)
}

// UpdateCurrentUserRequest is the body of PUT /api/v1/users/me.
// Only the email may be changed by its owner.
type UpdateCurrentUserRequest struct {
	Email string `json:"email" validate:"required,email,max=320"`
}

// ChangeRoleRequest is the body of PUT /api/v1/users/{userID}/role
type ChangeRoleRequest struct {
	Role models.UserRole `json:"role" validate:"required,user_role"`
}

// UserListResponse wraps a page of users
type UserListResponse struct {
	Users  []*models.User `json:"users"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// UserHandler handles user profile and administration requests
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

// HandleGetCurrentUser handles GET /api/v1/users/me
func (h *UserHandler) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, user)
}

// HandleUpdateCurrentUser handles PUT /api/v1/users/me
func (h *UserHandler) HandleUpdateCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req UpdateCurrentUserRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.users.UpdateEmail(r.Context(), userID, req.Email)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, user)
}

// HandleListUsers handles GET /api/v1/users?role=&limit=&offset=
func (h *UserHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := utils.QueryInt(r, "limit", users.DefaultPageSize)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}
	offset, err := utils.QueryInt(r, "offset", 0)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	list, err := h.users.List(r.Context(), r.URL.Query().Get("role"), limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	limit, offset = users.Page(limit, offset)
	_ = utils.WriteOK(w, UserListResponse{
		Users:  list,
		Limit:  limit,
		Offset: offset,
	})
}

// HandleChangeRole handles PUT /api/v1/users/{userID}/role
func (h *UserHandler) HandleChangeRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	userID, err := utils.URLParamUUID(r, UserIDParam)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	var req ChangeRoleRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.users.ChangeRole(r.Context(), actorID, userID, req.Role)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("user role changed",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("actor_id", actorID.String()),
		zap.String("user_id", userID.String()),
		zap.String("role", string(user.Role)))

	_ = utils.WriteOK(w, user)
}
