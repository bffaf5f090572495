package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/middleware"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/utils"
	"go.uber.org/zap"
)

// GroupService defines the group operations exposed over HTTP
type GroupService interface {
	Create(ctx context.Context, actorID uuid.UUID, name string) (*models.Group, error)
	ListAccessible(ctx context.Context, userID uuid.UUID) ([]*models.Group, error)
	Get(ctx context.Context, groupID uuid.UUID) (*models.Group, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error)
	AddMember(ctx context.Context, actorID, groupID, userID uuid.UUID, role models.MembershipRole) (*models.GroupMember, error)
	UpdateMemberRole(ctx context.Context, actorID, groupID, userID uuid.UUID, role models.MembershipRole) (*models.GroupMember, error)
	RemoveMember(ctx context.Context, actorID, groupID, userID uuid.UUID) error
}

// CreateGroupRequest represents a request to create a group
type CreateGroupRequest struct {
	Name string `json:"name" validate:"required,min=1,max=200"`
}

// AddMemberRequest represents a request to add a user to a group
type AddMemberRequest struct {
	UserID string                `json:"user_id" validate:"required,uuid"`
	Role   models.MembershipRole `json:"role" validate:"required,membership_role"`
}

// UpdateMemberRequest represents a membership role change
type UpdateMemberRequest struct {
	Role models.MembershipRole `json:"role" validate:"required,membership_role"`
}

// GroupHandler handles group and membership requests. Group-scoped routes
// are guarded by AccessMiddleware.RequireGroupAccess.
type GroupHandler struct {
	groups GroupService
	logger *zap.Logger
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(groups GroupService, logger *zap.Logger) *GroupHandler {
	return &GroupHandler{
		groups: groups,
		logger: logger,
	}
}

// HandleListGroups handles GET /api/v1/groups
func (h *GroupHandler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	groups, err := h.groups.ListAccessible(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, groups)
}

// HandleCreateGroup handles POST /api/v1/groups
func (h *GroupHandler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}

	var req CreateGroupRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	group, err := h.groups.Create(r.Context(), userID, req.Name)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	h.logger.Info("group created",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("group_id", group.ID.String()),
		zap.String("owner_id", userID.String()))

	_ = utils.WriteCreated(w, group)
}

// HandleGetGroup handles GET /api/v1/groups/{groupID}
func (h *GroupHandler) HandleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	group, err := h.groups.Get(r.Context(), groupID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, group)
}

// HandleListMembers handles GET /api/v1/groups/{groupID}/members
func (h *GroupHandler) HandleListMembers(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	members, err := h.groups.ListMembers(r.Context(), groupID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, members)
}

// HandleAddMember handles POST /api/v1/groups/{groupID}/members
func (h *GroupHandler) HandleAddMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	groupID, ok := h.groupID(w, r)
	if !ok {
		return
	}

	var req AddMemberRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		_ = utils.WriteBadRequest(w, "user_id must be a valid UUID", nil)
		return
	}

	member, err := h.groups.AddMember(r.Context(), actorID, groupID, userID, req.Role)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteCreated(w, member)
}

// HandleUpdateMember handles PUT /api/v1/groups/{groupID}/members/{userID}
func (h *GroupHandler) HandleUpdateMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	groupID, userID, ok := h.memberIDs(w, r)
	if !ok {
		return
	}

	var req UpdateMemberRequest
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	member, err := h.groups.UpdateMemberRole(r.Context(), actorID, groupID, userID, req.Role)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	_ = utils.WriteOK(w, member)
}

// HandleRemoveMember handles DELETE /api/v1/groups/{groupID}/members/{userID}
func (h *GroupHandler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := callerID(w, r, h.logger)
	if !ok {
		return
	}
	groupID, userID, ok := h.memberIDs(w, r)
	if !ok {
		return
	}

	if err := h.groups.RemoveMember(r.Context(), actorID, groupID, userID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

func (h *GroupHandler) groupID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	groupID, err := utils.URLParamUUID(r, middleware.GroupIDParam)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return uuid.Nil, false
	}
	return groupID, true
}

func (h *GroupHandler) memberIDs(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	groupID, ok := h.groupID(w, r)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := utils.URLParamUUID(r, UserIDParam)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return uuid.Nil, uuid.Nil, false
	}
	return groupID, userID, true
}
