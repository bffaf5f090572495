// Package accesscontrol decides what a platform user may do: role checks,
// the role/resource/action matrix, group access and group enumeration.
// Every decision reads role and membership fresh from the store.
package accesscontrol

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/repositories"
	"github.com/upb/wedding-platform/services"
	"go.uber.org/zap"
)

// Check names used for metrics and audit entries
const (
	CheckHasRole            = "has_role"
	CheckHasAnyRole         = "has_any_role"
	CheckRequireRole        = "require_role"
	CheckRequireAnyRole     = "require_any_role"
	CheckPermission         = "permission"
	CheckGroupAccess        = "group_access"
	CheckRequireGroupAccess = "require_group_access"
	CheckUserGroups         = "user_groups"
)

// UserLookup reads the stored platform role of a user.
// It returns repositories.ErrNotFound when the user does not exist.
type UserLookup interface {
	GetRole(ctx context.Context, userID uuid.UUID) (string, error)
}

// MembershipLookup reads group membership rows
type MembershipLookup interface {
	GetMembership(ctx context.Context, userID, groupID uuid.UUID) (string, error)
	ListGroupIDsByRole(ctx context.Context, userID uuid.UUID, role models.MembershipRole) ([]uuid.UUID, error)
}

// GroupLister enumerates every group
type GroupLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

// DenialAuditor records denied Require* checks
type DenialAuditor interface {
	LogAccessDenied(ctx context.Context, userID uuid.UUID, check string, details map[string]interface{})
}

// DecisionRecorder counts decisions and failures
type DecisionRecorder interface {
	RecordDecision(check string, allowed bool)
	RecordError(check string, code services.ErrorCode)
}

// RoleCheck is the result of HasRole and HasAnyRole
type RoleCheck struct {
	HasRole  bool            `json:"has_role"`
	UserRole models.UserRole `json:"user_role"`
}

// Decision is the result of a permission check
type Decision struct {
	Allowed bool `json:"allowed"`
}

// GroupAccess is the result of CanAccessGroup
type GroupAccess struct {
	CanAccess bool            `json:"can_access"`
	Role      models.UserRole `json:"role"`
}

// UserGroups lists the groups a user may access
type UserGroups struct {
	GroupIDs []uuid.UUID     `json:"group_ids"`
	Role     models.UserRole `json:"role"`
}

// Service evaluates access decisions. It holds no mutable state and is safe
// for concurrent use.
type Service struct {
	users   UserLookup
	members MembershipLookup
	groups  GroupLister
	logger  *zap.Logger
	auditor DenialAuditor
	metrics DecisionRecorder
}

// Option configures a Service
type Option func(*Service)

// WithAuditor records Require* denials
func WithAuditor(a DenialAuditor) Option {
	return func(s *Service) { s.auditor = a }
}

// WithMetrics counts decisions
func WithMetrics(m DecisionRecorder) Option {
	return func(s *Service) { s.metrics = m }
}

// NewService creates an access control service over the given lookups
func NewService(users UserLookup, members MembershipLookup, groups GroupLister, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		users:   users,
		members: members,
		groups:  groups,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ResolveRole returns the stored role of a user
func (s *Service) ResolveRole(ctx context.Context, userID uuid.UUID) (role models.UserRole, err error) {
	defer services.Recover(&err)
	return s.resolveRole(ctx, userID)
}

// HasRole reports whether the stored role of userID equals required
func (s *Service) HasRole(ctx context.Context, userID uuid.UUID, required models.UserRole) (result RoleCheck, err error) {
	defer s.observe(CheckHasRole, &err)

	role, err := s.resolveRole(ctx, userID)
	if err != nil {
		return RoleCheck{}, err
	}

	result = RoleCheck{HasRole: role == required, UserRole: role}
	s.decided(CheckHasRole, result.HasRole)
	return result, nil
}

// HasAnyRole reports whether the stored role of userID is one of allowed
func (s *Service) HasAnyRole(ctx context.Context, userID uuid.UUID, allowed []models.UserRole) (result RoleCheck, err error) {
	defer s.observe(CheckHasAnyRole, &err)

	role, err := s.resolveRole(ctx, userID)
	if err != nil {
		return RoleCheck{}, err
	}

	result = RoleCheck{HasRole: slices.Contains(allowed, role), UserRole: role}
	s.decided(CheckHasAnyRole, result.HasRole)
	return result, nil
}

// RequireRole returns the user's role, or INSUFFICIENT_PERMISSIONS when it
// differs from required
func (s *Service) RequireRole(ctx context.Context, userID uuid.UUID, required models.UserRole) (role models.UserRole, err error) {
	defer s.observe(CheckRequireRole, &err)

	role, err = s.resolveRole(ctx, userID)
	if err != nil {
		return "", err
	}

	if role != required {
		s.decided(CheckRequireRole, false)
		details := map[string]interface{}{
			"user_role":     string(role),
			"required_role": string(required),
		}
		s.denied(ctx, userID, CheckRequireRole, details)
		return role, permissionError("User does not have required role: "+string(required), details)
	}

	s.decided(CheckRequireRole, true)
	return role, nil
}

// RequireAnyRole returns the user's role, or INSUFFICIENT_PERMISSIONS when it
// is not in allowed
func (s *Service) RequireAnyRole(ctx context.Context, userID uuid.UUID, allowed []models.UserRole) (role models.UserRole, err error) {
	defer s.observe(CheckRequireAnyRole, &err)

	role, err = s.resolveRole(ctx, userID)
	if err != nil {
		return "", err
	}

	if !slices.Contains(allowed, role) {
		s.decided(CheckRequireAnyRole, false)
		names := roleNames(allowed)
		details := map[string]interface{}{
			"user_role":     string(role),
			"allowed_roles": names,
		}
		s.denied(ctx, userID, CheckRequireAnyRole, details)
		return role, permissionError("User does not have any of the required roles: "+strings.Join(names, ", "), details)
	}

	s.decided(CheckRequireAnyRole, true)
	return role, nil
}

// CanPerformAction evaluates the permission matrix for check. When
// check.Role is empty the stored role of check.UserID is used.
func (s *Service) CanPerformAction(ctx context.Context, check models.PermissionCheck) (result Decision, err error) {
	defer s.observe(CheckPermission, &err)

	role := check.Role
	if role == "" {
		if role, err = s.resolveRole(ctx, check.UserID); err != nil {
			return Decision{}, err
		}
	}

	result = Decision{Allowed: CanPerformAction(role, check.Resource, check.Action)}
	s.decided(CheckPermission, result.Allowed)
	return result, nil
}

// CanAccessGroup reports whether the user may access the group. Super admins
// always may; everyone else needs an owner membership row.
func (s *Service) CanAccessGroup(ctx context.Context, check models.GroupAccessCheck) (result GroupAccess, err error) {
	defer s.observe(CheckGroupAccess, &err)

	result, err = s.canAccessGroup(ctx, check)
	if err != nil {
		return GroupAccess{}, err
	}
	s.decided(CheckGroupAccess, result.CanAccess)
	return result, nil
}

// RequireGroupAccess returns the user's role, or INSUFFICIENT_PERMISSIONS
// when the user may not access the group
func (s *Service) RequireGroupAccess(ctx context.Context, check models.GroupAccessCheck) (role models.UserRole, err error) {
	defer s.observe(CheckRequireGroupAccess, &err)

	access, err := s.canAccessGroup(ctx, check)
	if err != nil {
		return "", err
	}

	if !access.CanAccess {
		s.decided(CheckRequireGroupAccess, false)
		details := map[string]interface{}{
			"user_id":  check.UserID.String(),
			"group_id": check.GroupID.String(),
		}
		s.denied(ctx, check.UserID, CheckRequireGroupAccess, details)
		return access.Role, permissionError("User does not have access to this group", details)
	}

	s.decided(CheckRequireGroupAccess, true)
	return access.Role, nil
}

// GetUserGroups lists every group for a super admin, otherwise the groups
// the user owns
func (s *Service) GetUserGroups(ctx context.Context, userID uuid.UUID) (result *UserGroups, err error) {
	defer s.observe(CheckUserGroups, &err)

	role, err := s.resolveRole(ctx, userID)
	if err != nil {
		return nil, err
	}

	var ids []uuid.UUID
	if role == models.RoleSuperAdmin {
		ids, err = s.groups.ListIDs(ctx)
		if err != nil {
			return nil, s.storeFailure("Failed to fetch groups", err, zap.String("user_id", userID.String()))
		}
	} else {
		ids, err = s.members.ListGroupIDsByRole(ctx, userID, models.MembershipOwner)
		if err != nil {
			return nil, s.storeFailure("Failed to fetch user groups", err, zap.String("user_id", userID.String()))
		}
	}

	if ids == nil {
		ids = []uuid.UUID{}
	}
	return &UserGroups{GroupIDs: ids, Role: role}, nil
}

func (s *Service) canAccessGroup(ctx context.Context, check models.GroupAccessCheck) (GroupAccess, error) {
	role, err := s.resolveRole(ctx, check.UserID)
	if err != nil {
		return GroupAccess{}, err
	}

	if role == models.RoleSuperAdmin {
		return GroupAccess{CanAccess: true, Role: role}, nil
	}

	membership, err := s.members.GetMembership(ctx, check.UserID, check.GroupID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return GroupAccess{CanAccess: false, Role: role}, nil
		}
		return GroupAccess{}, s.storeFailure("Failed to look up group membership", err,
			zap.String("user_id", check.UserID.String()),
			zap.String("group_id", check.GroupID.String()))
	}

	return GroupAccess{
		CanAccess: models.MembershipRole(membership) == models.MembershipOwner,
		Role:      role,
	}, nil
}

func (s *Service) resolveRole(ctx context.Context, userID uuid.UUID) (models.UserRole, error) {
	raw, err := s.users.GetRole(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", services.NewDomainError(services.CodeNotFound, "User not found", err).
				WithDetail("user_id", userID.String())
		}
		return "", s.storeFailure("Failed to look up user role", err, zap.String("user_id", userID.String()))
	}

	role, err := models.ParseUserRole(raw)
	if err != nil {
		s.logger.Error("stored user role is not recognized",
			zap.String("user_id", userID.String()),
			zap.String("role", raw))
		return "", services.NewDomainError(services.CodeUnknownError, "User has an unrecognized role", err).
			WithDetail("user_id", userID.String())
	}

	return role, nil
}

func (s *Service) storeFailure(message string, err error, fields ...zap.Field) error {
	s.logger.Error(message, append(fields, zap.Error(err))...)
	return services.NewDomainError(services.CodeDatabaseError, message, err)
}

// observe converts panics to UNKNOWN_ERROR and counts failures by code.
// Must be deferred directly.
func (s *Service) observe(check string, errp *error) {
	if r := recover(); r != nil {
		s.logger.Error("access check panicked", zap.String("check", check), zap.Any("panic", r))
		*errp = services.WrapUnknown("unexpected failure during "+check, panicError(r))
	}
	if *errp != nil && s.metrics != nil && !services.IsInsufficientPermissionsError(*errp) {
		s.metrics.RecordError(check, services.GetErrorCode(*errp))
	}
}

func (s *Service) decided(check string, allowed bool) {
	if s.metrics != nil {
		s.metrics.RecordDecision(check, allowed)
	}
}

func (s *Service) denied(ctx context.Context, userID uuid.UUID, check string, details map[string]interface{}) {
	s.logger.Info("access denied",
		zap.String("check", check),
		zap.String("user_id", userID.String()),
		zap.Any("details", details))
	if s.auditor != nil {
		s.auditor.LogAccessDenied(ctx, userID, check, details)
	}
}

func permissionError(message string, details map[string]interface{}) error {
	err := services.NewDomainError(services.CodeInsufficientPermissions, message, nil)
	for k, v := range details {
		err.WithDetail(k, v)
	}
	return err
}

func roleNames(roles []models.UserRole) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}

func panicError(r interface{}) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("%v", r)
}
