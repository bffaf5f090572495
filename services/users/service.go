package users

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/repositories"
	"github.com/upb/wedding-platform/services"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Auditor records user changes
type Auditor interface {
	LogRoleChanged(ctx context.Context, actorID, userID uuid.UUID, from, to models.UserRole)
	LogUserUpdated(ctx context.Context, actorID, userID uuid.UUID, changes map[string]interface{})
}

// Service manages platform users and their roles
type Service struct {
	txMgr  repositories.TransactionManager
	users  repositories.UserRepository
	audit  Auditor
	logger *zap.Logger
}

// NewService creates a new user service
func NewService(txMgr repositories.TransactionManager, users repositories.UserRepository, audit Auditor, logger *zap.Logger) *Service {
	return &Service{
		txMgr:  txMgr,
		users:  users,
		audit:  audit,
		logger: logger,
	}
}

// Get returns a user by ID
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, userNotFound(userID, err)
		}
		return nil, services.WrapDatabase("Failed to fetch user", err)
	}
	return user, nil
}

// UpdateEmail changes the caller's own email address
func (s *Service) UpdateEmail(ctx context.Context, userID uuid.UUID, email string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, services.NewDomainError(services.CodeValidation, "email is required", nil)
	}

	if err := s.users.UpdateEmail(ctx, userID, email); err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, userNotFound(userID, err)
		case errors.Is(err, repositories.ErrDuplicate):
			return nil, services.NewDomainError(services.CodeConflict, "email is already in use", err)
		default:
			return nil, services.WrapDatabase("Failed to update user", err)
		}
	}

	s.audit.LogUserUpdated(ctx, userID, userID, map[string]interface{}{"email": email})
	return s.Get(ctx, userID)
}

// Page applies the default and maximum page size and drops negative offsets
func Page(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// List returns a page of users, optionally restricted to one role
func (s *Service) List(ctx context.Context, role string, limit, offset int) ([]*models.User, error) {
	var filter models.UserRole
	if role != "" {
		parsed, err := models.ParseUserRole(role)
		if err != nil {
			return nil, services.NewDomainError(services.CodeValidation, "invalid role filter", err).
				WithDetail("role", role)
		}
		filter = parsed
	}
	limit, offset = Page(limit, offset)

	users, err := s.users.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, services.WrapDatabase("Failed to list users", err)
	}
	if users == nil {
		users = []*models.User{}
	}
	return users, nil
}

// ChangeRole sets the platform role of a user. Demoting the last super
// admin fails with CONFLICT.
func (s *Service) ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role models.UserRole) (*models.User, error) {
	if !role.Valid() {
		return nil, services.NewDomainError(services.CodeValidation, "invalid role", nil).
			WithDetail("role", string(role))
	}

	var previous models.UserRole
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		users := s.users.WithTx(tx)

		raw, err := users.GetRole(ctx, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return userNotFound(userID, err)
			}
			return services.WrapDatabase("Failed to look up user role", err)
		}
		current, err := models.ParseUserRole(raw)
		if err != nil {
			return services.WrapUnknown("Stored user role is invalid", err)
		}
		previous = current
		if current == role {
			return nil
		}

		if current == models.RoleSuperAdmin {
			admins, err := users.CountByRole(ctx, models.RoleSuperAdmin)
			if err != nil {
				return services.WrapDatabase("Failed to count super admins", err)
			}
			if admins <= 1 {
				s.logger.Warn("refused to demote last super admin", zap.String("user_id", userID.String()))
				return services.ErrLastSuperAdmin
			}
		}

		if err := users.UpdateRole(ctx, userID, role); err != nil {
			return services.WrapDatabase("Failed to update user role", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previous != role {
		s.logger.Info("user role changed",
			zap.String("user_id", userID.String()),
			zap.String("actor_id", actorID.String()),
			zap.String("from", string(previous)),
			zap.String("to", string(role)))
		s.audit.LogRoleChanged(ctx, actorID, userID, previous, role)
	}
	return s.Get(ctx, userID)
}

func userNotFound(userID uuid.UUID, err error) error {
	return services.NewDomainError(services.CodeNotFound, "User not found", err).
		WithDetail("user_id", userID.String())
}
