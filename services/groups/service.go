package groups

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/repositories"
	"github.com/upb/wedding-platform/services"
	"github.com/upb/wedding-platform/services/accesscontrol"
	"go.uber.org/zap"
)

// AccessResolver yields the groups a user may see
type AccessResolver interface {
	GetUserGroups(ctx context.Context, userID uuid.UUID) (*accesscontrol.UserGroups, error)
}

// Auditor records group changes
type Auditor interface {
	LogGroupCreated(ctx context.Context, actorID uuid.UUID, group *models.Group)
	LogGroupMemberAdded(ctx context.Context, actorID uuid.UUID, member *models.GroupMember)
	LogGroupMemberUpdated(ctx context.Context, actorID, groupID, userID uuid.UUID, from, to models.MembershipRole)
	LogGroupMemberRemoved(ctx context.Context, actorID, groupID, userID uuid.UUID)
}

// Service manages groups and their memberships
type Service struct {
	txMgr   repositories.TransactionManager
	groups  repositories.GroupRepository
	members repositories.GroupMemberRepository
	users   repositories.UserRepository
	access  AccessResolver
	audit   Auditor
	logger  *zap.Logger
}

// NewService creates a new group service
func NewService(
	txMgr repositories.TransactionManager,
	repos *repositories.Repositories,
	access AccessResolver,
	audit Auditor,
	logger *zap.Logger,
) *Service {
	return &Service{
		txMgr:   txMgr,
		groups:  repos.Groups,
		members: repos.GroupMembers,
		users:   repos.Users,
		access:  access,
		audit:   audit,
		logger:  logger,
	}
}

// Create stores a group and makes the creator its owner in one transaction
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, name string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.NewDomainError(services.CodeValidation, "group name is required", nil)
	}

	group := models.NewGroup(name)
	owner := models.NewGroupMember(group.ID, actorID, models.MembershipOwner)

	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		if err := s.groups.WithTx(tx).Create(ctx, group); err != nil {
			return services.WrapDatabase("Failed to create group", err)
		}
		if err := s.members.WithTx(tx).Add(ctx, owner); err != nil {
			return services.WrapDatabase("Failed to add group owner", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("group creation failed", zap.Error(err), zap.String("actor_id", actorID.String()))
		return nil, err
	}

	s.logger.Info("group created",
		zap.String("group_id", group.ID.String()),
		zap.String("actor_id", actorID.String()))
	s.audit.LogGroupCreated(ctx, actorID, group)
	s.audit.LogGroupMemberAdded(ctx, actorID, owner)

	return group, nil
}

// ListAccessible returns only the groups the user can access
func (s *Service) ListAccessible(ctx context.Context, userID uuid.UUID) ([]*models.Group, error) {
	visible, err := s.access.GetUserGroups(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(visible.GroupIDs) == 0 {
		return []*models.Group{}, nil
	}

	groups, err := s.groups.GetByIDs(ctx, visible.GroupIDs)
	if err != nil {
		return nil, services.WrapDatabase("Failed to fetch groups", err)
	}
	return groups, nil
}

// Get returns a single group
func (s *Service) Get(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	group, err := s.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, groupNotFound(groupID, err)
		}
		return nil, services.WrapDatabase("Failed to fetch group", err)
	}
	return group, nil
}

// ListMembers returns every member of a group, owners first
func (s *Service) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error) {
	if _, err := s.Get(ctx, groupID); err != nil {
		return nil, err
	}

	members, err := s.members.ListByGroup(ctx, groupID)
	if err != nil {
		return nil, services.WrapDatabase("Failed to fetch group members", err)
	}
	if members == nil {
		members = []*models.GroupMember{}
	}
	return members, nil
}

// AddMember adds an existing user to a group
func (s *Service) AddMember(ctx context.Context, actorID, groupID, userID uuid.UUID, role models.MembershipRole) (*models.GroupMember, error) {
	if !role.Valid() {
		return nil, invalidRole(role)
	}
	if _, err := s.Get(ctx, groupID); err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, services.NewDomainError(services.CodeNotFound, "User not found", err).
				WithDetail("user_id", userID.String())
		}
		return nil, services.WrapDatabase("Failed to fetch user", err)
	}

	member := models.NewGroupMember(groupID, userID, role)
	if err := s.members.Add(ctx, member); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, services.ErrDuplicateMember
		}
		return nil, services.WrapDatabase("Failed to add group member", err)
	}

	s.audit.LogGroupMemberAdded(ctx, actorID, member)
	return member, nil
}

// UpdateMemberRole changes a membership role. Demoting the last owner fails
// with CONFLICT.
func (s *Service) UpdateMemberRole(ctx context.Context, actorID, groupID, userID uuid.UUID, role models.MembershipRole) (*models.GroupMember, error) {
	if !role.Valid() {
		return nil, invalidRole(role)
	}

	var previous models.MembershipRole
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		members := s.members.WithTx(tx)

		current, err := s.membership(ctx, members, groupID, userID)
		if err != nil {
			return err
		}
		previous = current
		if current == role {
			return nil
		}
		if current == models.MembershipOwner {
			if err := s.keepAnOwner(ctx, members, groupID); err != nil {
				return err
			}
		}
		if err := members.UpdateRole(ctx, userID, groupID, role); err != nil {
			return services.WrapDatabase("Failed to update group member", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previous != role {
		s.audit.LogGroupMemberUpdated(ctx, actorID, groupID, userID, previous, role)
	}
	return &models.GroupMember{UserID: userID, GroupID: groupID, Role: role}, nil
}

// RemoveMember deletes a membership. Removing the last owner fails with
// CONFLICT.
func (s *Service) RemoveMember(ctx context.Context, actorID, groupID, userID uuid.UUID) error {
	err := services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, tx repositories.Transaction) error {
		members := s.members.WithTx(tx)

		current, err := s.membership(ctx, members, groupID, userID)
		if err != nil {
			return err
		}
		if current == models.MembershipOwner {
			if err := s.keepAnOwner(ctx, members, groupID); err != nil {
				return err
			}
		}
		if err := members.Remove(ctx, userID, groupID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return memberNotFound(groupID, userID, err)
			}
			return services.WrapDatabase("Failed to remove group member", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.LogGroupMemberRemoved(ctx, actorID, groupID, userID)
	return nil
}

func (s *Service) membership(ctx context.Context, members repositories.GroupMemberRepository, groupID, userID uuid.UUID) (models.MembershipRole, error) {
	raw, err := members.GetMembership(ctx, userID, groupID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", memberNotFound(groupID, userID, err)
		}
		return "", services.WrapDatabase("Failed to look up group membership", err)
	}
	role, err := models.ParseMembershipRole(raw)
	if err != nil {
		return "", services.WrapUnknown("Stored membership role is invalid", err)
	}
	return role, nil
}

// keepAnOwner fails when groupID has a single owner left. CountOwners locks
// the owner rows so concurrent demotions serialize.
func (s *Service) keepAnOwner(ctx context.Context, members repositories.GroupMemberRepository, groupID uuid.UUID) error {
	owners, err := members.CountOwners(ctx, groupID)
	if err != nil {
		return services.WrapDatabase("Failed to count group owners", err)
	}
	if owners <= 1 {
		s.logger.Warn("refused to remove last group owner", zap.String("group_id", groupID.String()))
		return services.ErrLastOwner
	}
	return nil
}

func groupNotFound(groupID uuid.UUID, err error) error {
	return services.NewDomainError(services.CodeNotFound, "Group not found", err).
		WithDetail("group_id", groupID.String())
}

func memberNotFound(groupID, userID uuid.UUID, err error) error {
	return services.NewDomainError(services.CodeNotFound, "Group member not found", err).
		WithDetail("group_id", groupID.String()).
		WithDetail("user_id", userID.String())
}

func invalidRole(role models.MembershipRole) error {
	return services.NewDomainError(services.CodeValidation, "invalid membership role", nil).
		WithDetail("role", string(role))
}
