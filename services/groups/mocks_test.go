package groups

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/repositories"
	"github.com/upb/wedding-platform/services/accesscontrol"
)

type MockTransactionManager struct {
	mock.Mock
}

func (m *MockTransactionManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	args := m.Called(ctx)
	if tx := args.Get(0); tx != nil {
		return tx.(repositories.Transaction), args.Error(1)
	}
	return nil, args.Error(1)
}

// InTransaction drives the mocked Begin, Commit and Rollback the way the
// postgres manager does
func (m *MockTransactionManager) InTransaction(ctx context.Context, fn func(ctx context.Context, tx repositories.Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type MockTransaction struct {
	mock.Mock
}

func (m *MockTransaction) Commit() error {
	return m.Called().Error(0)
}

func (m *MockTransaction) Rollback() error {
	return m.Called().Error(0)
}

func (m *MockTransaction) Context() context.Context {
	return context.Background()
}

type MockGroupRepository struct {
	mock.Mock
}

func (m *MockGroupRepository) Create(ctx context.Context, group *models.Group) error {
	return m.Called(ctx, group).Error(0)
}

func (m *MockGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	args := m.Called(ctx, id)
	if g := args.Get(0); g != nil {
		return g.(*models.Group), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGroupRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Group, error) {
	args := m.Called(ctx, ids)
	if g := args.Get(0); g != nil {
		return g.([]*models.Group), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGroupRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if ids := args.Get(0); ids != nil {
		return ids.([]uuid.UUID), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGroupRepository) WithTx(tx repositories.Transaction) repositories.GroupRepository {
	return m
}

type MockGroupMemberRepository struct {
	mock.Mock
}

func (m *MockGroupMemberRepository) Add(ctx context.Context, member *models.GroupMember) error {
	return m.Called(ctx, member).Error(0)
}

func (m *MockGroupMemberRepository) GetMembership(ctx context.Context, userID, groupID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID, groupID)
	return args.String(0), args.Error(1)
}

func (m *MockGroupMemberRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error) {
	args := m.Called(ctx, groupID)
	if members := args.Get(0); members != nil {
		return members.([]*models.GroupMember), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGroupMemberRepository) ListGroupIDsByRole(ctx context.Context, userID uuid.UUID, role models.MembershipRole) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID, role)
	if ids := args.Get(0); ids != nil {
		return ids.([]uuid.UUID), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockGroupMemberRepository) UpdateRole(ctx context.Context, userID, groupID uuid.UUID, role models.MembershipRole) error {
	return m.Called(ctx, userID, groupID, role).Error(0)
}

func (m *MockGroupMemberRepository) Remove(ctx context.Context, userID, groupID uuid.UUID) error {
	return m.Called(ctx, userID, groupID).Error(0)
}

func (m *MockGroupMemberRepository) CountOwners(ctx context.Context, groupID uuid.UUID) (int, error) {
	args := m.Called(ctx, groupID)
	return args.Int(0), args.Error(1)
}

func (m *MockGroupMemberRepository) WithTx(tx repositories.Transaction) repositories.GroupMemberRepository {
	return m
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetRole(ctx context.Context, id uuid.UUID) (string, error) {
	args := m.Called(ctx, id)
	return args.String(0), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context, role models.UserRole, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, role, limit, offset)
	if u := args.Get(0); u != nil {
		return u.([]*models.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.UserRole) error {
	return m.Called(ctx, id, role).Error(0)
}

func (m *MockUserRepository) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	return m.Called(ctx, id, email).Error(0)
}

func (m *MockUserRepository) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	args := m.Called(ctx, role)
	return args.Int(0), args.Error(1)
}

func (m *MockUserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return m
}

type MockAccessResolver struct {
	mock.Mock
}

func (m *MockAccessResolver) GetUserGroups(ctx context.Context, userID uuid.UUID) (*accesscontrol.UserGroups, error) {
	args := m.Called(ctx, userID)
	if g := args.Get(0); g != nil {
		return g.(*accesscontrol.UserGroups), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) LogGroupCreated(ctx context.Context, actorID uuid.UUID, group *models.Group) {
	m.Called(ctx, actorID, group)
}

func (m *MockAuditor) LogGroupMemberAdded(ctx context.Context, actorID uuid.UUID, member *models.GroupMember) {
	m.Called(ctx, actorID, member)
}

func (m *MockAuditor) LogGroupMemberUpdated(ctx context.Context, actorID, groupID, userID uuid.UUID, from, to models.MembershipRole) {
	m.Called(ctx, actorID, groupID, userID, from, to)
}

func (m *MockAuditor) LogGroupMemberRemoved(ctx context.Context, actorID, groupID, userID uuid.UUID) {
	m.Called(ctx, actorID, groupID, userID)
}
