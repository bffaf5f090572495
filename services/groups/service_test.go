package groups

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/repositories"
	"github.com/upb/wedding-platform/services"
	"github.com/upb/wedding-platform/services/accesscontrol"
	"go.uber.org/zap"
)

type fixture struct {
	txMgr   *MockTransactionManager
	tx      *MockTransaction
	groups  *MockGroupRepository
	members *MockGroupMemberRepository
	users   *MockUserRepository
	access  *MockAccessResolver
	audit   *MockAuditor
	service *Service
}

func newFixture() *fixture {
	f := &fixture{
		txMgr:   new(MockTransactionManager),
		tx:      new(MockTransaction),
		groups:  new(MockGroupRepository),
		members: new(MockGroupMemberRepository),
		users:   new(MockUserRepository),
		access:  new(MockAccessResolver),
		audit:   new(MockAuditor),
	}
	repos := &repositories.Repositories{
		Users:        f.users,
		Groups:       f.groups,
		GroupMembers: f.members,
	}
	f.service = NewService(f.txMgr, repos, f.access, f.audit, zap.NewNop())
	return f
}

// expectTx expects one transaction that commits when commit is true
func (f *fixture) expectTx(commit bool) {
	f.txMgr.On("Begin", mock.Anything).Return(f.tx, nil).Once()
	if commit {
		f.tx.On("Commit").Return(nil).Once()
	} else {
		f.tx.On("Rollback").Return(nil).Once()
	}
}

func (f *fixture) assertExpectations(t *testing.T) {
	f.txMgr.AssertExpectations(t)
	f.tx.AssertExpectations(t)
	f.groups.AssertExpectations(t)
	f.members.AssertExpectations(t)
	f.users.AssertExpectations(t)
	f.access.AssertExpectations(t)
	f.audit.AssertExpectations(t)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("creates group and owner membership atomically", func(t *testing.T) {
		f := newFixture()
		f.expectTx(true)
		f.groups.On("Create", mock.Anything, mock.MatchedBy(func(g *models.Group) bool {
			return g.Name == "Smith family"
		})).Return(nil)
		f.members.On("Add", mock.Anything, mock.MatchedBy(func(m *models.GroupMember) bool {
			return m.UserID == actor && m.Role == models.MembershipOwner
		})).Return(nil)
		f.audit.On("LogGroupCreated", mock.Anything, actor, mock.Anything).Return()
		f.audit.On("LogGroupMemberAdded", mock.Anything, actor, mock.Anything).Return()

		group, err := f.service.Create(ctx, actor, "  Smith family ")
		require.NoError(t, err)
		assert.Equal(t, "Smith family", group.Name)
		assert.NotEqual(t, uuid.Nil, group.ID)
		f.assertExpectations(t)
	})

	t.Run("rejects blank name", func(t *testing.T) {
		f := newFixture()

		_, err := f.service.Create(ctx, actor, "   ")
		assert.True(t, services.IsValidationError(err))
		f.txMgr.AssertNotCalled(t, "Begin", mock.Anything)
	})

	t.Run("rolls back when owner insert fails", func(t *testing.T) {
		f := newFixture()
		f.expectTx(false)
		f.groups.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.members.On("Add", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

		_, err := f.service.Create(ctx, actor, "Table 4")
		assert.True(t, services.IsDatabaseError(err))
		f.audit.AssertNotCalled(t, "LogGroupCreated", mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("begin failure", func(t *testing.T) {
		f := newFixture()
		f.txMgr.On("Begin", mock.Anything).Return(nil, errors.New("pool exhausted"))

		_, err := f.service.Create(ctx, actor, "Table 4")
		assert.True(t, services.IsDatabaseError(err))
		f.groups.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestService_ListAccessible(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()

	t.Run("returns only visible groups", func(t *testing.T) {
		f := newFixture()
		ids := []uuid.UUID{uuid.New(), uuid.New()}
		groups := []*models.Group{{ID: ids[0], Name: "A"}, {ID: ids[1], Name: "B"}}
		f.access.On("GetUserGroups", ctx, user).Return(&accesscontrol.UserGroups{GroupIDs: ids, Role: models.RoleHost}, nil)
		f.groups.On("GetByIDs", ctx, ids).Return(groups, nil)

		got, err := f.service.ListAccessible(ctx, user)
		require.NoError(t, err)
		assert.Equal(t, groups, got)
		f.assertExpectations(t)
	})

	t.Run("no visible groups skips the query", func(t *testing.T) {
		f := newFixture()
		f.access.On("GetUserGroups", ctx, user).Return(&accesscontrol.UserGroups{GroupIDs: []uuid.UUID{}, Role: models.RoleGuest}, nil)

		got, err := f.service.ListAccessible(ctx, user)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
		f.groups.AssertNotCalled(t, "GetByIDs", mock.Anything, mock.Anything)
	})

	t.Run("access errors pass through", func(t *testing.T) {
		f := newFixture()
		notFound := services.NewDomainError(services.CodeNotFound, "User not found", nil)
		f.access.On("GetUserGroups", ctx, user).Return(nil, notFound)

		_, err := f.service.ListAccessible(ctx, user)
		assert.True(t, services.IsNotFoundError(err))
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture()
		ids := []uuid.UUID{uuid.New()}
		f.access.On("GetUserGroups", ctx, user).Return(&accesscontrol.UserGroups{GroupIDs: ids}, nil)
		f.groups.On("GetByIDs", ctx, ids).Return(nil, errors.New("timeout"))

		_, err := f.service.ListAccessible(ctx, user)
		assert.True(t, services.IsDatabaseError(err))
	})
}

func TestService_Get(t *testing.T) {
	ctx := context.Background()
	groupID := uuid.New()

	t.Run("found", func(t *testing.T) {
		f := newFixture()
		f.groups.On("GetByID", ctx, groupID).Return(&models.Group{ID: groupID, Name: "Jones"}, nil)

		group, err := f.service.Get(ctx, groupID)
		require.NoError(t, err)
		assert.Equal(t, "Jones", group.Name)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture()
		f.groups.On("GetByID", ctx, groupID).Return(nil, repositories.ErrNotFound)

		_, err := f.service.Get(ctx, groupID)
		assert.True(t, services.IsNotFoundError(err))
		assert.Equal(t, groupID.String(), services.GetErrorDetails(err)["group_id"])
	})

	t.Run("store failure", func(t *testing.T) {
		f := newFixture()
		f.groups.On("GetByID", ctx, groupID).Return(nil, errors.New("boom"))

		_, err := f.service.Get(ctx, groupID)
		assert.True(t, services.IsDatabaseError(err))
	})
}

func TestService_ListMembers(t *testing.T) {
	ctx := context.Background()
	groupID := uuid.New()

	t.Run("lists members", func(t *testing.T) {
		f := newFixture()
		members := []*models.GroupMember{models.NewGroupMember(groupID, uuid.New(), models.MembershipOwner)}
		f.groups.On("GetByID", ctx, groupID).Return(&models.Group{ID: groupID}, nil)
		f.members.On("ListByGroup", ctx, groupID).Return(members, nil)

		got, err := f.service.ListMembers(ctx, groupID)
		require.NoError(t, err)
		assert.Equal(t, members, got)
	})

	t.Run("missing group", func(t *testing.T) {
		f := newFixture()
		f.groups.On("GetByID", ctx, groupID).Return(nil, repositories.ErrNotFound)

		_, err := f.service.ListMembers(ctx, groupID)
		assert.True(t, services.IsNotFoundError(err))
		f.members.AssertNotCalled(t, "ListByGroup", mock.Anything, mock.Anything)
	})

	t.Run("nil list becomes empty", func(t *testing.T) {
		f := newFixture()
		f.groups.On("GetByID", ctx, groupID).Return(&models.Group{ID: groupID}, nil)
		f.members.On("ListByGroup", ctx, groupID).Return(nil, nil)

		got, err := f.service.ListMembers(ctx, groupID)
		require.NoError(t, err)
		assert.NotNil(t, got)
	})
}

func TestService_AddMember(t *testing.T) {
	ctx := context.Background()
	actor, groupID, userID := uuid.New(), uuid.New(), uuid.New()

	t.Run("adds viewer", func(t *testing.T) {
		f := newFixture()
		f.groups.On("GetByID", ctx, groupID).Return(&models.Group{ID: groupID}, nil)
		f.users.On("GetByID", ctx, userID).Return(&models.User{ID: userID}, nil)
		f.members.On("Add", ctx, mock.MatchedBy(func(m *models.GroupMember) bool {
			return m.UserID == userID && m.GroupID == groupID && m.Role == models.MembershipViewer
		})).Return(nil)
		f.audit.On("LogGroupMemberAdded", ctx, actor, mock.Anything).Return()

		member, err := f.service.AddMember(ctx, actor, groupID, userID, models.MembershipViewer)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipViewer, member.Role)
		f.assertExpectations(t)
	})

	t.Run("invalid role", func(t *testing.T) {
		f := newFixture()

		_, err := f.service.AddMember(ctx, actor, groupID, userID, "editor")
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFixture()
		f.groups.On("GetByID", ctx, groupID).Return(&models.Group{ID: groupID}, nil)
		f.users.On("GetByID", ctx, userID).Return(nil, repositories.ErrNotFound)

		_, err := f.service.AddMember(ctx, actor, groupID, userID, models.MembershipOwner)
		assert.True(t, services.IsNotFoundError(err))
		assert.Equal(t, userID.String(), services.GetErrorDetails(err)["user_id"])
	})

	t.Run("duplicate membership", func(t *testing.T) {
		f := newFixture()
		f.groups.On("GetByID", ctx, groupID).Return(&models.Group{ID: groupID}, nil)
		f.users.On("GetByID", ctx, userID).Return(&models.User{ID: userID}, nil)
		f.members.On("Add", ctx, mock.Anything).Return(repositories.ErrDuplicate)

		_, err := f.service.AddMember(ctx, actor, groupID, userID, models.MembershipOwner)
		assert.True(t, services.IsConflictError(err))
		f.audit.AssertNotCalled(t, "LogGroupMemberAdded", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestService_UpdateMemberRole(t *testing.T) {
	ctx := context.Background()
	actor, groupID, userID := uuid.New(), uuid.New(), uuid.New()

	t.Run("promotes viewer", func(t *testing.T) {
		f := newFixture()
		f.expectTx(true)
		f.members.On("GetMembership", mock.Anything, userID, groupID).Return("viewer", nil)
		f.members.On("UpdateRole", mock.Anything, userID, groupID, models.MembershipOwner).Return(nil)
		f.audit.On("LogGroupMemberUpdated", ctx, actor, groupID, userID, models.MembershipViewer, models.MembershipOwner).Return()

		member, err := f.service.UpdateMemberRole(ctx, actor, groupID, userID, models.MembershipOwner)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipOwner, member.Role)
		f.members.AssertNotCalled(t, "CountOwners", mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("demotes owner when another owner remains", func(t *testing.T) {
		f := newFixture()
		f.expectTx(true)
		f.members.On("GetMembership", mock.Anything, userID, groupID).Return("owner", nil)
		f.members.On("CountOwners", mock.Anything, groupID).Return(2, nil)
		f.members.On("UpdateRole", mock.Anything, userID, groupID, models.MembershipViewer).Return(nil)
		f.audit.On("LogGroupMemberUpdated", ctx, actor, groupID, userID, models.MembershipOwner, models.MembershipViewer).Return()

		_, err := f.service.UpdateMemberRole(ctx, actor, groupID, userID, models.MembershipViewer)
		require.NoError(t, err)
		f.assertExpectations(t)
	})

	t.Run("refuses to demote last owner", func(t *testing.T) {
		f := newFixture()
		f.expectTx(false)
		f.members.On("GetMembership", mock.Anything, userID, groupID).Return("owner", nil)
		f.members.On("CountOwners", mock.Anything, groupID).Return(1, nil)

		_, err := f.service.UpdateMemberRole(ctx, actor, groupID, userID, models.MembershipViewer)
		assert.True(t, services.IsConflictError(err))
		f.members.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.assertExpectations(t)
	})

	t.Run("same role is a no-op", func(t *testing.T) {
		f := newFixture()
		f.expectTx(true)
		f.members.On("GetMembership", mock.Anything, userID, groupID).Return("owner", nil)

		_, err := f.service.UpdateMemberRole(ctx, actor, groupID, userID, models.MembershipOwner)
		require.NoError(t, err)
		f.members.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		f.audit.AssertNotCalled(t, "LogGroupMemberUpdated", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("not a member", func(t *testing.T) {
		f := newFixture()
		f.expectTx(false)
		f.members.On("GetMembership", mock.Anything, userID, groupID).Return("", repositories.ErrNotFound)

		_, err := f.service.UpdateMemberRole(ctx, actor, groupID, userID, models.MembershipOwner)
		assert.True(t, services.IsNotFoundError(err))
	})

	t.Run("corrupt stored role", func(t *testing.T) {
		f := newFixture()
		f.expectTx(false)
		f.members.On("GetMembership", mock.Anything, userID, groupID).Return("admin", nil)

		_, err := f.service.UpdateMemberRole(ctx, actor, groupID, userID, models.MembershipOwner)
		assert.True(t, services.IsUnknownError(err))
	})

	t.Run("invalid target role", func(t *testing.T) {
		f := newFixture()

		_, err := f.service.UpdateMemberRole(ctx, actor, groupID, userID, "")
		assert.True(t, services.IsValidationError(err))
	})
}

func TestService_RemoveMember(t *testing.T) {
	ctx := context.Background()
	actor, groupID, userID := uuid.New(), uuid.New(), uuid.New()

	t.Run("removes viewer", func(t *testing.T) {
		f := newFixture()
		f.expectTx(true)
		f.members.On("GetMembership", mock.Anything, userID, groupID).Return("viewer", nil)
		f.members.On("Remove", mock.Anything, userID, groupID).Return(nil)
		f.audit.On("LogGroupMemberRemoved", ctx, actor, groupID, userID).Return()

		require.NoError(t, f.service.RemoveMember(ctx, actor, groupID, userID))
		f.assertExpectations(t)
	})

	t.Run("refuses to remove last owner", func(t *testing.T) {
		f := newFixture()
		f.expectTx(false)
		f.members.On("GetMembership", mock.Anything, userID, groupID).Return("owner", nil)
		f.members.On("CountOwners", mock.Anything, groupID).Return(1, nil)

		err := f.service.RemoveMember(ctx, actor, groupID, userID)
		assert.True(t, services.IsConflictError(err))
		assert.ErrorIs(t, err, services.ErrLastOwner)
		f.members.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("removes one of several owners", func(t *testing.T) {
		f := newFixture()
		f.expectTx(true)
		f.members.On("GetMembership", mock.Anything, userID, groupID).Return("owner", nil)
		f.members.On("CountOwners", mock.Anything, groupID).Return(3, nil)
		f.members.On("Remove", mock.Anything, userID, groupID).Return(nil)
		f.audit.On("LogGroupMemberRemoved", ctx, actor, groupID, userID).Return()

		require.NoError(t, f.service.RemoveMember(ctx, actor, groupID, userID))
	})

	t.Run("owner count failure", func(t *testing.T) {
		f := newFixture()
		f.expectTx(false)
		f.members.On("GetMembership", mock.Anything, userID, groupID).Return("owner", nil)
		f.members.On("CountOwners", mock.Anything, groupID).Return(0, errors.New("deadlock"))

		err := f.service.RemoveMember(ctx, actor, groupID, userID)
		assert.True(t, services.IsDatabaseError(err))
	})

	t.Run("not a member", func(t *testing.T) {
		f := newFixture()
		f.expectTx(false)
		f.members.On("GetMembership", mock.Anything, userID, groupID).Return("", repositories.ErrNotFound)

		err := f.service.RemoveMember(ctx, actor, groupID, userID)
		assert.True(t, services.IsNotFoundError(err))
	})
}
