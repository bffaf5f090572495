package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/wedding-platform/middleware"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/services/accesscontrol"
)

type MockAccessService struct {
	mock.Mock
}

func (m *MockAccessService) ResolveRole(ctx context.Context, userID uuid.UUID) (models.UserRole, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.UserRole), args.Error(1)
}

func (m *MockAccessService) HasRole(ctx context.Context, userID uuid.UUID, required models.UserRole) (accesscontrol.RoleCheck, error) {
	args := m.Called(ctx, userID, required)
	return args.Get(0).(accesscontrol.RoleCheck), args.Error(1)
}

func (m *MockAccessService) HasAnyRole(ctx context.Context, userID uuid.UUID, allowed []models.UserRole) (accesscontrol.RoleCheck, error) {
	args := m.Called(ctx, userID, allowed)
	return args.Get(0).(accesscontrol.RoleCheck), args.Error(1)
}

func (m *MockAccessService) CanPerformAction(ctx context.Context, check models.PermissionCheck) (accesscontrol.Decision, error) {
	args := m.Called(ctx, check)
	return args.Get(0).(accesscontrol.Decision), args.Error(1)
}

func (m *MockAccessService) CanAccessGroup(ctx context.Context, check models.GroupAccessCheck) (accesscontrol.GroupAccess, error) {
	args := m.Called(ctx, check)
	return args.Get(0).(accesscontrol.GroupAccess), args.Error(1)
}

func (m *MockAccessService) GetUserGroups(ctx context.Context, userID uuid.UUID) (*accesscontrol.UserGroups, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accesscontrol.UserGroups), args.Error(1)
}

type MockGroupService struct {
	mock.Mock
}

func (m *MockGroupService) Create(ctx context.Context, actorID uuid.UUID, name string) (*models.Group, error) {
	args := m.Called(ctx, actorID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockGroupService) ListAccessible(ctx context.Context, userID uuid.UUID) ([]*models.Group, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Group), args.Error(1)
}

func (m *MockGroupService) Get(ctx context.Context, groupID uuid.UUID) (*models.Group, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Group), args.Error(1)
}

func (m *MockGroupService) ListMembers(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error) {
	args := m.Called(ctx, groupID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GroupMember), args.Error(1)
}

func (m *MockGroupService) AddMember(ctx context.Context, actorID, groupID, userID uuid.UUID, role models.MembershipRole) (*models.GroupMember, error) {
	args := m.Called(ctx, actorID, groupID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupMember), args.Error(1)
}

func (m *MockGroupService) UpdateMemberRole(ctx context.Context, actorID, groupID, userID uuid.UUID, role models.MembershipRole) (*models.GroupMember, error) {
	args := m.Called(ctx, actorID, groupID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.GroupMember), args.Error(1)
}

func (m *MockGroupService) RemoveMember(ctx context.Context, actorID, groupID, userID uuid.UUID) error {
	return m.Called(ctx, actorID, groupID, userID).Error(0)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) UpdateEmail(ctx context.Context, userID uuid.UUID, email string) (*models.User, error) {
	args := m.Called(ctx, userID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) List(ctx context.Context, role string, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, role, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserService) ChangeRole(ctx context.Context, actorID, userID uuid.UUID, role models.UserRole) (*models.User, error) {
	args := m.Called(ctx, actorID, userID, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

type MockAuditLister struct {
	mock.Mock
}

func (m *MockAuditLister) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.AuditLog), args.Error(1)
}

// newRequest builds a request authenticated as userID with the given chi
// URL params. A uuid.Nil userID leaves the request unauthenticated.
func newRequest(method, target, body string, userID uuid.UUID, params map[string]string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)

	ctx := req.Context()
	if userID != uuid.Nil {
		ctx = middleware.WithUserID(ctx, userID)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}
