package accesscontrol

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/services"
)

type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) GetRole(ctx context.Context, userID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

type MockMembershipLookup struct {
	mock.Mock
}

func (m *MockMembershipLookup) GetMembership(ctx context.Context, userID, groupID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID, groupID)
	return args.String(0), args.Error(1)
}

func (m *MockMembershipLookup) ListGroupIDsByRole(ctx context.Context, userID uuid.UUID, role models.MembershipRole) ([]uuid.UUID, error) {
	args := m.Called(ctx, userID, role)
	if ids := args.Get(0); ids != nil {
		return ids.([]uuid.UUID), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockGroupLister struct {
	mock.Mock
}

func (m *MockGroupLister) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	args := m.Called(ctx)
	if ids := args.Get(0); ids != nil {
		return ids.([]uuid.UUID), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockAuditor struct {
	mock.Mock
}

func (m *MockAuditor) LogAccessDenied(ctx context.Context, userID uuid.UUID, check string, details map[string]interface{}) {
	m.Called(ctx, userID, check, details)
}

type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordDecision(check string, allowed bool) {
	m.Called(check, allowed)
}

func (m *MockRecorder) RecordError(check string, code services.ErrorCode) {
	m.Called(check, code)
}
