package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(CodeNotFound, "resource not found", baseErr)

	assert.Equal(t, CodeNotFound, domainErr.Code)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Code:    CodeNotFound,
				Message: "User not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "NOT_FOUND: User not found (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Code:    CodeInsufficientPermissions,
				Message: "User does not have required role: host",
			},
			wantMsg: "INSUFFICIENT_PERMISSIONS: User does not have required role: host",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(CodeDatabaseError, "query failed", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
	assert.True(t, errors.Is(domainErr, baseErr))
}

func TestDomainError_Is(t *testing.T) {
	err := NewDomainError(CodeNotFound, "User not found", nil)

	assert.True(t, errors.Is(err, ErrUserNotFound))
	assert.True(t, errors.Is(err, ErrGroupNotFound), "same code matches")
	assert.False(t, errors.Is(err, ErrDatabaseError))
	assert.False(t, errors.Is(err, errors.New("User not found")))
}

func TestDomainError_WithDetail(t *testing.T) {
	err := NewDomainError(CodeInsufficientPermissions, "denied", nil).
		WithDetail("userRole", "guest").
		WithDetail("requiredRole", "host")

	assert.Equal(t, "guest", err.Details["userRole"])
	assert.Equal(t, "host", err.Details["requiredRole"])

	bare := &DomainError{Code: CodeConflict}
	bare.WithDetail("k", 1)
	assert.Equal(t, 1, bare.Details["k"])
}

func TestErrorCodeHelpers(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"not found", ErrUserNotFound, IsNotFoundError},
		{"insufficient permissions", ErrInsufficientPermissions, IsInsufficientPermissionsError},
		{"database", ErrDatabaseError, IsDatabaseError},
		{"unknown", ErrUnknownError, IsUnknownError},
		{"validation", ErrInvalidInput, IsValidationError},
		{"unauthorized", ErrUnauthorized, IsUnauthorizedError},
		{"conflict", ErrLastOwner, IsConflictError},
		{"rate limited", ErrRateLimited, IsRateLimitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))
			assert.False(t, tt.check(errors.New("plain")))
		})
	}
}

func TestGetErrorCode(t *testing.T) {
	assert.Equal(t, CodeDatabaseError, GetErrorCode(WrapDatabase("boom", errors.New("conn reset"))))
	assert.Equal(t, CodeUnknownError, GetErrorCode(WrapUnknown("boom", nil)))
	assert.Equal(t, ErrorCode(""), GetErrorCode(errors.New("plain")))
	assert.Equal(t, ErrorCode(""), GetErrorCode(nil))
}

func TestGetErrorDetails(t *testing.T) {
	err := NewDomainError(CodeNotFound, "User not found", nil).WithDetail("userId", "abc")

	details := GetErrorDetails(fmt.Errorf("ctx: %w", err))
	require.NotNil(t, details)
	assert.Equal(t, "abc", details["userId"])
	assert.Nil(t, GetErrorDetails(errors.New("plain")))
}

func TestGetErrorMessage(t *testing.T) {
	err := NewDomainError(CodeConflict, "group must keep at least one owner", errors.New("count=1"))

	assert.Equal(t, "group must keep at least one owner", GetErrorMessage(fmt.Errorf("remove: %w", err)))
	assert.Equal(t, "plain", GetErrorMessage(errors.New("plain")))
}

func TestRecover(t *testing.T) {
	t.Run("panic becomes unknown error", func(t *testing.T) {
		run := func() (err error) {
			defer Recover(&err)
			panic("nil map write")
		}

		err := run()
		require.Error(t, err)
		assert.True(t, IsUnknownError(err))
		assert.Contains(t, err.Error(), "nil map write")
	})

	t.Run("panic with error value keeps cause", func(t *testing.T) {
		cause := errors.New("bad state")
		run := func() (err error) {
			defer Recover(&err)
			panic(cause)
		}

		err := run()
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("no panic leaves error untouched", func(t *testing.T) {
		run := func() (err error) {
			defer Recover(&err)
			return nil
		}

		assert.NoError(t, run())
	})
}
