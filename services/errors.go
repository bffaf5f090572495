package services

import (
	"errors"
	"fmt"
)

// ErrorCode is the tag callers branch on
type ErrorCode string

const (
	CodeNotFound                ErrorCode = "NOT_FOUND"
	CodeInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"
	CodeDatabaseError           ErrorCode = "DATABASE_ERROR"
	CodeUnknownError            ErrorCode = "UNKNOWN_ERROR"
	CodeValidation              ErrorCode = "VALIDATION_ERROR"
	CodeUnauthorized            ErrorCode = "UNAUTHORIZED"
	CodeConflict                ErrorCode = "CONFLICT"
	CodeRateLimited             ErrorCode = "RATE_LIMITED"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Code    ErrorCode
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError carrying the same code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetail adds a detail to the error
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewDomainError creates a new domain error
func NewDomainError(code ErrorCode, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

// Sentinels for errors.Is comparisons. Never mutate these; build a fresh
// error with NewDomainError when details are needed.
var (
	ErrUserNotFound   = NewDomainError(CodeNotFound, "user not found", nil)
	ErrGroupNotFound  = NewDomainError(CodeNotFound, "group not found", nil)
	ErrMemberNotFound = NewDomainError(CodeNotFound, "group member not found", nil)

	ErrInsufficientPermissions = NewDomainError(CodeInsufficientPermissions, "insufficient permissions", nil)

	ErrDatabaseError = NewDomainError(CodeDatabaseError, "database error", nil)
	ErrUnknownError  = NewDomainError(CodeUnknownError, "unknown error", nil)

	ErrInvalidInput    = NewDomainError(CodeValidation, "invalid input", nil)
	ErrUnauthorized    = NewDomainError(CodeUnauthorized, "unauthorized", nil)
	ErrLastOwner       = NewDomainError(CodeConflict, "group must keep at least one owner", nil)
	ErrLastSuperAdmin  = NewDomainError(CodeConflict, "platform must keep at least one super_admin", nil)
	ErrDuplicateMember = NewDomainError(CodeConflict, "user is already a member of this group", nil)
	ErrRateLimited     = NewDomainError(CodeRateLimited, "rate limit exceeded", nil)
)

func hasCode(err error, code ErrorCode) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return hasCode(err, CodeNotFound)
}

// IsInsufficientPermissionsError checks if an error is a permission denial
func IsInsufficientPermissionsError(err error) bool {
	return hasCode(err, CodeInsufficientPermissions)
}

// IsDatabaseError checks if an error is a store failure
func IsDatabaseError(err error) bool {
	return hasCode(err, CodeDatabaseError)
}

// IsUnknownError checks if an error is an unexpected failure
func IsUnknownError(err error) bool {
	return hasCode(err, CodeUnknownError)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return hasCode(err, CodeValidation)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return hasCode(err, CodeUnauthorized)
}

// IsConflictError checks if an error is a conflict error
func IsConflictError(err error) bool {
	return hasCode(err, CodeConflict)
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	return hasCode(err, CodeRateLimited)
}

// GetErrorCode returns the code of a domain error, or empty string if not a domain error
func GetErrorCode(err error) ErrorCode {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// GetErrorMessage returns the client-facing message of a domain error, or
// err.Error() otherwise
func GetErrorMessage(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}
	return err.Error()
}

// WrapDatabase wraps a store failure as DATABASE_ERROR
func WrapDatabase(message string, err error) error {
	return NewDomainError(CodeDatabaseError, message, err)
}

// WrapUnknown wraps an unexpected failure as UNKNOWN_ERROR
func WrapUnknown(message string, err error) error {
	return NewDomainError(CodeUnknownError, message, err)
}

// Recover converts a panic into UNKNOWN_ERROR stored in *errp.
// Use as `defer services.Recover(&err)`.
func Recover(errp *error) {
	if r := recover(); r != nil {
		var cause error
		switch v := r.(type) {
		case error:
			cause = v
		default:
			cause = fmt.Errorf("%v", v)
		}
		*errp = WrapUnknown("unexpected failure", cause)
	}
}
