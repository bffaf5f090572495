package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of action being audited
type AuditAction string

const (
	AuditActionAccessDenied       AuditAction = "access_denied"
	AuditActionRoleChanged        AuditAction = "role_changed"
	AuditActionUserUpdated        AuditAction = "user_updated"
	AuditActionGroupCreated       AuditAction = "group_created"
	AuditActionGroupMemberAdded   AuditAction = "group_member_added"
	AuditActionGroupMemberRemoved AuditAction = "group_member_removed"
	AuditActionGroupMemberUpdated AuditAction = "group_member_updated"
)

// AuditLog represents an audit trail entry
type AuditLog struct {
	ID           uuid.UUID       `json:"id" db:"id"`
	ActorID      *uuid.UUID      `json:"actor_id,omitempty" db:"actor_id"`
	Action       AuditAction     `json:"action" db:"action"`
	ResourceType string          `json:"resource_type" db:"resource_type"` // user, group, group_member, permission
	ResourceID   *uuid.UUID      `json:"resource_id,omitempty" db:"resource_id"`
	Details      json.RawMessage `json:"details,omitempty" db:"details"`
	IPAddress    string          `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent    string          `json:"user_agent,omitempty" db:"user_agent"`
	RequestID    string          `json:"request_id,omitempty" db:"request_id"`
	Timestamp    time.Time       `json:"timestamp" db:"timestamp"`
}

// Valid reports whether a is one of the recorded audit actions.
func (a AuditAction) Valid() bool {
	switch a {
	case AuditActionAccessDenied, AuditActionRoleChanged, AuditActionUserUpdated,
		AuditActionGroupCreated, AuditActionGroupMemberAdded,
		AuditActionGroupMemberRemoved, AuditActionGroupMemberUpdated:
		return true
	}
	return false
}

// NewAuditLog creates a new AuditLog instance
func NewAuditLog(action AuditAction, resourceType string) *AuditLog {
	return &AuditLog{
		ID:           uuid.New(),
		Action:       action,
		ResourceType: resourceType,
		Timestamp:    time.Now(),
	}
}

// WithActor sets the acting user
func (a *AuditLog) WithActor(actorID uuid.UUID) *AuditLog {
	a.ActorID = &actorID
	return a
}

// WithResource sets the resource ID
func (a *AuditLog) WithResource(resourceID uuid.UUID) *AuditLog {
	a.ResourceID = &resourceID
	return a
}

// WithDetails sets the details
func (a *AuditLog) WithDetails(details interface{}) *AuditLog {
	if data, err := json.Marshal(details); err == nil {
		a.Details = data
	}
	return a
}

// WithRequest sets request metadata
func (a *AuditLog) WithRequest(requestID, ipAddress, userAgent string) *AuditLog {
	a.RequestID = requestID
	a.IPAddress = ipAddress
	a.UserAgent = userAgent
	return a
}

// AuditLogFilter narrows an audit log listing. Zero values are ignored.
type AuditLogFilter struct {
	ActorID *uuid.UUID
	Action  AuditAction
	Since   *time.Time
	Until   *time.Time
	Limit   int
	Offset  int
}
