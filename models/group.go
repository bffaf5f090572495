package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MembershipRole is the role a user holds inside a single group
type MembershipRole string

const (
	MembershipOwner  MembershipRole = "owner"
	MembershipViewer MembershipRole = "viewer"
)

// Valid reports whether r is a known membership role
func (r MembershipRole) Valid() bool {
	switch r {
	case MembershipOwner, MembershipViewer:
		return true
	default:
		return false
	}
}

// ParseMembershipRole converts a stored membership role string
func ParseMembershipRole(s string) (MembershipRole, error) {
	r := MembershipRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown membership role %q", s)
	}
	return r, nil
}

// Group is a wedding-party unit (a family, a table, a travel party)
type Group struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewGroup creates a new Group instance
func NewGroup(name string) *Group {
	now := time.Now()
	return &Group{
		ID:        uuid.New(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GroupMember links a user to a group with a membership role
type GroupMember struct {
	UserID    uuid.UUID      `json:"user_id" db:"user_id"`
	GroupID   uuid.UUID      `json:"group_id" db:"group_id"`
	Role      MembershipRole `json:"role" db:"role"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// NewGroupMember creates a new membership row
func NewGroupMember(groupID, userID uuid.UUID, role MembershipRole) *GroupMember {
	return &GroupMember{
		UserID:    userID,
		GroupID:   groupID,
		Role:      role,
		CreatedAt: time.Now(),
	}
}

// IsOwner returns true if the membership grants owner access
func (m *GroupMember) IsOwner() bool {
	return m.Role == MembershipOwner
}
