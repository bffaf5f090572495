package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UserRole is the platform-wide privilege level of a user
type UserRole string

const (
	RoleSuperAdmin UserRole = "super_admin"
	RoleHost       UserRole = "host"
	RoleGuest      UserRole = "guest"
)

// AllUserRoles lists every role in descending privilege order
var AllUserRoles = []UserRole{RoleSuperAdmin, RoleHost, RoleGuest}

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleHost, RoleGuest:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer
func (r UserRole) String() string {
	return string(r)
}

// ParseUserRole converts a stored role string into a UserRole
func ParseUserRole(s string) (UserRole, error) {
	r := UserRole(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown user role %q", s)
	}
	return r, nil
}

// User represents an authenticated platform user
type User struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Email     string    `json:"email" db:"email"`
	Role      UserRole  `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewUser creates a new User instance
func NewUser(id uuid.UUID, email string, role UserRole) *User {
	now := time.Now()
	return &User{
		ID:        id,
		Email:     email,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
