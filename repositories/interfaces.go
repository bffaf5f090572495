package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when an insert violates a unique constraint
var ErrDuplicate = errors.New("duplicate record")

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetRole reads only the stored role string. Returns ErrNotFound when
	// the user does not exist.
	GetRole(ctx context.Context, id uuid.UUID) (string, error)

	// List retrieves users with pagination, optionally filtered by role
	List(ctx context.Context, role models.UserRole, limit, offset int) ([]*models.User, error)

	// UpdateRole changes the platform role of a user
	UpdateRole(ctx context.Context, id uuid.UUID, role models.UserRole) error

	// UpdateEmail changes the email of a user
	UpdateEmail(ctx context.Context, id uuid.UUID, email string) error

	// CountByRole counts users holding role
	CountByRole(ctx context.Context, role models.UserRole) (int, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// GroupRepository handles group data operations
type GroupRepository interface {
	// Create creates a new group
	Create(ctx context.Context, group *models.Group) error

	// GetByID retrieves a group by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error)

	// GetByIDs retrieves the groups whose IDs are listed
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Group, error)

	// ListIDs returns every group ID
	ListIDs(ctx context.Context) ([]uuid.UUID, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) GroupRepository
}

// GroupMemberRepository handles group membership data operations
type GroupMemberRepository interface {
	// Add inserts a membership row. Returns ErrDuplicate if it exists.
	Add(ctx context.Context, member *models.GroupMember) error

	// GetMembership returns the membership role string of user in group.
	// Returns ErrNotFound when no row exists.
	GetMembership(ctx context.Context, userID, groupID uuid.UUID) (string, error)

	// ListByGroup returns every member of a group
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error)

	// ListGroupIDsByRole returns the groups where user holds role
	ListGroupIDsByRole(ctx context.Context, userID uuid.UUID, role models.MembershipRole) ([]uuid.UUID, error)

	// UpdateRole changes the membership role of user in group
	UpdateRole(ctx context.Context, userID, groupID uuid.UUID, role models.MembershipRole) error

	// Remove deletes a membership row
	Remove(ctx context.Context, userID, groupID uuid.UUID) error

	// CountOwners counts owner rows in a group
	CountOwners(ctx context.Context, groupID uuid.UUID) (int, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) GroupMemberRepository
}

// AuditRepository handles audit log data operations
type AuditRepository interface {
	// Insert inserts a new audit log entry
	Insert(ctx context.Context, log *models.AuditLog) error

	// GetByID retrieves an audit log by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error)

	// List retrieves audit logs matching filter, newest first
	List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AuditRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users        UserRepository
	Groups       GroupRepository
	GroupMembers GroupMemberRepository
	AuditLogs    AuditRepository
}
