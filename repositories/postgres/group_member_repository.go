package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/repositories"
	"go.uber.org/zap"
)

// GroupMemberRepository implements the repositories.GroupMemberRepository interface
type GroupMemberRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewGroupMemberRepository creates a new group member repository
func NewGroupMemberRepository(db *DB, logger *zap.Logger) repositories.GroupMemberRepository {
	return &GroupMemberRepository{
		db:     db,
		logger: logger,
	}
}

// Add inserts a membership row
func (r *GroupMemberRepository) Add(ctx context.Context, member *models.GroupMember) error {
	query := `
		INSERT INTO group_members (user_id, group_id, role, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query,
		member.UserID,
		member.GroupID,
		member.Role,
		member.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("member %s of group %s: %w", member.UserID, member.GroupID, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to add group member: %w", err)
	}

	r.logger.Debug("group member added",
		zap.String("group_id", member.GroupID.String()),
		zap.String("user_id", member.UserID.String()),
		zap.String("role", string(member.Role)))
	return nil
}

// GetMembership returns the stored membership role string
func (r *GroupMemberRepository) GetMembership(ctx context.Context, userID, groupID uuid.UUID) (string, error) {
	query := `SELECT role FROM group_members WHERE user_id = $1 AND group_id = $2`

	var role string
	err := executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, userID, groupID).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("member %s of group %s: %w", userID, groupID, repositories.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get membership: %w", err)
	}

	return role, nil
}

// ListByGroup returns every member of a group, owners first
func (r *GroupMemberRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.GroupMember, error) {
	query := `
		SELECT user_id, group_id, role, created_at
		FROM group_members
		WHERE group_id = $1
		ORDER BY role = 'owner' DESC, created_at
	`

	rows, err := executorFor(ctx, r.db, r.tx).QueryContext(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to query group members: %w", err)
	}
	defer rows.Close()

	members := []*models.GroupMember{}
	for rows.Next() {
		m := &models.GroupMember{}
		if err := rows.Scan(&m.UserID, &m.GroupID, &m.Role, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members = append(members, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group member rows: %w", err)
	}

	return members, nil
}

// ListGroupIDsByRole returns the groups where user holds role
func (r *GroupMemberRepository) ListGroupIDsByRole(ctx context.Context, userID uuid.UUID, role models.MembershipRole) ([]uuid.UUID, error) {
	query := `
		SELECT group_id
		FROM group_members
		WHERE user_id = $1 AND role = $2
		ORDER BY created_at
	`
	return queryIDs(ctx, executorFor(ctx, r.db, r.tx), query, userID, role)
}

// UpdateRole changes the membership role of user in group
func (r *GroupMemberRepository) UpdateRole(ctx context.Context, userID, groupID uuid.UUID, role models.MembershipRole) error {
	query := `UPDATE group_members SET role = $3 WHERE user_id = $1 AND group_id = $2`

	result, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query, userID, groupID, role)
	if err != nil {
		return fmt.Errorf("failed to update group member: %w", err)
	}
	return requireAffected(result, "group member", userID)
}

// Remove deletes a membership row
func (r *GroupMemberRepository) Remove(ctx context.Context, userID, groupID uuid.UUID) error {
	query := `DELETE FROM group_members WHERE user_id = $1 AND group_id = $2`

	result, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query, userID, groupID)
	if err != nil {
		return fmt.Errorf("failed to remove group member: %w", err)
	}
	if err := requireAffected(result, "group member", userID); err != nil {
		return err
	}

	r.logger.Debug("group member removed",
		zap.String("group_id", groupID.String()),
		zap.String("user_id", userID.String()))
	return nil
}

// CountOwners counts owner rows in a group, locking them inside a transaction
func (r *GroupMemberRepository) CountOwners(ctx context.Context, groupID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*) FROM (
			SELECT user_id FROM group_members
			WHERE group_id = $1 AND role = 'owner'
			FOR UPDATE
		) locked
	`

	var count int
	if err := executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count group owners: %w", err)
	}
	return count, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *GroupMemberRepository) WithTx(tx repositories.Transaction) repositories.GroupMemberRepository {
	return &GroupMemberRepository{
		db:     r.db,
		tx:     boundTx(tx),
		logger: r.logger,
	}
}
