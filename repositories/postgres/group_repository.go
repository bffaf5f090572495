package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/repositories"
	"go.uber.org/zap"
)

// GroupRepository implements the repositories.GroupRepository interface
type GroupRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *DB, logger *zap.Logger) repositories.GroupRepository {
	return &GroupRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new group
func (r *GroupRepository) Create(ctx context.Context, group *models.Group) error {
	query := `
		INSERT INTO groups (id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query,
		group.ID,
		group.Name,
		group.CreatedAt,
		group.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create group: %w", err)
	}

	r.logger.Debug("group created", zap.String("id", group.ID.String()))
	return nil
}

// GetByID retrieves a group by ID
func (r *GroupRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Group, error) {
	query := `
		SELECT id, name, created_at, updated_at
		FROM groups
		WHERE id = $1
	`

	group := &models.Group{}
	err := executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, id).Scan(
		&group.ID,
		&group.Name,
		&group.CreatedAt,
		&group.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("group %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	return group, nil
}

// GetByIDs retrieves the listed groups ordered by name
func (r *GroupRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Group, error) {
	if len(ids) == 0 {
		return []*models.Group{}, nil
	}

	query := `
		SELECT id, name, created_at, updated_at
		FROM groups
		WHERE id = ANY($1::uuid[])
		ORDER BY name
	`

	rows, err := executorFor(ctx, r.db, r.tx).QueryContext(ctx, query, pq.Array(uuidStrings(ids)))
	if err != nil {
		return nil, fmt.Errorf("failed to query groups: %w", err)
	}
	defer rows.Close()

	groups := make([]*models.Group, 0, len(ids))
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatedAt, &group.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating group rows: %w", err)
	}

	return groups, nil
}

// ListIDs returns every group ID
func (r *GroupRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	return queryIDs(ctx, executorFor(ctx, r.db, r.tx), `SELECT id FROM groups ORDER BY created_at`)
}

// WithTx returns a new repository instance bound to the transaction
func (r *GroupRepository) WithTx(tx repositories.Transaction) repositories.GroupRepository {
	return &GroupRepository{
		db:     r.db,
		tx:     boundTx(tx),
		logger: r.logger,
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

// queryIDs runs a single-column UUID query. The result is never nil.
func queryIDs(ctx context.Context, executor Executor, query string, args ...interface{}) ([]uuid.UUID, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query ids: %w", err)
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating id rows: %w", err)
	}

	return ids, nil
}
