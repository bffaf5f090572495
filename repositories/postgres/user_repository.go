package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/repositories"
	"go.uber.org/zap"
)

const uniqueViolation = "23505"

// psql builds dollar-placeholder queries for Postgres
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// UserRepository implements the repositories.UserRepository interface
type UserRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB, logger *zap.Logger) repositories.UserRepository {
	return &UserRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	executor := executorFor(ctx, r.db, r.tx)
	_, err := executor.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Role,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("user %s: %w", user.Email, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.logger.Debug("user created", zap.String("id", user.ID.String()), zap.String("role", string(user.Role)))
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `
		SELECT id, email, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	executor := executorFor(ctx, r.db, r.tx)
	user := &models.User{}

	err := executor.QueryRowContext(ctx, query, id).Scan(
		&user.ID,
		&user.Email,
		&user.Role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return user, nil
}

// GetRole reads the stored role string without validating it
func (r *UserRepository) GetRole(ctx context.Context, id uuid.UUID) (string, error) {
	query := `SELECT role FROM users WHERE id = $1`

	var role string
	err := executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, id).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("user %s: %w", id, repositories.ErrNotFound)
		}
		return "", fmt.Errorf("failed to get user role: %w", err)
	}

	return role, nil
}

// List retrieves users newest first, optionally filtered by role
func (r *UserRepository) List(ctx context.Context, role models.UserRole, limit, offset int) ([]*models.User, error) {
	builder := psql.
		Select("id", "email", "role", "created_at", "updated_at").
		From("users").
		OrderBy("created_at DESC")
	if role != "" {
		builder = builder.Where(sq.Eq{"role": role})
	}
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}
	if offset > 0 {
		builder = builder.Offset(uint64(offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	rows, err := executorFor(ctx, r.db, r.tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID,
			&user.Email,
			&user.Role,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, nil
}

// UpdateRole changes the platform role of a user
func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.UserRole) error {
	query := `UPDATE users SET role = $2, updated_at = now() WHERE id = $1`

	result, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query, id, role)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}

	if err := requireAffected(result, "user", id); err != nil {
		return err
	}

	r.logger.Debug("user role updated", zap.String("id", id.String()), zap.String("role", string(role)))
	return nil
}

// UpdateEmail changes the email of a user
func (r *UserRepository) UpdateEmail(ctx context.Context, id uuid.UUID, email string) error {
	query := `UPDATE users SET email = $2, updated_at = now() WHERE id = $1`

	result, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query, id, email)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("email %s: %w", email, repositories.ErrDuplicate)
		}
		return fmt.Errorf("failed to update user email: %w", err)
	}

	return requireAffected(result, "user", id)
}

// CountByRole counts users holding role. Matching rows are locked when
// called inside a transaction so concurrent demotions serialize.
func (r *UserRepository) CountByRole(ctx context.Context, role models.UserRole) (int, error) {
	query := `SELECT COUNT(*) FROM (SELECT id FROM users WHERE role = $1 FOR UPDATE) locked`

	var count int
	if err := executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, role).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *UserRepository) WithTx(tx repositories.Transaction) repositories.UserRepository {
	return &UserRepository{
		db:     r.db,
		tx:     boundTx(tx),
		logger: r.logger,
	}
}

func requireAffected(result sql.Result, kind string, id uuid.UUID) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, repositories.ErrNotFound)
	}
	return nil
}
