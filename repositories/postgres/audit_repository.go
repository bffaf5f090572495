package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/repositories"
	"go.uber.org/zap"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 500
)

var auditColumns = []string{
	"id", "actor_id", "action", "resource_type", "resource_id",
	"details", "ip_address", "user_agent", "request_id", "timestamp",
}

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	tx     *Transaction
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			id, actor_id, action, resource_type, resource_id,
			details, ip_address, user_agent, request_id, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	var details interface{}
	if len(log.Details) > 0 {
		details = []byte(log.Details)
	}

	_, err := executorFor(ctx, r.db, r.tx).ExecContext(ctx, query,
		log.ID,
		log.ActorID,
		log.Action,
		log.ResourceType,
		log.ResourceID,
		details,
		nullString(log.IPAddress),
		nullString(log.UserAgent),
		nullString(log.RequestID),
		log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.String("id", log.ID.String()), zap.String("action", string(log.Action)))
	return nil
}

// GetByID retrieves an audit log by ID
func (r *AuditRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.AuditLog, error) {
	query, args, err := psql.Select(auditColumns...).
		From("audit_logs").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit query: %w", err)
	}

	log, err := scanAuditLog(executorFor(ctx, r.db, r.tx).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("audit log %s: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}

	return log, nil
}

// List retrieves audit logs matching filter, newest first
func (r *AuditRepository) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	builder := psql.Select(auditColumns...).
		From("audit_logs").
		OrderBy("timestamp DESC")

	if filter.ActorID != nil {
		builder = builder.Where(sq.Eq{"actor_id": *filter.ActorID})
	}
	if filter.Action != "" {
		builder = builder.Where(sq.Eq{"action": filter.Action})
	}
	if filter.Since != nil {
		builder = builder.Where(sq.GtOrEq{"timestamp": *filter.Since})
	}
	if filter.Until != nil {
		builder = builder.Where(sq.LtOrEq{"timestamp": *filter.Until})
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditPageSize
	}
	if limit > maxAuditPageSize {
		limit = maxAuditPageSize
	}
	builder = builder.Limit(uint64(limit))
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build audit query: %w", err)
	}

	rows, err := executorFor(ctx, r.db, r.tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []*models.AuditLog{}
	for rows.Next() {
		log, err := scanAuditLog(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *AuditRepository) WithTx(tx repositories.Transaction) repositories.AuditRepository {
	return &AuditRepository{
		db:     r.db,
		tx:     boundTx(tx),
		logger: r.logger,
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAuditLog(row rowScanner) (*models.AuditLog, error) {
	log := &models.AuditLog{}
	var (
		actorID, resourceID             uuid.NullUUID
		details                         []byte
		ipAddress, userAgent, requestID sql.NullString
	)

	err := row.Scan(
		&log.ID,
		&actorID,
		&log.Action,
		&log.ResourceType,
		&resourceID,
		&details,
		&ipAddress,
		&userAgent,
		&requestID,
		&log.Timestamp,
	)
	if err != nil {
		return nil, err
	}

	if actorID.Valid {
		log.ActorID = &actorID.UUID
	}
	if resourceID.Valid {
		log.ResourceID = &resourceID.UUID
	}
	if len(details) > 0 {
		log.Details = details
	}
	log.IPAddress = ipAddress.String
	log.UserAgent = userAgent.String
	log.RequestID = requestID.String

	return log, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
