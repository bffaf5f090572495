package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/utils"
	"go.uber.org/zap"
)

// AuditLogLister reads stored audit entries
type AuditLogLister interface {
	List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error)
}

// AuditHandler serves the audit trail to super admins
type AuditHandler struct {
	audit  AuditLogLister
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit AuditLogLister, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{
		audit:  audit,
		logger: logger,
	}
}

// HandleListAuditLogs handles
// GET /api/v1/audit/logs?actor_id=&action=&since=&until=&limit=&offset=
func (h *AuditHandler) HandleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAuditFilter(r)
	if err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), nil)
		return
	}

	logs, err := h.audit.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("failed to list audit logs", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to list audit logs")
		return
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}

	_ = utils.WriteOK(w, logs)
}

func parseAuditFilter(r *http.Request) (models.AuditLogFilter, error) {
	q := r.URL.Query()
	var filter models.AuditLogFilter

	if raw := q.Get("actor_id"); raw != "" {
		actorID, err := uuid.Parse(raw)
		if err != nil {
			return filter, errors.New("actor_id must be a valid UUID")
		}
		filter.ActorID = &actorID
	}

	if raw := q.Get("action"); raw != "" {
		action := models.AuditAction(raw)
		if !action.Valid() {
			return filter, fmt.Errorf("unknown audit action %q", raw)
		}
		filter.Action = action
	}

	var err error
	if filter.Since, err = queryTime(r, "since"); err != nil {
		return filter, err
	}
	if filter.Until, err = queryTime(r, "until"); err != nil {
		return filter, err
	}

	// the repository applies page size bounds
	if filter.Limit, err = utils.QueryInt(r, "limit", 0); err != nil {
		return filter, err
	}
	if filter.Offset, err = utils.QueryInt(r, "offset", 0); err != nil {
		return filter, err
	}

	return filter, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be an RFC3339 timestamp", name)
	}
	return &ts, nil
}
