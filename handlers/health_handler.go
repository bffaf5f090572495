package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/upb/wedding-platform/services/audit"
	"github.com/upb/wedding-platform/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// StatusResponse describes the running service
type StatusResponse struct {
	Version     string       `json:"version"`
	Environment string       `json:"environment"`
	Audit       *AuditStatus `json:"audit,omitempty"`
}

// AuditStatus reports the async audit writer queue
type AuditStatus struct {
	Running       bool   `json:"running"`
	PendingEvents int    `json:"pending_events"`
	BufferSize    int    `json:"buffer_size"`
	Dropped       uint64 `json:"dropped"`
}

// AuditStatsProvider exposes audit queue statistics
type AuditStatsProvider interface {
	GetStats() audit.Stats
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	db          *sql.DB
	auditStats  AuditStatsProvider
	version     string
	environment string
	logger      *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. db and auditStats may be nil.
func NewHealthHandler(db *sql.DB, auditStats AuditStatsProvider, version, environment string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:          db,
		auditStats:  auditStats,
		version:     version,
		environment: environment,
		logger:      logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	_ = utils.WriteOK(w, response)
}

// HandleReadiness handles GET /readyz
// Readiness check - validates that all dependencies are available
func (h *HealthHandler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if err := h.checkDatabase(ctx); err != nil {
		h.logger.Warn("database health check failed", zap.Error(err))
		checks["database"] = "unhealthy"
		allHealthy = false
	} else {
		checks["database"] = "healthy"
	}

	if h.auditStats != nil {
		if h.auditStats.GetStats().Started {
			checks["audit"] = "healthy"
		} else {
			checks["audit"] = "stopped"
			allHealthy = false
		}
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !allHealthy {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	response := HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
	}

	if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
		h.logger.Error("failed to write readiness response", zap.Error(err))
	}
}

// HandleStatus handles GET /api/v1/status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		Version:     h.version,
		Environment: h.environment,
	}
	if h.auditStats != nil {
		stats := h.auditStats.GetStats()
		response.Audit = &AuditStatus{
			Running:       stats.Started,
			PendingEvents: stats.PendingEvents,
			BufferSize:    stats.BufferSize,
			Dropped:       stats.Dropped,
		}
	}

	_ = utils.WriteOK(w, response)
}

// checkDatabase checks database connectivity
func (h *HealthHandler) checkDatabase(ctx context.Context) error {
	if h.db == nil {
		return nil
	}

	if err := h.db.PingContext(ctx); err != nil {
		return err
	}

	var result int
	return h.db.QueryRowContext(ctx, "SELECT 1").Scan(&result)
}
