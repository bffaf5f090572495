package audit

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/upb/wedding-platform/internal/shared"
	"github.com/upb/wedding-platform/models"
	"github.com/upb/wedding-platform/repositories"
	"go.uber.org/zap"
)

// AuditEvent represents an event to be audited
type AuditEvent struct {
	Log *models.AuditLog
}

// AuditService handles asynchronous audit logging
type AuditService struct {
	auditRepo   repositories.AuditRepository
	logger      *zap.Logger
	eventChan   chan *AuditEvent
	workerCount int
	bufferSize  int
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	started     bool
	stopped     bool
	dropped     atomic.Uint64
	mu          sync.RWMutex
}

// Config holds configuration for the AuditService
type Config struct {
	BufferSize  int // Size of the event buffer channel
	WorkerCount int // Number of concurrent workers
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize:  1000,
		WorkerCount: 2,
	}
}

// NewAuditService creates a new AuditService instance
func NewAuditService(auditRepo repositories.AuditRepository, logger *zap.Logger, config Config) *AuditService {
	ctx, cancel := context.WithCancel(context.Background())

	return &AuditService{
		auditRepo:   auditRepo,
		logger:      logger,
		eventChan:   make(chan *AuditEvent, config.BufferSize),
		workerCount: config.WorkerCount,
		bufferSize:  config.BufferSize,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the background workers
func (s *AuditService) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("audit service already started")
	}

	for i := 0; i < s.workerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.started = true
	s.logger.Info("started audit service",
		zap.Int("worker_count", s.workerCount),
		zap.Int("buffer_size", s.bufferSize))

	return nil
}

// Stop gracefully stops the audit service
// Waits for all pending events to be processed
func (s *AuditService) Stop(timeout time.Duration) error {
	// release blocked LogEventBlocking callers before taking the write lock
	s.cancel()

	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("audit service not started")
	}
	s.stopped = true
	s.logger.Info("stopping audit service", zap.Int("pending_events", len(s.eventChan)))
	close(s.eventChan)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("audit service stopped gracefully")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("audit service stop timeout after %v", timeout)
	}
}

// LogEvent logs an event asynchronously (non-blocking)
// Returns immediately, event is processed in background
func (s *AuditService) LogEvent(event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return fmt.Errorf("audit service not started")
	}

	select {
	case s.eventChan <- event:
		return nil
	default:
		s.dropped.Add(1)
		s.logger.Warn("audit event channel full, dropping event",
			zap.String("action", string(event.Log.Action)),
			zap.String("resource_type", event.Log.ResourceType))
		return fmt.Errorf("audit event buffer full")
	}
}

// LogEventBlocking logs an event synchronously (blocking)
// Waits until event is queued or context is cancelled
func (s *AuditService) LogEventBlocking(ctx context.Context, event *AuditEvent) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.started || s.stopped {
		return fmt.Errorf("audit service not started")
	}

	select {
	case s.eventChan <- event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return fmt.Errorf("audit service stopped")
	}
}

// worker processes events from the channel
func (s *AuditService) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("audit worker started", zap.Int("worker_id", id))

	for event := range s.eventChan {
		if err := s.processEvent(event); err != nil {
			s.logger.Error("failed to process audit event",
				zap.Int("worker_id", id),
				zap.Error(err),
				zap.String("action", string(event.Log.Action)),
				zap.String("request_id", event.Log.RequestID))
		}
	}

	s.logger.Debug("audit worker stopped", zap.Int("worker_id", id))
}

// processEvent processes a single audit event
func (s *AuditService) processEvent(event *AuditEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.auditRepo.Insert(ctx, event.Log); err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// GetStats returns statistics about the audit service
func (s *AuditService) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Stats{
		BufferSize:    s.bufferSize,
		PendingEvents: len(s.eventChan),
		WorkerCount:   s.workerCount,
		Started:       s.started && !s.stopped,
		Dropped:       s.dropped.Load(),
	}
}

// Stats represents audit service statistics
type Stats struct {
	BufferSize    int
	PendingEvents int
	WorkerCount   int
	Started       bool
	Dropped       uint64
}

// List returns stored audit entries matching filter
func (s *AuditService) List(ctx context.Context, filter models.AuditLogFilter) ([]*models.AuditLog, error) {
	return s.auditRepo.List(ctx, filter)
}

// Convenience methods for logging common events

// enqueue stamps request metadata from ctx and queues the entry. Failures are
// logged, never returned: auditing must not fail the audited operation.
func (s *AuditService) enqueue(ctx context.Context, log *models.AuditLog) {
	client := shared.ClientFrom(ctx)
	log.WithRequest(shared.RequestID(ctx), client.IPAddress, client.UserAgent)

	if err := s.LogEvent(&AuditEvent{Log: log}); err != nil {
		s.logger.Warn("audit event not queued",
			zap.Error(err),
			zap.String("action", string(log.Action)),
			zap.String("request_id", log.RequestID))
	}
}

// LogAccessDenied records a denied access check
func (s *AuditService) LogAccessDenied(ctx context.Context, userID uuid.UUID, check string, details map[string]interface{}) {
	log := models.NewAuditLog(models.AuditActionAccessDenied, "permission").
		WithActor(userID).
		WithDetails(map[string]interface{}{
			"check":   check,
			"details": details,
		})
	if raw, ok := details["group_id"].(string); ok {
		if groupID, err := uuid.Parse(raw); err == nil {
			log.ResourceType = "group"
			log.WithResource(groupID)
		}
	}
	s.enqueue(ctx, log)
}

// LogRoleChanged records a platform role change
func (s *AuditService) LogRoleChanged(ctx context.Context, actorID, userID uuid.UUID, from, to models.UserRole) {
	log := models.NewAuditLog(models.AuditActionRoleChanged, "user").
		WithActor(actorID).
		WithResource(userID).
		WithDetails(map[string]interface{}{
			"from": from,
			"to":   to,
		})
	s.enqueue(ctx, log)
}

// LogUserUpdated records a profile change
func (s *AuditService) LogUserUpdated(ctx context.Context, actorID, userID uuid.UUID, changes map[string]interface{}) {
	log := models.NewAuditLog(models.AuditActionUserUpdated, "user").
		WithActor(actorID).
		WithResource(userID).
		WithDetails(map[string]interface{}{"changes": changes})
	s.enqueue(ctx, log)
}

// LogGroupCreated records a new group
func (s *AuditService) LogGroupCreated(ctx context.Context, actorID uuid.UUID, group *models.Group) {
	log := models.NewAuditLog(models.AuditActionGroupCreated, "group").
		WithActor(actorID).
		WithResource(group.ID).
		WithDetails(map[string]interface{}{"name": group.Name})
	s.enqueue(ctx, log)
}

// LogGroupMemberAdded records a new membership
func (s *AuditService) LogGroupMemberAdded(ctx context.Context, actorID uuid.UUID, member *models.GroupMember) {
	log := models.NewAuditLog(models.AuditActionGroupMemberAdded, "group").
		WithActor(actorID).
		WithResource(member.GroupID).
		WithDetails(map[string]interface{}{
			"user_id": member.UserID.String(),
			"role":    member.Role,
		})
	s.enqueue(ctx, log)
}

// LogGroupMemberUpdated records a membership role change
func (s *AuditService) LogGroupMemberUpdated(ctx context.Context, actorID, groupID, userID uuid.UUID, from, to models.MembershipRole) {
	log := models.NewAuditLog(models.AuditActionGroupMemberUpdated, "group").
		WithActor(actorID).
		WithResource(groupID).
		WithDetails(map[string]interface{}{
			"user_id": userID.String(),
			"from":    from,
			"to":      to,
		})
	s.enqueue(ctx, log)
}

// LogGroupMemberRemoved records a removed membership
func (s *AuditService) LogGroupMemberRemoved(ctx context.Context, actorID, groupID, userID uuid.UUID) {
	log := models.NewAuditLog(models.AuditActionGroupMemberRemoved, "group").
		WithActor(actorID).
		WithResource(groupID).
		WithDetails(map[string]interface{}{"user_id": userID.String()})
	s.enqueue(ctx, log)
}
