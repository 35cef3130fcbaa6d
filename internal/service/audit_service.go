package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hpnhann/event-planner-backend/internal/models"
	"github.com/hpnhann/event-planner-backend/pkg/jobs"
)

type auditLogRepository interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// auditRecorder is the slice of AuditService the other services depend on.
type auditRecorder interface {
	Record(ctx context.Context, entry *models.AuditLog)
}

// AuditConfig tunes the background audit writer.
type AuditConfig struct {
	Enabled    bool
	Workers    int
	BufferSize int
}

// AuditService records audit trail entries. Writes go through an in-memory
// worker queue so request paths never block on the audit table.
type AuditService struct {
	repo    auditLogRepository
	logger  *zap.Logger
	queue   *jobs.Queue
	enabled bool
}

// NewAuditService constructs an AuditService instance.
func NewAuditService(repo auditLogRepository, logger *zap.Logger, cfg AuditConfig) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{repo: repo, logger: logger, enabled: cfg.Enabled}
	s.queue = jobs.NewQueue("audit", s.persist, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		Logger:     logger,
	})
	return s
}

// Start launches the background workers.
func (s *AuditService) Start(ctx context.Context) {
	if s.enabled {
		s.queue.Start(ctx)
	}
}

// Stop drains the workers.
func (s *AuditService) Stop() {
	if s.enabled {
		s.queue.Stop()
	}
}

// Record enqueues an audit entry. Failures are logged, never surfaced, so an
// audit outage cannot fail the operation being audited.
func (s *AuditService) Record(ctx context.Context, entry *models.AuditLog) {
	if !s.enabled || entry == nil {
		return
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err := s.queue.Enqueue(jobs.Job{
		ID:      entry.ID,
		Type:    entry.Action,
		Payload: entry,
	})
	if err != nil {
		s.logger.Warn("failed to enqueue audit entry, writing inline",
			zap.String("action", entry.Action), zap.Error(err))
		if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to persist audit entry", zap.Error(err))
		}
	}
}

func (s *AuditService) persist(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok {
		return fmt.Errorf("unexpected audit payload type %T", job.Payload)
	}
	return s.repo.CreateAuditLog(ctx, entry)
}
