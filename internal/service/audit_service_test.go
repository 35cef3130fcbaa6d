package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/hpnhann/event-planner-backend/internal/models"
)

type mockAuditLogRepo struct {
	mu   sync.Mutex
	logs []*models.AuditLog
}

func (m *mockAuditLogRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAuditLogRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

func TestAuditRecordPersistsInBackground(t *testing.T) {
	repo := &mockAuditLogRepo{}
	svc := NewAuditService(repo, zap.NewNop(), AuditConfig{Enabled: true, Workers: 1, BufferSize: 4})
	svc.Start(context.Background())
	defer svc.Stop()

	actor := "u1"
	svc.Record(context.Background(), &models.AuditLog{UserID: &actor, Action: models.AuditActionLogin, Resource: "auth"})

	assert.Eventually(t, func() bool {
		return repo.count() == 1
	}, 2*time.Second, 10*time.Millisecond)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.NotEmpty(t, repo.logs[0].ID)
	assert.False(t, repo.logs[0].CreatedAt.IsZero())
}

func TestAuditRecordFallsBackInline(t *testing.T) {
	repo := &mockAuditLogRepo{}
	svc := NewAuditService(repo, zap.NewNop(), AuditConfig{Enabled: true})

	// Queue never started: the entry must be written inline instead.
	svc.Record(context.Background(), &models.AuditLog{Action: models.AuditActionLogin, Resource: "auth"})

	assert.Equal(t, 1, repo.count())
}

func TestAuditRecordDisabled(t *testing.T) {
	repo := &mockAuditLogRepo{}
	svc := NewAuditService(repo, zap.NewNop(), AuditConfig{Enabled: false})

	svc.Record(context.Background(), &models.AuditLog{Action: models.AuditActionLogin})

	assert.Zero(t, repo.count())
}
