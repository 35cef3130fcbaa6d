package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hpnhann/event-planner-backend/internal/models"
	appErrors "github.com/hpnhann/event-planner-backend/pkg/errors"
)

type mockEventRepo struct {
	event      *models.Event
	detail     *models.EventDetail
	created    *models.Event
	updated    *models.Event
	statusSet  models.EventStatus
	published  *time.Time
	deleted    []string
	updateErr  error
	findErr    error
	deleteErr  error
	statusErr  error
	listEvents []models.EventDetail
	listTotal  int
}

func (m *mockEventRepo) List(ctx context.Context, filter models.EventFilter) ([]models.EventDetail, int, error) {
	return m.listEvents, m.listTotal, nil
}

func (m *mockEventRepo) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.event == nil {
		return nil, sql.ErrNoRows
	}
	return m.event, nil
}

func (m *mockEventRepo) FindDetailByID(ctx context.Context, id string) (*models.EventDetail, error) {
	if m.detail == nil {
		return nil, sql.ErrNoRows
	}
	return m.detail, nil
}

func (m *mockEventRepo) Create(ctx context.Context, event *models.Event) error {
	m.created = event
	return nil
}

func (m *mockEventRepo) Update(ctx context.Context, event *models.Event) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updated = event
	return nil
}

func (m *mockEventRepo) UpdateStatus(ctx context.Context, id string, status models.EventStatus, publishedAt *time.Time) error {
	if m.statusErr != nil {
		return m.statusErr
	}
	m.statusSet = status
	m.published = publishedAt
	return nil
}

func (m *mockEventRepo) Delete(ctx context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockCacheInvalidator struct {
	patterns []string
}

func (m *mockCacheInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func validCreateEventRequest() CreateEventRequest {
	start := time.Now().UTC().Add(24 * time.Hour)
	return CreateEventRequest{
		Title:     "Launch Night",
		Location:  "Main Hall",
		StartTime: start.Format(time.RFC3339),
		EndTime:   start.Add(2 * time.Hour).Format(time.RFC3339),
	}
}

func TestEventCreateStartsAsDraft(t *testing.T) {
	repo := &mockEventRepo{}
	audit := &mockAudit{}
	svc := NewEventService(repo, nil, validator.New(), zap.NewNop(), audit)

	event, err := svc.Create(context.Background(), validCreateEventRequest(), "org1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusDraft, event.Status)
	assert.Equal(t, "org1", event.CreatedBy)
	require.NotNil(t, repo.created)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionEventCreate, audit.logs[0].Action)
}

func TestEventCreateRejectsInvertedWindow(t *testing.T) {
	req := validCreateEventRequest()
	req.StartTime, req.EndTime = req.EndTime, req.StartTime
	svc := NewEventService(&mockEventRepo{}, nil, validator.New(), zap.NewNop(), nil)

	_, err := svc.Create(context.Background(), req, "org1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventCreateRejectsZeroCapacity(t *testing.T) {
	req := validCreateEventRequest()
	zero := 0
	req.Capacity = &zero
	svc := NewEventService(&mockEventRepo{}, nil, validator.New(), zap.NewNop(), nil)

	_, err := svc.Create(context.Background(), req, "org1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestEventPublishStampsTimestamp(t *testing.T) {
	repo := &mockEventRepo{event: &models.Event{ID: "e1", Status: models.EventStatusDraft}}
	cache := &mockCacheInvalidator{}
	svc := NewEventService(repo, cache, validator.New(), zap.NewNop(), nil)

	event, err := svc.Publish(context.Background(), "e1", "org1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusPublished, event.Status)
	assert.NotNil(t, event.PublishedAt)
	assert.Equal(t, models.EventStatusPublished, repo.statusSet)
	assert.Contains(t, cache.patterns, "dashboard:*")
}

func TestEventCompleteRequiresPublished(t *testing.T) {
	repo := &mockEventRepo{event: &models.Event{ID: "e1", Status: models.EventStatusDraft}}
	svc := NewEventService(repo, nil, validator.New(), zap.NewNop(), nil)

	_, err := svc.Complete(context.Background(), "e1", "org1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestEventCancelFromPublished(t *testing.T) {
	repo := &mockEventRepo{event: &models.Event{ID: "e1", Status: models.EventStatusPublished}}
	svc := NewEventService(repo, nil, validator.New(), zap.NewNop(), nil)

	event, err := svc.Cancel(context.Background(), "e1", "org1")
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusCancelled, event.Status)
	assert.Nil(t, repo.published)
}

func TestEventUpdateBlockedWhenTerminal(t *testing.T) {
	repo := &mockEventRepo{event: &models.Event{ID: "e1", Status: models.EventStatusCompleted}}
	svc := NewEventService(repo, nil, validator.New(), zap.NewNop(), nil)

	req := UpdateEventRequest(validCreateEventRequest())
	_, err := svc.Update(context.Background(), "e1", req, "org1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestEventDeleteOnlyDrafts(t *testing.T) {
	repo := &mockEventRepo{event: &models.Event{ID: "e1", Status: models.EventStatusPublished}}
	svc := NewEventService(repo, nil, validator.New(), zap.NewNop(), nil)

	err := svc.Delete(context.Background(), "e1", "org1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.deleted)

	repo.event.Status = models.EventStatusDraft
	require.NoError(t, svc.Delete(context.Background(), "e1", "org1"))
	assert.Equal(t, []string{"e1"}, repo.deleted)
}

func TestEventGetNotFound(t *testing.T) {
	svc := NewEventService(&mockEventRepo{}, nil, validator.New(), zap.NewNop(), nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
