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
	"github.com/hpnhann/event-planner-backend/internal/repository"
	appErrors "github.com/hpnhann/event-planner-backend/pkg/errors"
)

type mockRegistrationRepo struct {
	existing   *models.Registration
	findErr    error
	createErr  error
	created    *models.Registration
	updated    map[string]models.RegistrationStatus
	byID       *models.Registration
	findByIDEr error
}

func (m *mockRegistrationRepo) CreateWithCapacityCheck(ctx context.Context, registration *models.Registration, capacity *int) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = registration
	return nil
}

func (m *mockRegistrationRepo) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	if m.findByIDEr != nil {
		return nil, m.findByIDEr
	}
	if m.byID == nil {
		return nil, sql.ErrNoRows
	}
	return m.byID, nil
}

func (m *mockRegistrationRepo) FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.existing == nil {
		return nil, sql.ErrNoRows
	}
	return m.existing, nil
}

func (m *mockRegistrationRepo) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	return nil, 0, nil
}

func (m *mockRegistrationRepo) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	if m.updated == nil {
		m.updated = make(map[string]models.RegistrationStatus)
	}
	m.updated[id] = status
	return nil
}

type mockEventReader struct {
	event *models.Event
	err   error
}

func (m *mockEventReader) FindByID(ctx context.Context, id string) (*models.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.event, nil
}

type mockAttendanceReader struct {
	attendance *models.Attendance
	err        error
}

func (m *mockAttendanceReader) FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.Attendance, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.attendance == nil {
		return nil, sql.ErrNoRows
	}
	return m.attendance, nil
}

func publishedEvent() *models.Event {
	now := time.Now().UTC()
	return &models.Event{
		ID:        "e1",
		Title:     "Launch Night",
		Status:    models.EventStatusPublished,
		StartTime: now.Add(time.Hour),
		EndTime:   now.Add(3 * time.Hour),
	}
}

func TestRegisterSuccess(t *testing.T) {
	repo := &mockRegistrationRepo{}
	events := &mockEventReader{event: publishedEvent()}
	audit := &mockAudit{}
	svc := NewRegistrationService(repo, events, &mockAttendanceReader{}, validator.New(), zap.NewNop(), audit)

	registration, err := svc.Register(context.Background(), "u1", RegisterRequest{EventID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusPending, registration.Status)
	assert.Equal(t, "u1", registration.UserID)
	require.NotNil(t, repo.created)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRegister, audit.logs[0].Action)
}

func TestRegisterEventNotPublished(t *testing.T) {
	event := publishedEvent()
	event.Status = models.EventStatusDraft
	svc := NewRegistrationService(&mockRegistrationRepo{}, &mockEventReader{event: event}, &mockAttendanceReader{}, validator.New(), zap.NewNop(), nil)

	_, err := svc.Register(context.Background(), "u1", RegisterRequest{EventID: "e1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestRegisterEventEnded(t *testing.T) {
	event := publishedEvent()
	event.StartTime = time.Now().UTC().Add(-3 * time.Hour)
	event.EndTime = time.Now().UTC().Add(-time.Hour)
	svc := NewRegistrationService(&mockRegistrationRepo{}, &mockEventReader{event: event}, &mockAttendanceReader{}, validator.New(), zap.NewNop(), nil)

	_, err := svc.Register(context.Background(), "u1", RegisterRequest{EventID: "e1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestRegisterDuplicateActive(t *testing.T) {
	repo := &mockRegistrationRepo{existing: &models.Registration{ID: "r1", Status: models.RegistrationStatusApproved}}
	svc := NewRegistrationService(repo, &mockEventReader{event: publishedEvent()}, &mockAttendanceReader{}, validator.New(), zap.NewNop(), nil)

	_, err := svc.Register(context.Background(), "u1", RegisterRequest{EventID: "e1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestRegisterAgainAfterCancellation(t *testing.T) {
	repo := &mockRegistrationRepo{existing: &models.Registration{ID: "r1", Status: models.RegistrationStatusCancelled}}
	svc := NewRegistrationService(repo, &mockEventReader{event: publishedEvent()}, &mockAttendanceReader{}, validator.New(), zap.NewNop(), nil)

	registration, err := svc.Register(context.Background(), "u1", RegisterRequest{EventID: "e1"})
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusPending, registration.Status)
}

func TestRegisterEventFull(t *testing.T) {
	repo := &mockRegistrationRepo{createErr: repository.ErrEventFull}
	svc := NewRegistrationService(repo, &mockEventReader{event: publishedEvent()}, &mockAttendanceReader{}, validator.New(), zap.NewNop(), nil)

	_, err := svc.Register(context.Background(), "u1", RegisterRequest{EventID: "e1"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Equal(t, "event is full", appErr.Message)
}

func TestRegisterRacedDuplicate(t *testing.T) {
	repo := &mockRegistrationRepo{createErr: repository.ErrDuplicate}
	svc := NewRegistrationService(repo, &mockEventReader{event: publishedEvent()}, &mockAttendanceReader{}, validator.New(), zap.NewNop(), nil)

	_, err := svc.Register(context.Background(), "u1", RegisterRequest{EventID: "e1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestUnregisterSuccess(t *testing.T) {
	repo := &mockRegistrationRepo{existing: &models.Registration{ID: "r1", EventID: "e1", UserID: "u1", Status: models.RegistrationStatusApproved}}
	svc := NewRegistrationService(repo, &mockEventReader{event: publishedEvent()}, &mockAttendanceReader{}, validator.New(), zap.NewNop(), nil)

	err := svc.Unregister(context.Background(), "e1", "u1")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusCancelled, repo.updated["r1"])
}

func TestUnregisterBlockedAfterCheckIn(t *testing.T) {
	repo := &mockRegistrationRepo{existing: &models.Registration{ID: "r1", Status: models.RegistrationStatusAttended}}
	in := time.Now().UTC()
	attendances := &mockAttendanceReader{attendance: &models.Attendance{ID: "a1", CheckInTime: &in}}
	svc := NewRegistrationService(repo, &mockEventReader{event: publishedEvent()}, attendances, validator.New(), zap.NewNop(), nil)

	err := svc.Unregister(context.Background(), "e1", "u1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Equal(t, "cannot unregister after checking in", appErr.Message)
	assert.Empty(t, repo.updated)
}

func TestUnregisterBlockedAfterCheckOut(t *testing.T) {
	repo := &mockRegistrationRepo{existing: &models.Registration{ID: "r1", Status: models.RegistrationStatusAttended}}
	in := time.Now().UTC().Add(-2 * time.Hour)
	out := time.Now().UTC()
	attendances := &mockAttendanceReader{attendance: &models.Attendance{
		ID:           "a1",
		Status:       models.AttendanceStatusCheckedOut,
		CheckInTime:  &in,
		CheckOutTime: &out,
	}}
	svc := NewRegistrationService(repo, &mockEventReader{event: publishedEvent()}, attendances, validator.New(), zap.NewNop(), nil)

	err := svc.Unregister(context.Background(), "e1", "u1")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
	assert.Equal(t, "cannot unregister after checking in", appErr.Message)
	assert.Empty(t, repo.updated)
}

func TestUnregisterAlreadyCancelled(t *testing.T) {
	repo := &mockRegistrationRepo{existing: &models.Registration{ID: "r1", Status: models.RegistrationStatusCancelled}}
	svc := NewRegistrationService(repo, &mockEventReader{event: publishedEvent()}, &mockAttendanceReader{}, validator.New(), zap.NewNop(), nil)

	err := svc.Unregister(context.Background(), "e1", "u1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
}

func TestApprovePendingRegistration(t *testing.T) {
	repo := &mockRegistrationRepo{byID: &models.Registration{ID: "r1", Status: models.RegistrationStatusPending}}
	svc := NewRegistrationService(repo, &mockEventReader{}, &mockAttendanceReader{}, validator.New(), zap.NewNop(), nil)

	registration, err := svc.Approve(context.Background(), "r1", "admin")
	require.NoError(t, err)
	assert.Equal(t, models.RegistrationStatusApproved, registration.Status)
	assert.Equal(t, models.RegistrationStatusApproved, repo.updated["r1"])
}

func TestRejectTerminalRegistration(t *testing.T) {
	repo := &mockRegistrationRepo{byID: &models.Registration{ID: "r1", Status: models.RegistrationStatusRejected}}
	svc := NewRegistrationService(repo, &mockEventReader{}, &mockAttendanceReader{}, validator.New(), zap.NewNop(), nil)

	_, err := svc.Reject(context.Background(), "r1", "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.updated)
}
