package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hpnhann/event-planner-backend/internal/models"
	"github.com/hpnhann/event-planner-backend/internal/repository"
	appErrors "github.com/hpnhann/event-planner-backend/pkg/errors"
	"github.com/hpnhann/event-planner-backend/pkg/export"
)

type attendanceRepository interface {
	Create(ctx context.Context, attendance *models.Attendance) error
	FindByID(ctx context.Context, id string) (*models.Attendance, error)
	FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.Attendance, error)
	SetCheckOut(ctx context.Context, id string, ts time.Time) error
	OverrideStatus(ctx context.Context, id string, status models.AttendanceStatus, clearTimes bool) error
	ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceDetail, error)
	ListByUser(ctx context.Context, userID string) ([]models.AttendanceDetail, error)
	EventStats(ctx context.Context, eventID string) (*models.EventAttendanceStats, error)
}

type attendanceRegistrationStore interface {
	FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.Registration, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error
}

type streakAdvancer interface {
	Advance(ctx context.Context, userID string, day time.Time) (*models.Streak, error)
}

// AttendanceConfig tunes check-in behaviour.
type AttendanceConfig struct {
	// CheckInWindow is how long before the event start check-in opens.
	CheckInWindow time.Duration
}

// AttendanceService handles check-in, check-out and attendance amendments.
type AttendanceService struct {
	repo          attendanceRepository
	registrations attendanceRegistrationStore
	events        registrationEventReader
	streaks       streakAdvancer
	csv           *export.CSVExporter
	pdf           *export.PDFExporter
	validator     *validator.Validate
	logger        *zap.Logger
	audit         auditRecorder
	config        AttendanceConfig
}

// NewAttendanceService creates an instance of AttendanceService.
func NewAttendanceService(repo attendanceRepository, registrations attendanceRegistrationStore, events registrationEventReader, streaks streakAdvancer, validate *validator.Validate, logger *zap.Logger, audit auditRecorder, config AttendanceConfig) *AttendanceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if config.CheckInWindow <= 0 {
		config.CheckInWindow = 30 * time.Minute
	}
	return &AttendanceService{
		repo:          repo,
		registrations: registrations,
		events:        events,
		streaks:       streaks,
		csv:           export.NewCSVExporter(),
		pdf:           export.NewPDFExporter(),
		validator:     validate,
		logger:        logger,
		audit:         audit,
		config:        config,
	}
}

// CheckIn records a user's arrival at an event. Check-in opens a configurable
// window before the event starts and closes when the event ends. The user
// must hold an approved or pending registration; on success the registration
// is marked ATTENDED and the user's attendance streak is advanced. A streak
// failure is logged but never fails the check-in.
func (s *AttendanceService) CheckIn(ctx context.Context, eventID, userID string) (*models.Attendance, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	if !event.IsPublished() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "event is not open for check-in")
	}

	now := time.Now().UTC()
	opensAt := event.StartTime.Add(-s.config.CheckInWindow)
	if now.Before(opensAt) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "check-in has not opened yet")
	}
	if now.After(event.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "check-in has closed")
	}

	registration, err := s.registrations.FindByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no registration for this event")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if !registration.Status.Active() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "registration is not active")
	}

	attendance := &models.Attendance{
		ID:          uuid.NewString(),
		EventID:     eventID,
		UserID:      userID,
		Status:      models.AttendanceStatusCheckedIn,
		CheckInTime: &now,
	}

	if err := s.repo.Create(ctx, attendance); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already checked in")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-in")
	}

	if registration.Status.CanTransitionTo(models.RegistrationStatusAttended) {
		if err := s.registrations.UpdateStatus(ctx, registration.ID, models.RegistrationStatusAttended); err != nil {
			s.logger.Warn("failed to mark registration attended",
				zap.String("registration_id", registration.ID), zap.Error(err))
		}
	}

	if s.streaks != nil {
		if _, err := s.streaks.Advance(ctx, userID, now); err != nil {
			s.logger.Warn("failed to advance attendance streak",
				zap.String("user_id", userID), zap.Error(err))
		}
	}

	s.recordAttendanceAudit(ctx, userID, models.AuditActionCheckIn, attendance)
	return attendance, nil
}

// CheckOut records a user's departure. Check-out requires a prior check-in.
func (s *AttendanceService) CheckOut(ctx context.Context, eventID, userID string) (*models.Attendance, error) {
	attendance, err := s.repo.FindByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "check-in required before check-out")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	if attendance.CheckInTime == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "check-in required before check-out")
	}
	if attendance.CheckOutTime != nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "already checked out")
	}

	now := time.Now().UTC()
	if err := s.repo.SetCheckOut(ctx, attendance.ID, now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record check-out")
	}

	attendance.CheckOutTime = &now
	attendance.Status = models.AttendanceStatusCheckedOut

	s.recordAttendanceAudit(ctx, userID, models.AuditActionCheckOut, attendance)
	return attendance, nil
}

// Amend lets an organizer override an attendance status, e.g. marking a user
// LATE or ABSENT. Moving back to REGISTERED clears the recorded timestamps.
func (s *AttendanceService) Amend(ctx context.Context, id string, status models.AttendanceStatus, actorID string) (*models.Attendance, error) {
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}

	attendance, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}

	clearTimes := status == models.AttendanceStatusRegistered || status == models.AttendanceStatusAbsent
	if err := s.repo.OverrideStatus(ctx, id, status, clearTimes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to amend attendance")
	}

	attendance.Status = status
	if clearTimes {
		attendance.CheckInTime = nil
		attendance.CheckOutTime = nil
	}

	s.recordAttendanceAudit(ctx, actorID, models.AuditActionAttendanceAmend, attendance)
	return attendance, nil
}

// ListByEvent returns all attendance records for an event.
func (s *AttendanceService) ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceDetail, error) {
	records, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// ListByUser returns a user's attendance history.
func (s *AttendanceService) ListByUser(ctx context.Context, userID string) ([]models.AttendanceDetail, error) {
	records, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// Stats summarises attendance counts for an event.
func (s *AttendanceService) Stats(ctx context.Context, eventID string) (*models.EventAttendanceStats, error) {
	stats, err := s.repo.EventStats(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute attendance stats")
	}
	return stats, nil
}

// ExportEventSheet renders the attendance list for an event as CSV or PDF.
func (s *AttendanceService) ExportEventSheet(ctx context.Context, eventID, format string) ([]byte, string, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	records, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}

	sheet := export.Sheet{
		Headers: []string{"Name", "Email", "Status", "Check In", "Check Out"},
		Rows:    make([][]string, 0, len(records)),
	}
	for _, record := range records {
		sheet.Rows = append(sheet.Rows, []string{
			record.UserName,
			record.UserEmail,
			string(record.Status),
			formatTimestamp(record.CheckInTime),
			formatTimestamp(record.CheckOutTime),
		})
	}

	switch format {
	case "csv", "":
		payload, err := s.csv.Render(sheet)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(sheet, "Attendance: "+event.Title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *AttendanceService) recordAttendanceAudit(ctx context.Context, actorID, action string, attendance *models.Attendance) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"event_id": attendance.EventID, "status": attendance.Status})
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "attendances",
		ResourceID: &attendance.ID,
		NewValues:  payload,
	})
}

func formatTimestamp(ts *time.Time) string {
	if ts == nil {
		return ""
	}
	return ts.UTC().Format(time.RFC3339)
}
