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
)

type registrationRepository interface {
	CreateWithCapacityCheck(ctx context.Context, registration *models.Registration, capacity *int) error
	FindByID(ctx context.Context, id string) (*models.Registration, error)
	FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.Registration, error)
	List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error)
	UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error
}

type registrationEventReader interface {
	FindByID(ctx context.Context, id string) (*models.Event, error)
}

type registrationAttendanceReader interface {
	FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.Attendance, error)
}

// RegisterRequest represents payload for registering to an event.
type RegisterRequest struct {
	EventID string  `json:"event_id" validate:"required"`
	RoleID  *string `json:"role_id"`
	Notes   *string `json:"notes"`
}

// RegistrationService handles sign-up and moderation workflows.
type RegistrationService struct {
	repo        registrationRepository
	events      registrationEventReader
	attendances registrationAttendanceReader
	validator   *validator.Validate
	logger      *zap.Logger
	audit       auditRecorder
}

// NewRegistrationService creates an instance of RegistrationService.
func NewRegistrationService(repo registrationRepository, events registrationEventReader, attendances registrationAttendanceReader, validate *validator.Validate, logger *zap.Logger, audit auditRecorder) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &RegistrationService{
		repo:        repo,
		events:      events,
		attendances: attendances,
		validator:   validate,
		logger:      logger,
		audit:       audit,
	}
}

// Register signs a user up for a published event. The capacity check and the
// insert happen atomically in the repository so two racing registrations can
// never both take the last spot.
func (s *RegistrationService) Register(ctx context.Context, userID string, req RegisterRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	event, err := s.events.FindByID(ctx, req.EventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	if !event.IsPublished() {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "event is not open for registration")
	}
	if event.IsPast(time.Now().UTC()) {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "event has already ended")
	}

	if existing, err := s.repo.FindByEventAndUser(ctx, req.EventID, userID); err == nil {
		if existing.Status != models.RegistrationStatusCancelled && existing.Status != models.RegistrationStatusRejected {
			return nil, appErrors.Clone(appErrors.ErrConflict, "already registered for this event")
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing registration")
	}

	registration := &models.Registration{
		ID:      uuid.NewString(),
		EventID: req.EventID,
		UserID:  userID,
		Status:  models.RegistrationStatusPending,
		RoleID:  req.RoleID,
		Notes:   req.Notes,
	}

	if err := s.repo.CreateWithCapacityCheck(ctx, registration, event.Capacity); err != nil {
		switch {
		case errors.Is(err, repository.ErrEventFull):
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "event is full")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "already registered for this event")
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create registration")
		}
	}

	s.recordRegistrationAudit(ctx, userID, models.AuditActionRegister, registration)
	return registration, nil
}

// Unregister cancels the caller's own registration. Once the user has checked
// in the registration is locked and must be amended by an organizer.
func (s *RegistrationService) Unregister(ctx context.Context, eventID, userID string) error {
	registration, err := s.repo.FindByEventAndUser(ctx, eventID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	if !registration.Status.CanTransitionTo(models.RegistrationStatusCancelled) {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "registration can no longer be cancelled")
	}

	if attendance, err := s.attendances.FindByEventAndUser(ctx, eventID, userID); err == nil {
		// Any recorded check-in locks the registration, checked out or not.
		if attendance.CheckInTime != nil {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "cannot unregister after checking in")
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check attendance")
	}

	if err := s.repo.UpdateStatus(ctx, registration.ID, models.RegistrationStatusCancelled); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel registration")
	}

	registration.Status = models.RegistrationStatusCancelled
	s.recordRegistrationAudit(ctx, userID, models.AuditActionUnregister, registration)
	return nil
}

// Approve moves a pending registration to APPROVED.
func (s *RegistrationService) Approve(ctx context.Context, id string, actorID string) (*models.Registration, error) {
	return s.moderate(ctx, id, models.RegistrationStatusApproved, actorID)
}

// Reject moves a pending registration to its terminal REJECTED state.
func (s *RegistrationService) Reject(ctx context.Context, id string, actorID string) (*models.Registration, error) {
	return s.moderate(ctx, id, models.RegistrationStatusRejected, actorID)
}

// Cancel cancels a registration on behalf of an organizer.
func (s *RegistrationService) Cancel(ctx context.Context, id string, actorID string) (*models.Registration, error) {
	return s.moderate(ctx, id, models.RegistrationStatusCancelled, actorID)
}

// Get returns a registration by ID.
func (s *RegistrationService) Get(ctx context.Context, id string) (*models.Registration, error) {
	registration, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	return registration, nil
}

// List returns paginated registrations matching the filter.
func (s *RegistrationService) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown registration status")
	}

	registrations, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return registrations, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *RegistrationService) moderate(ctx context.Context, id string, target models.RegistrationStatus, actorID string) (*models.Registration, error) {
	registration, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registration not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}

	if !registration.Status.CanTransitionTo(target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move registration from "+string(registration.Status)+" to "+string(target))
	}

	if err := s.repo.UpdateStatus(ctx, id, target); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update registration status")
	}

	registration.Status = target
	s.recordRegistrationAudit(ctx, actorID, models.AuditActionRegistrationMod, registration)
	return registration, nil
}

func (s *RegistrationService) recordRegistrationAudit(ctx context.Context, actorID, action string, registration *models.Registration) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"event_id": registration.EventID, "status": registration.Status})
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "registrations",
		ResourceID: &registration.ID,
		NewValues:  payload,
	})
}
