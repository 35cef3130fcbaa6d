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
	appErrors "github.com/hpnhann/event-planner-backend/pkg/errors"
)

type eventRepository interface {
	List(ctx context.Context, filter models.EventFilter) ([]models.EventDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Event, error)
	FindDetailByID(ctx context.Context, id string) (*models.EventDetail, error)
	Create(ctx context.Context, event *models.Event) error
	Update(ctx context.Context, event *models.Event) error
	UpdateStatus(ctx context.Context, id string, status models.EventStatus, publishedAt *time.Time) error
	Delete(ctx context.Context, id string) error
}

type eventCacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// CreateEventRequest represents payload for creating an event.
type CreateEventRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description string  `json:"description"`
	Location    string  `json:"location" validate:"required"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	Capacity    *int    `json:"capacity"`
	ImageURL    *string `json:"image_url"`
}

// UpdateEventRequest represents payload for updating an event.
type UpdateEventRequest struct {
	Title       string  `json:"title" validate:"required,min=3,max=200"`
	Description string  `json:"description"`
	Location    string  `json:"location" validate:"required"`
	StartTime   string  `json:"start_time" validate:"required"`
	EndTime     string  `json:"end_time" validate:"required"`
	Capacity    *int    `json:"capacity"`
	ImageURL    *string `json:"image_url"`
}

// EventService handles event lifecycle workflows.
type EventService struct {
	repo      eventRepository
	cache     eventCacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	audit     auditRecorder
}

// NewEventService creates an instance of EventService.
func NewEventService(repo eventRepository, cache eventCacheInvalidator, validate *validator.Validate, logger *zap.Logger, audit auditRecorder) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &EventService{repo: repo, cache: cache, validator: validate, logger: logger, audit: audit}
}

// List returns paginated events matching the filter.
func (s *EventService) List(ctx context.Context, filter models.EventFilter) ([]models.EventDetail, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown event status")
	}

	events, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list events")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return events, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a single event with creator and registration info.
func (s *EventService) Get(ctx context.Context, id string) (*models.EventDetail, error) {
	event, err := s.repo.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// Create adds a new event in DRAFT status.
func (s *EventService) Create(ctx context.Context, req CreateEventRequest, actorID string) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create event payload")
	}

	start, end, err := parseEventWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := validateCapacity(req.Capacity); err != nil {
		return nil, err
	}

	event := &models.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		StartTime:   start,
		EndTime:     end,
		Capacity:    req.Capacity,
		Status:      models.EventStatusDraft,
		ImageURL:    req.ImageURL,
		CreatedBy:   actorID,
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event")
	}

	s.recordEventAudit(ctx, actorID, models.AuditActionEventCreate, event)
	return event, nil
}

// Update modifies a DRAFT or PUBLISHED event. Completed and cancelled events
// are immutable.
func (s *EventService) Update(ctx context.Context, id string, req UpdateEventRequest, actorID string) (*models.Event, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update event payload")
	}

	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if event.Status == models.EventStatusCompleted || event.Status == models.EventStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "event can no longer be edited")
	}

	start, end, err := parseEventWindow(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}
	if err := validateCapacity(req.Capacity); err != nil {
		return nil, err
	}

	event.Title = req.Title
	event.Description = req.Description
	event.Location = req.Location
	event.StartTime = start
	event.EndTime = end
	event.Capacity = req.Capacity
	event.ImageURL = req.ImageURL

	if err := s.repo.Update(ctx, event); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}

	s.invalidateDashboards(ctx)
	s.recordEventAudit(ctx, actorID, models.AuditActionEventUpdate, event)
	return event, nil
}

// Publish moves a DRAFT event to PUBLISHED, opening it for registrations.
func (s *EventService) Publish(ctx context.Context, id string, actorID string) (*models.Event, error) {
	return s.transition(ctx, id, models.EventStatusPublished, actorID)
}

// Complete moves a PUBLISHED event to its terminal COMPLETED state.
func (s *EventService) Complete(ctx context.Context, id string, actorID string) (*models.Event, error) {
	return s.transition(ctx, id, models.EventStatusCompleted, actorID)
}

// Cancel moves a DRAFT or PUBLISHED event to its terminal CANCELLED state.
func (s *EventService) Cancel(ctx context.Context, id string, actorID string) (*models.Event, error) {
	return s.transition(ctx, id, models.EventStatusCancelled, actorID)
}

// Delete removes a DRAFT event. Other statuses must be cancelled instead so
// registration history is preserved.
func (s *EventService) Delete(ctx context.Context, id string, actorID string) error {
	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return err
	}

	if event.Status != models.EventStatusDraft {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "only draft events may be deleted")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}

	s.recordEventAudit(ctx, actorID, models.AuditActionEventStatus, event)
	return nil
}

func (s *EventService) transition(ctx context.Context, id string, target models.EventStatus, actorID string) (*models.Event, error) {
	event, err := s.loadEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	if !event.Status.CanTransitionTo(target) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot move event from "+string(event.Status)+" to "+string(target))
	}

	var publishedAt *time.Time
	if target == models.EventStatusPublished {
		now := time.Now().UTC()
		publishedAt = &now
	}

	if err := s.repo.UpdateStatus(ctx, id, target, publishedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event status")
	}

	event.Status = target
	if publishedAt != nil {
		event.PublishedAt = publishedAt
	}

	s.invalidateDashboards(ctx)
	s.recordEventAudit(ctx, actorID, models.AuditActionEventStatus, event)
	return event, nil
}

func (s *EventService) loadEvent(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

func (s *EventService) invalidateDashboards(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "dashboard:*"); err != nil {
		s.logger.Warn("failed to invalidate dashboard cache", zap.Error(err))
	}
}

func (s *EventService) recordEventAudit(ctx context.Context, actorID, action string, event *models.Event) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{"title": event.Title, "status": event.Status})
	s.audit.Record(ctx, &models.AuditLog{
		UserID:     &actorID,
		Action:     action,
		Resource:   "events",
		ResourceID: &event.ID,
		NewValues:  payload,
	})
}

func parseEventWindow(startRaw, endRaw string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, startRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "start_time must be RFC3339")
	}
	end, err := time.Parse(time.RFC3339, endRaw)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end_time must be RFC3339")
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end_time must be after start_time")
	}
	return start.UTC(), end.UTC(), nil
}

func validateCapacity(capacity *int) error {
	if capacity != nil && *capacity <= 0 {
		return appErrors.Clone(appErrors.ErrValidation, "capacity must be positive")
	}
	return nil
}
