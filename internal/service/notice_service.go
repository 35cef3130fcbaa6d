package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hpnhann/event-planner-backend/internal/models"
	appErrors "github.com/hpnhann/event-planner-backend/pkg/errors"
)

type noticeRepository interface {
	FindByID(ctx context.Context, id string) (*models.Notice, error)
	List(ctx context.Context, filter models.NoticeFilter) ([]models.Notice, int, error)
	Create(ctx context.Context, notice *models.Notice) error
	Update(ctx context.Context, notice *models.Notice) error
	UpdateStatus(ctx context.Context, id string, status models.NoticeStatus, publishedAt *time.Time) error
	Delete(ctx context.Context, id string) error
}

// CreateNoticeRequest represents payload for creating a notice.
type CreateNoticeRequest struct {
	Title   string            `json:"title" validate:"required,min=3,max=200"`
	Content string            `json:"content" validate:"required"`
	Type    models.NoticeType `json:"type" validate:"required,oneof=GENERAL URGENT EVENT ACADEMIC"`
}

// UpdateNoticeRequest represents payload for updating a notice.
type UpdateNoticeRequest struct {
	Title   string            `json:"title" validate:"required,min=3,max=200"`
	Content string            `json:"content" validate:"required"`
	Type    models.NoticeType `json:"type" validate:"required,oneof=GENERAL URGENT EVENT ACADEMIC"`
}

// NoticeService handles announcement workflows.
type NoticeService struct {
	repo      noticeRepository
	validator *validator.Validate
	logger    *zap.Logger
	audit     auditRecorder
}

// NewNoticeService creates an instance of NoticeService.
func NewNoticeService(repo noticeRepository, validate *validator.Validate, logger *zap.Logger, audit auditRecorder) *NoticeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &NoticeService{repo: repo, validator: validate, logger: logger, audit: audit}
}

// List returns paginated notices matching the filter. Unprivileged callers
// see published notices only, whatever status filter they supplied.
func (s *NoticeService) List(ctx context.Context, filter models.NoticeFilter, privileged bool) ([]models.Notice, *models.Pagination, error) {
	if !privileged {
		filter.Status = models.NoticeStatusPublished
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown notice status")
	}
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown notice type")
	}

	notices, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notices")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	return notices, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a single notice. Drafts and archived notices stay hidden from
// unprivileged callers, indistinguishable from a missing row.
func (s *NoticeService) Get(ctx context.Context, id string, privileged bool) (*models.Notice, error) {
	notice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load notice")
	}
	if !privileged && notice.Status != models.NoticeStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
	}
	return notice, nil
}

// Create adds a new notice in DRAFT status.
func (s *NoticeService) Create(ctx context.Context, req CreateNoticeRequest, actorID string) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create notice payload")
	}

	notice := &models.Notice{
		Title:     req.Title,
		Content:   req.Content,
		Type:      req.Type,
		Status:    models.NoticeStatusDraft,
		CreatedBy: actorID,
	}

	if err := s.repo.Create(ctx, notice); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create notice")
	}
	return notice, nil
}

// Update modifies a notice's content. Archived notices are immutable.
func (s *NoticeService) Update(ctx context.Context, id string, req UpdateNoticeRequest, actorID string) (*models.Notice, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid update notice payload")
	}

	notice, err := s.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if notice.Status == models.NoticeStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "archived notices cannot be edited")
	}

	notice.Title = req.Title
	notice.Content = req.Content
	notice.Type = req.Type

	if err := s.repo.Update(ctx, notice); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update notice")
	}
	return notice, nil
}

// Publish moves a DRAFT notice to PUBLISHED and stamps its publication time.
func (s *NoticeService) Publish(ctx context.Context, id string, actorID string) (*models.Notice, error) {
	notice, err := s.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if notice.Status != models.NoticeStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only draft notices can be published")
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateStatus(ctx, id, models.NoticeStatusPublished, &now); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish notice")
	}

	notice.Status = models.NoticeStatusPublished
	notice.PublishedAt = &now

	if s.audit != nil {
		payload, _ := json.Marshal(map[string]interface{}{"title": notice.Title})
		s.audit.Record(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionNoticePublish,
			Resource:   "notices",
			ResourceID: &notice.ID,
			NewValues:  payload,
		})
	}
	return notice, nil
}

// Archive moves a PUBLISHED notice to its terminal ARCHIVED state.
func (s *NoticeService) Archive(ctx context.Context, id string, actorID string) (*models.Notice, error) {
	notice, err := s.Get(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if notice.Status != models.NoticeStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, "only published notices can be archived")
	}

	if err := s.repo.UpdateStatus(ctx, id, models.NoticeStatusArchived, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive notice")
	}

	notice.Status = models.NoticeStatusArchived
	return notice, nil
}

// Delete removes a notice.
func (s *NoticeService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "notice not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete notice")
	}
	return nil
}
