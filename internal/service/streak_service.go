package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hpnhann/event-planner-backend/internal/models"
	appErrors "github.com/hpnhann/event-planner-backend/pkg/errors"
)

type streakRepository interface {
	FindByUser(ctx context.Context, userID string) (*models.Streak, error)
	GetOrCreate(ctx context.Context, userID string) (*models.Streak, error)
	Advance(ctx context.Context, userID string, day time.Time) (*models.Streak, error)
	Reset(ctx context.Context, userID string) error
	Leaderboard(ctx context.Context, limit int) ([]models.StreakDetail, error)
	List(ctx context.Context, page, pageSize int) ([]models.StreakDetail, int, error)
}

type streakCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// StreakConfig tunes leaderboard behaviour.
type StreakConfig struct {
	LeaderboardSize     int
	LeaderboardCacheTTL time.Duration
}

const streakLeaderboardCacheKey = "streaks:leaderboard"

// StreakService exposes attendance streak queries and administration.
type StreakService struct {
	repo   streakRepository
	cache  streakCache
	logger *zap.Logger
	audit  auditRecorder
	config StreakConfig
}

// NewStreakService creates an instance of StreakService.
func NewStreakService(repo streakRepository, cache streakCache, logger *zap.Logger, audit auditRecorder, config StreakConfig) *StreakService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.LeaderboardSize <= 0 {
		config.LeaderboardSize = 10
	}
	if config.LeaderboardCacheTTL <= 0 {
		config.LeaderboardCacheTTL = 5 * time.Minute
	}
	return &StreakService{repo: repo, cache: cache, logger: logger, audit: audit, config: config}
}

// GetForUser returns the streak for a user, creating a zeroed record the
// first time the user is seen.
func (s *StreakService) GetForUser(ctx context.Context, userID string) (*models.Streak, error) {
	streak, err := s.repo.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load streak")
	}
	return streak, nil
}

// Advance applies an attendance day to the user's streak. Called by the
// attendance flow on every successful check-in.
func (s *StreakService) Advance(ctx context.Context, userID string, day time.Time) (*models.Streak, error) {
	streak, err := s.repo.Advance(ctx, userID, day)
	if err != nil {
		if errors.Is(err, models.ErrStaleAttendanceDate) {
			return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "attendance date precedes last recorded attendance")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to advance streak")
	}

	s.invalidateLeaderboard(ctx)
	return streak, nil
}

// Reset zeroes a user's current streak while preserving the longest streak.
func (s *StreakService) Reset(ctx context.Context, userID string, actorID string) error {
	if err := s.repo.Reset(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "streak not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset streak")
	}

	s.invalidateLeaderboard(ctx)

	if s.audit != nil {
		s.audit.Record(ctx, &models.AuditLog{
			UserID:     &actorID,
			Action:     models.AuditActionStreakReset,
			Resource:   "streaks",
			ResourceID: &userID,
			NewValues:  []byte(`{"current_streak":0}`),
		})
	}
	return nil
}

// Leaderboard returns the top streaks, served from cache when warm.
func (s *StreakService) Leaderboard(ctx context.Context) ([]models.StreakDetail, error) {
	if s.cache != nil {
		var cached []models.StreakDetail
		if err := s.cache.Get(ctx, streakLeaderboardCacheKey, &cached); err == nil {
			return cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("leaderboard cache read failed", zap.Error(err))
		}
	}

	leaderboard, err := s.repo.Leaderboard(ctx, s.config.LeaderboardSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leaderboard")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, streakLeaderboardCacheKey, leaderboard, s.config.LeaderboardCacheTTL); err != nil {
			s.logger.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return leaderboard, nil
}

// List returns all streaks with pagination for administrative views.
func (s *StreakService) List(ctx context.Context, page, pageSize int) ([]models.StreakDetail, *models.Pagination, error) {
	streaks, total, err := s.repo.List(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list streaks")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	return streaks, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

func (s *StreakService) invalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, streakLeaderboardCacheKey); err != nil {
		s.logger.Warn("failed to invalidate leaderboard cache", zap.Error(err))
	}
}
