package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/hpnhann/event-planner-backend/internal/models"
	appErrors "github.com/hpnhann/event-planner-backend/pkg/errors"
)

type dashboardRepository interface {
	Summary(ctx context.Context) (*models.DashboardSummary, error)
}

type dashboardStreakReader interface {
	Leaderboard(ctx context.Context) ([]models.StreakDetail, error)
}

// DashboardConfig tunes dashboard caching.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

const dashboardCacheKey = "dashboard:summary"

// DashboardService builds the aggregated admin dashboard.
type DashboardService struct {
	repo    dashboardRepository
	streaks dashboardStreakReader
	cache   streakCache
	metrics *MetricsService
	logger  *zap.Logger
	config  DashboardConfig
}

// NewDashboardService creates an instance of DashboardService.
func NewDashboardService(repo dashboardRepository, streaks dashboardStreakReader, cache streakCache, metrics *MetricsService, logger *zap.Logger, config DashboardConfig) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = time.Minute
	}
	return &DashboardService{repo: repo, streaks: streaks, cache: cache, metrics: metrics, logger: logger, config: config}
}

// Summary returns the dashboard aggregate, served from cache when warm.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	if !s.config.Enabled {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "dashboard is disabled")
	}

	if s.cache != nil {
		var cached models.DashboardSummary
		if err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil {
			s.metrics.RecordCacheOperation(true)
			return &cached, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("dashboard cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	summary, err := s.repo.Summary(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build dashboard summary")
	}

	if s.streaks != nil {
		topStreaks, err := s.streaks.Leaderboard(ctx)
		if err != nil {
			s.logger.Warn("failed to load dashboard leaderboard", zap.Error(err))
		} else {
			summary.TopStreaks = topStreaks
		}
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.config.CacheTTL); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, nil
}
