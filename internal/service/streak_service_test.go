package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hpnhann/event-planner-backend/internal/models"
	appErrors "github.com/hpnhann/event-planner-backend/pkg/errors"
)

type mockStreakRepo struct {
	streak      *models.Streak
	advanceErr  error
	resetErr    error
	leaderboard []models.StreakDetail
	queries     int
}

func (m *mockStreakRepo) FindByUser(ctx context.Context, userID string) (*models.Streak, error) {
	if m.streak == nil {
		return nil, sql.ErrNoRows
	}
	return m.streak, nil
}

func (m *mockStreakRepo) GetOrCreate(ctx context.Context, userID string) (*models.Streak, error) {
	if m.streak == nil {
		m.streak = &models.Streak{ID: "s1", UserID: userID}
	}
	return m.streak, nil
}

func (m *mockStreakRepo) Advance(ctx context.Context, userID string, day time.Time) (*models.Streak, error) {
	if m.advanceErr != nil {
		return nil, m.advanceErr
	}
	if m.streak == nil {
		m.streak = &models.Streak{ID: "s1", UserID: userID}
	}
	if err := m.streak.Advance(day); err != nil {
		return nil, err
	}
	return m.streak, nil
}

func (m *mockStreakRepo) Reset(ctx context.Context, userID string) error {
	if m.resetErr != nil {
		return m.resetErr
	}
	if m.streak != nil {
		m.streak.CurrentStreak = 0
		m.streak.LastAttendanceDate = nil
	}
	return nil
}

func (m *mockStreakRepo) Leaderboard(ctx context.Context, limit int) ([]models.StreakDetail, error) {
	m.queries++
	return m.leaderboard, nil
}

func (m *mockStreakRepo) List(ctx context.Context, page, pageSize int) ([]models.StreakDetail, int, error) {
	return m.leaderboard, len(m.leaderboard), nil
}

// mockStreakCache is an in-memory stand-in for the Redis-backed cache.
type mockStreakCache struct {
	entries map[string][]byte
	deleted []string
}

func (m *mockStreakCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mockStreakCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *mockStreakCache) DeleteByPattern(ctx context.Context, pattern string) error {
	m.deleted = append(m.deleted, pattern)
	delete(m.entries, pattern)
	return nil
}

func TestStreakGetForUserCreatesRecord(t *testing.T) {
	repo := &mockStreakRepo{}
	svc := NewStreakService(repo, nil, zap.NewNop(), nil, StreakConfig{})

	streak, err := svc.GetForUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", streak.UserID)
	assert.Zero(t, streak.CurrentStreak)
}

func TestStreakAdvanceInvalidatesLeaderboard(t *testing.T) {
	repo := &mockStreakRepo{}
	cache := &mockStreakCache{entries: map[string][]byte{streakLeaderboardCacheKey: []byte("[]")}}
	svc := NewStreakService(repo, cache, zap.NewNop(), nil, StreakConfig{})

	streak, err := svc.Advance(context.Background(), "u1", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, 1, streak.CurrentStreak)
	assert.Contains(t, cache.deleted, streakLeaderboardCacheKey)
}

func TestStreakAdvanceRejectsStaleDate(t *testing.T) {
	repo := &mockStreakRepo{advanceErr: models.ErrStaleAttendanceDate}
	svc := NewStreakService(repo, nil, zap.NewNop(), nil, StreakConfig{})

	_, err := svc.Advance(context.Background(), "u1", time.Now().UTC())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestStreakResetNotFound(t *testing.T) {
	repo := &mockStreakRepo{resetErr: sql.ErrNoRows}
	svc := NewStreakService(repo, nil, zap.NewNop(), nil, StreakConfig{})

	err := svc.Reset(context.Background(), "missing", "admin")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestStreakResetAudited(t *testing.T) {
	last := time.Now().UTC()
	repo := &mockStreakRepo{streak: &models.Streak{ID: "s1", UserID: "u1", CurrentStreak: 4, LongestStreak: 9, LastAttendanceDate: &last}}
	audit := &mockAudit{}
	svc := NewStreakService(repo, nil, zap.NewNop(), audit, StreakConfig{})

	require.NoError(t, svc.Reset(context.Background(), "u1", "admin"))
	assert.Zero(t, repo.streak.CurrentStreak)
	assert.Equal(t, 9, repo.streak.LongestStreak)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionStreakReset, audit.logs[0].Action)
}

func TestStreakLeaderboardCaches(t *testing.T) {
	repo := &mockStreakRepo{leaderboard: []models.StreakDetail{
		{Streak: models.Streak{ID: "s1", UserID: "u1", CurrentStreak: 5, LongestStreak: 9}, UserName: "Alice"},
	}}
	cache := &mockStreakCache{}
	svc := NewStreakService(repo, cache, zap.NewNop(), nil, StreakConfig{LeaderboardSize: 10, LeaderboardCacheTTL: time.Minute})

	first, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, 1, repo.queries)

	second, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Alice", second[0].UserName)
	assert.Equal(t, 1, repo.queries, "second read served from cache")
}
