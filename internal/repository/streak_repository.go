package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hpnhann/event-planner-backend/internal/models"
)

// StreakRepository handles persistence of attendance streaks.
type StreakRepository struct {
	db *sqlx.DB
}

// NewStreakRepository constructs the repository.
func NewStreakRepository(db *sqlx.DB) *StreakRepository {
	return &StreakRepository{db: db}
}

const streakColumns = `s.id, s.user_id, s.current_streak, s.longest_streak, s.last_attendance_date, s.created_at, s.updated_at`

// FindByUser returns the streak row for a user.
func (r *StreakRepository) FindByUser(ctx context.Context, userID string) (*models.Streak, error) {
	query := fmt.Sprintf(`SELECT %s FROM streaks s WHERE s.user_id = $1 LIMIT 1`, streakColumns)
	var streak models.Streak
	if err := r.db.GetContext(ctx, &streak, query, userID); err != nil {
		return nil, err
	}
	return &streak, nil
}

// GetOrCreate returns the streak for a user, lazily creating a zeroed row.
func (r *StreakRepository) GetOrCreate(ctx context.Context, userID string) (*models.Streak, error) {
	now := time.Now().UTC()
	const insert = `INSERT INTO streaks (id, user_id, current_streak, longest_streak, created_at, updated_at)
        VALUES ($1, $2, 0, 0, $3, $3) ON CONFLICT (user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, insert, uuid.NewString(), userID, now); err != nil {
		return nil, fmt.Errorf("ensure streak row: %w", err)
	}
	return r.FindByUser(ctx, userID)
}

// Advance applies an attendance day to the user's streak inside a single
// transaction. The row is locked with FOR UPDATE so concurrent check-ins by
// the same user on the same day cannot double-increment.
func (r *StreakRepository) Advance(ctx context.Context, userID string, day time.Time) (*models.Streak, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin streak tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	const insert = `INSERT INTO streaks (id, user_id, current_streak, longest_streak, created_at, updated_at)
        VALUES ($1, $2, 0, 0, $3, $3) ON CONFLICT (user_id) DO NOTHING`
	if _, err := tx.ExecContext(ctx, insert, uuid.NewString(), userID, now); err != nil {
		return nil, fmt.Errorf("ensure streak row: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM streaks s WHERE s.user_id = $1 FOR UPDATE`, streakColumns)
	var streak models.Streak
	if err := tx.GetContext(ctx, &streak, query, userID); err != nil {
		return nil, fmt.Errorf("lock streak row: %w", err)
	}

	if err := streak.Advance(day); err != nil {
		return nil, err
	}

	const update = `UPDATE streaks SET current_streak = $2, longest_streak = $3, last_attendance_date = $4, updated_at = $5 WHERE id = $1`
	if _, err := tx.ExecContext(ctx, update, streak.ID, streak.CurrentStreak, streak.LongestStreak, streak.LastAttendanceDate, now); err != nil {
		return nil, fmt.Errorf("update streak: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit streak tx: %w", err)
	}
	streak.UpdatedAt = now
	return &streak, nil
}

// Reset zeroes the current streak and clears the last attendance date while
// preserving the longest streak.
func (r *StreakRepository) Reset(ctx context.Context, userID string) error {
	const query = `UPDATE streaks SET current_streak = 0, last_attendance_date = NULL, updated_at = $2 WHERE user_id = $1`
	res, err := r.db.ExecContext(ctx, query, userID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("reset streak: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Leaderboard returns the top streaks ordered by longest then current.
func (r *StreakRepository) Leaderboard(ctx context.Context, limit int) ([]models.StreakDetail, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s, COALESCE(u.full_name, '') AS user_name
        FROM streaks s LEFT JOIN users u ON u.id = s.user_id
        ORDER BY s.longest_streak DESC, s.current_streak DESC LIMIT %d`, streakColumns, limit)
	var streaks []models.StreakDetail
	if err := r.db.SelectContext(ctx, &streaks, query); err != nil {
		return nil, fmt.Errorf("streak leaderboard: %w", err)
	}
	return streaks, nil
}

// List returns all streaks ordered by current streak with total count.
func (r *StreakRepository) List(ctx context.Context, page, pageSize int) ([]models.StreakDetail, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT %s, COALESCE(u.full_name, '') AS user_name
        FROM streaks s LEFT JOIN users u ON u.id = s.user_id
        ORDER BY s.current_streak DESC LIMIT %d OFFSET %d`, streakColumns, pageSize, offset)
	var streaks []models.StreakDetail
	if err := r.db.SelectContext(ctx, &streaks, query); err != nil {
		return nil, 0, fmt.Errorf("list streaks: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM streaks`); err != nil {
		return nil, 0, fmt.Errorf("count streaks: %w", err)
	}
	return streaks, total, nil
}
