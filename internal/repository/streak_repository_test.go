package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streakRows(current, longest int, last interface{}, now time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "current_streak", "longest_streak", "last_attendance_date", "created_at", "updated_at"}).
		AddRow("s1", "u1", current, longest, last, now, now)
}

func TestStreakAdvanceConsecutive(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStreakRepository(db)

	now := time.Now().UTC()
	last := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO streaks").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT s.id, s.user_id, s.current_streak, s.longest_streak, s.last_attendance_date, s.created_at, s.updated_at FROM streaks s WHERE s.user_id = $1 FOR UPDATE")).
		WithArgs("u1").
		WillReturnRows(streakRows(2, 4, last, now))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE streaks SET current_streak = $2, longest_streak = $3, last_attendance_date = $4, updated_at = $5 WHERE id = $1")).
		WithArgs("s1", 3, 4, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	streak, err := repo.Advance(context.Background(), "u1", time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 3, streak.CurrentStreak)
	assert.Equal(t, 4, streak.LongestStreak)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreakAdvanceGapReset(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStreakRepository(db)

	now := time.Now().UTC()
	last := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO streaks").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM streaks s WHERE s.user_id = (.+) FOR UPDATE").
		WithArgs("u1").
		WillReturnRows(streakRows(6, 6, last, now))
	mock.ExpectExec("UPDATE streaks SET current_streak").
		WithArgs("s1", 1, 6, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	streak, err := repo.Advance(context.Background(), "u1", time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, streak.CurrentStreak)
	assert.Equal(t, 6, streak.LongestStreak)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreakReset(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStreakRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE streaks SET current_streak = 0, last_attendance_date = NULL, updated_at = $2 WHERE user_id = $1")).
		WithArgs("u1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Reset(context.Background(), "u1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreakResetUnknownUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStreakRepository(db)

	mock.ExpectExec("UPDATE streaks SET current_streak").
		WithArgs("missing", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reset(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStreakLeaderboard(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewStreakRepository(db)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"id", "user_id", "current_streak", "longest_streak", "last_attendance_date", "created_at", "updated_at", "user_name"}).
		AddRow("s1", "u1", 5, 9, now, now, now, "Alice").
		AddRow("s2", "u2", 7, 7, now, now, now, "Bob")
	mock.ExpectQuery("ORDER BY s.longest_streak DESC, s.current_streak DESC LIMIT 10").
		WillReturnRows(rows)

	streaks, err := repo.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, streaks, 2)
	assert.Equal(t, "Alice", streaks[0].UserName)
	assert.Equal(t, 9, streaks[0].LongestStreak)
	assert.NoError(t, mock.ExpectationsWereMet())
}
