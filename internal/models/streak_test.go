package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStreakAdvanceFirstAttendance(t *testing.T) {
	s := &Streak{UserID: "u1"}

	err := s.Advance(day("2026-03-10"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.LongestStreak)
	require.NotNil(t, s.LastAttendanceDate)
	assert.Equal(t, day("2026-03-10"), *s.LastAttendanceDate)
}

func TestStreakAdvanceConsecutiveDay(t *testing.T) {
	last := day("2026-03-10")
	s := &Streak{CurrentStreak: 3, LongestStreak: 5, LastAttendanceDate: &last}

	err := s.Advance(day("2026-03-11"))
	require.NoError(t, err)
	assert.Equal(t, 4, s.CurrentStreak)
	assert.Equal(t, 5, s.LongestStreak)
}

func TestStreakAdvanceSameDayIsNoop(t *testing.T) {
	last := day("2026-03-10")
	s := &Streak{CurrentStreak: 3, LongestStreak: 3, LastAttendanceDate: &last}

	err := s.Advance(day("2026-03-10"))
	require.NoError(t, err)
	assert.Equal(t, 3, s.CurrentStreak)
	assert.Equal(t, day("2026-03-10"), *s.LastAttendanceDate)
}

func TestStreakAdvanceGapResets(t *testing.T) {
	last := day("2026-03-10")
	s := &Streak{CurrentStreak: 7, LongestStreak: 7, LastAttendanceDate: &last}

	err := s.Advance(day("2026-03-15"))
	require.NoError(t, err)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 7, s.LongestStreak, "longest survives a reset")
}

func TestStreakAdvanceRejectsStaleDate(t *testing.T) {
	last := day("2026-03-10")
	s := &Streak{CurrentStreak: 2, LongestStreak: 2, LastAttendanceDate: &last}

	err := s.Advance(day("2026-03-09"))
	require.ErrorIs(t, err, ErrStaleAttendanceDate)
	assert.Equal(t, 2, s.CurrentStreak)
	assert.Equal(t, day("2026-03-10"), *s.LastAttendanceDate)
}

func TestStreakAdvanceUpdatesLongest(t *testing.T) {
	last := day("2026-03-10")
	s := &Streak{CurrentStreak: 5, LongestStreak: 5, LastAttendanceDate: &last}

	err := s.Advance(day("2026-03-11"))
	require.NoError(t, err)
	assert.Equal(t, 6, s.CurrentStreak)
	assert.Equal(t, 6, s.LongestStreak)
}

func TestStreakAdvanceIgnoresTimeOfDay(t *testing.T) {
	s := &Streak{}
	require.NoError(t, s.Advance(time.Date(2026, 3, 10, 23, 55, 0, 0, time.UTC)))
	require.NoError(t, s.Advance(time.Date(2026, 3, 11, 0, 5, 0, 0, time.UTC)))
	assert.Equal(t, 2, s.CurrentStreak)
}

func TestStreakIsActive(t *testing.T) {
	today := day("2026-03-12")

	s := &Streak{}
	assert.False(t, s.IsActive(today))

	last := day("2026-03-12")
	s.LastAttendanceDate = &last
	assert.True(t, s.IsActive(today))

	yesterday := day("2026-03-11")
	s.LastAttendanceDate = &yesterday
	assert.True(t, s.IsActive(today))

	stale := day("2026-03-09")
	s.LastAttendanceDate = &stale
	assert.False(t, s.IsActive(today))
}
