package models

import (
	"errors"
	"time"
)

// ErrStaleAttendanceDate is returned when an attendance date precedes the
// recorded last attendance date. Such updates are rejected instead of
// silently rewinding the streak.
var ErrStaleAttendanceDate = errors.New("attendance date precedes last recorded attendance")

// Streak tracks consecutive attendance days for a single user.
type Streak struct {
	ID                 string     `db:"id" json:"id"`
	UserID             string     `db:"user_id" json:"user_id"`
	CurrentStreak      int        `db:"current_streak" json:"current_streak"`
	LongestStreak      int        `db:"longest_streak" json:"longest_streak"`
	LastAttendanceDate *time.Time `db:"last_attendance_date" json:"last_attendance_date,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// DateOnly truncates a timestamp to midnight UTC, discarding time of day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Advance applies a single attendance day to the streak:
// first attendance starts at 1, a consecutive day increments, a gap of more
// than one day resets to 1, and a repeat of the same day is a no-op.
func (s *Streak) Advance(day time.Time) error {
	day = DateOnly(day)

	if s.LastAttendanceDate == nil {
		s.CurrentStreak = 1
	} else {
		last := DateOnly(*s.LastAttendanceDate)
		gap := int(day.Sub(last).Hours() / 24)
		switch {
		case gap < 0:
			return ErrStaleAttendanceDate
		case gap == 0:
			return nil
		case gap == 1:
			s.CurrentStreak++
		default:
			s.CurrentStreak = 1
		}
	}

	if s.CurrentStreak > s.LongestStreak {
		s.LongestStreak = s.CurrentStreak
	}
	s.LastAttendanceDate = &day
	return nil
}

// IsActive reports whether the streak can still be extended today, i.e. the
// last attendance was today or yesterday.
func (s *Streak) IsActive(today time.Time) bool {
	if s.LastAttendanceDate == nil {
		return false
	}
	gap := int(DateOnly(today).Sub(DateOnly(*s.LastAttendanceDate)).Hours() / 24)
	return gap == 0 || gap == 1
}

// StreakDetail enriches Streak with owner info for leaderboards.
type StreakDetail struct {
	Streak
	UserName string `db:"user_name" json:"user_name"`
}
