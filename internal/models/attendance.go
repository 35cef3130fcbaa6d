package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusRegistered AttendanceStatus = "REGISTERED"
	AttendanceStatusCheckedIn  AttendanceStatus = "CHECKED_IN"
	AttendanceStatusCheckedOut AttendanceStatus = "CHECKED_OUT"
	AttendanceStatusLate       AttendanceStatus = "LATE"
	AttendanceStatusAbsent     AttendanceStatus = "ABSENT"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusRegistered, AttendanceStatusCheckedIn, AttendanceStatusCheckedOut,
		AttendanceStatusLate, AttendanceStatusAbsent:
		return true
	default:
		return false
	}
}

// Attendance represents a single event attendance row. One row exists per
// (event, user) pair; it is created at first check-in.
type Attendance struct {
	ID           string           `db:"id" json:"id"`
	EventID      string           `db:"event_id" json:"event_id"`
	UserID       string           `db:"user_id" json:"user_id"`
	Status       AttendanceStatus `db:"status" json:"status"`
	CheckInTime  *time.Time       `db:"check_in_time" json:"check_in_time,omitempty"`
	CheckOutTime *time.Time       `db:"check_out_time" json:"check_out_time,omitempty"`
	Notes        *string          `db:"notes" json:"notes,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time        `db:"updated_at" json:"updated_at"`
}

// IsCheckedIn reports whether the user is currently checked in.
func (a *Attendance) IsCheckedIn() bool {
	return a.CheckInTime != nil && a.CheckOutTime == nil
}

// Duration returns the time spent at the event when both timestamps are set.
func (a *Attendance) Duration() *time.Duration {
	if a.CheckInTime == nil || a.CheckOutTime == nil {
		return nil
	}
	d := a.CheckOutTime.Sub(*a.CheckInTime)
	return &d
}

// AttendanceDetail enriches Attendance with user and event info.
type AttendanceDetail struct {
	Attendance
	UserName   string `db:"user_name" json:"user_name"`
	UserEmail  string `db:"user_email" json:"user_email"`
	EventTitle string `db:"event_title" json:"event_title"`
}

// EventAttendanceStats summarises attendance for an event.
type EventAttendanceStats struct {
	TotalRegistered int `db:"total_registered" json:"total_registered"`
	CheckedIn       int `db:"checked_in" json:"checked_in"`
	CheckedOut      int `db:"checked_out" json:"checked_out"`
	Absent          int `db:"absent" json:"absent"`
}
