package models

import "time"

// RegistrationStatus represents the lifecycle of an event registration.
type RegistrationStatus string

// Possible registration statuses.
const (
	RegistrationStatusPending   RegistrationStatus = "PENDING"
	RegistrationStatusApproved  RegistrationStatus = "APPROVED"
	RegistrationStatusRejected  RegistrationStatus = "REJECTED"
	RegistrationStatusCancelled RegistrationStatus = "CANCELLED"
	RegistrationStatusAttended  RegistrationStatus = "ATTENDED"
)

// Valid returns true when the status is a supported value.
func (s RegistrationStatus) Valid() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusApproved, RegistrationStatusRejected,
		RegistrationStatusCancelled, RegistrationStatusAttended:
		return true
	default:
		return false
	}
}

// Active reports whether the registration still occupies a spot.
// CANCELLED and REJECTED registrations free their spot.
func (s RegistrationStatus) Active() bool {
	switch s {
	case RegistrationStatusPending, RegistrationStatusApproved, RegistrationStatusAttended:
		return true
	default:
		return false
	}
}

// CountsTowardCapacity reports whether the registration is held against
// the event capacity when admitting new registrations. Checked-in attendees
// keep their spot; only terminal registrations free one.
func (s RegistrationStatus) CountsTowardCapacity() bool {
	return s == RegistrationStatusPending || s == RegistrationStatusApproved || s == RegistrationStatusAttended
}

// CanTransitionTo encodes the registration state machine. Terminal states
// (CANCELLED, REJECTED) admit no further transitions.
func (s RegistrationStatus) CanTransitionTo(target RegistrationStatus) bool {
	switch s {
	case RegistrationStatusPending:
		return target == RegistrationStatusApproved || target == RegistrationStatusRejected || target == RegistrationStatusCancelled
	case RegistrationStatusApproved:
		return target == RegistrationStatusAttended || target == RegistrationStatusCancelled
	case RegistrationStatusAttended:
		return target == RegistrationStatusCancelled
	default:
		return false
	}
}

// Registration captures a user's sign-up for an event.
type Registration struct {
	ID               string             `db:"id" json:"id"`
	EventID          string             `db:"event_id" json:"event_id"`
	UserID           string             `db:"user_id" json:"user_id"`
	Status           RegistrationStatus `db:"status" json:"status"`
	RegistrationDate time.Time          `db:"registration_date" json:"registration_date"`
	RoleID           *string            `db:"role_id" json:"role_id,omitempty"`
	Notes            *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `db:"updated_at" json:"updated_at"`
}

// RegistrationDetail enriches Registration with user and event info.
type RegistrationDetail struct {
	Registration
	UserName   string  `db:"user_name" json:"user_name"`
	UserEmail  string  `db:"user_email" json:"user_email"`
	EventTitle string  `db:"event_title" json:"event_title"`
	RoleName   *string `db:"role_name" json:"role_name,omitempty"`
}

// RegistrationFilter provides filters for listing registrations.
type RegistrationFilter struct {
	EventID   string
	UserID    string
	Status    RegistrationStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
