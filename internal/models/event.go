package models

import "time"

// EventStatus represents the lifecycle of an event.
type EventStatus string

// Possible event statuses.
const (
	EventStatusDraft     EventStatus = "DRAFT"
	EventStatusPublished EventStatus = "PUBLISHED"
	EventStatusCompleted EventStatus = "COMPLETED"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// Valid returns true when the status is a supported value.
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCompleted, EventStatusCancelled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the status may move to the target state.
// COMPLETED and CANCELLED are terminal.
func (s EventStatus) CanTransitionTo(target EventStatus) bool {
	switch s {
	case EventStatusDraft:
		return target == EventStatusPublished || target == EventStatusCancelled
	case EventStatusPublished:
		return target == EventStatusCompleted || target == EventStatusCancelled
	default:
		return false
	}
}

// Event captures an organizer-created event with a registration capacity.
type Event struct {
	ID          string      `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	Location    string      `db:"location" json:"location"`
	StartTime   time.Time   `db:"start_time" json:"start_time"`
	EndTime     time.Time   `db:"end_time" json:"end_time"`
	Capacity    *int        `db:"capacity" json:"capacity,omitempty"`
	Status      EventStatus `db:"status" json:"status"`
	ImageURL    *string     `db:"image_url" json:"image_url,omitempty"`
	CreatedBy   string      `db:"created_by" json:"created_by"`
	PublishedAt *time.Time  `db:"published_at" json:"published_at,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// IsPublished reports whether the event accepts registrations.
func (e *Event) IsPublished() bool {
	return e.Status == EventStatusPublished
}

// IsUpcoming reports whether the event starts after the reference time.
func (e *Event) IsUpcoming(now time.Time) bool {
	return e.StartTime.After(now)
}

// IsPast reports whether the event ended before the reference time.
func (e *Event) IsPast(now time.Time) bool {
	return e.EndTime.Before(now)
}

// IsFull compares the active registration count against capacity.
// A nil capacity means unlimited.
func (e *Event) IsFull(activeRegistrations int) bool {
	if e.Capacity == nil {
		return false
	}
	return activeRegistrations >= *e.Capacity
}

// EventDetail enriches Event with creator and registration info.
type EventDetail struct {
	Event
	CreatorName     string `db:"creator_name" json:"creator_name"`
	RegisteredCount int    `db:"registered_count" json:"registered_count"`
}

// EventFilter provides filters for listing events.
type EventFilter struct {
	Status    EventStatus
	CreatedBy string
	Upcoming  bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
