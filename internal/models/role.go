package models

import "time"

// EventRole describes an optional role a registrant fills at an event,
// for example "volunteer" or "speaker". Referenced by registrations.
type EventRole struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}
