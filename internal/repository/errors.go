package repository

import (
	"errors"

	"github.com/lib/pq"
)

// Sentinel errors surfaced by repositories so services can map storage
// outcomes to domain failures without inspecting driver errors themselves.
var (
	// ErrEventFull is returned when an insert would exceed event capacity.
	ErrEventFull = errors.New("event capacity reached")
	// ErrDuplicate is returned when a unique (event_id, user_id) constraint
	// rejects an insert that raced past the in-transaction existence check.
	ErrDuplicate = errors.New("row already exists")
)

// isUniqueViolation reports whether err is a PostgreSQL unique_violation
// (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
