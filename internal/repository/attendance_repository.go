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

// AttendanceRepository handles persistence of attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

const attendanceColumns = `a.id, a.event_id, a.user_id, a.status, a.check_in_time, a.check_out_time, a.notes, a.created_at, a.updated_at`

// Create inserts an attendance row. The unique (event_id, user_id)
// constraint guarantees at most one row per pair; a violation surfaces as
// ErrDuplicate so concurrent check-ins cannot create two records.
func (r *AttendanceRepository) Create(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	attendance.CreatedAt = now
	attendance.UpdatedAt = now

	const query = `INSERT INTO attendances (id, event_id, user_id, status, check_in_time, check_out_time, notes, created_at, updated_at)
        VALUES (:id, :event_id, :user_id, :status, :check_in_time, :check_out_time, :notes, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create attendance: %w", err)
	}
	return nil
}

// FindByID returns an attendance row by its ID.
func (r *AttendanceRepository) FindByID(ctx context.Context, id string) (*models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendances a WHERE a.id = $1`, attendanceColumns)
	var attendance models.Attendance
	if err := r.db.GetContext(ctx, &attendance, query, id); err != nil {
		return nil, err
	}
	return &attendance, nil
}

// FindByEventAndUser returns the attendance row for an (event, user) pair.
func (r *AttendanceRepository) FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.Attendance, error) {
	query := fmt.Sprintf(`SELECT %s FROM attendances a WHERE a.event_id = $1 AND a.user_id = $2 LIMIT 1`, attendanceColumns)
	var attendance models.Attendance
	if err := r.db.GetContext(ctx, &attendance, query, eventID, userID); err != nil {
		return nil, err
	}
	return &attendance, nil
}

// SetCheckOut stamps the check-out time and moves the row to CHECKED_OUT.
func (r *AttendanceRepository) SetCheckOut(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE attendances SET status = $2, check_out_time = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.AttendanceStatusCheckedOut, ts, time.Now().UTC()); err != nil {
		return fmt.Errorf("set check out: %w", err)
	}
	return nil
}

// OverrideStatus applies an organizer correction. When clearTimes is set the
// check-in and check-out timestamps are removed as well.
func (r *AttendanceRepository) OverrideStatus(ctx context.Context, id string, status models.AttendanceStatus, clearTimes bool) error {
	if clearTimes {
		const query = `UPDATE attendances SET status = $2, check_in_time = NULL, check_out_time = NULL, updated_at = $3 WHERE id = $1`
		if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
			return fmt.Errorf("override attendance status: %w", err)
		}
		return nil
	}
	const query = `UPDATE attendances SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("override attendance status: %w", err)
	}
	return nil
}

// ListByEvent returns attendance rows for an event with user info.
func (r *AttendanceRepository) ListByEvent(ctx context.Context, eventID string) ([]models.AttendanceDetail, error) {
	query := fmt.Sprintf(`SELECT %s, COALESCE(u.full_name, '') AS user_name, COALESCE(u.email, '') AS user_email, COALESCE(e.title, '') AS event_title
        FROM attendances a
        LEFT JOIN users u ON u.id = a.user_id
        LEFT JOIN events e ON e.id = a.event_id
        WHERE a.event_id = $1 ORDER BY a.check_in_time DESC NULLS LAST`, attendanceColumns)
	var attendances []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &attendances, query, eventID); err != nil {
		return nil, fmt.Errorf("list event attendances: %w", err)
	}
	return attendances, nil
}

// ListByUser returns a user's attendance history with event info.
func (r *AttendanceRepository) ListByUser(ctx context.Context, userID string) ([]models.AttendanceDetail, error) {
	query := fmt.Sprintf(`SELECT %s, COALESCE(u.full_name, '') AS user_name, COALESCE(u.email, '') AS user_email, COALESCE(e.title, '') AS event_title
        FROM attendances a
        LEFT JOIN users u ON u.id = a.user_id
        LEFT JOIN events e ON e.id = a.event_id
        WHERE a.user_id = $1 ORDER BY a.check_in_time DESC NULLS LAST`, attendanceColumns)
	var attendances []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &attendances, query, userID); err != nil {
		return nil, fmt.Errorf("list user attendances: %w", err)
	}
	return attendances, nil
}

// EventStats summarises attendance counts for an event.
func (r *AttendanceRepository) EventStats(ctx context.Context, eventID string) (*models.EventAttendanceStats, error) {
	const query = `SELECT
        (SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status IN ('PENDING', 'APPROVED', 'ATTENDED')) AS total_registered,
        COUNT(*) FILTER (WHERE a.status IN ('CHECKED_IN', 'LATE')) AS checked_in,
        COUNT(*) FILTER (WHERE a.status = 'CHECKED_OUT') AS checked_out,
        COUNT(*) FILTER (WHERE a.status = 'ABSENT') AS absent
        FROM attendances a WHERE a.event_id = $1`
	var stats models.EventAttendanceStats
	if err := r.db.GetContext(ctx, &stats, query, eventID); err != nil {
		if err == sql.ErrNoRows {
			return &models.EventAttendanceStats{}, nil
		}
		return nil, fmt.Errorf("event attendance stats: %w", err)
	}
	return &stats, nil
}

// CountCheckInsSince counts check-ins recorded at or after the given time.
func (r *AttendanceRepository) CountCheckInsSince(ctx context.Context, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM attendances WHERE check_in_time >= $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, since); err != nil {
		return 0, fmt.Errorf("count check-ins: %w", err)
	}
	return count, nil
}
