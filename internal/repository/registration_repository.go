package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hpnhann/event-planner-backend/internal/models"
)

// RegistrationRepository handles persistence of event registrations.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `r.id, r.event_id, r.user_id, r.status, r.registration_date, r.role_id, r.notes, r.created_at, r.updated_at`

// CreateWithCapacityCheck inserts a registration while holding a row lock on
// the event, so the capacity count and the insert observe the same state.
// Returns ErrEventFull when capacity (non-nil) is already consumed by
// active registrations, and ErrDuplicate when the partial unique
// index on active (event_id, user_id) pairs rejects the insert.
func (r *RegistrationRepository) CreateWithCapacityCheck(ctx context.Context, registration *models.Registration, capacity *int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registration tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var lockedID string
	if err := tx.GetContext(ctx, &lockedID, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, registration.EventID); err != nil {
		if err == sql.ErrNoRows {
			return err
		}
		return fmt.Errorf("lock event row: %w", err)
	}

	if capacity != nil {
		var count int
		const countQuery = `SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status IN ('PENDING', 'APPROVED', 'ATTENDED')`
		if err := tx.GetContext(ctx, &count, countQuery, registration.EventID); err != nil {
			return fmt.Errorf("count registrations: %w", err)
		}
		if count >= *capacity {
			return ErrEventFull
		}
	}

	if registration.ID == "" {
		registration.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if registration.RegistrationDate.IsZero() {
		registration.RegistrationDate = now
	}
	if registration.Status == "" {
		registration.Status = models.RegistrationStatusPending
	}
	registration.CreatedAt = now
	registration.UpdatedAt = now

	const insertQuery = `INSERT INTO registrations (id, event_id, user_id, status, registration_date, role_id, notes, created_at, updated_at)
        VALUES (:id, :event_id, :user_id, :status, :registration_date, :role_id, :notes, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, registration); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit registration tx: %w", err)
	}
	return nil
}

// FindByID returns a registration by its ID.
func (r *RegistrationRepository) FindByID(ctx context.Context, id string) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations r WHERE r.id = $1`, registrationColumns)
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, id); err != nil {
		return nil, err
	}
	return &registration, nil
}

// FindByEventAndUser returns the latest registration for an (event, user)
// pair. A partial unique index allows at most one non-terminal row, and that
// row is always the newest one.
func (r *RegistrationRepository) FindByEventAndUser(ctx context.Context, eventID, userID string) (*models.Registration, error) {
	query := fmt.Sprintf(`SELECT %s FROM registrations r WHERE r.event_id = $1 AND r.user_id = $2 ORDER BY r.created_at DESC LIMIT 1`, registrationColumns)
	var registration models.Registration
	if err := r.db.GetContext(ctx, &registration, query, eventID, userID); err != nil {
		return nil, err
	}
	return &registration, nil
}

// List returns registrations filtered by the provided criteria.
func (r *RegistrationRepository) List(ctx context.Context, filter models.RegistrationFilter) ([]models.RegistrationDetail, int, error) {
	base := `FROM registrations r
LEFT JOIN users u ON u.id = r.user_id
LEFT JOIN events e ON e.id = r.event_id
LEFT JOIN event_roles er ON er.id = r.role_id`
	var conditions []string
	var args []interface{}

	if filter.EventID != "" {
		conditions = append(conditions, fmt.Sprintf("r.event_id = $%d", len(args)+1))
		args = append(args, filter.EventID)
	}
	if filter.UserID != "" {
		conditions = append(conditions, fmt.Sprintf("r.user_id = $%d", len(args)+1))
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("r.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"registration_date": "r.registration_date",
		"user_name":         "u.full_name",
		"event_title":       "e.title",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "r.registration_date"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, COALESCE(u.full_name, '') AS user_name, COALESCE(u.email, '') AS user_email,
        COALESCE(e.title, '') AS event_title, er.name AS role_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, registrationColumns, base+clause, orderBy, order, size, offset)

	var registrations []models.RegistrationDetail
	if err := r.db.SelectContext(ctx, &registrations, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registrations: %w", err)
	}
	return registrations, total, nil
}

// UpdateStatus moves a registration to a new status.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id string, status models.RegistrationStatus) error {
	const query = `UPDATE registrations SET status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, time.Now().UTC()); err != nil {
		return fmt.Errorf("update registration status: %w", err)
	}
	return nil
}
