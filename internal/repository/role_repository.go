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

// RoleRepository handles persistence of event roles.
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository constructs the repository.
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindByID returns an event role by id.
func (r *RoleRepository) FindByID(ctx context.Context, id string) (*models.EventRole, error) {
	const query = `SELECT id, name, description, created_at, updated_at FROM event_roles WHERE id = $1 LIMIT 1`
	var role models.EventRole
	if err := r.db.GetContext(ctx, &role, query, id); err != nil {
		return nil, err
	}
	return &role, nil
}

// List returns all event roles ordered by name.
func (r *RoleRepository) List(ctx context.Context) ([]models.EventRole, error) {
	const query = `SELECT id, name, description, created_at, updated_at FROM event_roles ORDER BY name ASC`
	var roles []models.EventRole
	if err := r.db.SelectContext(ctx, &roles, query); err != nil {
		return nil, fmt.Errorf("list event roles: %w", err)
	}
	return roles, nil
}

// Create inserts a new event role. Role names are unique.
func (r *RoleRepository) Create(ctx context.Context, role *models.EventRole) error {
	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	role.CreatedAt = now
	role.UpdatedAt = now

	const query = `INSERT INTO event_roles (id, name, description, created_at, updated_at)
        VALUES (:id, :name, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, role); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("create event role: %w", err)
	}
	return nil
}

// Update rewrites the mutable fields of an event role.
func (r *RoleRepository) Update(ctx context.Context, role *models.EventRole) error {
	role.UpdatedAt = time.Now().UTC()
	const query = `UPDATE event_roles SET name = :name, description = :description, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, role)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("update event role: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an event role.
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM event_roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete event role: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
