package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hpnhann/event-planner-backend/internal/models"
)

// DashboardRepository aggregates headline numbers across the other tables.
type DashboardRepository struct {
	db *sqlx.DB
}

// NewDashboardRepository constructs the repository.
func NewDashboardRepository(db *sqlx.DB) *DashboardRepository {
	return &DashboardRepository{db: db}
}

// Summary collects the aggregate counters for the dashboard. Top streaks are
// filled in by the service so the leaderboard cache can be shared.
func (r *DashboardRepository) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	const query = `SELECT
        (SELECT COUNT(*) FROM events) AS total_events,
        (SELECT COUNT(*) FROM events WHERE status = 'PUBLISHED') AS published_events,
        (SELECT COUNT(*) FROM events WHERE status = 'PUBLISHED' AND start_time >= $1) AS upcoming_events,
        (SELECT COUNT(*) FROM users WHERE active = TRUE) AS total_users,
        (SELECT COUNT(*) FROM registrations WHERE status IN ('PENDING', 'APPROVED', 'ATTENDED')) AS total_registrations,
        (SELECT COUNT(*) FROM attendances WHERE check_in_time >= $2) AS check_ins_today`

	var row struct {
		TotalEvents        int `db:"total_events"`
		PublishedEvents    int `db:"published_events"`
		UpcomingEvents     int `db:"upcoming_events"`
		TotalUsers         int `db:"total_users"`
		TotalRegistrations int `db:"total_registrations"`
		CheckInsToday      int `db:"check_ins_today"`
	}
	if err := r.db.GetContext(ctx, &row, query, now, midnight); err != nil {
		return nil, fmt.Errorf("dashboard summary: %w", err)
	}

	return &models.DashboardSummary{
		TotalEvents:        row.TotalEvents,
		PublishedEvents:    row.PublishedEvents,
		UpcomingEvents:     row.UpcomingEvents,
		TotalUsers:         row.TotalUsers,
		TotalRegistrations: row.TotalRegistrations,
		CheckInsToday:      row.CheckInsToday,
		GeneratedAt:        now,
	}, nil
}
