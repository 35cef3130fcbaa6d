package models

import "time"

// DashboardSummary aggregates headline numbers for the admin dashboard.
type DashboardSummary struct {
	TotalEvents        int            `json:"total_events"`
	PublishedEvents    int            `json:"published_events"`
	UpcomingEvents     int            `json:"upcoming_events"`
	TotalUsers         int            `json:"total_users"`
	TotalRegistrations int            `json:"total_registrations"`
	CheckInsToday      int            `json:"check_ins_today"`
	TopStreaks         []StreakDetail `json:"top_streaks"`
	GeneratedAt        time.Time      `json:"generated_at"`
}
