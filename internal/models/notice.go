package models

import "time"

// NoticeStatus represents the publication lifecycle of a notice.
type NoticeStatus string

const (
	NoticeStatusDraft     NoticeStatus = "DRAFT"
	NoticeStatusPublished NoticeStatus = "PUBLISHED"
	NoticeStatusArchived  NoticeStatus = "ARCHIVED"
)

// Valid returns true when the status is a supported value.
func (s NoticeStatus) Valid() bool {
	switch s {
	case NoticeStatusDraft, NoticeStatusPublished, NoticeStatusArchived:
		return true
	default:
		return false
	}
}

// NoticeType classifies a notice.
type NoticeType string

const (
	NoticeTypeGeneral  NoticeType = "GENERAL"
	NoticeTypeUrgent   NoticeType = "URGENT"
	NoticeTypeEvent    NoticeType = "EVENT"
	NoticeTypeAcademic NoticeType = "ACADEMIC"
)

// Valid returns true when the type is a supported value.
func (t NoticeType) Valid() bool {
	switch t {
	case NoticeTypeGeneral, NoticeTypeUrgent, NoticeTypeEvent, NoticeTypeAcademic:
		return true
	default:
		return false
	}
}

// Notice is an announcement published to participants.
type Notice struct {
	ID          string       `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	Content     string       `db:"content" json:"content"`
	Type        NoticeType   `db:"type" json:"type"`
	Status      NoticeStatus `db:"status" json:"status"`
	PublishedAt *time.Time   `db:"published_at" json:"published_at,omitempty"`
	CreatedBy   string       `db:"created_by" json:"created_by"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updated_at"`
}

// NoticeFilter provides filters for listing notices.
type NoticeFilter struct {
	Status    NoticeStatus
	Type      NoticeType
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
