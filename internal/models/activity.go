package models

import "time"

// ActivityLog is an admin audit entry.
type ActivityLog struct {
	ID        int64     `db:"id" json:"id"`
	UserID    *int64    `db:"user_id" json:"user_id"`
	Role      UserRole  `db:"role" json:"role"`
	Action    string    `db:"action" json:"action"`
	Details   *string   `db:"details" json:"details"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ActivityLogEntry is an ActivityLog joined with the acting user.
type ActivityLogEntry struct {
	ActivityLog
	FullName *string `db:"fullname" json:"fullname"`
	Email    *string `db:"email" json:"email"`
}

// ActivityFilter narrows the activity listing.
type ActivityFilter struct {
	Page     int
	PageSize int
}
