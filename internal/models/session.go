package models

import "time"

// UserSession is the registry row naming a user's only valid session.
type UserSession struct {
	UserID    int64     `db:"user_id" json:"user_id"`
	SessionID string    `db:"session_id" json:"session_id"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SessionData is the server-side payload behind a session cookie.
type SessionData struct {
	UserID    int64     `json:"user_id"`
	Role      UserRole  `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Session pairs an opaque id with its payload.
type Session struct {
	ID   string
	Data SessionData
}
