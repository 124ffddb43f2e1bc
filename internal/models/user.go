package models

import "time"

// UserRole represents the available roles.
type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User represents an account stored in the users table. PasswordHash is nil
// for accounts created through Google sign-in.
type User struct {
	ID             int64     `db:"id" json:"id"`
	FullName       string    `db:"fullname" json:"fullname"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   *string   `db:"password_hash" json:"-"`
	Role           UserRole  `db:"role" json:"role"`
	GoogleID       *string   `db:"google_id" json:"-"`
	ProfilePicture *string   `db:"profile_picture" json:"profile_picture"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
