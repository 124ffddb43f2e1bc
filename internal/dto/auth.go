package dto

import "github.com/noah-isme/admissions-api/internal/models"

// SignupRequest registers a password account.
type SignupRequest struct {
	FullName string `json:"fullname" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest authenticates a password account.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// EmailRequest carries a single email address.
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest consumes a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// AuthUser is the safe projection of a user returned to clients.
type AuthUser struct {
	ID             int64           `json:"id"`
	FullName       string          `json:"fullname"`
	Email          string          `json:"email"`
	Role           models.UserRole `json:"role"`
	ProfilePicture *string         `json:"profile_picture"`
}

// NewAuthUser projects u.
func NewAuthUser(u *models.User) AuthUser {
	return AuthUser{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: u.Role, ProfilePicture: u.ProfilePicture}
}

// AuthResponse is returned by flows that start a session.
type AuthResponse struct {
	Message string   `json:"message"`
	User    AuthUser `json:"user"`
}

// CheckEmailResponse reports whether an account exists.
type CheckEmailResponse struct {
	Exists bool `json:"exists"`
}
