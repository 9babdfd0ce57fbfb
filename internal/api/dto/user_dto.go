package dto

import (
	"time"

	"github.com/kubikportal/portal-service/internal/domain"
)

// UserResponse is the public account representation.
type UserResponse struct {
	ID          string            `json:"id"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Email       string            `json:"email"`
	Status      domain.UserStatus `json:"status"`
	Role        domain.Role       `json:"role"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// CreateUserRequest payload for admin-created accounts.
type CreateUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Approved  bool   `json:"approved"`
}

// UpdateProfileRequest payload.
type UpdateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// SetUserStatusRequest payload.
type SetUserStatusRequest struct {
	Status domain.UserStatus `json:"status"`
}
