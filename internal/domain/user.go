package domain

import "time"

// UserStatus represents lifecycle states for a portal account.
type UserStatus string

const (
	UserStatusPending   UserStatus = "PENDING"
	UserStatusApproved  UserStatus = "APPROVED"
	UserStatusRejected  UserStatus = "REJECTED"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// AdminRole marks an account with administrative rights.
type AdminRole string

const AdminRoleSuperAdmin AdminRole = "SUPER_ADMIN"

// User is the domain model for portal accounts: clients and administrators.
type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Status       UserStatus
	AdminRole    *AdminRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  *time.Time
}

// IsSuperAdmin reports whether the account carries the super admin role.
func (u *User) IsSuperAdmin() bool {
	return u != nil && u.AdminRole != nil && *u.AdminRole == AdminRoleSuperAdmin
}

// Role resolves the authorization role for the account.
func (u *User) Role() Role {
	if u.IsSuperAdmin() {
		return RoleSuperAdmin
	}
	return RoleClient
}
