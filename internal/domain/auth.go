package domain

// Role classifies an authenticated principal.
type Role string

const (
	RoleClient     Role = "CLIENT"
	RoleSuperAdmin Role = "SUPER_ADMIN"
)
