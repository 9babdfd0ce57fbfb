package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kubikportal/portal-service/internal/domain"
)

// UserFilter narrows admin user listings.
type UserFilter struct {
	Statuses []domain.UserStatus
	Limit    int
	Offset   int
}

// UserRepository defines persistence access for portal accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, error)
	// UpdateStatus applies a conditional transition; it reports false when
	// the row no longer holds the expected status.
	UpdateStatus(ctx context.Context, id string, expected, next domain.UserStatus) (bool, error)
	// GrantAdminRole grants the super admin role; it reports false when the
	// account is not approved. The role is only ever held by approved rows.
	GrantAdminRole(ctx context.Context, id string) (bool, error)
	// ClearAdminRole removes the super admin role; the guard is part of the
	// UPDATE, so it reports false when no other approved super admin remains
	// or the row no longer holds the role.
	ClearAdminRole(ctx context.Context, id string) (bool, error)
	// SuspendSuperAdmin suspends a super admin and clears the role in one
	// statement, under the same remaining-admin guard as ClearAdminRole.
	SuspendSuperAdmin(ctx context.Context, id string, expected domain.UserStatus) (bool, error)
	// CountSuperAdmins counts approved accounts holding the super admin role.
	CountSuperAdmins(ctx context.Context) (int, error)
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, first_name, last_name, email, password_hash, status, admin_role, created_at, updated_at, last_login_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (first_name, last_name, email, password_hash, status, admin_role)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.Status,
		user.AdminRole,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET first_name=$1, last_name=$2, email=$3, password_hash=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordHash,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetchSingle(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PasswordHash,
		&user.Status,
		&user.AdminRole,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	args := []any{}
	if len(filter.Statuses) > 0 {
		args = append(args, filter.Statuses)
		query += ` WHERE status = ANY($1)`
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += ` ORDER BY created_at DESC LIMIT ` + itoa(limit) + ` OFFSET ` + itoa(offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(
			&user.ID,
			&user.FirstName,
			&user.LastName,
			&user.Email,
			&user.PasswordHash,
			&user.Status,
			&user.AdminRole,
			&user.CreatedAt,
			&user.UpdatedAt,
			&user.LastLoginAt,
		); err != nil {
			return nil, err
		}
		result = append(result, user)
	}
	return result, rows.Err()
}

func (r *userRepository) UpdateStatus(ctx context.Context, id string, expected, next domain.UserStatus) (bool, error) {
	const query = `UPDATE users SET status=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, next, id, expected)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *userRepository) GrantAdminRole(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE users SET admin_role=$1, updated_at=NOW() WHERE id=$2 AND status=$3`
	cmd, err := r.pool.Exec(ctx, query, domain.AdminRoleSuperAdmin, id, domain.UserStatusApproved)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *userRepository) ClearAdminRole(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE users SET admin_role=NULL, updated_at=NOW()
        WHERE id=$1 AND admin_role=$2
          AND (SELECT COUNT(*) FROM users other
               WHERE other.admin_role=$2 AND other.status=$3 AND other.id<>$1) > 0`
	cmd, err := r.pool.Exec(ctx, query, id, domain.AdminRoleSuperAdmin, domain.UserStatusApproved)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *userRepository) SuspendSuperAdmin(ctx context.Context, id string, expected domain.UserStatus) (bool, error) {
	const query = `
        UPDATE users SET status=$1, admin_role=NULL, updated_at=NOW()
        WHERE id=$2 AND status=$3 AND admin_role=$4
          AND (SELECT COUNT(*) FROM users other
               WHERE other.admin_role=$4 AND other.status=$5 AND other.id<>$2) > 0`
	cmd, err := r.pool.Exec(ctx, query,
		domain.UserStatusSuspended, id, expected,
		domain.AdminRoleSuperAdmin, domain.UserStatusApproved)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *userRepository) CountSuperAdmins(ctx context.Context) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE admin_role=$1 AND status=$2`
	var count int
	if err := r.pool.QueryRow(ctx, query, domain.AdminRoleSuperAdmin, domain.UserStatusApproved).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) RecordLogin(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE users SET last_login_at=$1 WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, at, id)
	return err
}
