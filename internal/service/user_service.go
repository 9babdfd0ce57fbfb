package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/config"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/events"
	"github.com/kubikportal/portal-service/internal/repository"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

// allowedUserTransitions defines the valid account status transitions.
var allowedUserTransitions = map[domain.UserStatus][]domain.UserStatus{
	domain.UserStatusPending:   {domain.UserStatusApproved, domain.UserStatusRejected},
	domain.UserStatusApproved:  {domain.UserStatusSuspended},
	domain.UserStatusSuspended: {domain.UserStatusApproved},
	domain.UserStatusRejected:  {},
}

// UserService manages account lifecycle and admin role assignment.
type UserService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// NewUserService builds the service.
func NewUserService(cfg config.Config, users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger) *UserService {
	return &UserService{
		users:      users,
		dispatcher: dispatcher,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// GetUser returns an account visible to the actor: super admins see any
// account, clients only their own.
func (s *UserService) GetUser(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() && actor.ID != id {
		return nil, apperrors.NewForbidden("cannot access other accounts")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	return user, nil
}

// ListUsers returns accounts matching the filter. Super admin only.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User, filter repository.UserFilter) ([]domain.User, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	return s.users.List(ctx, filter)
}

// CreateUserInput describes an admin-created account.
type CreateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Approved  bool
}

// CreateUser provisions an account on behalf of an administrator.
// Unlike self-registration the account may start approved.
func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, input CreateUserInput) (*domain.User, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" || strings.TrimSpace(input.FirstName) == "" {
		return nil, apperrors.NewValidationError("first_name, email, password required", nil)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	status := domain.UserStatusPending
	if input.Approved {
		status = domain.UserStatusApproved
	}
	user := &domain.User{
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        email,
		PasswordHash: hash,
		Status:       status,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewDuplicateKey("email")
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfileInput carries self-service profile fields.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
}

// UpdateProfile lets an account edit its own name fields. Super admins may
// edit any account.
func (s *UserService) UpdateProfile(ctx context.Context, actor *domain.User, id string, input UpdateProfileInput) (*domain.User, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() && actor.ID != id {
		return nil, apperrors.NewForbidden("cannot modify other accounts")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	if input.FirstName != nil {
		if strings.TrimSpace(*input.FirstName) == "" {
			return nil, apperrors.NewValidationError("first_name cannot be empty", nil)
		}
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SetUserStatus transitions an account between lifecycle states. Re-applying
// the current status is an idempotent no-op; invalid transitions are
// rejected, and a lost race against a concurrent transition surfaces as a
// conflict.
func (s *UserService) SetUserStatus(ctx context.Context, actor *domain.User, id string, next domain.UserStatus) (*domain.User, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	if user.Status == next {
		return user, nil
	}
	if !userTransitionAllowed(user.Status, next) {
		return nil, apperrors.NewInvalidTransition("user", string(user.Status), string(next))
	}
	// suspending a super admin also clears the role so the role is only
	// ever held by approved accounts; the repository guard rejects the
	// suspension when no other approved super admin would remain
	if user.IsSuperAdmin() && next == domain.UserStatusSuspended {
		suspended, err := s.users.SuspendSuperAdmin(ctx, id, user.Status)
		if err != nil {
			return nil, err
		}
		if !suspended {
			count, countErr := s.users.CountSuperAdmins(ctx)
			if countErr != nil {
				return nil, countErr
			}
			if count <= 1 {
				return nil, apperrors.NewLastAdmin()
			}
			return nil, apperrors.NewConflictingState("user")
		}
		user.Status = next
		user.AdminRole = nil
		return user, nil
	}

	updated, err := s.users.UpdateStatus(ctx, id, user.Status, next)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, apperrors.NewConflictingState("user")
	}
	oldStatus := user.Status
	user.Status = next

	switch next {
	case domain.UserStatusApproved:
		if oldStatus == domain.UserStatusPending {
			publishEvent(ctx, s.dispatcher, events.Event{
				Type:     events.EventUserApproved,
				EntityID: user.ID,
				Actor:    eventActor(actor),
				Payload: events.UserStatusPayload{
					Email:     user.Email,
					FirstName: user.FirstName,
					NewStatus: next,
				},
			})
		}
	case domain.UserStatusRejected:
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:     events.EventUserRejected,
			EntityID: user.ID,
			Actor:    eventActor(actor),
			Payload: events.UserStatusPayload{
				Email:     user.Email,
				FirstName: user.FirstName,
				NewStatus: next,
			},
		})
	}
	return user, nil
}

// PromoteToSuperAdmin grants the super admin role to an approved account.
func (s *UserService) PromoteToSuperAdmin(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	if user.IsSuperAdmin() {
		return user, nil
	}
	if user.Status != domain.UserStatusApproved {
		return nil, apperrors.NewValidationError("only approved accounts can be promoted", nil)
	}
	granted, err := s.users.GrantAdminRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if !granted {
		// status changed between the read and the conditional grant
		return nil, apperrors.NewConflictingState("user")
	}
	role := domain.AdminRoleSuperAdmin
	user.AdminRole = &role
	return user, nil
}

// DemoteSuperAdmin removes the super admin role. The last remaining super
// admin can never be demoted.
func (s *UserService) DemoteSuperAdmin(ctx context.Context, actor *domain.User, id string) (*domain.User, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	if !user.IsSuperAdmin() {
		return user, nil
	}
	// the remaining-admin guard lives inside the UPDATE, so concurrent
	// demotions cannot both pass a stale count
	cleared, err := s.users.ClearAdminRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if !cleared {
		fresh, freshErr := s.users.GetByID(ctx, id)
		if freshErr != nil {
			if freshErr == pgx.ErrNoRows {
				return nil, apperrors.NewNotFound("user", nil)
			}
			return nil, freshErr
		}
		if !fresh.IsSuperAdmin() {
			return fresh, nil
		}
		return nil, apperrors.NewLastAdmin()
	}
	user.AdminRole = nil
	return user, nil
}

// EnsureBootstrapAdmin creates the configured super admin account on startup
// when no super admin exists yet.
func (s *UserService) EnsureBootstrapAdmin(ctx context.Context, cfg config.AuthConfig) error {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}
	count, err := s.users.CountSuperAdmins(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := auth.HashPassword(cfg.BootstrapAdminPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	role := domain.AdminRoleSuperAdmin
	user := &domain.User{
		FirstName:    "Admin",
		LastName:     "Account",
		Email:        strings.ToLower(cfg.BootstrapAdminEmail),
		PasswordHash: hash,
		Status:       domain.UserStatusApproved,
		AdminRole:    &role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			existing, getErr := s.users.GetByEmail(ctx, user.Email)
			if getErr != nil {
				return getErr
			}
			if existing.Status != domain.UserStatusApproved {
				if _, statusErr := s.users.UpdateStatus(ctx, existing.ID, existing.Status, domain.UserStatusApproved); statusErr != nil {
					return statusErr
				}
			}
			granted, grantErr := s.users.GrantAdminRole(ctx, existing.ID)
			if grantErr != nil {
				return grantErr
			}
			if !granted {
				return apperrors.NewConflictingState("user")
			}
			return nil
		}
		return err
	}
	s.logger.Info("bootstrap admin created",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
		zap.Time("at", time.Now()))
	return nil
}

func userTransitionAllowed(from, to domain.UserStatus) bool {
	for _, allowed := range allowedUserTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
