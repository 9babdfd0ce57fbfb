package service

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/repository"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

// AssetService manages client assets and their billing snapshots.
type AssetService struct {
	assets     repository.AssetRepository
	packages   repository.PackageRepository
	categories repository.CategoryRepository
	invoices   repository.InvoiceRepository
	tickets    repository.TicketRepository
}

// NewAssetService builds the service.
func NewAssetService(
	assets repository.AssetRepository,
	packages repository.PackageRepository,
	categories repository.CategoryRepository,
	invoices repository.InvoiceRepository,
	tickets repository.TicketRepository,
) *AssetService {
	return &AssetService{
		assets:     assets,
		packages:   packages,
		categories: categories,
		invoices:   invoices,
		tickets:    tickets,
	}
}

// CreateAssetInput describes a new asset registration.
type CreateAssetInput struct {
	OwnerID     string
	Name        string
	Description string
	CategoryID  string
	PackageID   string
	Profile     domain.BillingProfile
}

// CreateAsset registers an asset under a package. Clients may only create
// assets for themselves; the package must exist and be active. Price, cycle
// and currency are frozen from the package at this moment.
func (s *AssetService) CreateAsset(ctx context.Context, actor *domain.User, input CreateAssetInput) (*domain.Asset, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	ownerID := input.OwnerID
	if ownerID == "" {
		ownerID = actor.ID
	}
	if !actor.IsSuperAdmin() && ownerID != actor.ID {
		return nil, apperrors.NewForbidden("cannot create assets for other accounts")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}

	if _, err := s.categories.GetByID(ctx, input.CategoryID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("category", nil)
		}
		return nil, err
	}
	pkg, err := s.packages.GetByID(ctx, input.PackageID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("package", nil)
		}
		return nil, err
	}
	if !pkg.IsActive {
		return nil, apperrors.NewValidationError("package is not active", nil)
	}

	now := time.Now()
	due := nextDueDate(now, pkg.BillingCycle)
	asset := &domain.Asset{
		OwnerID:       ownerID,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		CategoryID:    input.CategoryID,
		PackageID:     pkg.ID,
		Status:        domain.AssetStatusActive,
		Profile:       input.Profile,
		PriceSnapshot: pkg.Price,
		BillingCycle:  pkg.BillingCycle,
		Currency:      pkg.Currency,
		RegisteredAt:  now,
		NextDueDate:   &due,
	}
	if err := s.assets.Create(ctx, asset); err != nil {
		return nil, err
	}
	return asset, nil
}

// GetAsset returns an asset visible to the actor.
func (s *AssetService) GetAsset(ctx context.Context, actor *domain.User, id string) (*domain.Asset, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("asset", nil)
		}
		return nil, err
	}
	if !actor.IsSuperAdmin() && asset.OwnerID != actor.ID {
		return nil, apperrors.NewNotFound("asset", nil)
	}
	return asset, nil
}

// ListAssets returns assets matching the filter. Clients are always scoped
// to their own assets regardless of the requested owner.
func (s *AssetService) ListAssets(ctx context.Context, actor *domain.User, filter repository.AssetFilter) ([]domain.Asset, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() {
		ownerID := actor.ID
		filter.OwnerID = &ownerID
	}
	return s.assets.ListWithFilter(ctx, filter)
}

// UpdateAssetInput carries editable asset fields. Pricing snapshot fields
// are never editable.
type UpdateAssetInput struct {
	Name        *string
	Description *string
	Profile     *domain.BillingProfile
}

// UpdateAsset lets the owner or a super admin edit descriptive and billing
// profile fields.
func (s *AssetService) UpdateAsset(ctx context.Context, actor *domain.User, id string, input UpdateAssetInput) (*domain.Asset, error) {
	asset, err := s.GetAsset(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.NewValidationError("name cannot be empty", nil)
		}
		asset.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		asset.Description = *input.Description
	}
	if input.Profile != nil {
		asset.Profile = *input.Profile
	}
	if err := s.assets.Update(ctx, asset); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("asset", nil)
		}
		return nil, err
	}
	return asset, nil
}

// SetAssetStatus moves an asset between active, inactive and suspended.
// Any transition between the three states is allowed; only super admins may
// change status.
func (s *AssetService) SetAssetStatus(ctx context.Context, actor *domain.User, id string, next domain.AssetStatus) (*domain.Asset, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	switch next {
	case domain.AssetStatusActive, domain.AssetStatusInactive, domain.AssetStatusSuspended:
	default:
		return nil, apperrors.NewValidationError("unknown asset status", map[string]any{"status": string(next)})
	}
	asset, err := s.assets.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("asset", nil)
		}
		return nil, err
	}
	if asset.Status == next {
		return asset, nil
	}
	if err := s.assets.UpdateStatus(ctx, id, next); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("asset", nil)
		}
		return nil, err
	}
	asset.Status = next
	return asset, nil
}

// DeleteAsset removes an asset. Deletion is blocked while unpaid invoices or
// unresolved tickets still reference it.
func (s *AssetService) DeleteAsset(ctx context.Context, actor *domain.User, id string) error {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return err
	}
	if _, err := s.assets.GetByID(ctx, id); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("asset", nil)
		}
		return err
	}

	unpaid, err := s.invoices.CountUnpaidByAsset(ctx, id)
	if err != nil {
		return err
	}
	if unpaid > 0 {
		return apperrors.NewInUse("asset", "asset has unpaid invoices")
	}
	open, err := s.tickets.CountOpenByAsset(ctx, id)
	if err != nil {
		return err
	}
	if open > 0 {
		return apperrors.NewInUse("asset", "asset has open tickets")
	}

	if err := s.assets.Delete(ctx, id); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("asset", nil)
		}
		return err
	}
	return nil
}

// nextDueDate advances a reference date by one billing cycle.
func nextDueDate(from time.Time, cycle domain.BillingCycle) time.Time {
	switch cycle {
	case domain.BillingCycleQuarterly:
		return from.AddDate(0, 3, 0)
	case domain.BillingCycleYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}
