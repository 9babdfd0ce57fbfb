package service

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/repository"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

// CatalogService manages packages and categories. All mutations are
// super-admin only; listings are open to approved accounts.
type CatalogService struct {
	packages   repository.PackageRepository
	categories repository.CategoryRepository
	assets     repository.AssetRepository
}

// NewCatalogService builds the service.
func NewCatalogService(
	packages repository.PackageRepository,
	categories repository.CategoryRepository,
	assets repository.AssetRepository,
) *CatalogService {
	return &CatalogService{
		packages:   packages,
		categories: categories,
		assets:     assets,
	}
}

// CategoryInput carries category fields.
type CategoryInput struct {
	Name  string
	Color string
}

// CreateCategory adds a category.
func (s *CatalogService) CreateCategory(ctx context.Context, actor *domain.User, input CategoryInput) (*domain.Category, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	cat := &domain.Category{
		Name:  strings.TrimSpace(input.Name),
		Color: input.Color,
	}
	if err := s.categories.Create(ctx, cat); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewDuplicateKey("name")
		}
		return nil, err
	}
	return cat, nil
}

// UpdateCategory edits a category.
func (s *CatalogService) UpdateCategory(ctx context.Context, actor *domain.User, id string, input CategoryInput) (*domain.Category, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	cat, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("category", nil)
		}
		return nil, err
	}
	if strings.TrimSpace(input.Name) != "" {
		cat.Name = strings.TrimSpace(input.Name)
	}
	if input.Color != "" {
		cat.Color = input.Color
	}
	if err := s.categories.Update(ctx, cat); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewDuplicateKey("name")
		}
		return nil, err
	}
	return cat, nil
}

// ListCategories returns all categories.
func (s *CatalogService) ListCategories(ctx context.Context, actor *domain.User) ([]domain.Category, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	return s.categories.List(ctx)
}

// DeleteCategory removes a category unless packages still reference it.
func (s *CatalogService) DeleteCategory(ctx context.Context, actor *domain.User, id string) error {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return err
	}
	count, err := s.packages.CountByCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewInUse("category", "category has packages")
	}
	if err := s.categories.Delete(ctx, id); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("category", nil)
		}
		return err
	}
	return nil
}

// PackageInput carries package fields.
type PackageInput struct {
	CategoryID   string
	Name         string
	Description  string
	Price        decimal.Decimal
	Currency     string
	BillingCycle domain.BillingCycle
	Features     []string
	IsActive     bool
}

// CreatePackage adds a pricing plan under an existing category.
func (s *CatalogService) CreatePackage(ctx context.Context, actor *domain.User, input PackageInput) (*domain.Package, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	if err := validatePackageInput(input); err != nil {
		return nil, err
	}
	if _, err := s.categories.GetByID(ctx, input.CategoryID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("category", nil)
		}
		return nil, err
	}

	pkg := &domain.Package{
		CategoryID:   input.CategoryID,
		Name:         strings.TrimSpace(input.Name),
		Description:  input.Description,
		Price:        input.Price,
		Currency:     input.Currency,
		BillingCycle: input.BillingCycle,
		Features:     input.Features,
		IsActive:     input.IsActive,
	}
	if err := s.packages.Create(ctx, pkg); err != nil {
		return nil, err
	}
	return pkg, nil
}

// UpdatePackage edits a pricing plan. Existing assets keep their snapshot;
// edits only affect assets created afterwards.
func (s *CatalogService) UpdatePackage(ctx context.Context, actor *domain.User, id string, input PackageInput) (*domain.Package, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	if err := validatePackageInput(input); err != nil {
		return nil, err
	}
	pkg, err := s.packages.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("package", nil)
		}
		return nil, err
	}
	if input.CategoryID != pkg.CategoryID {
		if _, err := s.categories.GetByID(ctx, input.CategoryID); err != nil {
			if err == pgx.ErrNoRows {
				return nil, apperrors.NewNotFound("category", nil)
			}
			return nil, err
		}
	}

	pkg.CategoryID = input.CategoryID
	pkg.Name = strings.TrimSpace(input.Name)
	pkg.Description = input.Description
	pkg.Price = input.Price
	pkg.Currency = input.Currency
	pkg.BillingCycle = input.BillingCycle
	pkg.Features = input.Features
	pkg.IsActive = input.IsActive
	if err := s.packages.Update(ctx, pkg); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("package", nil)
		}
		return nil, err
	}
	return pkg, nil
}

// GetPackage fetches a single package.
func (s *CatalogService) GetPackage(ctx context.Context, actor *domain.User, id string) (*domain.Package, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	pkg, err := s.packages.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("package", nil)
		}
		return nil, err
	}
	return pkg, nil
}

// ListPackages returns packages; clients only see active ones.
func (s *CatalogService) ListPackages(ctx context.Context, actor *domain.User, includeInactive bool) ([]domain.Package, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	activeOnly := !includeInactive || !actor.IsSuperAdmin()
	return s.packages.List(ctx, activeOnly)
}

// DeletePackage removes a plan unless assets still reference it.
func (s *CatalogService) DeletePackage(ctx context.Context, actor *domain.User, id string) error {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return err
	}
	count, err := s.assets.CountByPackage(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return apperrors.NewInUse("package", "package has assets")
	}
	if err := s.packages.Delete(ctx, id); err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("package", nil)
		}
		return err
	}
	return nil
}

func validatePackageInput(input PackageInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	if input.Price.IsNegative() {
		return apperrors.NewValidationError("price must be non-negative", nil)
	}
	switch input.BillingCycle {
	case domain.BillingCycleMonthly, domain.BillingCycleQuarterly, domain.BillingCycleYearly:
		return nil
	default:
		return apperrors.NewValidationError("unknown billing_cycle", map[string]any{"billing_cycle": string(input.BillingCycle)})
	}
}
