package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kubikportal/portal-service/internal/api/dto"
	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/service"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

// CatalogHandler serves category and package endpoints.
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler constructs handler.
func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: catalogService}
}

// ListCategories GET /categories.
func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	categories, err := h.service.ListCategories(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	items := make([]dto.CategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, categoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateCategory POST /admin/categories.
func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	cat, err := h.service.CreateCategory(c.UserContext(), principal.User, service.CategoryInput{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": categoryResponse(cat)})
}

// UpdateCategory PATCH /admin/categories/:id.
func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CategoryRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	cat, err := h.service.UpdateCategory(c.UserContext(), principal.User, c.Params("id"), service.CategoryInput{
		Name:  req.Name,
		Color: req.Color,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": categoryResponse(cat)})
}

// DeleteCategory DELETE /admin/categories/:id.
func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteCategory(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListPackages GET /packages.
func (h *CatalogHandler) ListPackages(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	includeInactive := c.Query("include_inactive") == "true"
	packages, err := h.service.ListPackages(c.UserContext(), principal.User, includeInactive)
	if err != nil {
		return err
	}
	items := make([]dto.PackageResponse, 0, len(packages))
	for i := range packages {
		items = append(items, packageResponse(&packages[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetPackage GET /packages/:id.
func (h *CatalogHandler) GetPackage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	pkg, err := h.service.GetPackage(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": packageResponse(pkg)})
}

// CreatePackage POST /admin/packages.
func (h *CatalogHandler) CreatePackage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PackageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	pkg, err := h.service.CreatePackage(c.UserContext(), principal.User, packageInput(req))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": packageResponse(pkg)})
}

// UpdatePackage PUT /admin/packages/:id.
func (h *CatalogHandler) UpdatePackage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.PackageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	pkg, err := h.service.UpdatePackage(c.UserContext(), principal.User, c.Params("id"), packageInput(req))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": packageResponse(pkg)})
}

// DeletePackage DELETE /admin/packages/:id.
func (h *CatalogHandler) DeletePackage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeletePackage(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func packageInput(req dto.PackageRequest) service.PackageInput {
	return service.PackageInput{
		CategoryID:   req.CategoryID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Currency:     req.Currency,
		BillingCycle: req.BillingCycle,
		Features:     req.Features,
		IsActive:     req.IsActive,
	}
}

func categoryResponse(cat *domain.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:        cat.ID,
		Name:      cat.Name,
		Color:     cat.Color,
		CreatedAt: cat.CreatedAt,
	}
}

func packageResponse(pkg *domain.Package) dto.PackageResponse {
	return dto.PackageResponse{
		ID:           pkg.ID,
		CategoryID:   pkg.CategoryID,
		Name:         pkg.Name,
		Description:  pkg.Description,
		Price:        pkg.Price,
		Currency:     pkg.Currency,
		BillingCycle: pkg.BillingCycle,
		Features:     pkg.Features,
		IsActive:     pkg.IsActive,
		CreatedAt:    pkg.CreatedAt,
		UpdatedAt:    pkg.UpdatedAt,
	}
}
