package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kubikportal/portal-service/internal/api/dto"
	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/repository"
	"github.com/kubikportal/portal-service/internal/service"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

// AssetsHandler serves asset endpoints.
type AssetsHandler struct {
	service *service.AssetService
}

// NewAssetsHandler constructs handler.
func NewAssetsHandler(assetService *service.AssetService) *AssetsHandler {
	return &AssetsHandler{service: assetService}
}

// Create POST /assets.
func (h *AssetsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	asset, err := h.service.CreateAsset(c.UserContext(), principal.User, service.CreateAssetInput{
		OwnerID:     req.OwnerID,
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		PackageID:   req.PackageID,
		Profile:     billingProfile(req.Profile),
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": assetResponse(asset)})
}

// List GET /assets.
func (h *AssetsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseAssetQuery(c)
	assets, err := h.service.ListAssets(c.UserContext(), principal.User, filter)
	if err != nil {
		return err
	}
	items := make([]dto.AssetResponse, 0, len(assets))
	for i := range assets {
		items = append(items, assetResponse(&assets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /assets/:id.
func (h *AssetsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	asset, err := h.service.GetAsset(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assetResponse(asset)})
}

// Update PATCH /assets/:id.
func (h *AssetsHandler) Update(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateAssetRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.UpdateAssetInput{
		Name:        req.Name,
		Description: req.Description,
	}
	if req.Profile != nil {
		profile := billingProfile(*req.Profile)
		input.Profile = &profile
	}
	asset, err := h.service.UpdateAsset(c.UserContext(), principal.User, c.Params("id"), input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assetResponse(asset)})
}

// SetStatus POST /admin/assets/:id/status.
func (h *AssetsHandler) SetStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SetAssetStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	asset, err := h.service.SetAssetStatus(c.UserContext(), principal.User, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": assetResponse(asset)})
}

// Delete DELETE /admin/assets/:id.
func (h *AssetsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteAsset(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseAssetQuery(c *fiber.Ctx) repository.AssetFilter {
	filter := repository.AssetFilter{}
	if owner := c.Query("owner_id"); owner != "" {
		filter.OwnerID = &owner
	}
	if category := c.Query("category_id"); category != "" {
		filter.CategoryID = &category
	}
	if pkg := c.Query("package_id"); pkg != "" {
		filter.PackageID = &pkg
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.AssetStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func billingProfile(body dto.BillingProfileBody) domain.BillingProfile {
	return domain.BillingProfile{
		BusinessName:   body.BusinessName,
		VATNumber:      body.VATNumber,
		BillingEmail:   body.BillingEmail,
		BillingAddress: body.BillingAddress,
		BillingPhone:   body.BillingPhone,
	}
}

func assetResponse(asset *domain.Asset) dto.AssetResponse {
	return dto.AssetResponse{
		ID:          asset.ID,
		OwnerID:     asset.OwnerID,
		Name:        asset.Name,
		Description: asset.Description,
		CategoryID:  asset.CategoryID,
		PackageID:   asset.PackageID,
		Status:      asset.Status,
		Profile: dto.BillingProfileBody{
			BusinessName:   asset.Profile.BusinessName,
			VATNumber:      asset.Profile.VATNumber,
			BillingEmail:   asset.Profile.BillingEmail,
			BillingAddress: asset.Profile.BillingAddress,
			BillingPhone:   asset.Profile.BillingPhone,
		},
		PriceSnapshot: asset.PriceSnapshot,
		BillingCycle:  asset.BillingCycle,
		Currency:      asset.Currency,
		RegisteredAt:  asset.RegisteredAt,
		NextDueDate:   asset.NextDueDate,
		CreatedAt:     asset.CreatedAt,
		UpdatedAt:     asset.UpdatedAt,
	}
}
