package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kubikportal/portal-service/internal/api/dto"
	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/service"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

// SettingsHandler serves the super-admin settings and dashboard surface.
type SettingsHandler struct {
	settings *service.SettingsService
	stats    *service.StatsService
}

// NewSettingsHandler constructs handler.
func NewSettingsHandler(settingsService *service.SettingsService, statsService *service.StatsService) *SettingsHandler {
	return &SettingsHandler{settings: settingsService, stats: statsService}
}

// GetBillingSettings GET /admin/settings/billing.
func (h *SettingsHandler) GetBillingSettings(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	settings, err := h.settings.GetBillingSettings(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": billingSettingsResponse(settings)})
}

// UpdateBillingSettings PUT /admin/settings/billing.
func (h *SettingsHandler) UpdateBillingSettings(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.BillingSettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.settings.UpdateBillingSettings(c.UserContext(), principal.User, service.BillingSettingsInput{
		VATRate:          req.VATRate,
		PaymentTermsDays: req.PaymentTermsDays,
		Currency:         req.Currency,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": billingSettingsResponse(settings)})
}

// ListTemplates GET /admin/settings/templates.
func (h *SettingsHandler) ListTemplates(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	templates, err := h.settings.ListTemplates(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	items := make([]dto.EmailTemplateResponse, 0, len(templates))
	for i := range templates {
		items = append(items, templateResponse(&templates[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTemplate GET /admin/settings/templates/:key.
func (h *SettingsHandler) GetTemplate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	tpl, err := h.settings.GetTemplate(c.UserContext(), principal.User, c.Params("key"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": templateResponse(tpl)})
}

// UpsertTemplate PUT /admin/settings/templates.
func (h *SettingsHandler) UpsertTemplate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.EmailTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	tpl, err := h.settings.UpsertTemplate(c.UserContext(), principal.User, service.TemplateInput{
		Key:     req.Key,
		Subject: req.Subject,
		Body:    req.Body,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": templateResponse(tpl)})
}

// Dashboard GET /admin/dashboard.
func (h *SettingsHandler) Dashboard(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	stats, err := h.stats.Dashboard(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	totals := make(map[string]string, len(stats.InvoiceTotals))
	for status, total := range stats.InvoiceTotals {
		totals[status] = total.StringFixed(2)
	}
	return c.JSON(fiber.Map{"data": dto.DashboardResponse{
		UsersByStatus:    stats.UsersByStatus,
		AssetsByStatus:   stats.AssetsByStatus,
		TicketsByStatus:  stats.TicketsByStatus,
		InvoicesByStatus: stats.InvoicesByStatus,
		InvoiceTotals:    totals,
	}})
}

func billingSettingsResponse(settings *domain.BillingSettings) dto.BillingSettingsResponse {
	return dto.BillingSettingsResponse{
		VATRate:          settings.VATRate,
		PaymentTermsDays: settings.PaymentTermsDays,
		Currency:         settings.Currency,
		UpdatedAt:        settings.UpdatedAt,
	}
}

func templateResponse(tpl *domain.EmailTemplate) dto.EmailTemplateResponse {
	return dto.EmailTemplateResponse{
		Key:       tpl.Key,
		Subject:   tpl.Subject,
		Body:      tpl.Body,
		UpdatedAt: tpl.UpdatedAt,
	}
}
