package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kubikportal/portal-service/internal/api/dto"
	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/repository"
	"github.com/kubikportal/portal-service/internal/service"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

// InvoicesHandler serves invoice endpoints.
type InvoicesHandler struct {
	service *service.BillingService
}

// NewInvoicesHandler constructs handler.
func NewInvoicesHandler(billingService *service.BillingService) *InvoicesHandler {
	return &InvoicesHandler{service: billingService}
}

// List GET /invoices.
func (h *InvoicesHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseInvoiceQuery(c)
	invoices, err := h.service.ListInvoices(c.UserContext(), principal.User, filter)
	if err != nil {
		return err
	}
	items := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, invoiceResponse(&invoices[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /invoices/:id.
func (h *InvoicesHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	inv, err := h.service.GetInvoice(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoiceResponse(inv)})
}

// PDFURL GET /invoices/:id/pdf.
func (h *InvoicesHandler) PDFURL(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	url, err := h.service.InvoicePDFURL(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"url": url}})
}

// Create POST /admin/invoices.
func (h *InvoicesHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateInvoiceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	input := service.CreateInvoiceInput{
		UserID:  req.UserID,
		AssetID: req.AssetID,
		Amount:  req.Amount,
		DueDate: req.DueDate,
		Draft:   req.Draft,
	}
	for _, item := range req.LineItems {
		input.LineItems = append(input.LineItems, service.LineItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	inv, err := h.service.CreateInvoice(c.UserContext(), principal.User, input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": invoiceResponse(inv)})
}

// RecordPayment POST /admin/invoices/:id/payments.
func (h *InvoicesHandler) RecordPayment(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.RecordPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	inv, err := h.service.RecordPayment(c.UserContext(), principal.User, c.Params("id"), service.PaymentInput{
		Amount:    req.Amount,
		PaidDate:  req.PaidDate,
		Reference: req.Reference,
		Notes:     req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoiceResponse(inv)})
}

// GenerateRun POST /admin/invoices/generate.
func (h *InvoicesHandler) GenerateRun(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	report, err := h.service.GenerateInvoices(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": report})
}

// SweepOverdue POST /admin/invoices/overdue-sweep.
func (h *InvoicesHandler) SweepOverdue(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	count, err := h.service.SweepOverdue(c.UserContext(), principal.User)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"reclassified": count}})
}

// SendEmail POST /admin/invoices/:id/send.
func (h *InvoicesHandler) SendEmail(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.SendInvoiceEmail(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"sent": true}})
}

// UploadPDF POST /admin/invoices/:id/pdf.
func (h *InvoicesHandler) UploadPDF(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file required", nil)
	}
	file, err := header.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}
	defer file.Close()

	inv, err := h.service.UploadInvoicePDF(c.UserContext(), principal.User, c.Params("id"), file, header.Size)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoiceResponse(inv)})
}

func parseInvoiceQuery(c *fiber.Ctx) repository.InvoiceFilter {
	filter := repository.InvoiceFilter{}
	if user := c.Query("user_id"); user != "" {
		filter.UserID = &user
	}
	if asset := c.Query("asset_id"); asset != "" {
		filter.AssetID = &asset
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.InvoiceStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func invoiceResponse(inv *domain.Invoice) dto.InvoiceResponse {
	items := make([]dto.LineItemResponse, 0, len(inv.LineItems))
	for _, item := range inv.LineItems {
		items = append(items, dto.LineItemResponse{
			ID:          item.ID,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       item.Total,
		})
	}
	return dto.InvoiceResponse{
		ID:               inv.ID,
		Number:           inv.Number,
		UserID:           inv.UserID,
		AssetID:          inv.AssetID,
		Period:           inv.Period,
		Amount:           inv.Amount,
		VATRate:          inv.VATRate,
		VATAmount:        inv.VATAmount,
		TotalAmount:      inv.TotalAmount,
		Currency:         inv.Currency,
		Status:           inv.Status,
		DueDate:          inv.DueDate,
		PaidDate:         inv.PaidDate,
		AmountPaid:       inv.AmountPaid,
		PaymentReference: inv.PaymentReference,
		PaymentNotes:     inv.PaymentNotes,
		HasPDF:           inv.PDFKey != nil,
		LineItems:        items,
		CreatedAt:        inv.CreatedAt,
	}
}
