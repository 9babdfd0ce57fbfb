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

// TicketsHandler serves ticket endpoints for clients and admins.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), principal.User, service.CreateTicketInput{
		AssetID:     req.AssetID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Priority:    req.Priority,
		PriceType:   req.PriceType,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseTicketQuery(c)
	tickets, err := h.service.ListTickets(c.UserContext(), principal.User, filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:id.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := h.service.GetTicket(c.UserContext(), principal.User, c.Params("id"))
	if err != nil {
		return err
	}
	messages, err := h.service.ListMessages(c.UserContext(), principal.User, ticket.ID)
	if err != nil {
		return err
	}
	history, err := h.service.History(c.UserContext(), principal.User, ticket.ID, 50, 0)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket, messages, history)})
}

// AddMessage POST /tickets/:id/messages. Accepts JSON bodies and multipart
// forms carrying file attachments.
func (h *TicketsHandler) AddMessage(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}

	var body string
	var uploads []service.AttachmentUpload

	if form, err := c.MultipartForm(); err == nil && form != nil {
		if vals := form.Value["body"]; len(vals) > 0 {
			body = vals[0]
		}
		for _, header := range form.File["attachments"] {
			file, err := header.Open()
			if err != nil {
				return apperrors.NewValidationError("unreadable attachment", nil)
			}
			defer file.Close()
			uploads = append(uploads, service.AttachmentUpload{
				FileName: header.Filename,
				MimeType: header.Header.Get("Content-Type"),
				Size:     header.Size,
				Reader:   file,
			})
		}
	} else {
		var req dto.CreateMessageRequest
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
		body = req.Body
	}

	msg, err := h.service.AppendMessage(c.UserContext(), principal.User, c.Params("id"), body, uploads)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketMessageResponse(msg)})
}

// AttachmentURL GET /tickets/:id/attachments/:attachmentID/url.
func (h *TicketsHandler) AttachmentURL(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	url, err := h.service.AttachmentDownloadURL(c.UserContext(), principal.User, c.Params("id"), c.Params("attachmentID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"url": url}})
}

// SetStatus POST /admin/tickets/:id/status.
func (h *TicketsHandler) SetStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SetTicketStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetTicketStatus(c.UserContext(), principal.User, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// SetPriority POST /admin/tickets/:id/priority.
func (h *TicketsHandler) SetPriority(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.SetTicketPriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetTicketPriority(c.UserContext(), principal.User, c.Params("id"), req.Priority)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// Delete DELETE /admin/tickets/:id.
func (h *TicketsHandler) Delete(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.service.DeleteTicket(c.UserContext(), principal.User, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if client := c.Query("client_id"); client != "" {
		filter.ClientID = &client
	}
	if asset := c.Query("asset_id"); asset != "" {
		filter.AssetID = &asset
	}
	if statusStr := c.Query("status"); statusStr != "" {
		for _, part := range strings.Split(statusStr, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if priorityStr := c.Query("priority"); priorityStr != "" {
		for _, part := range strings.Split(priorityStr, ",") {
			filter.Priorities = append(filter.Priorities, domain.TicketPriority(strings.ToUpper(strings.TrimSpace(part))))
		}
	}
	if search := c.Query("search"); search != "" {
		filter.SearchTerm = &search
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	filter.Offset = (page - 1) * pageSize
	filter.Limit = pageSize
	return filter
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:          ticket.ID,
		ExternalKey: ticket.ExternalKey,
		ClientID:    ticket.ClientID,
		AssetID:     ticket.AssetID,
		Title:       ticket.Title,
		Category:    ticket.Category,
		Priority:    ticket.Priority,
		PriceType:   ticket.PriceType,
		Status:      ticket.Status,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket, messages []domain.TicketMessage, history []domain.TicketHistory) dto.TicketDetailResponse {
	msgs := make([]dto.TicketMessageResponse, 0, len(messages))
	for i := range messages {
		msgs = append(msgs, ticketMessageResponse(&messages[i]))
	}
	return dto.TicketDetailResponse{
		TicketSummary: ticketSummary(ticket),
		Description:   ticket.Description,
		ClosedAt:      ticket.ClosedAt,
		Messages:      msgs,
		History:       historyResponses(history),
	}
}

func ticketMessageResponse(msg *domain.TicketMessage) dto.TicketMessageResponse {
	attachments := make([]dto.AttachmentResponse, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		attachments = append(attachments, dto.AttachmentResponse{
			ID:        att.ID,
			FileName:  att.FileName,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
		})
	}
	return dto.TicketMessageResponse{
		ID:          msg.ID,
		SenderType:  msg.SenderType,
		SenderID:    msg.SenderID,
		Body:        msg.Body,
		Attachments: attachments,
		CreatedAt:   msg.CreatedAt,
	}
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangedByType: entry.ChangedByType,
			ChangedByID:   entry.ChangedByID,
			ChangeType:    entry.ChangeType,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return resp
}
