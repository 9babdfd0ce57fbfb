package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/events"
	"github.com/kubikportal/portal-service/internal/repository"
	"github.com/kubikportal/portal-service/internal/storage"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

// allowedTicketTransitions defines valid forward ticket transitions. A super
// admin may additionally reopen a ticket from any state back to open.
var allowedTicketTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress},
	domain.TicketStatusPending:    {domain.TicketStatusInProgress},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed},
	domain.TicketStatusClosed:     {},
}

const attachmentURLExpiry = 15 * time.Minute

// TicketService manages tickets, their message threads and audit history.
type TicketService struct {
	tickets     repository.TicketRepository
	messages    repository.TicketMessageRepository
	attachments repository.AttachmentRepository
	history     repository.TicketHistoryRepository
	assets      repository.AssetRepository
	store       storage.ObjectStore
	dispatcher  events.Dispatcher
	logger      *zap.Logger
}

// NewTicketService builds the service.
func NewTicketService(
	tickets repository.TicketRepository,
	messages repository.TicketMessageRepository,
	attachments repository.AttachmentRepository,
	history repository.TicketHistoryRepository,
	assets repository.AssetRepository,
	store storage.ObjectStore,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *TicketService {
	return &TicketService{
		tickets:     tickets,
		messages:    messages,
		attachments: attachments,
		history:     history,
		assets:      assets,
		store:       store,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// CreateTicketInput describes a new ticket.
type CreateTicketInput struct {
	AssetID     *string
	Title       string
	Description string
	Category    domain.TicketCategory
	Priority    domain.TicketPriority
	PriceType   domain.TicketPriceType
}

// CreateTicket opens a ticket for the actor. The description doubles as the
// first message of the thread, authored by the client.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input CreateTicketInput) (*domain.Ticket, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	if err := validateTicketInput(input); err != nil {
		return nil, err
	}
	if input.AssetID != nil {
		asset, err := s.assets.GetByID(ctx, *input.AssetID)
		if err != nil {
			if err == pgx.ErrNoRows {
				return nil, apperrors.NewNotFound("asset", nil)
			}
			return nil, err
		}
		if !actor.IsSuperAdmin() && asset.OwnerID != actor.ID {
			return nil, apperrors.NewNotFound("asset", nil)
		}
	}

	ticket := &domain.Ticket{
		ExternalKey: newTicketKey(),
		ClientID:    actor.ID,
		AssetID:     input.AssetID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Category:    input.Category,
		Priority:    input.Priority,
		PriceType:   input.PriceType,
		Status:      domain.TicketStatusOpen,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	senderID := actor.ID
	first := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: domain.SenderTypeClient,
		SenderID:   &senderID,
		Body:       input.Description,
	}
	if err := s.messages.Create(ctx, first); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketCreated,
		EntityID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			ClientID: ticket.ClientID,
			Title:    ticket.Title,
			Category: ticket.Category,
			Priority: ticket.Priority,
		},
	})
	return ticket, nil
}

// GetTicket returns a ticket visible to the actor.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, id string) (*domain.Ticket, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	if !actor.IsSuperAdmin() && ticket.ClientID != actor.ID {
		return nil, apperrors.NewNotFound("ticket", nil)
	}
	return ticket, nil
}

// ListTickets returns tickets matching the filter; clients are scoped to
// their own tickets.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter repository.TicketFilter) ([]domain.Ticket, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() {
		clientID := actor.ID
		filter.ClientID = &clientID
	}
	return s.tickets.ListWithFilter(ctx, filter)
}

// AttachmentUpload describes an incoming file for a message.
type AttachmentUpload struct {
	FileName string
	MimeType string
	Size     int64
	Reader   io.Reader
}

// AppendMessage adds a message to a ticket thread. The thread is append-only
// and messages never change the ticket status; the ticket's updated_at is
// bumped so activity sorts it up.
func (s *TicketService) AppendMessage(ctx context.Context, actor *domain.User, ticketID, body string, uploads []AttachmentUpload) (*domain.TicketMessage, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(body) == "" && len(uploads) == 0 {
		return nil, apperrors.NewValidationError("message body or attachment required", nil)
	}

	senderType := domain.SenderTypeClient
	if actor.IsSuperAdmin() {
		senderType = domain.SenderTypeAdmin
	}
	senderID := actor.ID
	msg := &domain.TicketMessage{
		TicketID:   ticket.ID,
		SenderType: senderType,
		SenderID:   &senderID,
		Body:       body,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}

	for _, upload := range uploads {
		key := fmt.Sprintf("tickets/%s/%s/%s", ticket.ID, msg.ID, uuid.NewString())
		if err := s.store.Put(ctx, key, upload.Reader, upload.Size, upload.MimeType); err != nil {
			return nil, apperrors.NewExternalService("object storage", err)
		}
		att := &domain.AttachmentReference{
			TicketMessageID: msg.ID,
			StorageKey:      key,
			FileName:        upload.FileName,
			MimeType:        upload.MimeType,
			SizeBytes:       upload.Size,
		}
		if err := s.attachments.Create(ctx, att); err != nil {
			return nil, err
		}
		msg.Attachments = append(msg.Attachments, *att)
	}

	if err := s.tickets.Touch(ctx, ticket.ID); err != nil {
		s.logger.Warn("failed to bump ticket activity", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketMessageAdded,
		EntityID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketMessageAddedPayload{
			MessageID:   msg.ID,
			SenderType:  senderType,
			BodyPreview: stringPreview(body, 120),
		},
	})
	return msg, nil
}

// ListMessages returns the full thread in chronological order, attachments
// included.
func (s *TicketService) ListMessages(ctx context.Context, actor *domain.User, ticketID string) ([]domain.TicketMessage, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	msgs, err := s.messages.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		atts, err := s.attachments.ListByMessage(ctx, msgs[i].ID)
		if err != nil {
			return nil, err
		}
		msgs[i].Attachments = atts
	}
	return msgs, nil
}

// AttachmentDownloadURL returns a time-limited URL for an attachment on a
// ticket the actor can see.
func (s *TicketService) AttachmentDownloadURL(ctx context.Context, actor *domain.User, ticketID, attachmentID string) (string, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return "", err
	}
	att, err := s.attachments.GetByID(ctx, attachmentID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return "", apperrors.NewNotFound("attachment", nil)
		}
		return "", err
	}
	url, err := s.store.PresignedURL(ctx, att.StorageKey, attachmentURLExpiry)
	if err != nil {
		return "", apperrors.NewExternalService("object storage", err)
	}
	return url, nil
}

// SetTicketStatus transitions a ticket. Admin only. Reopening (any state
// back to open) is always allowed for admins; other transitions follow the
// forward table. The update is conditional on the observed status.
func (s *TicketService) SetTicketStatus(ctx context.Context, actor *domain.User, id string, next domain.TicketStatus) (*domain.Ticket, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	if ticket.Status == next {
		return ticket, nil
	}

	reopen := next == domain.TicketStatusOpen
	if !reopen && !ticketTransitionAllowed(ticket.Status, next) {
		return nil, apperrors.NewInvalidTransition("ticket", string(ticket.Status), string(next))
	}

	var closedAt *time.Time
	if next == domain.TicketStatusClosed {
		now := time.Now()
		closedAt = &now
	}
	updated, err := s.tickets.UpdateStatus(ctx, id, ticket.Status, next, closedAt)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, apperrors.NewConflictingState("ticket")
	}

	oldStatus := ticket.Status
	ticket.Status = next
	ticket.ClosedAt = closedAt

	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeStatus,
		map[string]any{"status": string(oldStatus)},
		map[string]any{"status": string(next)})

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     events.EventTicketStatusChanged,
		EntityID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: next,
		},
	})
	return ticket, nil
}

// SetTicketPriority changes the ticket priority. Admin only; audited.
func (s *TicketService) SetTicketPriority(ctx context.Context, actor *domain.User, id string, next domain.TicketPriority) (*domain.Ticket, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	switch next {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityUrgent:
	default:
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(next)})
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	if ticket.Priority == next {
		return ticket, nil
	}

	old := ticket.Priority
	if err := s.tickets.UpdatePriority(ctx, id, next); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("ticket", nil)
		}
		return nil, err
	}
	ticket.Priority = next
	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypePriority,
		map[string]any{"priority": string(old)},
		map[string]any{"priority": string(next)})
	return ticket, nil
}

// History returns the audit trail for a ticket. Clients only see status
// changes; admins see everything.
func (s *TicketService) History(ctx context.Context, actor *domain.User, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	ticket, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	entries, err := s.history.ListByTicket(ctx, ticket.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	if actor.IsSuperAdmin() {
		return entries, nil
	}
	filtered := entries[:0]
	for _, entry := range entries {
		if entry.ChangeType == domain.ChangeTypeStatus {
			filtered = append(filtered, entry)
		}
	}
	return filtered, nil
}

// DeleteTicket removes a closed ticket. Admin only.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, id string) error {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return err
	}
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("ticket", nil)
		}
		return err
	}
	if ticket.Status != domain.TicketStatusClosed {
		return apperrors.NewInUse("ticket", "only closed tickets can be deleted")
	}
	return s.tickets.Delete(ctx, id)
}

func (s *TicketService) recordHistory(ctx context.Context, actor *domain.User, ticketID string, change domain.TicketChangeType, oldValue, newValue map[string]any) {
	actorID := actor.ID
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByType: domain.SenderTypeAdmin,
		ChangedByID:   &actorID,
		ChangeType:    change,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record ticket history",
			zap.String("ticket_id", ticketID),
			zap.Error(err))
	}
}

func validateTicketInput(input CreateTicketInput) error {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Description) == "" {
		return apperrors.NewValidationError("title and description required", nil)
	}
	switch input.Category {
	case domain.TicketCategorySupport, domain.TicketCategoryChangeRequest,
		domain.TicketCategoryBugReport, domain.TicketCategoryFeatureRequest:
	default:
		return apperrors.NewValidationError("unknown category", map[string]any{"category": string(input.Category)})
	}
	switch input.Priority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium,
		domain.TicketPriorityHigh, domain.TicketPriorityUrgent:
	default:
		return apperrors.NewValidationError("unknown priority", map[string]any{"priority": string(input.Priority)})
	}
	switch input.PriceType {
	case domain.PriceTypeWithPackage, domain.PriceTypeWithoutPackage:
	default:
		return apperrors.NewValidationError("unknown price_type", map[string]any{"price_type": string(input.PriceType)})
	}
	return nil
}

func ticketTransitionAllowed(from, to domain.TicketStatus) bool {
	for _, allowed := range allowedTicketTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// newTicketKey returns a short human-facing reference like TCK-4F2A9C.
func newTicketKey() string {
	return "TCK-" + strings.ToUpper(uuid.NewString()[:6])
}
