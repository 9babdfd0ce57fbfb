package events

import (
	"time"

	"github.com/kubikportal/portal-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered      EventType = "user_registered"
	EventUserApproved        EventType = "user_approved"
	EventUserRejected        EventType = "user_rejected"
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketMessageAdded  EventType = "ticket_message_added"
	EventInvoiceCreated      EventType = "invoice_created"
	EventInvoicePaid         EventType = "invoice_paid"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Role   domain.Role `json:"role"`
	UserID *string     `json:"user_id,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  string      `json:"entity_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// UserStatusPayload accompanies user approval and rejection events.
type UserStatusPayload struct {
	Email     string            `json:"email"`
	FirstName string            `json:"first_name"`
	NewStatus domain.UserStatus `json:"new_status"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	ClientID string                `json:"client_id"`
	Title    string                `json:"title"`
	Category domain.TicketCategory `json:"category"`
	Priority domain.TicketPriority `json:"priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketMessageAddedPayload payload.
type TicketMessageAddedPayload struct {
	MessageID   string            `json:"message_id"`
	SenderType  domain.SenderType `json:"sender_type"`
	BodyPreview string            `json:"body_preview"`
}

// InvoicePayload accompanies invoice creation and payment events.
type InvoicePayload struct {
	Number      string `json:"number"`
	UserID      string `json:"user_id"`
	AssetID     string `json:"asset_id"`
	TotalAmount string `json:"total_amount"`
	Currency    string `json:"currency"`
}
