package dto

import (
	"time"

	"github.com/kubikportal/portal-service/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	AssetID     *string                `json:"asset_id"`
	Title       string                 `json:"title"`
	Description string                 `json:"description"`
	Category    domain.TicketCategory  `json:"category"`
	Priority    domain.TicketPriority  `json:"priority"`
	PriceType   domain.TicketPriceType `json:"price_type"`
}

// TicketSummary response.
type TicketSummary struct {
	ID          string                 `json:"id"`
	ExternalKey string                 `json:"external_key"`
	ClientID    string                 `json:"client_id"`
	AssetID     *string                `json:"asset_id"`
	Title       string                 `json:"title"`
	Category    domain.TicketCategory  `json:"category"`
	Priority    domain.TicketPriority  `json:"priority"`
	PriceType   domain.TicketPriceType `json:"price_type"`
	Status      domain.TicketStatus    `json:"status"`
	CreatedAt   time.Time              `json:"created_at"`
	UpdatedAt   time.Time              `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Description string                  `json:"description"`
	ClosedAt    *time.Time              `json:"closed_at"`
	Messages    []TicketMessageResponse `json:"messages"`
	History     []TicketHistoryResponse `json:"history"`
}

// TicketMessageResponse represents a thread message.
type TicketMessageResponse struct {
	ID          string               `json:"id"`
	SenderType  domain.SenderType    `json:"sender_type"`
	SenderID    *string              `json:"sender_id"`
	Body        string               `json:"body"`
	Attachments []AttachmentResponse `json:"attachments"`
	CreatedAt   time.Time            `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        string `json:"id"`
	FileName  string `json:"file_name"`
	MimeType  string `json:"mime_type"`
	SizeBytes int64  `json:"size_bytes"`
}

// CreateMessageRequest payload.
type CreateMessageRequest struct {
	Body string `json:"body"`
}

// SetTicketStatusRequest payload.
type SetTicketStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// SetTicketPriorityRequest payload.
type SetTicketPriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangedByType domain.SenderType       `json:"changed_by_type"`
	ChangedByID   *string                 `json:"changed_by_id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	OldValue      map[string]any          `json:"old_value"`
	NewValue      map[string]any          `json:"new_value"`
	CreatedAt     time.Time               `json:"created_at"`
}
