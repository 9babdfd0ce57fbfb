package domain

import "time"

// SenderType indicates which side of the conversation authored a message.
type SenderType string

const (
	SenderTypeClient SenderType = "CLIENT"
	SenderTypeAdmin  SenderType = "ADMIN"
)

// TicketMessage is one entry in a ticket's append-only thread.
// Messages are immutable once created.
type TicketMessage struct {
	ID          string
	TicketID    string
	SenderType  SenderType
	SenderID    *string
	Body        string
	Attachments []AttachmentReference
	CreatedAt   time.Time
}

// AttachmentReference stores metadata for an uploaded file; the binary
// lives in object storage under StorageKey.
type AttachmentReference struct {
	ID              string
	TicketMessageID string
	StorageKey      string
	FileName        string
	MimeType        string
	SizeBytes       int64
	CreatedAt       time.Time
}
