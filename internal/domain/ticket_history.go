package domain

import "time"

// TicketChangeType enumerates auditable ticket mutations.
type TicketChangeType string

const (
	ChangeTypeStatus   TicketChangeType = "STATUS"
	ChangeTypePriority TicketChangeType = "PRIORITY"
)

// TicketHistory records a single auditable change on a ticket.
type TicketHistory struct {
	ID            string
	TicketID      string
	ChangedByType SenderType
	ChangedByID   *string
	ChangeType    TicketChangeType
	OldValue      map[string]any
	NewValue      map[string]any
	CreatedAt     time.Time
}
