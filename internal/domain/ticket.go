package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusPending    TicketStatus = "PENDING"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// TicketCategory classifies the kind of request.
type TicketCategory string

const (
	TicketCategorySupport        TicketCategory = "SUPPORT"
	TicketCategoryChangeRequest  TicketCategory = "CHANGE_REQUEST"
	TicketCategoryBugReport      TicketCategory = "BUG_REPORT"
	TicketCategoryFeatureRequest TicketCategory = "FEATURE_REQUEST"
)

// TicketPriority enumerates urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// TicketPriceType indicates whether the work is covered by the asset's package.
type TicketPriceType string

const (
	PriceTypeWithPackage    TicketPriceType = "WITH_PACKAGE"
	PriceTypeWithoutPackage TicketPriceType = "WITHOUT_PACKAGE"
)

// Ticket is the aggregate for client support and change requests.
type Ticket struct {
	ID          string
	ExternalKey string
	ClientID    string
	AssetID     *string
	Title       string
	Description string
	Category    TicketCategory
	Priority    TicketPriority
	PriceType   TicketPriceType
	Status      TicketStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClosedAt    *time.Time
}
