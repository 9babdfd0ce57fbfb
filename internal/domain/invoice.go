package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus enumerates billing document states. OVERDUE is derived from
// PENDING by the reclassification pass; it is never set by a payment call.
type InvoiceStatus string

const (
	InvoiceStatusDraft   InvoiceStatus = "DRAFT"
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
	InvoiceStatusOverdue InvoiceStatus = "OVERDUE"
)

// Invoice is a billing document against one asset for one billing period.
// VATRate is snapshotted at issue time; totals are never recomputed after
// the invoice is paid.
type Invoice struct {
	ID               string
	Number           string
	UserID           string
	AssetID          string
	Period           *string
	Amount           decimal.Decimal
	VATRate          decimal.Decimal
	VATAmount        decimal.Decimal
	TotalAmount      decimal.Decimal
	Currency         string
	Status           InvoiceStatus
	DueDate          time.Time
	PaidDate         *time.Time
	AmountPaid       *decimal.Decimal
	PaymentReference *string
	PaymentNotes     *string
	PDFKey           *string
	LineItems        []InvoiceLineItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// InvoiceLineItem is one descriptive row on an invoice.
type InvoiceLineItem struct {
	ID          string
	InvoiceID   string
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
	Total       decimal.Decimal
}
