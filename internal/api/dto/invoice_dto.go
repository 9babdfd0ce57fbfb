package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kubikportal/portal-service/internal/domain"
)

// LineItemRequest is one row of a manual invoice.
type LineItemRequest struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

// CreateInvoiceRequest payload for manual invoices.
type CreateInvoiceRequest struct {
	UserID    string            `json:"user_id"`
	AssetID   string            `json:"asset_id"`
	Amount    decimal.Decimal   `json:"amount"`
	DueDate   *time.Time        `json:"due_date"`
	Draft     bool              `json:"draft"`
	LineItems []LineItemRequest `json:"line_items"`
}

// RecordPaymentRequest payload.
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PaidDate  *time.Time      `json:"paid_date"`
	Reference *string         `json:"reference"`
	Notes     *string         `json:"notes"`
}

// LineItemResponse representation.
type LineItemResponse struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

// InvoiceResponse representation.
type InvoiceResponse struct {
	ID               string               `json:"id"`
	Number           string               `json:"number"`
	UserID           string               `json:"user_id"`
	AssetID          string               `json:"asset_id"`
	Period           *string              `json:"period,omitempty"`
	Amount           decimal.Decimal      `json:"amount"`
	VATRate          decimal.Decimal      `json:"vat_rate"`
	VATAmount        decimal.Decimal      `json:"vat_amount"`
	TotalAmount      decimal.Decimal      `json:"total_amount"`
	Currency         string               `json:"currency"`
	Status           domain.InvoiceStatus `json:"status"`
	DueDate          time.Time            `json:"due_date"`
	PaidDate         *time.Time           `json:"paid_date,omitempty"`
	AmountPaid       *decimal.Decimal     `json:"amount_paid,omitempty"`
	PaymentReference *string              `json:"payment_reference,omitempty"`
	PaymentNotes     *string              `json:"payment_notes,omitempty"`
	HasPDF           bool                 `json:"has_pdf"`
	LineItems        []LineItemResponse   `json:"line_items,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
}
