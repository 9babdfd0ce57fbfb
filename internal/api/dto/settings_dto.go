package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingSettingsRequest payload.
type BillingSettingsRequest struct {
	VATRate          decimal.Decimal `json:"vat_rate"`
	PaymentTermsDays int             `json:"payment_terms_days"`
	Currency         string          `json:"currency"`
}

// BillingSettingsResponse representation.
type BillingSettingsResponse struct {
	VATRate          decimal.Decimal `json:"vat_rate"`
	PaymentTermsDays int             `json:"payment_terms_days"`
	Currency         string          `json:"currency"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// EmailTemplateRequest payload.
type EmailTemplateRequest struct {
	Key     string `json:"key"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// EmailTemplateResponse representation.
type EmailTemplateResponse struct {
	Key       string    `json:"key"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DashboardResponse aggregates admin counters.
type DashboardResponse struct {
	UsersByStatus    map[string]int    `json:"users_by_status"`
	AssetsByStatus   map[string]int    `json:"assets_by_status"`
	TicketsByStatus  map[string]int    `json:"tickets_by_status"`
	InvoicesByStatus map[string]int    `json:"invoices_by_status"`
	InvoiceTotals    map[string]string `json:"invoice_totals"`
}
