package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingSettings is the singleton row of billing inputs read at invoice
// creation time. Rate changes never retroactively alter existing invoices.
type BillingSettings struct {
	ID               string
	VATRate          decimal.Decimal
	PaymentTermsDays int
	Currency         string
	UpdatedAt        time.Time
}

// EmailTemplate is an admin-managed outbound email template keyed by event.
type EmailTemplate struct {
	ID        string
	Key       string
	Subject   string
	Body      string
	UpdatedAt time.Time
}
