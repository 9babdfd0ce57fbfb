package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingCycle enumerates how often a package bills.
type BillingCycle string

const (
	BillingCycleMonthly   BillingCycle = "MONTHLY"
	BillingCycleQuarterly BillingCycle = "QUARTERLY"
	BillingCycleYearly    BillingCycle = "YEARLY"
)

// Package is a priced service plan clients subscribe assets to.
type Package struct {
	ID           string
	CategoryID   string
	Name         string
	Description  string
	Price        decimal.Decimal
	Currency     string
	BillingCycle BillingCycle
	Features     []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Category groups packages and assets under a named, colored label.
type Category struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
