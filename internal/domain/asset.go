package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssetStatus enumerates lifecycle states for billable assets.
type AssetStatus string

const (
	AssetStatusActive    AssetStatus = "ACTIVE"
	AssetStatusInactive  AssetStatus = "INACTIVE"
	AssetStatusSuspended AssetStatus = "SUSPENDED"
)

// BillingProfile holds optional per-asset overrides of the owner's contact data.
type BillingProfile struct {
	BusinessName   *string
	VATNumber      *string
	BillingEmail   *string
	BillingAddress *string
	BillingPhone   *string
}

// Asset is a client-owned billable resource bound to a package.
// Price, cycle and currency are snapshotted from the package at creation;
// later package edits never change what an existing asset is billed.
type Asset struct {
	ID            string
	OwnerID       string
	Name          string
	Description   string
	CategoryID    string
	PackageID     string
	Status        AssetStatus
	Profile       BillingProfile
	PriceSnapshot decimal.Decimal
	BillingCycle  BillingCycle
	Currency      string
	RegisteredAt  time.Time
	NextDueDate   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
