package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kubikportal/portal-service/internal/domain"
)

// BillingProfileBody carries per-asset billing contact fields.
type BillingProfileBody struct {
	BusinessName   *string `json:"business_name"`
	VATNumber      *string `json:"vat_number"`
	BillingEmail   *string `json:"billing_email"`
	BillingAddress *string `json:"billing_address"`
	BillingPhone   *string `json:"billing_phone"`
}

// CreateAssetRequest payload.
type CreateAssetRequest struct {
	OwnerID     string             `json:"owner_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	CategoryID  string             `json:"category_id"`
	PackageID   string             `json:"package_id"`
	Profile     BillingProfileBody `json:"billing_profile"`
}

// UpdateAssetRequest payload.
type UpdateAssetRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Profile     *BillingProfileBody `json:"billing_profile"`
}

// SetAssetStatusRequest payload.
type SetAssetStatusRequest struct {
	Status domain.AssetStatus `json:"status"`
}

// AssetResponse is the asset representation.
type AssetResponse struct {
	ID            string              `json:"id"`
	OwnerID       string              `json:"owner_id"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	CategoryID    string              `json:"category_id"`
	PackageID     string              `json:"package_id"`
	Status        domain.AssetStatus  `json:"status"`
	Profile       BillingProfileBody  `json:"billing_profile"`
	PriceSnapshot decimal.Decimal     `json:"price_snapshot"`
	BillingCycle  domain.BillingCycle `json:"billing_cycle"`
	Currency      string              `json:"currency"`
	RegisteredAt  time.Time           `json:"registered_at"`
	NextDueDate   *time.Time          `json:"next_due_date,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}
