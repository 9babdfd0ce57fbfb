package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kubikportal/portal-service/internal/domain"
)

// CategoryRequest payload.
type CategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CategoryResponse representation.
type CategoryResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// PackageRequest payload.
type PackageRequest struct {
	CategoryID   string              `json:"category_id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Price        decimal.Decimal     `json:"price"`
	Currency     string              `json:"currency"`
	BillingCycle domain.BillingCycle `json:"billing_cycle"`
	Features     []string            `json:"features"`
	IsActive     bool                `json:"is_active"`
}

// PackageResponse representation.
type PackageResponse struct {
	ID           string              `json:"id"`
	CategoryID   string              `json:"category_id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Price        decimal.Decimal     `json:"price"`
	Currency     string              `json:"currency"`
	BillingCycle domain.BillingCycle `json:"billing_cycle"`
	Features     []string            `json:"features"`
	IsActive     bool                `json:"is_active"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}
