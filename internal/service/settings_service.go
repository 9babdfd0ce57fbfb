package service

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/config"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/repository"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

// SettingsService manages the billing settings singleton and the email
// template table. Super admin surface only.
type SettingsService struct {
	settings repository.SettingsRepository
}

// NewSettingsService builds the service.
func NewSettingsService(settings repository.SettingsRepository) *SettingsService {
	return &SettingsService{settings: settings}
}

// GetBillingSettings returns the current billing inputs.
func (s *SettingsService) GetBillingSettings(ctx context.Context, actor *domain.User) (*domain.BillingSettings, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	return s.settings.GetBillingSettings(ctx)
}

// BillingSettingsInput carries billing settings updates.
type BillingSettingsInput struct {
	VATRate          decimal.Decimal
	PaymentTermsDays int
	Currency         string
}

// UpdateBillingSettings replaces the billing inputs. Existing invoices keep
// their snapshotted rate.
func (s *SettingsService) UpdateBillingSettings(ctx context.Context, actor *domain.User, input BillingSettingsInput) (*domain.BillingSettings, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	if input.VATRate.IsNegative() || input.VATRate.GreaterThan(decimal.NewFromInt(100)) {
		return nil, apperrors.NewValidationError("vat_rate must be between 0 and 100", nil)
	}
	if input.PaymentTermsDays <= 0 {
		return nil, apperrors.NewValidationError("payment_terms_days must be positive", nil)
	}
	if strings.TrimSpace(input.Currency) == "" {
		return nil, apperrors.NewValidationError("currency required", nil)
	}

	current, err := s.settings.GetBillingSettings(ctx)
	if err != nil {
		return nil, err
	}
	current.VATRate = input.VATRate
	current.PaymentTermsDays = input.PaymentTermsDays
	current.Currency = strings.ToUpper(strings.TrimSpace(input.Currency))
	if err := s.settings.UpdateBillingSettings(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// SeedDefaults inserts the billing settings row on first startup.
func (s *SettingsService) SeedDefaults(ctx context.Context, cfg config.BillingConfig) error {
	rate, err := decimal.NewFromString(cfg.DefaultVATRate)
	if err != nil {
		rate = decimal.NewFromInt(24)
	}
	return s.settings.SeedBillingSettings(ctx, &domain.BillingSettings{
		VATRate:          rate,
		PaymentTermsDays: cfg.DefaultTermsDays,
		Currency:         cfg.DefaultCurrency,
	})
}

// ListTemplates returns all email templates.
func (s *SettingsService) ListTemplates(ctx context.Context, actor *domain.User) ([]domain.EmailTemplate, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	return s.settings.ListTemplates(ctx)
}

// GetTemplate fetches one template by key.
func (s *SettingsService) GetTemplate(ctx context.Context, actor *domain.User, key string) (*domain.EmailTemplate, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	tpl, err := s.settings.GetTemplate(ctx, key)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("email template", nil)
		}
		return nil, err
	}
	return tpl, nil
}

// TemplateInput carries template fields.
type TemplateInput struct {
	Key     string
	Subject string
	Body    string
}

// UpsertTemplate creates or replaces a template by key.
func (s *SettingsService) UpsertTemplate(ctx context.Context, actor *domain.User, input TemplateInput) (*domain.EmailTemplate, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Key) == "" || strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewValidationError("key and subject required", nil)
	}
	tpl := &domain.EmailTemplate{
		Key:     strings.TrimSpace(input.Key),
		Subject: input.Subject,
		Body:    input.Body,
	}
	if err := s.settings.UpsertTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}
