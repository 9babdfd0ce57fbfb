package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kubikportal/portal-service/internal/domain"
)

// SettingsRepository manages billing settings and email templates.
type SettingsRepository interface {
	GetBillingSettings(ctx context.Context) (*domain.BillingSettings, error)
	UpdateBillingSettings(ctx context.Context, settings *domain.BillingSettings) error
	SeedBillingSettings(ctx context.Context, settings *domain.BillingSettings) error
	GetTemplate(ctx context.Context, key string) (*domain.EmailTemplate, error)
	ListTemplates(ctx context.Context) ([]domain.EmailTemplate, error)
	UpsertTemplate(ctx context.Context, tpl *domain.EmailTemplate) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository builds the repository.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) GetBillingSettings(ctx context.Context) (*domain.BillingSettings, error) {
	const query = `
        SELECT id, vat_rate, payment_terms_days, currency, updated_at
        FROM billing_settings ORDER BY id LIMIT 1`
	var s domain.BillingSettings
	if err := r.pool.QueryRow(ctx, query).Scan(
		&s.ID,
		&s.VATRate,
		&s.PaymentTermsDays,
		&s.Currency,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) UpdateBillingSettings(ctx context.Context, settings *domain.BillingSettings) error {
	const query = `
        UPDATE billing_settings SET vat_rate=$1, payment_terms_days=$2, currency=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		settings.VATRate,
		settings.PaymentTermsDays,
		settings.Currency,
		settings.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SeedBillingSettings inserts the singleton row when none exists yet.
func (r *settingsRepository) SeedBillingSettings(ctx context.Context, settings *domain.BillingSettings) error {
	const query = `
        INSERT INTO billing_settings (vat_rate, payment_terms_days, currency)
        SELECT $1, $2, $3
        WHERE NOT EXISTS (SELECT 1 FROM billing_settings)`
	_, err := r.pool.Exec(ctx, query,
		settings.VATRate,
		settings.PaymentTermsDays,
		settings.Currency,
	)
	return err
}

func (r *settingsRepository) GetTemplate(ctx context.Context, key string) (*domain.EmailTemplate, error) {
	const query = `SELECT id, key, subject, body, updated_at FROM email_templates WHERE key=$1`
	var tpl domain.EmailTemplate
	if err := r.pool.QueryRow(ctx, query, key).Scan(
		&tpl.ID,
		&tpl.Key,
		&tpl.Subject,
		&tpl.Body,
		&tpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *settingsRepository) ListTemplates(ctx context.Context) ([]domain.EmailTemplate, error) {
	const query = `SELECT id, key, subject, body, updated_at FROM email_templates ORDER BY key`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EmailTemplate
	for rows.Next() {
		var tpl domain.EmailTemplate
		if err := rows.Scan(&tpl.ID, &tpl.Key, &tpl.Subject, &tpl.Body, &tpl.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, tpl)
	}
	return result, rows.Err()
}

func (r *settingsRepository) UpsertTemplate(ctx context.Context, tpl *domain.EmailTemplate) error {
	const query = `
        INSERT INTO email_templates (key, subject, body)
        VALUES ($1,$2,$3)
        ON CONFLICT (key) DO UPDATE SET subject=EXCLUDED.subject, body=EXCLUDED.body, updated_at=NOW()
        RETURNING id, updated_at`
	return r.pool.QueryRow(ctx, query, tpl.Key, tpl.Subject, tpl.Body).
		Scan(&tpl.ID, &tpl.UpdatedAt)
}
