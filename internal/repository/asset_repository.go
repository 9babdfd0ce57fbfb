package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kubikportal/portal-service/internal/domain"
)

// AssetFilter captures admin search parameters.
type AssetFilter struct {
	OwnerID    *string
	CategoryID *string
	PackageID  *string
	Statuses   []domain.AssetStatus
	Limit      int
	Offset     int
}

// AssetRepository encapsulates asset persistence.
type AssetRepository interface {
	Create(ctx context.Context, asset *domain.Asset) error
	Update(ctx context.Context, asset *domain.Asset) error
	UpdateStatus(ctx context.Context, id string, status domain.AssetStatus) error
	GetByID(ctx context.Context, id string) (*domain.Asset, error)
	ListWithFilter(ctx context.Context, filter AssetFilter) ([]domain.Asset, error)
	// ListBillable returns active assets carrying a package snapshot,
	// the input set of the monthly invoice run.
	ListBillable(ctx context.Context) ([]domain.Asset, error)
	CountByPackage(ctx context.Context, packageID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type assetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository instantiates repository.
func NewAssetRepository(pool *pgxpool.Pool) AssetRepository {
	return &assetRepository{pool: pool}
}

const assetColumns = `id, owner_id, name, description, category_id, package_id, status,
               business_name, vat_number, billing_email, billing_address, billing_phone,
               price_snapshot, billing_cycle, currency, registered_at, next_due_date,
               created_at, updated_at`

func (r *assetRepository) Create(ctx context.Context, asset *domain.Asset) error {
	const query = `
        INSERT INTO assets (owner_id, name, description, category_id, package_id, status,
            business_name, vat_number, billing_email, billing_address, billing_phone,
            price_snapshot, billing_cycle, currency, registered_at, next_due_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		asset.OwnerID,
		asset.Name,
		asset.Description,
		asset.CategoryID,
		asset.PackageID,
		asset.Status,
		asset.Profile.BusinessName,
		asset.Profile.VATNumber,
		asset.Profile.BillingEmail,
		asset.Profile.BillingAddress,
		asset.Profile.BillingPhone,
		asset.PriceSnapshot,
		asset.BillingCycle,
		asset.Currency,
		asset.RegisteredAt,
		asset.NextDueDate,
	).Scan(&asset.ID, &asset.CreatedAt, &asset.UpdatedAt)
}

func (r *assetRepository) Update(ctx context.Context, asset *domain.Asset) error {
	const query = `
        UPDATE assets SET name=$1, description=$2, business_name=$3, vat_number=$4,
            billing_email=$5, billing_address=$6, billing_phone=$7, next_due_date=$8,
            updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		asset.Name,
		asset.Description,
		asset.Profile.BusinessName,
		asset.Profile.VATNumber,
		asset.Profile.BillingEmail,
		asset.Profile.BillingAddress,
		asset.Profile.BillingPhone,
		asset.NextDueDate,
		asset.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assetRepository) UpdateStatus(ctx context.Context, id string, status domain.AssetStatus) error {
	const query = `UPDATE assets SET status=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *assetRepository) GetByID(ctx context.Context, id string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id=$1`
	var asset domain.Asset
	if err := r.pool.QueryRow(ctx, query, id).Scan(scanAssetFields(&asset)...); err != nil {
		return nil, err
	}
	return &asset, nil
}

func (r *assetRepository) ListWithFilter(ctx context.Context, filter AssetFilter) ([]domain.Asset, error) {
	base := `SELECT ` + assetColumns + ` FROM assets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, *filter.CategoryID)
		clauses = append(clauses, fmt.Sprintf("category_id=$%d", len(args)))
	}
	if filter.PackageID != nil {
		args = append(args, *filter.PackageID)
		clauses = append(clauses, fmt.Sprintf("package_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssets(rows)
}

func (r *assetRepository) ListBillable(ctx context.Context) ([]domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE status=$1 AND package_id IS NOT NULL ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, domain.AssetStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAssets(rows)
}

func (r *assetRepository) CountByPackage(ctx context.Context, packageID string) (int, error) {
	const query = `SELECT COUNT(*) FROM assets WHERE package_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, packageID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *assetRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM assets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanAssetFields(asset *domain.Asset) []any {
	return []any{
		&asset.ID,
		&asset.OwnerID,
		&asset.Name,
		&asset.Description,
		&asset.CategoryID,
		&asset.PackageID,
		&asset.Status,
		&asset.Profile.BusinessName,
		&asset.Profile.VATNumber,
		&asset.Profile.BillingEmail,
		&asset.Profile.BillingAddress,
		&asset.Profile.BillingPhone,
		&asset.PriceSnapshot,
		&asset.BillingCycle,
		&asset.Currency,
		&asset.RegisteredAt,
		&asset.NextDueDate,
		&asset.CreatedAt,
		&asset.UpdatedAt,
	}
}

func scanAssets(rows pgx.Rows) ([]domain.Asset, error) {
	var result []domain.Asset
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(scanAssetFields(&asset)...); err != nil {
			return nil, err
		}
		result = append(result, asset)
	}
	return result, rows.Err()
}
