package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kubikportal/portal-service/internal/domain"
)

// PackageRepository manages pricing plan persistence.
type PackageRepository interface {
	Create(ctx context.Context, pkg *domain.Package) error
	Update(ctx context.Context, pkg *domain.Package) error
	GetByID(ctx context.Context, id string) (*domain.Package, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Package, error)
	CountByCategory(ctx context.Context, categoryID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type packageRepository struct {
	pool *pgxpool.Pool
}

// NewPackageRepository builds the repository.
func NewPackageRepository(pool *pgxpool.Pool) PackageRepository {
	return &packageRepository{pool: pool}
}

const packageColumns = `id, category_id, name, description, price, currency, billing_cycle, features, is_active, created_at, updated_at`

func (r *packageRepository) Create(ctx context.Context, pkg *domain.Package) error {
	const query = `
        INSERT INTO packages (category_id, name, description, price, currency, billing_cycle, features, is_active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		pkg.CategoryID,
		pkg.Name,
		pkg.Description,
		pkg.Price,
		pkg.Currency,
		pkg.BillingCycle,
		pkg.Features,
		pkg.IsActive,
	).Scan(&pkg.ID, &pkg.CreatedAt, &pkg.UpdatedAt)
}

func (r *packageRepository) Update(ctx context.Context, pkg *domain.Package) error {
	const query = `
        UPDATE packages SET category_id=$1, name=$2, description=$3, price=$4, currency=$5,
            billing_cycle=$6, features=$7, is_active=$8, updated_at=NOW()
        WHERE id=$9`
	cmd, err := r.pool.Exec(ctx, query,
		pkg.CategoryID,
		pkg.Name,
		pkg.Description,
		pkg.Price,
		pkg.Currency,
		pkg.BillingCycle,
		pkg.Features,
		pkg.IsActive,
		pkg.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *packageRepository) GetByID(ctx context.Context, id string) (*domain.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages WHERE id=$1`
	var pkg domain.Package
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&pkg.ID,
		&pkg.CategoryID,
		&pkg.Name,
		&pkg.Description,
		&pkg.Price,
		&pkg.Currency,
		&pkg.BillingCycle,
		&pkg.Features,
		&pkg.IsActive,
		&pkg.CreatedAt,
		&pkg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *packageRepository) List(ctx context.Context, activeOnly bool) ([]domain.Package, error) {
	query := `SELECT ` + packageColumns + ` FROM packages`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Package
	for rows.Next() {
		var pkg domain.Package
		if err := rows.Scan(
			&pkg.ID,
			&pkg.CategoryID,
			&pkg.Name,
			&pkg.Description,
			&pkg.Price,
			&pkg.Currency,
			&pkg.BillingCycle,
			&pkg.Features,
			&pkg.IsActive,
			&pkg.CreatedAt,
			&pkg.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, pkg)
	}
	return result, rows.Err()
}

func (r *packageRepository) CountByCategory(ctx context.Context, categoryID string) (int, error) {
	const query = `SELECT COUNT(*) FROM packages WHERE category_id=$1`
	var count int
	if err := r.pool.QueryRow(ctx, query, categoryID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *packageRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM packages WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
