package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kubikportal/portal-service/internal/domain"
)

// CategoryRepository manages category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, cat *domain.Category) error
	Update(ctx context.Context, cat *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Delete(ctx context.Context, id string) error
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, cat *domain.Category) error {
	const query = `
        INSERT INTO categories (name, color)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, cat.Name, cat.Color).
		Scan(&cat.ID, &cat.CreatedAt, &cat.UpdatedAt)
}

func (r *categoryRepository) Update(ctx context.Context, cat *domain.Category) error {
	const query = `UPDATE categories SET name=$1, color=$2, updated_at=NOW() WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, cat.Name, cat.Color, cat.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `SELECT id, name, color, created_at, updated_at FROM categories WHERE id=$1`
	var cat domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&cat.ID,
		&cat.Name,
		&cat.Color,
		&cat.CreatedAt,
		&cat.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	const query = `SELECT id, name, color, created_at, updated_at FROM categories ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var cat domain.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.Color, &cat.CreatedAt, &cat.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, cat)
	}
	return result, rows.Err()
}

func (r *categoryRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
