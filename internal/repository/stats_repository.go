package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DashboardStats aggregates the super-admin dashboard counters.
type DashboardStats struct {
	UsersByStatus    map[string]int
	AssetsByStatus   map[string]int
	TicketsByStatus  map[string]int
	InvoicesByStatus map[string]int
	InvoiceTotals    map[string]decimal.Decimal
}

// StatsRepository serves read-mostly dashboard aggregates.
type StatsRepository interface {
	Dashboard(ctx context.Context) (*DashboardStats, error)
}

type statsRepository struct {
	pool *pgxpool.Pool
}

// NewStatsRepository builds the repository.
func NewStatsRepository(pool *pgxpool.Pool) StatsRepository {
	return &statsRepository{pool: pool}
}

func (r *statsRepository) Dashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{
		UsersByStatus:    map[string]int{},
		AssetsByStatus:   map[string]int{},
		TicketsByStatus:  map[string]int{},
		InvoicesByStatus: map[string]int{},
		InvoiceTotals:    map[string]decimal.Decimal{},
	}

	if err := r.countByStatus(ctx, `SELECT status, COUNT(*) FROM users GROUP BY status`, stats.UsersByStatus); err != nil {
		return nil, err
	}
	if err := r.countByStatus(ctx, `SELECT status, COUNT(*) FROM assets GROUP BY status`, stats.AssetsByStatus); err != nil {
		return nil, err
	}
	if err := r.countByStatus(ctx, `SELECT status, COUNT(*) FROM tickets GROUP BY status`, stats.TicketsByStatus); err != nil {
		return nil, err
	}

	const invoiceQuery = `SELECT status, COUNT(*), COALESCE(SUM(total_amount), 0) FROM invoices GROUP BY status`
	rows, err := r.pool.Query(ctx, invoiceQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		var total decimal.Decimal
		if err := rows.Scan(&status, &count, &total); err != nil {
			return nil, err
		}
		stats.InvoicesByStatus[status] = count
		stats.InvoiceTotals[status] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

func (r *statsRepository) countByStatus(ctx context.Context, query string, dest map[string]int) error {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return err
		}
		dest[status] = count
	}
	return rows.Err()
}
