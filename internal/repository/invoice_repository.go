package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kubikportal/portal-service/internal/domain"
)

// Unique constraint names the billing service inspects to classify failures.
const (
	ConstraintInvoiceNumber = "invoices_number_key"
	ConstraintInvoicePeriod = "invoices_asset_period_key"
)

// InvoiceFilter captures invoice listing parameters.
type InvoiceFilter struct {
	UserID   *string
	AssetID  *string
	Statuses []domain.InvoiceStatus
	Limit    int
	Offset   int
}

// PaymentRecord carries the fields written when a payment is recorded.
type PaymentRecord struct {
	AmountPaid decimal.Decimal
	PaidDate   time.Time
	Reference  *string
	Notes      *string
}

// InvoiceRepository encapsulates invoice persistence.
type InvoiceRepository interface {
	Create(ctx context.Context, inv *domain.Invoice) error
	GetByID(ctx context.Context, id string) (*domain.Invoice, error)
	ListWithFilter(ctx context.Context, filter InvoiceFilter) ([]domain.Invoice, error)
	// NextSequence atomically advances and returns the per-year invoice
	// number counter.
	NextSequence(ctx context.Context, year int) (int64, error)
	// MarkPaid conditionally moves a pending or overdue invoice to paid;
	// it reports false when the precondition no longer holds.
	MarkPaid(ctx context.Context, id string, payment PaymentRecord) (bool, error)
	// ReclassifyOverdue flips pending invoices past their due date to
	// overdue and returns how many rows changed.
	ReclassifyOverdue(ctx context.Context, now time.Time) (int64, error)
	ExistsForPeriod(ctx context.Context, assetID, period string) (bool, error)
	SetPDFKey(ctx context.Context, id, key string) error
	CountUnpaidByAsset(ctx context.Context, assetID string) (int, error)
}

type invoiceRepository struct {
	pool *pgxpool.Pool
}

// NewInvoiceRepository instantiates repository.
func NewInvoiceRepository(pool *pgxpool.Pool) InvoiceRepository {
	return &invoiceRepository{pool: pool}
}

const invoiceColumns = `id, number, user_id, asset_id, period, amount, vat_rate, vat_amount,
               total_amount, currency, status, due_date, paid_date, amount_paid,
               payment_reference, payment_notes, pdf_key, created_at, updated_at`

func (r *invoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO invoices (number, user_id, asset_id, period, amount, vat_rate, vat_amount,
            total_amount, currency, status, due_date, pdf_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, query,
		inv.Number,
		inv.UserID,
		inv.AssetID,
		inv.Period,
		inv.Amount,
		inv.VATRate,
		inv.VATAmount,
		inv.TotalAmount,
		inv.Currency,
		inv.Status,
		inv.DueDate,
		inv.PDFKey,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return err
	}

	for i := range inv.LineItems {
		item := &inv.LineItems[i]
		item.InvoiceID = inv.ID
		const itemQuery = `
            INSERT INTO invoice_line_items (invoice_id, description, quantity, unit_price, total)
            VALUES ($1,$2,$3,$4,$5)
            RETURNING id`
		if err := tx.QueryRow(ctx, itemQuery,
			item.InvoiceID,
			item.Description,
			item.Quantity,
			item.UnitPrice,
			item.Total,
		).Scan(&item.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *invoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id=$1`
	var inv domain.Invoice
	if err := r.pool.QueryRow(ctx, query, id).Scan(scanInvoiceFields(&inv)...); err != nil {
		return nil, err
	}
	items, err := r.listLineItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.LineItems = items
	return &inv, nil
}

func (r *invoiceRepository) listLineItems(ctx context.Context, invoiceID string) ([]domain.InvoiceLineItem, error) {
	const query = `
        SELECT id, invoice_id, description, quantity, unit_price, total
        FROM invoice_line_items WHERE invoice_id=$1 ORDER BY id`
	rows, err := r.pool.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.InvoiceLineItem
	for rows.Next() {
		var item domain.InvoiceLineItem
		if err := rows.Scan(
			&item.ID,
			&item.InvoiceID,
			&item.Description,
			&item.Quantity,
			&item.UnitPrice,
			&item.Total,
		); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func (r *invoiceRepository) ListWithFilter(ctx context.Context, filter InvoiceFilter) ([]domain.Invoice, error) {
	base := `SELECT ` + invoiceColumns + ` FROM invoices`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		clauses = append(clauses, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if filter.AssetID != nil {
		args = append(args, *filter.AssetID)
		clauses = append(clauses, fmt.Sprintf("asset_id=$%d", len(args)))
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

	var result []domain.Invoice
	for rows.Next() {
		var inv domain.Invoice
		if err := rows.Scan(scanInvoiceFields(&inv)...); err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, rows.Err()
}

func (r *invoiceRepository) NextSequence(ctx context.Context, year int) (int64, error) {
	const query = `
        INSERT INTO invoice_sequences (year, value) VALUES ($1, 1)
        ON CONFLICT (year) DO UPDATE SET value = invoice_sequences.value + 1
        RETURNING value`
	var value int64
	if err := r.pool.QueryRow(ctx, query, year).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}

func (r *invoiceRepository) MarkPaid(ctx context.Context, id string, payment PaymentRecord) (bool, error) {
	const query = `
        UPDATE invoices SET status=$1, paid_date=$2, amount_paid=$3, payment_reference=$4,
            payment_notes=$5, updated_at=NOW()
        WHERE id=$6 AND status IN ($7, $8)`
	cmd, err := r.pool.Exec(ctx, query,
		domain.InvoiceStatusPaid,
		payment.PaidDate,
		payment.AmountPaid,
		payment.Reference,
		payment.Notes,
		id,
		domain.InvoiceStatusPending,
		domain.InvoiceStatusOverdue,
	)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *invoiceRepository) ReclassifyOverdue(ctx context.Context, now time.Time) (int64, error) {
	const query = `
        UPDATE invoices SET status=$1, updated_at=NOW()
        WHERE status=$2 AND due_date < $3`
	cmd, err := r.pool.Exec(ctx, query, domain.InvoiceStatusOverdue, domain.InvoiceStatusPending, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *invoiceRepository) ExistsForPeriod(ctx context.Context, assetID, period string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM invoices WHERE asset_id=$1 AND period=$2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, assetID, period).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *invoiceRepository) SetPDFKey(ctx context.Context, id, key string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE invoices SET pdf_key=$1, updated_at=NOW() WHERE id=$2`, key, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *invoiceRepository) CountUnpaidByAsset(ctx context.Context, assetID string) (int, error) {
	const query = `SELECT COUNT(*) FROM invoices WHERE asset_id=$1 AND status IN ($2, $3)`
	var count int
	if err := r.pool.QueryRow(ctx, query, assetID, domain.InvoiceStatusPending, domain.InvoiceStatusOverdue).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func scanInvoiceFields(inv *domain.Invoice) []any {
	return []any{
		&inv.ID,
		&inv.Number,
		&inv.UserID,
		&inv.AssetID,
		&inv.Period,
		&inv.Amount,
		&inv.VATRate,
		&inv.VATAmount,
		&inv.TotalAmount,
		&inv.Currency,
		&inv.Status,
		&inv.DueDate,
		&inv.PaidDate,
		&inv.AmountPaid,
		&inv.PaymentReference,
		&inv.PaymentNotes,
		&inv.PDFKey,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	}
}
