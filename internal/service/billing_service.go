package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kubikportal/portal-service/internal/auth"
	"github.com/kubikportal/portal-service/internal/config"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/events"
	"github.com/kubikportal/portal-service/internal/persistence"
	"github.com/kubikportal/portal-service/internal/repository"
	"github.com/kubikportal/portal-service/internal/storage"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

const (
	monthlyRunLockKey = "billing:monthly:"
	monthlyRunLockTTL = 10 * time.Minute
	pdfURLExpiry      = 15 * time.Minute
)

var hundred = decimal.NewFromInt(100)

// PDFRenderer produces invoice PDF documents. The portal only keeps the
// storage key; rendering is delegated.
type PDFRenderer interface {
	Render(ctx context.Context, inv *domain.Invoice) (io.Reader, int64, error)
}

// Mailer delivers outbound email.
type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// MonthlyRunReport summarizes one invoice generation pass.
type MonthlyRunReport struct {
	Period   string `json:"period"`
	Examined int    `json:"examined"`
	Created  int    `json:"created"`
	Skipped  int    `json:"skipped"`
	Failed   int    `json:"failed"`
}

// BillingService owns invoice issuance, payment recording and the overdue
// reclassification pass.
type BillingService struct {
	invoices   repository.InvoiceRepository
	assets     repository.AssetRepository
	users      repository.UserRepository
	settings   repository.SettingsRepository
	redis      *persistence.Redis
	store      storage.ObjectStore
	renderer   PDFRenderer
	mailer     Mailer
	emailFrom  string
	dispatcher events.Dispatcher
	logger     *zap.Logger
	termsDays  int
}

// BillingDependencies bundles billing service collaborators.
type BillingDependencies struct {
	InvoiceRepo  repository.InvoiceRepository
	AssetRepo    repository.AssetRepository
	UserRepo     repository.UserRepository
	SettingsRepo repository.SettingsRepository
	Redis        *persistence.Redis
	Store        storage.ObjectStore
	Renderer     PDFRenderer
	Mailer       Mailer
	EmailFrom    string
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
}

// NewBillingService builds the service.
func NewBillingService(cfg config.BillingConfig, deps BillingDependencies) *BillingService {
	return &BillingService{
		invoices:   deps.InvoiceRepo,
		assets:     deps.AssetRepo,
		users:      deps.UserRepo,
		settings:   deps.SettingsRepo,
		redis:      deps.Redis,
		store:      deps.Store,
		renderer:   deps.Renderer,
		mailer:     deps.Mailer,
		emailFrom:  deps.EmailFrom,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		termsDays:  cfg.DefaultTermsDays,
	}
}

// LineItemInput is one descriptive row on a manual invoice.
type LineItemInput struct {
	Description string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// CreateInvoiceInput describes a manually issued invoice.
type CreateInvoiceInput struct {
	UserID    string
	AssetID   string
	Amount    decimal.Decimal
	DueDate   *time.Time
	Draft     bool
	LineItems []LineItemInput
}

// CreateInvoice issues a manual invoice. The VAT rate is snapshotted from
// the current billing settings; number assignment comes from the per-year
// sequence and is never reused.
func (s *BillingService) CreateInvoice(ctx context.Context, actor *domain.User, input CreateInvoiceInput) (*domain.Invoice, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	if input.Amount.IsNegative() {
		return nil, apperrors.NewValidationError("amount must be non-negative", nil)
	}
	if _, err := s.users.GetByID(ctx, input.UserID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("user", nil)
		}
		return nil, err
	}
	asset, err := s.assets.GetByID(ctx, input.AssetID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("asset", nil)
		}
		return nil, err
	}

	settings, err := s.settings.GetBillingSettings(ctx)
	if err != nil {
		return nil, err
	}

	inv, err := s.buildInvoice(ctx, asset, input.UserID, input.Amount, settings, nil)
	if err != nil {
		return nil, err
	}
	if input.DueDate != nil {
		inv.DueDate = *input.DueDate
	}
	if input.Draft {
		inv.Status = domain.InvoiceStatusDraft
	}
	for _, item := range input.LineItems {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		inv.LineItems = append(inv.LineItems, domain.InvoiceLineItem{
			Description: item.Description,
			Quantity:    qty,
			UnitPrice:   item.UnitPrice,
			Total:       item.UnitPrice.Mul(decimal.NewFromInt(int64(qty))).Round(2),
		})
	}

	if err := s.invoices.Create(ctx, inv); err != nil {
		if repository.UniqueConstraint(err) == repository.ConstraintInvoiceNumber {
			return nil, apperrors.NewDuplicateInvoiceNumber(inv.Number)
		}
		return nil, err
	}

	s.publishInvoiceEvent(ctx, events.EventInvoiceCreated, actor, inv)
	return inv, nil
}

// GetInvoice returns an invoice visible to the actor.
func (s *BillingService) GetInvoice(ctx context.Context, actor *domain.User, id string) (*domain.Invoice, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("invoice", nil)
		}
		return nil, err
	}
	if !actor.IsSuperAdmin() && inv.UserID != actor.ID {
		return nil, apperrors.NewNotFound("invoice", nil)
	}
	return inv, nil
}

// ListInvoices returns invoices matching the filter; clients are scoped to
// their own documents and never see drafts.
func (s *BillingService) ListInvoices(ctx context.Context, actor *domain.User, filter repository.InvoiceFilter) ([]domain.Invoice, error) {
	if err := auth.EnsureApproved(actor); err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() {
		userID := actor.ID
		filter.UserID = &userID
		if len(filter.Statuses) == 0 {
			filter.Statuses = []domain.InvoiceStatus{
				domain.InvoiceStatusPending,
				domain.InvoiceStatusPaid,
				domain.InvoiceStatusOverdue,
			}
		}
	}
	return s.invoices.ListWithFilter(ctx, filter)
}

// PaymentInput carries a manual payment record.
type PaymentInput struct {
	Amount    decimal.Decimal
	PaidDate  *time.Time
	Reference *string
	Notes     *string
}

// RecordPayment marks a pending or overdue invoice paid. The amount is
// recorded exactly as given; partial and over payment are allowed and the
// invoice totals are never recomputed.
func (s *BillingService) RecordPayment(ctx context.Context, actor *domain.User, id string, input PaymentInput) (*domain.Invoice, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("invoice", nil)
		}
		return nil, err
	}
	switch inv.Status {
	case domain.InvoiceStatusPaid:
		return nil, apperrors.NewAlreadyPaid(inv.Number)
	case domain.InvoiceStatusDraft:
		return nil, apperrors.NewInvalidTransition("invoice", string(inv.Status), string(domain.InvoiceStatusPaid))
	}
	if input.Amount.IsNegative() {
		return nil, apperrors.NewValidationError("amount must be non-negative", nil)
	}

	paidDate := time.Now()
	if input.PaidDate != nil {
		paidDate = *input.PaidDate
	}
	record := repository.PaymentRecord{
		AmountPaid: input.Amount,
		PaidDate:   paidDate,
		Reference:  input.Reference,
		Notes:      input.Notes,
	}
	updated, err := s.invoices.MarkPaid(ctx, id, record)
	if err != nil {
		return nil, err
	}
	if !updated {
		// lost the race; re-read to tell "already paid" from other conflicts
		current, readErr := s.invoices.GetByID(ctx, id)
		if readErr == nil && current.Status == domain.InvoiceStatusPaid {
			return nil, apperrors.NewAlreadyPaid(current.Number)
		}
		return nil, apperrors.NewConflictingState("invoice")
	}

	inv.Status = domain.InvoiceStatusPaid
	inv.PaidDate = &paidDate
	inv.AmountPaid = &record.AmountPaid
	inv.PaymentReference = input.Reference
	inv.PaymentNotes = input.Notes

	s.publishInvoiceEvent(ctx, events.EventInvoicePaid, actor, inv)
	return inv, nil
}

// GenerateInvoices triggers a billing run on demand. Super admin only.
func (s *BillingService) GenerateInvoices(ctx context.Context, actor *domain.User) (*MonthlyRunReport, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	return s.RunBillingCycle(ctx, time.Now())
}

// RunBillingCycle issues one invoice per billable asset whose current
// period has not been invoiced yet. The (asset, period) unique constraint
// makes the run idempotent; the Redis lock only prevents overlapping runs
// from doing duplicate work. Per-asset failures are logged and skipped.
func (s *BillingService) RunBillingCycle(ctx context.Context, now time.Time) (*MonthlyRunReport, error) {
	report := &MonthlyRunReport{Period: now.Format("2006-01")}

	lockKey := monthlyRunLockKey + report.Period
	if s.redis != nil {
		acquired, err := s.redis.AcquireLock(ctx, lockKey, monthlyRunLockTTL)
		if err != nil {
			s.logger.Warn("billing run lock unavailable, relying on period constraint", zap.Error(err))
		} else if !acquired {
			s.logger.Info("billing run already in progress", zap.String("period", report.Period))
			return report, nil
		} else {
			defer func() {
				if err := s.redis.ReleaseLock(context.WithoutCancel(ctx), lockKey); err != nil {
					s.logger.Warn("failed to release billing lock", zap.Error(err))
				}
			}()
		}
	}

	settings, err := s.settings.GetBillingSettings(ctx)
	if err != nil {
		return nil, err
	}
	assets, err := s.assets.ListBillable(ctx)
	if err != nil {
		return nil, err
	}
	report.Examined = len(assets)

	for i := range assets {
		asset := &assets[i]
		period := periodKey(now, asset.BillingCycle)

		exists, err := s.invoices.ExistsForPeriod(ctx, asset.ID, period)
		if err != nil {
			report.Failed++
			s.logger.Error("period lookup failed", zap.String("asset_id", asset.ID), zap.Error(err))
			continue
		}
		if exists {
			report.Skipped++
			continue
		}

		inv, err := s.buildInvoice(ctx, asset, asset.OwnerID, asset.PriceSnapshot, settings, &period)
		if err != nil {
			report.Failed++
			s.logger.Error("invoice build failed", zap.String("asset_id", asset.ID), zap.Error(err))
			continue
		}
		if err := s.invoices.Create(ctx, inv); err != nil {
			if repository.UniqueConstraint(err) == repository.ConstraintInvoicePeriod {
				// another run inserted it first
				report.Skipped++
				continue
			}
			report.Failed++
			s.logger.Error("invoice insert failed",
				zap.String("asset_id", asset.ID),
				zap.String("number", inv.Number),
				zap.Error(err))
			continue
		}
		report.Created++

		due := nextDueDate(now, asset.BillingCycle)
		asset.NextDueDate = &due
		if err := s.assets.Update(ctx, asset); err != nil {
			s.logger.Warn("failed to advance next due date", zap.String("asset_id", asset.ID), zap.Error(err))
		}

		s.publishInvoiceEvent(ctx, events.EventInvoiceCreated, nil, inv)
	}

	s.logger.Info("billing run finished",
		zap.String("period", report.Period),
		zap.Int("examined", report.Examined),
		zap.Int("created", report.Created),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	return report, nil
}

// SweepOverdue triggers the overdue reclassification on demand.
func (s *BillingService) SweepOverdue(ctx context.Context, actor *domain.User) (int64, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return 0, err
	}
	return s.ReclassifyOverdue(ctx, time.Now())
}

// ReclassifyOverdue flips pending invoices past their due date to overdue.
// Overdue never arises any other way.
func (s *BillingService) ReclassifyOverdue(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.invoices.ReclassifyOverdue(ctx, now)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.logger.Info("invoices reclassified overdue", zap.Int64("count", count))
	}
	return count, nil
}

// SendInvoiceEmail mails the invoice to its account holder on demand. Unlike
// the event-driven notifications, delivery failures surface to the caller;
// invoice state is never touched.
func (s *BillingService) SendInvoiceEmail(ctx context.Context, actor *domain.User, id string) error {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return err
	}
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("invoice", nil)
		}
		return err
	}
	if inv.Status == domain.InvoiceStatusDraft {
		return apperrors.NewValidationError("draft invoices cannot be sent", nil)
	}
	user, err := s.users.GetByID(ctx, inv.UserID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("user", nil)
		}
		return err
	}
	if s.mailer == nil {
		return apperrors.NewExternalService("mailer", fmt.Errorf("mailer not configured"))
	}

	subject, body := s.composeInvoiceEmail(ctx, inv, user)
	if err := s.mailer.Send(ctx, s.emailFrom, user.Email, subject, body); err != nil {
		return apperrors.NewExternalService("mailer", err)
	}
	return nil
}

// composeInvoiceEmail renders the configured template when one exists and
// falls back to a plain built-in message otherwise.
func (s *BillingService) composeInvoiceEmail(ctx context.Context, inv *domain.Invoice, user *domain.User) (subject, body string) {
	subject = fmt.Sprintf("Invoice %s", inv.Number)
	body = fmt.Sprintf("Invoice %s over %s %s is due %s.",
		inv.Number, inv.TotalAmount.StringFixed(2), inv.Currency, inv.DueDate.Format("2006-01-02"))

	tpl, err := s.settings.GetTemplate(ctx, TemplateInvoiceCreated)
	if err != nil {
		return subject, body
	}
	data := map[string]any{
		"FirstName": user.FirstName,
		"Number":    inv.Number,
		"Total":     inv.TotalAmount.StringFixed(2),
		"Currency":  inv.Currency,
		"DueDate":   inv.DueDate.Format("2006-01-02"),
	}
	renderedSubject, err := renderTemplate(tpl.Subject, data)
	if err != nil {
		s.logger.Warn("invoice subject render failed", zap.Error(err))
		return subject, body
	}
	renderedBody, err := renderTemplate(tpl.Body, data)
	if err != nil {
		s.logger.Warn("invoice body render failed", zap.Error(err))
		return subject, body
	}
	return renderedSubject, renderedBody
}

// UploadInvoicePDF stores an externally produced PDF for the invoice.
func (s *BillingService) UploadInvoicePDF(ctx context.Context, actor *domain.User, id string, reader io.Reader, size int64) (*domain.Invoice, error) {
	if err := auth.EnsureSuperAdmin(actor); err != nil {
		return nil, err
	}
	inv, err := s.invoices.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("invoice", nil)
		}
		return nil, err
	}

	key := fmt.Sprintf("invoices/%s/%s.pdf", inv.ID, inv.Number)
	if err := s.store.Put(ctx, key, reader, size, "application/pdf"); err != nil {
		return nil, apperrors.NewExternalService("object storage", err)
	}
	if err := s.invoices.SetPDFKey(ctx, id, key); err != nil {
		return nil, err
	}
	inv.PDFKey = &key
	return inv, nil
}

// InvoicePDFURL returns a time-limited download URL for the invoice PDF,
// rendering and storing the document first when none exists yet. Collaborator
// failures never touch invoice state.
func (s *BillingService) InvoicePDFURL(ctx context.Context, actor *domain.User, id string) (string, error) {
	inv, err := s.GetInvoice(ctx, actor, id)
	if err != nil {
		return "", err
	}

	if inv.PDFKey == nil {
		if s.renderer == nil {
			return "", apperrors.NewExternalService("pdf renderer", fmt.Errorf("renderer not configured"))
		}
		reader, size, err := s.renderer.Render(ctx, inv)
		if err != nil {
			return "", apperrors.NewExternalService("pdf renderer", err)
		}
		key := fmt.Sprintf("invoices/%s/%s.pdf", inv.ID, inv.Number)
		if err := s.store.Put(ctx, key, reader, size, "application/pdf"); err != nil {
			return "", apperrors.NewExternalService("object storage", err)
		}
		if err := s.invoices.SetPDFKey(ctx, inv.ID, key); err != nil {
			return "", err
		}
		inv.PDFKey = &key
	}

	url, err := s.store.PresignedURL(ctx, *inv.PDFKey, pdfURLExpiry)
	if err != nil {
		return "", apperrors.NewExternalService("object storage", err)
	}
	return url, nil
}

func (s *BillingService) buildInvoice(ctx context.Context, asset *domain.Asset, userID string, amount decimal.Decimal, settings *domain.BillingSettings, period *string) (*domain.Invoice, error) {
	year := time.Now().Year()
	seq, err := s.invoices.NextSequence(ctx, year)
	if err != nil {
		return nil, err
	}

	vatAmount, total := vatBreakdown(amount, settings.VATRate)
	currency := asset.Currency
	if currency == "" {
		currency = settings.Currency
	}
	termsDays := settings.PaymentTermsDays
	if termsDays <= 0 {
		termsDays = s.termsDays
	}
	return &domain.Invoice{
		Number:      fmt.Sprintf("INV-%d-%06d", year, seq),
		UserID:      userID,
		AssetID:     asset.ID,
		Period:      period,
		Amount:      amount,
		VATRate:     settings.VATRate,
		VATAmount:   vatAmount,
		TotalAmount: total,
		Currency:    currency,
		Status:      domain.InvoiceStatusPending,
		DueDate:     time.Now().AddDate(0, 0, termsDays),
	}, nil
}

func (s *BillingService) publishInvoiceEvent(ctx context.Context, eventType events.EventType, actor *domain.User, inv *domain.Invoice) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:     eventType,
		EntityID: inv.ID,
		Actor:    eventActor(actor),
		Payload: events.InvoicePayload{
			Number:      inv.Number,
			UserID:      inv.UserID,
			AssetID:     inv.AssetID,
			TotalAmount: inv.TotalAmount.StringFixed(2),
			Currency:    inv.Currency,
		},
	})
}

// vatBreakdown computes the VAT amount and gross total for a net amount,
// rounding half-up to two decimals.
func vatBreakdown(amount, rate decimal.Decimal) (vatAmount, total decimal.Decimal) {
	vatAmount = amount.Mul(rate).Div(hundred).Round(2)
	total = amount.Add(vatAmount)
	return vatAmount, total
}

// periodKey derives the billing period identity for a cycle: 2026-08 for
// monthly, 2026-Q3 for quarterly, 2026 for yearly.
func periodKey(now time.Time, cycle domain.BillingCycle) string {
	switch cycle {
	case domain.BillingCycleQuarterly:
		quarter := (int(now.Month())-1)/3 + 1
		return fmt.Sprintf("%d-Q%d", now.Year(), quarter)
	case domain.BillingCycleYearly:
		return fmt.Sprintf("%d", now.Year())
	default:
		return now.Format("2006-01")
	}
}
