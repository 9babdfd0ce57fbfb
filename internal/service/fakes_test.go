package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/kubikportal/portal-service/internal/config"
	"github.com/kubikportal/portal-service/internal/domain"
	"github.com/kubikportal/portal-service/internal/events"
	"github.com/kubikportal/portal-service/internal/repository"
	apperrors "github.com/kubikportal/portal-service/pkg/util"
)

// In-memory repository fakes backing the service tests. They mirror the
// conditional-update semantics of the SQL implementations, including unique
// constraint errors surfaced as *pgconn.PgError.

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

type fakeUserRepo struct {
	mu    sync.Mutex
	seq   int
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*domain.User{}}
}

func (f *fakeUserRepo) nextID() string {
	f.seq++
	return fmt.Sprintf("user-%d", f.seq)
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return uniqueViolation("users_email_key")
		}
	}
	user.ID = f.nextID()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) List(_ context.Context, filter repository.UserFilter) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.User
	for _, user := range f.users {
		if len(filter.Statuses) > 0 && !containsUserStatus(filter.Statuses, user.Status) {
			continue
		}
		result = append(result, *user)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeUserRepo) UpdateStatus(_ context.Context, id string, expected, next domain.UserStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok || user.Status != expected {
		return false, nil
	}
	user.Status = next
	user.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeUserRepo) GrantAdminRole(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok || user.Status != domain.UserStatusApproved {
		return false, nil
	}
	role := domain.AdminRoleSuperAdmin
	user.AdminRole = &role
	user.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeUserRepo) ClearAdminRole(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok || !user.IsSuperAdmin() || f.otherApprovedAdmins(id) == 0 {
		return false, nil
	}
	user.AdminRole = nil
	user.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeUserRepo) SuspendSuperAdmin(_ context.Context, id string, expected domain.UserStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok || user.Status != expected || !user.IsSuperAdmin() || f.otherApprovedAdmins(id) == 0 {
		return false, nil
	}
	user.Status = domain.UserStatusSuspended
	user.AdminRole = nil
	user.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeUserRepo) CountSuperAdmins(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.otherApprovedAdmins(""), nil
}

// otherApprovedAdmins counts approved super admins excluding id; callers hold f.mu.
func (f *fakeUserRepo) otherApprovedAdmins(id string) int {
	count := 0
	for _, user := range f.users {
		if user.ID != id && user.IsSuperAdmin() && user.Status == domain.UserStatusApproved {
			count++
		}
	}
	return count
}

func (f *fakeUserRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	user.LastLoginAt = &at
	return nil
}

func containsUserStatus(list []domain.UserStatus, status domain.UserStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

type fakeAssetRepo struct {
	mu     sync.Mutex
	seq    int
	assets map[string]*domain.Asset
}

func newFakeAssetRepo() *fakeAssetRepo {
	return &fakeAssetRepo{assets: map[string]*domain.Asset{}}
}

func (f *fakeAssetRepo) Create(_ context.Context, asset *domain.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	asset.ID = fmt.Sprintf("asset-%d", f.seq)
	asset.CreatedAt = time.Now()
	asset.UpdatedAt = asset.CreatedAt
	clone := *asset
	f.assets[asset.ID] = &clone
	return nil
}

func (f *fakeAssetRepo) Update(_ context.Context, asset *domain.Asset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assets[asset.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *asset
	f.assets[asset.ID] = &clone
	return nil
}

func (f *fakeAssetRepo) UpdateStatus(_ context.Context, id string, status domain.AssetStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	asset.Status = status
	return nil
}

func (f *fakeAssetRepo) GetByID(_ context.Context, id string) (*domain.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	asset, ok := f.assets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *asset
	return &clone, nil
}

func (f *fakeAssetRepo) ListWithFilter(_ context.Context, filter repository.AssetFilter) ([]domain.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Asset
	for _, asset := range f.assets {
		if filter.OwnerID != nil && asset.OwnerID != *filter.OwnerID {
			continue
		}
		if filter.PackageID != nil && asset.PackageID != *filter.PackageID {
			continue
		}
		result = append(result, *asset)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeAssetRepo) ListBillable(_ context.Context) ([]domain.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Asset
	for _, asset := range f.assets {
		if asset.Status == domain.AssetStatusActive && asset.PackageID != "" {
			result = append(result, *asset)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeAssetRepo) CountByPackage(_ context.Context, packageID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, asset := range f.assets {
		if asset.PackageID == packageID {
			count++
		}
	}
	return count, nil
}

func (f *fakeAssetRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.assets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.assets, id)
	return nil
}

type fakePackageRepo struct {
	mu       sync.Mutex
	seq      int
	packages map[string]*domain.Package
}

func newFakePackageRepo() *fakePackageRepo {
	return &fakePackageRepo{packages: map[string]*domain.Package{}}
}

func (f *fakePackageRepo) Create(_ context.Context, pkg *domain.Package) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	pkg.ID = fmt.Sprintf("pkg-%d", f.seq)
	clone := *pkg
	f.packages[pkg.ID] = &clone
	return nil
}

func (f *fakePackageRepo) Update(_ context.Context, pkg *domain.Package) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.packages[pkg.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *pkg
	f.packages[pkg.ID] = &clone
	return nil
}

func (f *fakePackageRepo) GetByID(_ context.Context, id string) (*domain.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pkg, ok := f.packages[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *pkg
	return &clone, nil
}

func (f *fakePackageRepo) List(_ context.Context, activeOnly bool) ([]domain.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Package
	for _, pkg := range f.packages {
		if activeOnly && !pkg.IsActive {
			continue
		}
		result = append(result, *pkg)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (f *fakePackageRepo) CountByCategory(_ context.Context, categoryID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, pkg := range f.packages {
		if pkg.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (f *fakePackageRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.packages[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.packages, id)
	return nil
}

type fakeCategoryRepo struct {
	mu         sync.Mutex
	seq        int
	categories map[string]*domain.Category
}

func newFakeCategoryRepo() *fakeCategoryRepo {
	return &fakeCategoryRepo{categories: map[string]*domain.Category{}}
}

func (f *fakeCategoryRepo) Create(_ context.Context, cat *domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.categories {
		if existing.Name == cat.Name {
			return uniqueViolation("categories_name_key")
		}
	}
	f.seq++
	cat.ID = fmt.Sprintf("cat-%d", f.seq)
	clone := *cat
	f.categories[cat.ID] = &clone
	return nil
}

func (f *fakeCategoryRepo) Update(_ context.Context, cat *domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[cat.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *cat
	f.categories[cat.ID] = &clone
	return nil
}

func (f *fakeCategoryRepo) GetByID(_ context.Context, id string) (*domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cat, ok := f.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *cat
	return &clone, nil
}

func (f *fakeCategoryRepo) List(_ context.Context) ([]domain.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Category
	for _, cat := range f.categories {
		result = append(result, *cat)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (f *fakeCategoryRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.categories[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.categories, id)
	return nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	seq     int
	tickets map[string]*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (f *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", f.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	clone := *ticket
	f.tickets[ticket.ID] = &clone
	return nil
}

func (f *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *ticket
	return &clone, nil
}

func (f *fakeTicketRepo) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Ticket
	for _, ticket := range f.tickets {
		if filter.ClientID != nil && ticket.ClientID != *filter.ClientID {
			continue
		}
		if filter.SearchTerm != nil {
			term := strings.ToLower(*filter.SearchTerm)
			if !strings.Contains(strings.ToLower(ticket.Title), term) &&
				!strings.Contains(strings.ToLower(ticket.Description), term) {
				continue
			}
		}
		result = append(result, *ticket)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeTicketRepo) UpdateStatus(_ context.Context, id string, expected, next domain.TicketStatus, closedAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok || ticket.Status != expected {
		return false, nil
	}
	ticket.Status = next
	ticket.ClosedAt = closedAt
	ticket.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeTicketRepo) UpdatePriority(_ context.Context, id string, priority domain.TicketPriority) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.Priority = priority
	ticket.UpdatedAt = time.Now()
	return nil
}

func (f *fakeTicketRepo) Touch(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ticket, ok := f.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	return nil
}

func (f *fakeTicketRepo) CountOpenByAsset(_ context.Context, assetID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, ticket := range f.tickets {
		if ticket.AssetID != nil && *ticket.AssetID == assetID && ticket.Status != domain.TicketStatusClosed {
			count++
		}
	}
	return count, nil
}

func (f *fakeTicketRepo) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.tickets, id)
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	seq      int
	messages []domain.TicketMessage
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{}
}

func (f *fakeMessageRepo) Create(_ context.Context, msg *domain.TicketMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	msg.ID = fmt.Sprintf("msg-%d", f.seq)
	msg.CreatedAt = time.Now()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeMessageRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.TicketMessage
	for _, msg := range f.messages {
		if msg.TicketID == ticketID {
			result = append(result, msg)
		}
	}
	return result, nil
}

type fakeAttachmentRepo struct {
	mu          sync.Mutex
	seq         int
	attachments map[string]*domain.AttachmentReference
}

func newFakeAttachmentRepo() *fakeAttachmentRepo {
	return &fakeAttachmentRepo{attachments: map[string]*domain.AttachmentReference{}}
}

func (f *fakeAttachmentRepo) Create(_ context.Context, att *domain.AttachmentReference) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	att.ID = fmt.Sprintf("att-%d", f.seq)
	clone := *att
	f.attachments[att.ID] = &clone
	return nil
}

func (f *fakeAttachmentRepo) ListByMessage(_ context.Context, messageID string) ([]domain.AttachmentReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.AttachmentReference
	for _, att := range f.attachments {
		if att.TicketMessageID == messageID {
			result = append(result, *att)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeAttachmentRepo) GetByID(_ context.Context, id string) (*domain.AttachmentReference, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	att, ok := f.attachments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *att
	return &clone, nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	seq     int
	entries []domain.TicketHistory
}

func newFakeHistoryRepo() *fakeHistoryRepo {
	return &fakeHistoryRepo{}
}

func (f *fakeHistoryRepo) Create(_ context.Context, entry *domain.TicketHistory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	entry.ID = fmt.Sprintf("hist-%d", f.seq)
	entry.CreatedAt = time.Now()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string, _, _ int) ([]domain.TicketHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.TicketHistory
	for _, entry := range f.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	seq      int
	years    map[int]int64
	invoices map[string]*domain.Invoice
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		years:    map[int]int64{},
		invoices: map[string]*domain.Invoice{},
	}
}

func (f *fakeInvoiceRepo) Create(_ context.Context, inv *domain.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.invoices {
		if existing.Number == inv.Number {
			return uniqueViolation(repository.ConstraintInvoiceNumber)
		}
		if inv.Period != nil && existing.Period != nil &&
			existing.AssetID == inv.AssetID && *existing.Period == *inv.Period {
			return uniqueViolation(repository.ConstraintInvoicePeriod)
		}
	}
	f.seq++
	inv.ID = fmt.Sprintf("inv-%d", f.seq)
	inv.CreatedAt = time.Now()
	inv.UpdatedAt = inv.CreatedAt
	clone := *inv
	f.invoices[inv.ID] = &clone
	return nil
}

func (f *fakeInvoiceRepo) GetByID(_ context.Context, id string) (*domain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *inv
	return &clone, nil
}

func (f *fakeInvoiceRepo) ListWithFilter(_ context.Context, filter repository.InvoiceFilter) ([]domain.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.Invoice
	for _, inv := range f.invoices {
		if filter.UserID != nil && inv.UserID != *filter.UserID {
			continue
		}
		if filter.AssetID != nil && inv.AssetID != *filter.AssetID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsInvoiceStatus(filter.Statuses, inv.Status) {
			continue
		}
		result = append(result, *inv)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (f *fakeInvoiceRepo) NextSequence(_ context.Context, year int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.years[year]++
	return f.years[year], nil
}

func (f *fakeInvoiceRepo) MarkPaid(_ context.Context, id string, payment repository.PaymentRecord) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return false, nil
	}
	if inv.Status != domain.InvoiceStatusPending && inv.Status != domain.InvoiceStatusOverdue {
		return false, nil
	}
	inv.Status = domain.InvoiceStatusPaid
	inv.PaidDate = &payment.PaidDate
	amount := payment.AmountPaid
	inv.AmountPaid = &amount
	inv.PaymentReference = payment.Reference
	inv.PaymentNotes = payment.Notes
	return true, nil
}

func (f *fakeInvoiceRepo) ReclassifyOverdue(_ context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, inv := range f.invoices {
		if inv.Status == domain.InvoiceStatusPending && inv.DueDate.Before(now) {
			inv.Status = domain.InvoiceStatusOverdue
			count++
		}
	}
	return count, nil
}

func (f *fakeInvoiceRepo) ExistsForPeriod(_ context.Context, assetID, period string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, inv := range f.invoices {
		if inv.AssetID == assetID && inv.Period != nil && *inv.Period == period {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeInvoiceRepo) SetPDFKey(_ context.Context, id, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invoices[id]
	if !ok {
		return pgx.ErrNoRows
	}
	inv.PDFKey = &key
	return nil
}

func (f *fakeInvoiceRepo) CountUnpaidByAsset(_ context.Context, assetID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, inv := range f.invoices {
		if inv.AssetID == assetID &&
			(inv.Status == domain.InvoiceStatusPending || inv.Status == domain.InvoiceStatusOverdue) {
			count++
		}
	}
	return count, nil
}

func containsInvoiceStatus(list []domain.InvoiceStatus, status domain.InvoiceStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

type fakeSettingsRepo struct {
	mu        sync.Mutex
	billing   *domain.BillingSettings
	templates map[string]*domain.EmailTemplate
}

func newFakeSettingsRepo(settings *domain.BillingSettings) *fakeSettingsRepo {
	return &fakeSettingsRepo{
		billing:   settings,
		templates: map[string]*domain.EmailTemplate{},
	}
}

func (f *fakeSettingsRepo) GetBillingSettings(_ context.Context) (*domain.BillingSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.billing == nil {
		return nil, pgx.ErrNoRows
	}
	clone := *f.billing
	return &clone, nil
}

func (f *fakeSettingsRepo) UpdateBillingSettings(_ context.Context, settings *domain.BillingSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *settings
	f.billing = &clone
	return nil
}

func (f *fakeSettingsRepo) SeedBillingSettings(_ context.Context, settings *domain.BillingSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.billing == nil {
		clone := *settings
		f.billing = &clone
	}
	return nil
}

func (f *fakeSettingsRepo) GetTemplate(_ context.Context, key string) (*domain.EmailTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tpl, ok := f.templates[key]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *tpl
	return &clone, nil
}

func (f *fakeSettingsRepo) ListTemplates(_ context.Context) ([]domain.EmailTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var result []domain.EmailTemplate
	for _, tpl := range f.templates {
		result = append(result, *tpl)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
	return result, nil
}

func (f *fakeSettingsRepo) UpsertTemplate(_ context.Context, tpl *domain.EmailTemplate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *tpl
	f.templates[tpl.Key] = &clone
	return nil
}

type fakeResetRepo struct {
	mu     sync.Mutex
	seq    int
	tokens map[string]*repository.PasswordResetToken
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{tokens: map[string]*repository.PasswordResetToken{}}
}

func (f *fakeResetRepo) Create(_ context.Context, token *repository.PasswordResetToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	token.ID = fmt.Sprintf("reset-%d", f.seq)
	clone := *token
	f.tokens[token.ID] = &clone
	return nil
}

func (f *fakeResetRepo) GetByToken(_ context.Context, tokenStr string) (*repository.PasswordResetToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, token := range f.tokens {
		if token.Token == tokenStr {
			clone := *token
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeResetRepo) MarkUsed(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	token, ok := f.tokens[id]
	if !ok {
		return pgx.ErrNoRows
	}
	now := time.Now()
	token.UsedAt = &now
	return nil
}

type fakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{objects: map[string][]byte{}}
}

func (f *fakeObjectStore) Put(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = data
	return nil
}

func (f *fakeObjectStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[key]; !ok {
		return "", fmt.Errorf("object %s not found", key)
	}
	return "https://storage.example/" + key, nil
}

func (f *fakeObjectStore) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

type recordingDispatcher struct {
	mu     sync.Mutex
	events []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) typesSeen() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	types := make([]events.EventType, 0, len(d.events))
	for _, event := range d.events {
		types = append(types, event.Type)
	}
	return types
}

func testConfig() config.Config {
	return config.Config{
		Auth: config.AuthConfig{
			JWTSecret:               "test-secret",
			AccessTokenTTLMinutes:   60,
			PasswordResetTTLMinutes: 30,
			BcryptCost:              bcrypt.MinCost,
		},
		Billing: config.BillingConfig{
			DefaultVATRate:   "24",
			DefaultTermsDays: 14,
			DefaultCurrency:  "EUR",
		},
	}
}

func seedAdmin(t *testing.T, repo *fakeUserRepo) *domain.User {
	t.Helper()
	role := domain.AdminRoleSuperAdmin
	user := &domain.User{
		FirstName: "Alex",
		LastName:  "Admin",
		Email:     fmt.Sprintf("admin-%d@example.com", repo.seq+1),
		Status:    domain.UserStatusApproved,
		AdminRole: &role,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return user
}

func seedClient(t *testing.T, repo *fakeUserRepo, status domain.UserStatus) *domain.User {
	t.Helper()
	user := &domain.User{
		FirstName: "Casey",
		LastName:  "Client",
		Email:     fmt.Sprintf("client-%d@example.com", repo.seq+1),
		Status:    status,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return user
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *apperrors.DomainError
	if !errors.As(err, &de) {
		t.Fatalf("expected DomainError, got %T: %v", err, err)
	}
	return de.Code
}
