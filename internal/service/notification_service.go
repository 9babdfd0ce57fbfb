package service

import (
	"bytes"
	"context"
	"text/template"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/kubikportal/portal-service/internal/config"
	"github.com/kubikportal/portal-service/internal/events"
	"github.com/kubikportal/portal-service/internal/repository"
)

// Template keys the notification service resolves from the settings table.
const (
	TemplateUserApproved   = "user_approved"
	TemplateUserRejected   = "user_rejected"
	TemplateTicketCreated  = "ticket_created"
	TemplateTicketUpdated  = "ticket_status_changed"
	TemplateInvoiceCreated = "invoice_created"
	TemplateInvoicePaid    = "invoice_paid"
)

// LogMailer is the default Mailer; it only logs what would be sent.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer builds a logging mailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the outbound message.
func (m *LogMailer) Send(_ context.Context, from, to, subject, body string) error {
	m.logger.Info("email dispatched",
		zap.String("from", from),
		zap.String("to", to),
		zap.String("subject", subject),
		zap.Int("body_bytes", len(body)))
	return nil
}

// NotificationService turns domain events into outbound email. Delivery is
// best-effort; failures are logged and never propagate to the mutation that
// raised the event.
type NotificationService struct {
	users    repository.UserRepository
	settings repository.SettingsRepository
	mailer   Mailer
	from     string
	logger   *zap.Logger
}

// NewNotificationService builds the service.
func NewNotificationService(cfg config.NotificationConfig, users repository.UserRepository, settings repository.SettingsRepository, mailer Mailer, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		users:    users,
		settings: settings,
		mailer:   mailer,
		from:     cfg.EmailFrom,
		logger:   logger,
	}
}

// Register wires the service into the event dispatcher.
func (s *NotificationService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventUserApproved, s.onUserStatus(TemplateUserApproved))
	dispatcher.Subscribe(events.EventUserRejected, s.onUserStatus(TemplateUserRejected))
	dispatcher.Subscribe(events.EventTicketCreated, s.onTicketEvent(TemplateTicketCreated))
	dispatcher.Subscribe(events.EventTicketStatusChanged, s.onTicketEvent(TemplateTicketUpdated))
	dispatcher.Subscribe(events.EventInvoiceCreated, s.onInvoiceEvent(TemplateInvoiceCreated))
	dispatcher.Subscribe(events.EventInvoicePaid, s.onInvoiceEvent(TemplateInvoicePaid))
}

func (s *NotificationService) onUserStatus(templateKey string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.UserStatusPayload)
		if !ok {
			return nil
		}
		s.deliver(ctx, templateKey, payload.Email, map[string]any{
			"FirstName": payload.FirstName,
			"Status":    string(payload.NewStatus),
		})
		return nil
	}
}

func (s *NotificationService) onTicketEvent(templateKey string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		email, firstName, err := s.resolveRecipient(ctx, event)
		if err != nil || email == "" {
			return nil
		}
		data := map[string]any{
			"FirstName": firstName,
			"TicketID":  event.EntityID,
		}
		if payload, ok := event.Payload.(events.TicketCreatedPayload); ok {
			data["Title"] = payload.Title
		}
		if payload, ok := event.Payload.(events.TicketStatusChangedPayload); ok {
			data["OldStatus"] = string(payload.OldStatus)
			data["NewStatus"] = string(payload.NewStatus)
		}
		s.deliver(ctx, templateKey, email, data)
		return nil
	}
}

func (s *NotificationService) onInvoiceEvent(templateKey string) events.EventHandler {
	return func(ctx context.Context, event events.Event) error {
		payload, ok := event.Payload.(events.InvoicePayload)
		if !ok {
			return nil
		}
		user, err := s.users.GetByID(ctx, payload.UserID)
		if err != nil {
			if err != pgx.ErrNoRows {
				s.logger.Warn("recipient lookup failed", zap.String("user_id", payload.UserID), zap.Error(err))
			}
			return nil
		}
		s.deliver(ctx, templateKey, user.Email, map[string]any{
			"FirstName": user.FirstName,
			"Number":    payload.Number,
			"Total":     payload.TotalAmount,
			"Currency":  payload.Currency,
		})
		return nil
	}
}

func (s *NotificationService) resolveRecipient(ctx context.Context, event events.Event) (email, firstName string, err error) {
	if payload, ok := event.Payload.(events.TicketCreatedPayload); ok {
		user, err := s.users.GetByID(ctx, payload.ClientID)
		if err != nil {
			return "", "", err
		}
		return user.Email, user.FirstName, nil
	}
	if event.Actor.UserID != nil {
		user, err := s.users.GetByID(ctx, *event.Actor.UserID)
		if err != nil {
			return "", "", err
		}
		return user.Email, user.FirstName, nil
	}
	return "", "", nil
}

// deliver renders the template and hands the message to the mailer. Missing
// templates and render errors are logged and swallowed.
func (s *NotificationService) deliver(ctx context.Context, templateKey, to string, data map[string]any) {
	tpl, err := s.settings.GetTemplate(ctx, templateKey)
	if err != nil {
		if err == pgx.ErrNoRows {
			s.logger.Debug("no template configured", zap.String("template", templateKey))
		} else {
			s.logger.Warn("template lookup failed", zap.String("template", templateKey), zap.Error(err))
		}
		return
	}

	subject, err := renderTemplate(tpl.Subject, data)
	if err != nil {
		s.logger.Warn("subject render failed", zap.String("template", templateKey), zap.Error(err))
		return
	}
	body, err := renderTemplate(tpl.Body, data)
	if err != nil {
		s.logger.Warn("body render failed", zap.String("template", templateKey), zap.Error(err))
		return
	}

	if err := s.mailer.Send(ctx, s.from, to, subject, body); err != nil {
		s.logger.Warn("email delivery failed",
			zap.String("template", templateKey),
			zap.String("to", to),
			zap.Error(err))
	}
}

func renderTemplate(text string, data map[string]any) (string, error) {
	tpl, err := template.New("email").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
