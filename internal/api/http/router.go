package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/kubikportal/portal-service/internal/api/http/handlers"
	"github.com/kubikportal/portal-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	Assets         *handlers.AssetsHandler
	Catalog        *handlers.CatalogHandler
	Tickets        *handlers.TicketsHandler
	Invoices       *handlers.InvoicesHandler
	Settings       *handlers.SettingsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Post("/password/reset/request", cfg.Auth.RequestPasswordReset)
	authGroup.Post("/password/reset/confirm", cfg.Auth.ConfirmPasswordReset)
	authGroup.Post("/password/change", cfg.AuthMiddleware.Handle, auth.RequireApproved(), cfg.Auth.ChangePassword)

	// client surface: approved accounts only
	client := app.Group("", cfg.AuthMiddleware.Handle, auth.RequireApproved())
	client.Get("/me", cfg.Users.Me)
	client.Patch("/me", cfg.Users.UpdateProfile)

	client.Get("/categories", cfg.Catalog.ListCategories)
	client.Get("/packages", cfg.Catalog.ListPackages)
	client.Get("/packages/:id", cfg.Catalog.GetPackage)

	client.Post("/assets", cfg.Assets.Create)
	client.Get("/assets", cfg.Assets.List)
	client.Get("/assets/:id", cfg.Assets.Get)
	client.Patch("/assets/:id", cfg.Assets.Update)

	client.Post("/tickets", cfg.Tickets.Create)
	client.Get("/tickets", cfg.Tickets.List)
	client.Get("/tickets/:id", cfg.Tickets.Get)
	client.Post("/tickets/:id/messages", cfg.Tickets.AddMessage)
	client.Get("/tickets/:id/attachments/:attachmentID/url", cfg.Tickets.AttachmentURL)

	client.Get("/invoices", cfg.Invoices.List)
	client.Get("/invoices/:id", cfg.Invoices.Get)
	client.Get("/invoices/:id/pdf", cfg.Invoices.PDFURL)

	// admin surface: super admins only
	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireSuperAdmin())
	admin.Get("/dashboard", cfg.Settings.Dashboard)

	admin.Get("/users", cfg.Users.List)
	admin.Post("/users", cfg.Users.Create)
	admin.Get("/users/:id", cfg.Users.Get)
	admin.Post("/users/:id/status", cfg.Users.SetStatus)
	admin.Post("/users/:id/promote", cfg.Users.Promote)
	admin.Post("/users/:id/demote", cfg.Users.Demote)

	admin.Post("/categories", cfg.Catalog.CreateCategory)
	admin.Patch("/categories/:id", cfg.Catalog.UpdateCategory)
	admin.Delete("/categories/:id", cfg.Catalog.DeleteCategory)
	admin.Post("/packages", cfg.Catalog.CreatePackage)
	admin.Put("/packages/:id", cfg.Catalog.UpdatePackage)
	admin.Delete("/packages/:id", cfg.Catalog.DeletePackage)

	admin.Post("/assets/:id/status", cfg.Assets.SetStatus)
	admin.Delete("/assets/:id", cfg.Assets.Delete)

	admin.Post("/tickets/:id/status", cfg.Tickets.SetStatus)
	admin.Post("/tickets/:id/priority", cfg.Tickets.SetPriority)
	admin.Delete("/tickets/:id", cfg.Tickets.Delete)

	admin.Post("/invoices", cfg.Invoices.Create)
	admin.Post("/invoices/generate", cfg.Invoices.GenerateRun)
	admin.Post("/invoices/overdue-sweep", cfg.Invoices.SweepOverdue)
	admin.Post("/invoices/:id/payments", cfg.Invoices.RecordPayment)
	admin.Post("/invoices/:id/pdf", cfg.Invoices.UploadPDF)
	admin.Post("/invoices/:id/send", cfg.Invoices.SendEmail)

	admin.Get("/settings/billing", cfg.Settings.GetBillingSettings)
	admin.Put("/settings/billing", cfg.Settings.UpdateBillingSettings)
	admin.Get("/settings/templates", cfg.Settings.ListTemplates)
	admin.Put("/settings/templates", cfg.Settings.UpsertTemplate)
	admin.Get("/settings/templates/:key", cfg.Settings.GetTemplate)
}
