package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-billing/internal/api/http/handlers"
	"github.com/spec-kit/ticket-billing/internal/auth"
	"github.com/spec-kit/ticket-billing/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Billing        *handlers.BillingHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle)

	tickets.Post("", auth.RequireUser(), cfg.Tickets.CreateTicket)
	tickets.Get("", auth.RequireUser(), cfg.Tickets.ListTickets)
	tickets.Get("/:id", auth.RequireAnyRole(), cfg.Tickets.GetTicket)

	tickets.Post("/:id/products", auth.RequireUser(), cfg.Tickets.LinkProduct)
	tickets.Delete("/:id/products/:productID", auth.RequireUser(), cfg.Tickets.UnlinkProduct)
	tickets.Post("/:id/items", auth.RequireUser(), cfg.Tickets.AddLineItem)
	tickets.Delete("/:id/items/:itemID", auth.RequireUser(), cfg.Tickets.RemoveLineItem)
	tickets.Post("/:id/change-requests", auth.RequireUser(), cfg.Tickets.AddChangeRequest)
	tickets.Put("/:id/discount-code", auth.RequireUser(), cfg.Tickets.SetDiscountCode)
	tickets.Put("/:id/referral-code", auth.RequireUser(), cfg.Tickets.SetReferralCode)

	tickets.Get("/:id/quote", auth.RequireAnyRole(), cfg.Billing.GetQuote)
	tickets.Get("/:id/vouchers", auth.RequireAnyRole(), cfg.Billing.ListVouchers)
	tickets.Get("/:id/invoice", auth.RequireAnyRole(), cfg.Billing.GetInvoice)
	tickets.Post("/:id/payments", auth.RequireAnyRole(), cfg.Billing.ApplyPayment)
	tickets.Post("/:id/refund-requests", auth.RequireUser(), cfg.Billing.RequestRefund)

	// Staff-only commands.
	tickets.Post("/:id/status", auth.RequireStaffRole(domain.StaffRoleAgent, domain.StaffRoleAdmin), cfg.Tickets.UpdateStatus)
	tickets.Post("/:id/change-requests/:crID/review", auth.RequireStaffRole(domain.StaffRoleAgent, domain.StaffRoleAdmin), cfg.Tickets.ReviewChangeRequest)
	tickets.Put("/:id/deposit", auth.RequireStaffRole(domain.StaffRoleAgent, domain.StaffRoleAdmin), cfg.Tickets.SetDeposit)

	refunds := app.Group("/refund-requests", cfg.AuthMiddleware.Handle)
	refunds.Post("/:id/resolve", auth.RequireStaffRole(domain.StaffRoleFinance, domain.StaffRoleAdmin), cfg.Billing.ResolveRefund)
}
