package handlers

import (
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-billing/internal/api/dto"
	"github.com/spec-kit/ticket-billing/internal/auth"
	"github.com/spec-kit/ticket-billing/internal/domain"
	"github.com/spec-kit/ticket-billing/internal/service"
	apperrors "github.com/spec-kit/ticket-billing/pkg/util/errorutil"
)

// TicketsHandler manages the ticket lifecycle and line-item commands.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// CreateTicket POST /tickets.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.SubjectType != domain.SubjectTypeUser {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), principal.SubjectID, service.TicketCreateInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.SubjectType != domain.SubjectTypeUser {
		return apperrors.NewUnauthorized("user required")
	}
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)
	tickets, err := h.service.ListUserTickets(c.UserContext(), principal.SubjectID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var ticket *domain.Ticket
	var err error
	if principal.SubjectType == domain.SubjectTypeStaff {
		ticket, err = h.service.GetTicket(c.UserContext(), c.Params("id"))
	} else {
		ticket, err = h.service.GetTicketForUser(c.UserContext(), principal.SubjectID, c.Params("id"))
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UpdateStatus POST /tickets/:id/status (staff).
func (h *TicketsHandler) UpdateStatus(c *fiber.Ctx) error {
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.UpdateStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

// LinkProduct POST /tickets/:id/products.
func (h *TicketsHandler) LinkProduct(c *fiber.Ctx) error {
	var req dto.LinkProductRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.ProductID == "" {
		return apperrors.NewValidationError("product_id required", nil)
	}
	ticket, err := h.service.LinkProduct(c.UserContext(), c.Params("id"), req.ProductID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// UnlinkProduct DELETE /tickets/:id/products/:productID.
func (h *TicketsHandler) UnlinkProduct(c *fiber.Ctx) error {
	ticket, err := h.service.UnlinkProduct(c.UserContext(), c.Params("id"), c.Params("productID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AddLineItem POST /tickets/:id/items.
func (h *TicketsHandler) AddLineItem(c *fiber.Ctx) error {
	var req dto.AddLineItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AddLineItem(c.UserContext(), c.Params("id"), req.Description, domain.Money(req.Price))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// RemoveLineItem DELETE /tickets/:id/items/:itemID.
func (h *TicketsHandler) RemoveLineItem(c *fiber.Ctx) error {
	ticket, err := h.service.RemoveLineItem(c.UserContext(), c.Params("id"), c.Params("itemID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// AddChangeRequest POST /tickets/:id/change-requests.
func (h *TicketsHandler) AddChangeRequest(c *fiber.Ctx) error {
	var req dto.AddChangeRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.AddChangeRequest(c.UserContext(), c.Params("id"), req.Description, domain.Money(req.PriceImpact))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// ReviewChangeRequest POST /tickets/:id/change-requests/:crID/review (staff).
func (h *TicketsHandler) ReviewChangeRequest(c *fiber.Ctx) error {
	var req dto.ReviewChangeRequestRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.ReviewChangeRequest(c.UserContext(), c.Params("id"), c.Params("crID"), req.Approve)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// SetDiscountCode PUT /tickets/:id/discount-code.
func (h *TicketsHandler) SetDiscountCode(c *fiber.Ctx) error {
	var req dto.SetDiscountCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetDiscountCode(c.UserContext(), c.Params("id"), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// SetReferralCode PUT /tickets/:id/referral-code.
func (h *TicketsHandler) SetReferralCode(c *fiber.Ctx) error {
	var req dto.SetReferralCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.service.SetReferralCode(c.UserContext(), c.Params("id"), req.Code)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

// SetDeposit PUT /tickets/:id/deposit.
func (h *TicketsHandler) SetDeposit(c *fiber.Ctx) error {
	var req dto.SetDepositRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if (req.Amount == nil) == (req.Percent == nil) {
		return apperrors.NewValidationError("exactly one of amount or percent required", nil)
	}
	var ticket *domain.Ticket
	var err error
	if req.Amount != nil {
		ticket, err = h.service.SetDepositAmount(c.UserContext(), c.Params("id"), domain.Money(*req.Amount))
	} else {
		ticket, err = h.service.SetDepositPercent(c.UserContext(), c.Params("id"), *req.Percent)
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketDetail(ticket)})
}

func parseInt(val string, fallback int) int {
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
