package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticket-billing/internal/api/dto"
	"github.com/spec-kit/ticket-billing/internal/auth"
	"github.com/spec-kit/ticket-billing/internal/billing"
	"github.com/spec-kit/ticket-billing/internal/domain"
	"github.com/spec-kit/ticket-billing/internal/events"
	"github.com/spec-kit/ticket-billing/internal/service"
	apperrors "github.com/spec-kit/ticket-billing/pkg/util/errorutil"
)

// BillingHandler serves quotes, vouchers, invoices, payments and refunds.
type BillingHandler struct {
	service *service.TicketService
}

// NewBillingHandler constructs handler.
func NewBillingHandler(ticketService *service.TicketService) *BillingHandler {
	return &BillingHandler{service: ticketService}
}

// GetQuote GET /tickets/:id/quote.
func (h *BillingHandler) GetQuote(c *fiber.Ctx) error {
	if err := h.authorizeTicketAccess(c); err != nil {
		return err
	}
	quote, err := h.service.GetQuote(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.QuoteResponse{
		Subtotal:         int64(quote.Subtotal),
		DiscountAmount:   int64(quote.DiscountAmount),
		TotalAmount:      int64(quote.TotalAmount),
		AmountPaid:       int64(quote.AmountPaid),
		RemainingBalance: int64(quote.RemainingBalance),
	}})
}

// ListVouchers GET /tickets/:id/vouchers.
func (h *BillingHandler) ListVouchers(c *fiber.Ctx) error {
	if err := h.authorizeTicketAccess(c); err != nil {
		return err
	}
	eligible, err := h.service.ListEligibleVouchers(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.VoucherResponse, 0, len(eligible))
	for _, entry := range eligible {
		items = append(items, dto.VoucherResponse{
			Code:           entry.Voucher.Code,
			DiscountAmount: int64(entry.Voucher.DiscountAmount),
			Usable:         entry.Usable,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetInvoice GET /tickets/:id/invoice.
func (h *BillingHandler) GetInvoice(c *fiber.Ctx) error {
	if err := h.authorizeTicketAccess(c); err != nil {
		return err
	}
	snapshot, err := h.service.BuildInvoiceSnapshot(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": invoiceResponse(snapshot)})
}

// ApplyPayment POST /tickets/:id/payments.
func (h *BillingHandler) ApplyPayment(c *fiber.Ctx) error {
	principal, err := h.principal(c)
	if err != nil {
		return err
	}
	if err := h.authorizeTicketAccess(c); err != nil {
		return err
	}
	var req dto.ApplyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Type != domain.PaymentTypeDeposit && req.Type != domain.PaymentTypeFinalPayment {
		return apperrors.NewValidationError("unknown payment type", nil)
	}
	ticket, err := h.service.ApplyPayment(c.UserContext(), actorFor(principal), c.Params("id"), req.Type, domain.Money(req.Amount))
	if err != nil {
		return err
	}
	latest := ticket.Payments[len(ticket.Payments)-1]
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"payment": paymentResponse(latest),
		"ticket":  ticketSummary(ticket),
	}})
}

// RequestRefund POST /tickets/:id/refund-requests.
func (h *BillingHandler) RequestRefund(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.SubjectType != domain.SubjectTypeUser {
		return apperrors.NewUnauthorized("user required")
	}
	var req dto.CreateRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.PaymentID == "" {
		return apperrors.NewValidationError("payment_id required", nil)
	}
	request, err := h.service.RequestRefund(c.UserContext(), principal.SubjectID, c.Params("id"), req.PaymentID, req.Reason)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": refundResponse(*request)})
}

// ResolveRefund POST /refund-requests/:id/resolve (staff, finance or admin).
func (h *BillingHandler) ResolveRefund(c *fiber.Ctx) error {
	principal, err := h.principal(c)
	if err != nil {
		return err
	}
	var req dto.ResolveRefundRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	request, err := h.service.ResolveRefund(c.UserContext(), actorFor(principal), c.Params("id"), req.Approve)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": refundResponse(*request)})
}

func (h *BillingHandler) principal(c *fiber.Ctx) (*auth.Principal, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return principal, nil
}

// authorizeTicketAccess ensures end users only touch their own tickets. Staff
// principals pass through.
func (h *BillingHandler) authorizeTicketAccess(c *fiber.Ctx) error {
	principal, err := h.principal(c)
	if err != nil {
		return err
	}
	if principal.SubjectType == domain.SubjectTypeStaff {
		return nil
	}
	_, err = h.service.GetTicketForUser(c.UserContext(), principal.SubjectID, c.Params("id"))
	return err
}

func actorFor(principal *auth.Principal) events.Actor {
	if principal.SubjectType == domain.SubjectTypeStaff {
		return service.StaffActor(principal.SubjectID)
	}
	return service.UserActor(principal.SubjectID)
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ID:               ticket.ID,
		ExternalKey:      ticket.ExternalKey,
		Title:            ticket.Title,
		Status:           ticket.Status,
		PaymentStatus:    ticket.PaymentStatus,
		Subtotal:         int64(ticket.Subtotal),
		DiscountAmount:   int64(ticket.DiscountAmount),
		TotalAmount:      int64(ticket.TotalAmount),
		RemainingBalance: int64(billing.RemainingBalance(ticket)),
		CreatedAt:        ticket.CreatedAt,
		UpdatedAt:        ticket.UpdatedAt,
	}
}

func ticketDetail(ticket *domain.Ticket) dto.TicketDetailResponse {
	changeRequests := make([]dto.ChangeRequestResponse, 0, len(ticket.ChangeRequests))
	for _, cr := range ticket.ChangeRequests {
		changeRequests = append(changeRequests, dto.ChangeRequestResponse{
			ID:          cr.ID,
			Description: cr.Description,
			PriceImpact: int64(cr.PriceImpact),
			Status:      cr.Status,
			CreatedAt:   cr.CreatedAt,
		})
	}
	lineItems := make([]dto.LineItemResponse, 0, len(ticket.AdditionalLineItems))
	for _, item := range ticket.AdditionalLineItems {
		lineItems = append(lineItems, dto.LineItemResponse{
			ID:          item.ID,
			Description: item.Description,
			Price:       int64(item.Price),
		})
	}
	payments := make([]dto.PaymentResponse, 0, len(ticket.Payments))
	for _, payment := range ticket.Payments {
		payments = append(payments, paymentResponse(payment))
	}
	refunds := make([]dto.RefundRequestResponse, 0, len(ticket.RefundRequests))
	for _, request := range ticket.RefundRequests {
		refunds = append(refunds, refundResponse(request))
	}
	return dto.TicketDetailResponse{
		ID:                ticket.ID,
		ExternalKey:       ticket.ExternalKey,
		CustomerID:        ticket.CustomerID,
		Title:             ticket.Title,
		Description:       ticket.Description,
		Status:            ticket.Status,
		PaymentStatus:     ticket.PaymentStatus,
		RelatedProductIDs: ticket.RelatedProductIDs,
		ChangeRequests:    changeRequests,
		LineItems:         lineItems,
		DiscountCode:      ticket.DiscountCode,
		ReferralCode:      ticket.ReferralCode,
		DepositAmount:     int64(ticket.DepositAmount),
		DepositManual:     ticket.DepositManual,
		Subtotal:          int64(ticket.Subtotal),
		DiscountAmount:    int64(ticket.DiscountAmount),
		TotalAmount:       int64(ticket.TotalAmount),
		Payments:          payments,
		RefundRequests:    refunds,
		CreatedAt:         ticket.CreatedAt,
		UpdatedAt:         ticket.UpdatedAt,
	}
}

func paymentResponse(payment domain.Payment) dto.PaymentResponse {
	return dto.PaymentResponse{
		ID:        payment.ID,
		Date:      payment.Date,
		Amount:    int64(payment.Amount),
		Type:      payment.Type,
		InvoiceID: payment.InvoiceID,
	}
}

func refundResponse(request domain.RefundRequest) dto.RefundRequestResponse {
	return dto.RefundRequestResponse{
		ID:         request.ID,
		TicketID:   request.TicketID,
		PaymentID:  request.PaymentID,
		CustomerID: request.CustomerID,
		Reason:     request.Reason,
		Status:     request.Status,
		CreatedAt:  request.CreatedAt,
		ResolvedAt: request.ResolvedAt,
	}
}

func invoiceResponse(snapshot *service.InvoiceSnapshot) dto.InvoiceResponse {
	lines := make([]dto.InvoiceLineResponse, 0, len(snapshot.Lines))
	for _, line := range snapshot.Lines {
		lines = append(lines, dto.InvoiceLineResponse{
			Description: line.Description,
			Amount:      int64(line.Amount),
		})
	}
	payments := make([]dto.PaymentResponse, 0, len(snapshot.Payments))
	for _, payment := range snapshot.Payments {
		payments = append(payments, paymentResponse(payment))
	}
	return dto.InvoiceResponse{
		TicketKey:        snapshot.TicketKey,
		CustomerID:       snapshot.CustomerID,
		Lines:            lines,
		Subtotal:         int64(snapshot.Subtotal),
		DiscountCode:     snapshot.DiscountCode,
		DiscountAmount:   int64(snapshot.DiscountAmount),
		TotalAmount:      int64(snapshot.TotalAmount),
		AmountPaid:       int64(snapshot.AmountPaid),
		RemainingBalance: int64(snapshot.RemainingBalance),
		Payments:         payments,
		GeneratedAt:      snapshot.GeneratedAt,
	}
}
