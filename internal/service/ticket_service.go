package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/ticket-billing/internal/billing"
	"github.com/spec-kit/ticket-billing/internal/directory"
	"github.com/spec-kit/ticket-billing/internal/domain"
	"github.com/spec-kit/ticket-billing/internal/events"
	"github.com/spec-kit/ticket-billing/internal/observability"
	"github.com/spec-kit/ticket-billing/internal/repository"
	apperrors "github.com/spec-kit/ticket-billing/pkg/util/errorutil"
)

// VoucherCounter advances a voucher's usage counter, reporting whether the
// cap allowed the increment.
type VoucherCounter interface {
	IncrementVoucherUses(ctx context.Context, voucherID string) (bool, error)
}

// TicketService is the ticket aggregate. Every mutation goes through it under
// a per-ticket lock: the quote is recomputed, invariants are checked, and the
// whole aggregate is saved in one transaction, so commands either fully apply
// or are fully rejected.
type TicketService struct {
	tickets    repository.TicketRepository
	catalog    directory.CatalogAdapter
	eventDir   directory.EventDirectory
	staffDir   directory.EmployeeDirectory
	counter    VoucherCounter
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	locks      ticketLocks
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo        repository.TicketRepository
	Catalog           directory.CatalogAdapter
	EventDirectory    directory.EventDirectory
	EmployeeDirectory directory.EmployeeDirectory
	VoucherCounter    VoucherCounter
	Dispatcher        events.Dispatcher
	Metrics           *observability.Metrics
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		catalog:    deps.Catalog,
		eventDir:   deps.EventDirectory,
		staffDir:   deps.EmployeeDirectory,
		counter:    deps.VoucherCounter,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
	}
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
}

// QuoteView is the read model returned by GetQuote.
type QuoteView struct {
	Subtotal         domain.Money
	DiscountAmount   domain.Money
	TotalAmount      domain.Money
	AmountPaid       domain.Money
	RemainingBalance domain.Money
}

// InvoiceSnapshot is the flattened export handed to a print/PDF renderer.
type InvoiceSnapshot struct {
	TicketKey        string
	CustomerID       string
	Lines            []billing.Line
	Subtotal         domain.Money
	DiscountCode     string
	DiscountAmount   domain.Money
	TotalAmount      domain.Money
	AmountPaid       domain.Money
	RemainingBalance domain.Money
	Payments         []domain.Payment
	GeneratedAt      time.Time
}

// CreateTicket creates an empty billing ticket for a customer: no payments,
// zero totals, payment status unpaid.
func (s *TicketService) CreateTicket(ctx context.Context, customerID string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title required", nil)
	}

	ticket := &domain.Ticket{
		ExternalKey:   generateTicketKey(),
		CustomerID:    customerID,
		Title:         title,
		Description:   strings.TrimSpace(input.Description),
		Status:        domain.TicketStatusOpen,
		PaymentStatus: domain.PaymentStatusUnpaid,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    UserActor(customerID),
		Payload: events.TicketCreatedPayload{
			CustomerID: ticket.CustomerID,
			Title:      ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicketForUser fetches a ticket ensuring ownership.
func (s *TicketService) GetTicketForUser(ctx context.Context, customerID, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.CustomerID != customerID {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

// GetTicket fetches a ticket for staff.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	return s.loadTicket(ctx, ticketID)
}

// ListUserTickets returns paginated tickets for a customer.
func (s *TicketService) ListUserTickets(ctx context.Context, customerID string, limit, offset int) ([]domain.Ticket, error) {
	return s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		CustomerID: &customerID,
		Limit:      limit,
		Offset:     offset,
	})
}

// LinkProduct attaches a catalog product to the ticket and re-prices it.
func (s *TicketService) LinkProduct(ctx context.Context, ticketID, productID string) (*domain.Ticket, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("product", map[string]any{"product_id": productID})
		}
		return nil, apperrors.NewUpstreamUnavailable("catalog", err)
	}
	return s.mutate(ctx, ticketID, "link_product", func(ticket *domain.Ticket) error {
		if ticket.HasProduct(product.ID) {
			return apperrors.NewConflict("product already linked", map[string]any{"product_id": product.ID})
		}
		ticket.RelatedProductIDs = append(ticket.RelatedProductIDs, product.ID)
		return nil
	})
}

// UnlinkProduct removes a product link and re-prices the ticket.
func (s *TicketService) UnlinkProduct(ctx context.Context, ticketID, productID string) (*domain.Ticket, error) {
	return s.mutate(ctx, ticketID, "unlink_product", func(ticket *domain.Ticket) error {
		for i, id := range ticket.RelatedProductIDs {
			if id == productID {
				ticket.RelatedProductIDs = append(ticket.RelatedProductIDs[:i], ticket.RelatedProductIDs[i+1:]...)
				return nil
			}
		}
		return apperrors.NewNotFound("product link", map[string]any{"product_id": productID})
	})
}

// AddLineItem appends an ad-hoc line item. Negative prices are allowed; the
// quote total is floored at zero.
func (s *TicketService) AddLineItem(ctx context.Context, ticketID, description string, price domain.Money) (*domain.Ticket, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	return s.mutate(ctx, ticketID, "add_line_item", func(ticket *domain.Ticket) error {
		ticket.AdditionalLineItems = append(ticket.AdditionalLineItems, domain.AdHocItem{
			ID:          uuid.NewString(),
			Description: description,
			Price:       price,
		})
		return nil
	})
}

// RemoveLineItem deletes an ad-hoc line item.
func (s *TicketService) RemoveLineItem(ctx context.Context, ticketID, itemID string) (*domain.Ticket, error) {
	return s.mutate(ctx, ticketID, "remove_line_item", func(ticket *domain.Ticket) error {
		for i, item := range ticket.AdditionalLineItems {
			if item.ID == itemID {
				ticket.AdditionalLineItems = append(ticket.AdditionalLineItems[:i], ticket.AdditionalLineItems[i+1:]...)
				return nil
			}
		}
		return apperrors.NewNotFound("line item", map[string]any{"item_id": itemID})
	})
}

// AddChangeRequest records a pending scope change. It contributes to the
// subtotal only once approved.
func (s *TicketService) AddChangeRequest(ctx context.Context, ticketID, description string, priceImpact domain.Money) (*domain.Ticket, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperrors.NewValidationError("description required", nil)
	}
	return s.mutate(ctx, ticketID, "add_change_request", func(ticket *domain.Ticket) error {
		ticket.ChangeRequests = append(ticket.ChangeRequests, domain.ChangeRequest{
			ID:          uuid.NewString(),
			Description: description,
			PriceImpact: priceImpact,
			Status:      domain.ChangeRequestPending,
			CreatedAt:   time.Now(),
		})
		return nil
	})
}

// ReviewChangeRequest approves or rejects a pending change request.
func (s *TicketService) ReviewChangeRequest(ctx context.Context, ticketID, requestID string, approve bool) (*domain.Ticket, error) {
	return s.mutate(ctx, ticketID, "review_change_request", func(ticket *domain.Ticket) error {
		for i := range ticket.ChangeRequests {
			if ticket.ChangeRequests[i].ID != requestID {
				continue
			}
			if ticket.ChangeRequests[i].Status != domain.ChangeRequestPending {
				return apperrors.NewConflict("change request already reviewed", map[string]any{"request_id": requestID})
			}
			if approve {
				ticket.ChangeRequests[i].Status = domain.ChangeRequestApproved
			} else {
				ticket.ChangeRequests[i].Status = domain.ChangeRequestRejected
			}
			return nil
		}
		return apperrors.NewNotFound("change request", map[string]any{"request_id": requestID})
	})
}

// SetDiscountCode stores a discount code on the ticket. A code that does not
// resolve to an eligible voucher is kept and simply prices at zero discount;
// typing an unrecognized code must not block editing. An empty code clears
// the discount.
func (s *TicketService) SetDiscountCode(ctx context.Context, ticketID, code string) (*domain.Ticket, error) {
	code = strings.TrimSpace(code)
	if len(code) > 64 {
		return nil, apperrors.NewValidationError("discount code too long", nil)
	}
	return s.mutate(ctx, ticketID, "set_discount_code", func(ticket *domain.Ticket) error {
		if code == "" {
			ticket.DiscountCode = nil
		} else {
			ticket.DiscountCode = &code
		}
		return nil
	})
}

// SetReferralCode validates a staff referral code and stores it. Referral
// codes never affect totals.
func (s *TicketService) SetReferralCode(ctx context.Context, ticketID, code string) (*domain.Ticket, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return s.mutate(ctx, ticketID, "set_referral_code", func(ticket *domain.Ticket) error {
			ticket.ReferralCode = nil
			return nil
		})
	}
	employee, err := s.staffDir.FindByReferralCode(ctx, code)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable("employee directory", err)
	}
	if employee == nil {
		return nil, apperrors.NewValidationError("unknown referral code", map[string]any{"referral_code": code})
	}
	return s.mutate(ctx, ticketID, "set_referral_code", func(ticket *domain.Ticket) error {
		ticket.ReferralCode = &code
		return nil
	})
}

// SetDepositAmount sets the deposit directly. Overrides above the ticket
// total are permitted but flagged as manual.
func (s *TicketService) SetDepositAmount(ctx context.Context, ticketID string, amount domain.Money) (*domain.Ticket, error) {
	if amount < 0 {
		return nil, apperrors.NewValidationError("deposit amount must not be negative", nil)
	}
	return s.mutate(ctx, ticketID, "set_deposit_amount", func(ticket *domain.Ticket) error {
		ticket.DepositAmount = amount
		ticket.DepositManual = true
		return nil
	})
}

// SetDepositPercent derives the deposit from the current total. The result
// is kept clamped to the total on later re-pricing.
func (s *TicketService) SetDepositPercent(ctx context.Context, ticketID string, percent int) (*domain.Ticket, error) {
	if percent < 1 || percent > 100 {
		return nil, apperrors.NewValidationError("deposit percent must be between 1 and 100", nil)
	}
	return s.mutateRepriced(ctx, ticketID, "set_deposit_percent", func(ticket *domain.Ticket) error {
		ticket.DepositManual = false
		ticket.DepositAmount = domain.PercentOf(ticket.TotalAmount, percent)
		return nil
	})
}

// UpdateStatus moves the ticket through its lifecycle.
func (s *TicketService) UpdateStatus(ctx context.Context, ticketID string, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	return s.mutate(ctx, ticketID, "update_status", func(ticket *domain.Ticket) error {
		if !isValidTransition(ticket.Status, newStatus) {
			return apperrors.NewConflict("invalid status transition", map[string]any{
				"from": ticket.Status,
				"to":   newStatus,
			})
		}
		ticket.Status = newStatus
		return nil
	})
}

// ApplyPayment validates and records a payment, advancing the payment status.
func (s *TicketService) ApplyPayment(ctx context.Context, actor events.Actor, ticketID string, paymentType domain.PaymentType, amount domain.Money) (*domain.Ticket, error) {
	var recorded *domain.Payment
	var firstPayment bool

	ticket, err := s.mutateRepriced(ctx, ticketID, "apply_payment", func(ticket *domain.Ticket) error {
		firstPayment = len(ticket.Payments) == 0
		payment, err := billing.ApplyPayment(ticket, paymentType, amount, time.Now())
		if err != nil {
			return mapPaymentError(err)
		}
		recorded = payment
		return nil
	}, func(ctx context.Context, ticket *domain.Ticket) error {
		// Voucher usage advances once per ticket, at the first accepted
		// payment carrying a resolved discount.
		if !firstPayment || ticket.DiscountAmount == 0 || ticket.DiscountCode == nil {
			return nil
		}
		return s.consumeVoucher(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordPayment(recorded.Type, recorded.Amount)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventPaymentRecorded,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.PaymentRecordedPayload{
			PaymentID:        recorded.ID,
			InvoiceID:        recorded.InvoiceID,
			PaymentType:      recorded.Type,
			Amount:           recorded.Amount,
			RemainingBalance: billing.RemainingBalance(ticket),
		},
	})
	if ticket.PaymentStatus == domain.PaymentStatusFullyPaid {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketFullyPaid,
			TicketID: ticket.ID,
			Actor:    actor,
		})
	}
	return ticket, nil
}

// RequestRefund creates a pending refund request against a payment and flags
// the ticket, atomically.
func (s *TicketService) RequestRefund(ctx context.Context, customerID, ticketID, paymentID, reason string) (*domain.RefundRequest, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason required", nil)
	}

	var request *domain.RefundRequest
	ticket, err := s.mutate(ctx, ticketID, "request_refund", func(ticket *domain.Ticket) error {
		if ticket.CustomerID != customerID {
			return apperrors.NewForbidden("access denied")
		}
		created, err := billing.RequestRefund(ticket, paymentID, customerID, reason, time.Now())
		if err != nil {
			return mapRefundError(err)
		}
		request = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordRefundRequest()
	s.publishEvent(ctx, events.Event{
		Type:     events.EventRefundRequested,
		TicketID: ticket.ID,
		Actor:    UserActor(customerID),
		Payload: events.RefundRequestedPayload{
			RequestID: request.ID,
			PaymentID: request.PaymentID,
			Reason:    request.Reason,
		},
	})
	return request, nil
}

// ResolveRefund applies an externally adjudicated refund outcome to the
// owning ticket.
func (s *TicketService) ResolveRefund(ctx context.Context, actor events.Actor, requestID string, approved bool) (*domain.RefundRequest, error) {
	owner, err := s.tickets.GetByRefundRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("refund request", map[string]any{"request_id": requestID})
		}
		return nil, apperrors.MapError(err)
	}

	var resolved *domain.RefundRequest
	ticket, err := s.mutate(ctx, owner.ID, "resolve_refund", func(ticket *domain.Ticket) error {
		request, err := billing.ResolveRefund(ticket, requestID, approved, time.Now())
		if err != nil {
			return mapRefundError(err)
		}
		resolved = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventRefundResolved,
		TicketID: ticket.ID,
		Actor:    actor,
		Payload: events.RefundResolvedPayload{
			RequestID: resolved.ID,
			Status:    resolved.Status,
		},
	})
	return resolved, nil
}

// GetQuote recomputes the ticket's totals live. Calling it twice without an
// intervening command returns identical values; nothing is persisted.
func (s *TicketService) GetQuote(ctx context.Context, ticketID string) (*QuoteView, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	quote, err := s.priceTicket(ctx, ticket)
	if err != nil {
		return nil, err
	}
	paid := billing.AmountPaid(ticket.Payments)
	return &QuoteView{
		Subtotal:         quote.Subtotal,
		DiscountAmount:   quote.DiscountAmount,
		TotalAmount:      quote.TotalAmount,
		AmountPaid:       paid,
		RemainingBalance: quote.TotalAmount - paid,
	}, nil
}

// ListEligibleVouchers resolves the vouchers applicable to a ticket, flagging
// which ones are still under their usage cap.
func (s *TicketService) ListEligibleVouchers(ctx context.Context, ticketID string) ([]billing.VoucherEligibility, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	promoEvents, err := s.eventDir.ListEvents(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable("event directory", err)
	}
	return billing.EligibleVouchers(ticket, promoEvents), nil
}

// BuildInvoiceSnapshot flattens the ticket into printable lines plus totals.
// Rendering belongs to downstream collaborators.
func (s *TicketService) BuildInvoiceSnapshot(ctx context.Context, ticketID string) (*InvoiceSnapshot, error) {
	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	products, err := s.resolveProducts(ctx, ticket)
	if err != nil {
		return nil, err
	}
	paid := billing.AmountPaid(ticket.Payments)
	discountCode := ""
	if ticket.DiscountCode != nil {
		discountCode = *ticket.DiscountCode
	}
	return &InvoiceSnapshot{
		TicketKey:        ticket.ExternalKey,
		CustomerID:       ticket.CustomerID,
		Lines:            billing.Lines(ticket, products),
		Subtotal:         ticket.Subtotal,
		DiscountCode:     discountCode,
		DiscountAmount:   ticket.DiscountAmount,
		TotalAmount:      ticket.TotalAmount,
		AmountPaid:       paid,
		RemainingBalance: ticket.TotalAmount - paid,
		Payments:         ticket.Payments,
		GeneratedAt:      time.Now(),
	}, nil
}

// mutate runs a command against the aggregate under the per-ticket lock:
// load, apply, re-price, check invariants, persist. Optional post steps run
// after re-pricing but before the save, so their failure still rejects the
// command.
func (s *TicketService) mutate(ctx context.Context, ticketID, command string, apply func(*domain.Ticket) error, post ...func(context.Context, *domain.Ticket) error) (*domain.Ticket, error) {
	return s.runCommand(ctx, ticketID, command, false, apply, post)
}

// mutateRepriced additionally re-prices the aggregate before apply runs, for
// commands that validate against the current total rather than changing its
// inputs. Without it a payment would be capped against totals cached before a
// catalog or voucher change.
func (s *TicketService) mutateRepriced(ctx context.Context, ticketID, command string, apply func(*domain.Ticket) error, post ...func(context.Context, *domain.Ticket) error) (*domain.Ticket, error) {
	return s.runCommand(ctx, ticketID, command, true, apply, post)
}

func (s *TicketService) runCommand(ctx context.Context, ticketID, command string, repriceFirst bool, apply func(*domain.Ticket) error, post []func(context.Context, *domain.Ticket) error) (*domain.Ticket, error) {
	unlock := s.locks.acquire(ticketID)
	defer unlock()

	ticket, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	fail := func(err error) (*domain.Ticket, error) {
		s.metrics.RecordCommand(command, false)
		return nil, err
	}

	if repriceFirst {
		if err := s.reprice(ctx, ticket); err != nil {
			return fail(err)
		}
	}
	if err := apply(ticket); err != nil {
		return fail(err)
	}
	if err := s.reprice(ctx, ticket); err != nil {
		return fail(err)
	}
	if err := checkInvariants(ticket); err != nil {
		return fail(err)
	}
	for _, step := range post {
		if err := step(ctx, ticket); err != nil {
			return fail(err)
		}
	}
	if err := s.tickets.SaveAggregate(ctx, ticket); err != nil {
		return fail(apperrors.MapError(err))
	}

	s.metrics.RecordCommand(command, true)
	s.publishEvent(ctx, events.Event{
		Type:     events.EventQuoteRecomputed,
		TicketID: ticket.ID,
		Payload: events.QuoteRecomputedPayload{
			Subtotal:       ticket.Subtotal,
			DiscountAmount: ticket.DiscountAmount,
			TotalAmount:    ticket.TotalAmount,
		},
	})
	return ticket, nil
}

func (s *TicketService) loadTicket(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// reprice writes the freshly computed totals into the cached fields and keeps
// a percentage-derived deposit clamped to the total.
func (s *TicketService) reprice(ctx context.Context, ticket *domain.Ticket) error {
	quote, err := s.priceTicket(ctx, ticket)
	if err != nil {
		return err
	}
	ticket.Subtotal = quote.Subtotal
	ticket.DiscountAmount = quote.DiscountAmount
	ticket.TotalAmount = quote.TotalAmount
	if !ticket.DepositManual && ticket.DepositAmount > ticket.TotalAmount {
		ticket.DepositAmount = ticket.TotalAmount
	}
	return nil
}

func (s *TicketService) priceTicket(ctx context.Context, ticket *domain.Ticket) (billing.Quote, error) {
	products, err := s.resolveProducts(ctx, ticket)
	if err != nil {
		return billing.Quote{}, err
	}
	var voucher *domain.Voucher
	if ticket.DiscountCode != nil {
		promoEvents, err := s.eventDir.ListEvents(ctx)
		if err != nil {
			return billing.Quote{}, apperrors.NewUpstreamUnavailable("event directory", err)
		}
		voucher = billing.ResolveVoucher(ticket, promoEvents, *ticket.DiscountCode)
	}
	return billing.ComputeQuote(ticket, products, voucher), nil
}

func (s *TicketService) resolveProducts(ctx context.Context, ticket *domain.Ticket) (map[string]domain.Product, error) {
	if len(ticket.RelatedProductIDs) == 0 {
		return map[string]domain.Product{}, nil
	}
	products, err := s.catalog.GetProducts(ctx, ticket.RelatedProductIDs)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailable("catalog", err)
	}
	return products, nil
}

// consumeVoucher re-resolves the applied voucher and advances its usage
// counter. A cap exhausted by a concurrent ticket surfaces as a conflict and
// rejects the command.
func (s *TicketService) consumeVoucher(ctx context.Context, ticket *domain.Ticket) error {
	promoEvents, err := s.eventDir.ListEvents(ctx)
	if err != nil {
		return apperrors.NewUpstreamUnavailable("event directory", err)
	}
	voucher := billing.ResolveVoucher(ticket, promoEvents, *ticket.DiscountCode)
	if voucher == nil {
		return nil
	}
	applied, err := s.counter.IncrementVoucherUses(ctx, voucher.ID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if !applied {
		return apperrors.NewConflict("voucher usage cap reached", map[string]any{"code": voucher.Code})
	}
	return nil
}

// checkInvariants is the final gate before persisting: cached totals must
// match their parts and at most one pending refund request may exist per
// payment.
func checkInvariants(ticket *domain.Ticket) error {
	if ticket.TotalAmount != maxMoney(0, ticket.Subtotal-ticket.DiscountAmount) {
		return apperrors.NewInvariantViolation("total does not reconcile with subtotal and discount", map[string]any{
			"subtotal": ticket.Subtotal,
			"discount": ticket.DiscountAmount,
			"total":    ticket.TotalAmount,
		})
	}
	if ticket.DiscountAmount < 0 {
		return apperrors.NewInvariantViolation("negative discount", nil)
	}
	pending := make(map[string]bool, len(ticket.RefundRequests))
	for _, request := range ticket.RefundRequests {
		if request.Status != domain.RefundStatusPending {
			continue
		}
		if pending[request.PaymentID] {
			return apperrors.NewInvariantViolation("multiple pending refund requests for one payment", map[string]any{
				"payment_id": request.PaymentID,
			})
		}
		pending[request.PaymentID] = true
	}
	if !ticket.DepositManual && ticket.DepositAmount > ticket.TotalAmount {
		return apperrors.NewInvariantViolation("derived deposit exceeds total", nil)
	}
	return nil
}

func maxMoney(a, b domain.Money) domain.Money {
	if a > b {
		return a
	}
	return b
}

func mapPaymentError(err error) error {
	switch {
	case errors.Is(err, billing.ErrInvalidAmount), errors.Is(err, billing.ErrDepositUnset):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, billing.ErrAlreadySettled), errors.Is(err, billing.ErrDuplicateDeposit), errors.Is(err, billing.ErrRefundInProgress):
		return apperrors.NewConflict(err.Error(), nil)
	default:
		return apperrors.MapError(err)
	}
}

func mapRefundError(err error) error {
	switch {
	case errors.Is(err, billing.ErrUnknownPayment), errors.Is(err, billing.ErrUnknownRefund):
		return apperrors.NewNotFound("payment", nil)
	case errors.Is(err, billing.ErrDuplicateRequest), errors.Is(err, billing.ErrRefundNotPending):
		return apperrors.NewConflict(err.Error(), nil)
	case errors.Is(err, billing.ErrNothingRefundable):
		return apperrors.NewValidationError(err.Error(), nil)
	default:
		return apperrors.MapError(err)
	}
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

// UserActor builds the actor metadata for customer-driven commands.
func UserActor(customerID string) events.Actor {
	return events.Actor{
		Type:   domain.SubjectTypeUser,
		UserID: &customerID,
	}
}

// StaffActor builds the actor metadata for staff-driven commands.
func StaffActor(staffID string) events.Actor {
	return events.Actor{
		Type:    domain.SubjectTypeStaff,
		StaffID: &staffID,
	}
}

// ticketLocks serializes commands per ticket id. The ledger read and append
// must be atomic or a final payment could be accepted twice.
type ticketLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (l *ticketLocks) acquire(ticketID string) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*lockEntry)
	}
	entry, ok := l.locks[ticketID]
	if !ok {
		entry = &lockEntry{}
		l.locks[ticketID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, ticketID)
		}
		l.mu.Unlock()
	}
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:       {domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusInProgress: {domain.TicketStatusResolved, domain.TicketStatusOpen},
	domain.TicketStatusResolved:   {domain.TicketStatusClosed, domain.TicketStatusInProgress},
	domain.TicketStatusClosed:     {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}
