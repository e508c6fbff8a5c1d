package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-billing/internal/domain"
	"github.com/spec-kit/ticket-billing/internal/events"
	"github.com/spec-kit/ticket-billing/internal/repository"
	apperrors "github.com/spec-kit/ticket-billing/pkg/util/errorutil"
)

type fakeTicketRepo struct {
	tickets   map[string]*domain.Ticket
	seq       int
	saveCalls int
	saveErr   error
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{tickets: map[string]*domain.Ticket{}}
}

func (r *fakeTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	r.seq++
	ticket.ID = fmt.Sprintf("ticket-%d", r.seq)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	r.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func (r *fakeTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return cloneTicket(ticket), nil
}

func (r *fakeTicketRepo) GetByRefundRequest(ctx context.Context, requestID string) (*domain.Ticket, error) {
	for _, ticket := range r.tickets {
		for _, request := range ticket.RefundRequests {
			if request.ID == requestID {
				return cloneTicket(ticket), nil
			}
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, ticket := range r.tickets {
		if filter.CustomerID != nil && ticket.CustomerID != *filter.CustomerID {
			continue
		}
		result = append(result, *cloneTicket(ticket))
	}
	return result, nil
}

func (r *fakeTicketRepo) SaveAggregate(ctx context.Context, ticket *domain.Ticket) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saveCalls++
	ticket.UpdatedAt = time.Now()
	r.tickets[ticket.ID] = cloneTicket(ticket)
	return nil
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	clone.RelatedProductIDs = append([]string(nil), t.RelatedProductIDs...)
	clone.ChangeRequests = append([]domain.ChangeRequest(nil), t.ChangeRequests...)
	clone.AdditionalLineItems = append([]domain.AdHocItem(nil), t.AdditionalLineItems...)
	clone.Payments = append([]domain.Payment(nil), t.Payments...)
	clone.RefundRequests = append([]domain.RefundRequest(nil), t.RefundRequests...)
	return &clone
}

type fakeCatalog struct {
	products map[string]domain.Product
	err      error
}

func (c *fakeCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	product, ok := c.products[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &product, nil
}

func (c *fakeCatalog) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	result := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if product, ok := c.products[id]; ok {
			result[id] = product
		}
	}
	return result, nil
}

type fakeEventDirectory struct {
	events []domain.PromoEvent
	err    error
}

func (d *fakeEventDirectory) ListEvents(ctx context.Context) ([]domain.PromoEvent, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.events, nil
}

type fakeEmployeeDirectory struct {
	codes map[string]domain.Employee
	err   error
}

func (d *fakeEmployeeDirectory) FindByReferralCode(ctx context.Context, code string) (*domain.Employee, error) {
	if d.err != nil {
		return nil, d.err
	}
	employee, ok := d.codes[code]
	if !ok {
		return nil, nil
	}
	return &employee, nil
}

type fakeVoucherCounter struct {
	calls []string
	deny  bool
}

func (c *fakeVoucherCounter) IncrementVoucherUses(ctx context.Context, voucherID string) (bool, error) {
	c.calls = append(c.calls, voucherID)
	return !c.deny, nil
}

type fixture struct {
	service  *TicketService
	repo     *fakeTicketRepo
	catalog  *fakeCatalog
	events   *fakeEventDirectory
	staff    *fakeEmployeeDirectory
	counter  *fakeVoucherCounter
	recorded []events.EventType
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo: newFakeTicketRepo(),
		catalog: &fakeCatalog{products: map[string]domain.Product{
			"prod-web": {ID: "prod-web", Name: "Website build", Price: 50000},
			"prod-seo": {ID: "prod-seo", Name: "SEO package", Price: 20000},
		}},
		events:  &fakeEventDirectory{},
		staff:   &fakeEmployeeDirectory{codes: map[string]domain.Employee{}},
		counter: &fakeVoucherCounter{},
	}

	dispatcher := events.NewInMemoryDispatcher()
	for _, eventType := range []events.EventType{
		events.EventTicketCreated,
		events.EventQuoteRecomputed,
		events.EventPaymentRecorded,
		events.EventTicketFullyPaid,
		events.EventRefundRequested,
		events.EventRefundResolved,
	} {
		eventType := eventType
		dispatcher.Subscribe(eventType, func(ctx context.Context, event events.Event) error {
			f.recorded = append(f.recorded, event.Type)
			return nil
		})
	}

	f.service = NewTicketService(TicketDependencies{
		TicketRepo:        f.repo,
		Catalog:           f.catalog,
		EventDirectory:    f.events,
		EmployeeDirectory: f.staff,
		VoucherCounter:    f.counter,
		Dispatcher:        dispatcher,
	})
	return f
}

func (f *fixture) promoWithVoucher(code string, discount domain.Money, maxUses *int) {
	now := time.Now()
	f.events.events = []domain.PromoEvent{{
		ID:        "evt-1",
		Name:      "Season launch",
		StartDate: now.AddDate(0, 0, -1),
		EndDate:   now.AddDate(0, 0, 1),
		Vouchers: []domain.Voucher{{
			ID:             "v-1",
			EventID:        "evt-1",
			Code:           code,
			DiscountAmount: discount,
			MaxUses:        maxUses,
		}},
	}}
}

func (f *fixture) ticketWithProducts(t *testing.T, products ...string) *domain.Ticket {
	t.Helper()
	ctx := context.Background()
	ticket, err := f.service.CreateTicket(ctx, "cust-1", TicketCreateInput{Title: "Site revamp"})
	require.NoError(t, err)
	for _, id := range products {
		ticket, err = f.service.LinkProduct(ctx, ticket.ID, id)
		require.NoError(t, err)
	}
	return ticket
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var domainErr *apperrors.DomainError
	require.ErrorAs(t, err, &domainErr)
	return domainErr.Code
}

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("creates open unpaid ticket", func(t *testing.T) {
		ticket, err := f.service.CreateTicket(ctx, "cust-1", TicketCreateInput{Title: "  Site revamp  "})
		require.NoError(t, err)
		assert.Equal(t, "Site revamp", ticket.Title)
		assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
		assert.Equal(t, domain.PaymentStatusUnpaid, ticket.PaymentStatus)
		assert.Regexp(t, `^TCK-[0-9A-F]{8}$`, ticket.ExternalKey)
		assert.Contains(t, f.recorded, events.EventTicketCreated)
	})

	t.Run("rejects blank title", func(t *testing.T) {
		_, err := f.service.CreateTicket(ctx, "cust-1", TicketCreateInput{Title: "   "})
		assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
	})
}

func TestLinkProductRepricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ticket := f.ticketWithProducts(t, "prod-web", "prod-seo")
	assert.Equal(t, domain.Money(70000), ticket.Subtotal)
	assert.Equal(t, domain.Money(70000), ticket.TotalAmount)

	t.Run("duplicate link conflicts", func(t *testing.T) {
		_, err := f.service.LinkProduct(ctx, ticket.ID, "prod-web")
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})

	t.Run("unknown product not found", func(t *testing.T) {
		_, err := f.service.LinkProduct(ctx, ticket.ID, "prod-nope")
		assert.Equal(t, "NOT_FOUND", domainCode(t, err))
	})

	t.Run("unlink reprices", func(t *testing.T) {
		updated, err := f.service.UnlinkProduct(ctx, ticket.ID, "prod-seo")
		require.NoError(t, err)
		assert.Equal(t, domain.Money(50000), updated.Subtotal)
	})

	t.Run("catalog outage defers the command", func(t *testing.T) {
		f.catalog.err = errors.New("catalog down")
		defer func() { f.catalog.err = nil }()
		_, err := f.service.AddLineItem(ctx, ticket.ID, "Rush fee", 5000)
		assert.Equal(t, "UPSTREAM_UNAVAILABLE", domainCode(t, err))
	})
}

func TestChangeRequestFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.ticketWithProducts(t, "prod-web")

	ticket, err := f.service.AddChangeRequest(ctx, ticket.ID, "Extra page", 8000)
	require.NoError(t, err)
	require.Len(t, ticket.ChangeRequests, 1)
	assert.Equal(t, domain.Money(50000), ticket.Subtotal, "pending change requests do not price")

	requestID := ticket.ChangeRequests[0].ID

	ticket, err = f.service.ReviewChangeRequest(ctx, ticket.ID, requestID, true)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(58000), ticket.Subtotal)

	_, err = f.service.ReviewChangeRequest(ctx, ticket.ID, requestID, false)
	assert.Equal(t, "CONFLICT", domainCode(t, err), "re-review is rejected")
}

func TestDiscountCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("eligible voucher discounts the total", func(t *testing.T) {
		f.promoWithVoucher("LAUNCH10", 10000, nil)
		ticket := f.ticketWithProducts(t, "prod-web", "prod-seo")
		ticket, err := f.service.SetDiscountCode(ctx, ticket.ID, "LAUNCH10")
		require.NoError(t, err)
		assert.Equal(t, domain.Money(10000), ticket.DiscountAmount)
		assert.Equal(t, domain.Money(60000), ticket.TotalAmount)
	})

	t.Run("unknown code is kept at zero discount", func(t *testing.T) {
		ticket := f.ticketWithProducts(t, "prod-web")
		ticket, err := f.service.SetDiscountCode(ctx, ticket.ID, "TYPO-CODE")
		require.NoError(t, err)
		require.NotNil(t, ticket.DiscountCode)
		assert.Equal(t, "TYPO-CODE", *ticket.DiscountCode)
		assert.Equal(t, domain.Money(0), ticket.DiscountAmount)
		assert.Equal(t, ticket.Subtotal, ticket.TotalAmount)
	})

	t.Run("empty code clears the discount", func(t *testing.T) {
		f.promoWithVoucher("LAUNCH10", 10000, nil)
		ticket := f.ticketWithProducts(t, "prod-web")
		ticket, err := f.service.SetDiscountCode(ctx, ticket.ID, "LAUNCH10")
		require.NoError(t, err)
		require.NotZero(t, ticket.DiscountAmount)

		ticket, err = f.service.SetDiscountCode(ctx, ticket.ID, "")
		require.NoError(t, err)
		assert.Nil(t, ticket.DiscountCode)
		assert.Zero(t, ticket.DiscountAmount)
	})
}

func TestReferralCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.staff.codes["REF-ANA"] = domain.Employee{ID: "emp-1", Name: "Ana", ReferralCode: "REF-ANA"}
	ticket := f.ticketWithProducts(t, "prod-web")

	t.Run("valid code is stored without touching totals", func(t *testing.T) {
		updated, err := f.service.SetReferralCode(ctx, ticket.ID, "REF-ANA")
		require.NoError(t, err)
		require.NotNil(t, updated.ReferralCode)
		assert.Equal(t, ticket.TotalAmount, updated.TotalAmount)
	})

	t.Run("unknown code fails validation", func(t *testing.T) {
		_, err := f.service.SetReferralCode(ctx, ticket.ID, "REF-NOPE")
		assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
	})

	t.Run("directory outage defers", func(t *testing.T) {
		f.staff.err = errors.New("directory down")
		defer func() { f.staff.err = nil }()
		_, err := f.service.SetReferralCode(ctx, ticket.ID, "REF-ANA")
		assert.Equal(t, "UPSTREAM_UNAVAILABLE", domainCode(t, err))
	})
}

func TestDeposit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("percent derives from the current total", func(t *testing.T) {
		ticket := f.ticketWithProducts(t, "prod-web")
		ticket, err := f.service.SetDepositPercent(ctx, ticket.ID, 20)
		require.NoError(t, err)
		assert.Equal(t, domain.Money(10000), ticket.DepositAmount)
		assert.False(t, ticket.DepositManual)
	})

	t.Run("derived deposit is clamped when the total shrinks", func(t *testing.T) {
		ticket := f.ticketWithProducts(t, "prod-web", "prod-seo")
		ticket, err := f.service.SetDepositPercent(ctx, ticket.ID, 100)
		require.NoError(t, err)
		require.Equal(t, domain.Money(70000), ticket.DepositAmount)

		ticket, err = f.service.UnlinkProduct(ctx, ticket.ID, "prod-seo")
		require.NoError(t, err)
		assert.Equal(t, ticket.TotalAmount, ticket.DepositAmount)
	})

	t.Run("manual amount above total is allowed", func(t *testing.T) {
		ticket := f.ticketWithProducts(t, "prod-web")
		ticket, err := f.service.SetDepositAmount(ctx, ticket.ID, 99999999)
		require.NoError(t, err)
		assert.True(t, ticket.DepositManual)
		assert.Equal(t, domain.Money(99999999), ticket.DepositAmount)
	})

	t.Run("percent bounds", func(t *testing.T) {
		ticket := f.ticketWithProducts(t, "prod-web")
		_, err := f.service.SetDepositPercent(ctx, ticket.ID, 0)
		assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
		_, err = f.service.SetDepositPercent(ctx, ticket.ID, 101)
		assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
	})
}

func TestApplyPayment(t *testing.T) {
	ctx := context.Background()
	actor := UserActor("cust-1")

	t.Run("deposit then capped final payment settles the ticket", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.ticketWithProducts(t, "prod-web", "prod-seo")
		ticket, err := f.service.SetDepositPercent(ctx, ticket.ID, 20)
		require.NoError(t, err)
		require.Equal(t, domain.Money(14000), ticket.DepositAmount)

		ticket, err = f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeDeposit, 14000)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusDepositPaid, ticket.PaymentStatus)

		// Overpayment is capped at the remaining balance.
		ticket, err = f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeFinalPayment, 99999999)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusFullyPaid, ticket.PaymentStatus)
		require.Len(t, ticket.Payments, 2)
		assert.Equal(t, domain.Money(56000), ticket.Payments[1].Amount)
		assert.Contains(t, f.recorded, events.EventTicketFullyPaid)
	})

	t.Run("second deposit conflicts", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.ticketWithProducts(t, "prod-web")
		_, err := f.service.SetDepositAmount(ctx, ticket.ID, 10000)
		require.NoError(t, err)
		_, err = f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeDeposit, 10000)
		require.NoError(t, err)
		_, err = f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeDeposit, 10000)
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})

	t.Run("voucher usage advances once at first payment", func(t *testing.T) {
		f := newFixture(t)
		f.promoWithVoucher("LAUNCH10", 10000, intPointer(5))
		ticket := f.ticketWithProducts(t, "prod-web")
		_, err := f.service.SetDiscountCode(ctx, ticket.ID, "LAUNCH10")
		require.NoError(t, err)

		_, err = f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeFinalPayment, 20000)
		require.NoError(t, err)
		_, err = f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeFinalPayment, 20000)
		require.NoError(t, err)
		assert.Equal(t, []string{"v-1"}, f.counter.calls)
	})

	t.Run("exhausted voucher cap rejects the payment", func(t *testing.T) {
		f := newFixture(t)
		f.promoWithVoucher("LAUNCH10", 10000, intPointer(5))
		f.counter.deny = true
		ticket := f.ticketWithProducts(t, "prod-web")
		_, err := f.service.SetDiscountCode(ctx, ticket.ID, "LAUNCH10")
		require.NoError(t, err)
		savesBefore := f.repo.saveCalls

		_, err = f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeFinalPayment, 20000)
		assert.Equal(t, "CONFLICT", domainCode(t, err))
		assert.Equal(t, savesBefore, f.repo.saveCalls, "rejected payment is not persisted")

		reloaded, err := f.service.GetTicket(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Empty(t, reloaded.Payments)
	})

	t.Run("zero amount fails validation", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.ticketWithProducts(t, "prod-web")
		_, err := f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeFinalPayment, 0)
		assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
	})

	t.Run("catalog price drop re-caps the payment against live totals", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.ticketWithProducts(t, "prod-web")
		f.catalog.products["prod-web"] = domain.Product{ID: "prod-web", Name: "Website build", Price: 30000}

		ticket, err := f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeFinalPayment, 50000)
		require.NoError(t, err)
		require.Len(t, ticket.Payments, 1)
		assert.Equal(t, domain.Money(30000), ticket.TotalAmount)
		assert.Equal(t, domain.Money(30000), ticket.Payments[0].Amount, "accepted amount is capped at the re-priced total")
		assert.Equal(t, domain.PaymentStatusFullyPaid, ticket.PaymentStatus)
	})
}

func TestRefundWorkflow(t *testing.T) {
	ctx := context.Background()
	actor := UserActor("cust-1")
	staff := StaffActor("staff-9")

	settle := func(t *testing.T, f *fixture) *domain.Ticket {
		t.Helper()
		ticket := f.ticketWithProducts(t, "prod-web")
		ticket, err := f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeFinalPayment, 50000)
		require.NoError(t, err)
		require.Equal(t, domain.PaymentStatusFullyPaid, ticket.PaymentStatus)
		return ticket
	}

	t.Run("request flags the ticket atomically", func(t *testing.T) {
		f := newFixture(t)
		ticket := settle(t, f)
		request, err := f.service.RequestRefund(ctx, "cust-1", ticket.ID, ticket.Payments[0].ID, "changed my mind")
		require.NoError(t, err)
		assert.Equal(t, domain.RefundStatusPending, request.Status)

		reloaded, err := f.service.GetTicket(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRefundRequested, reloaded.PaymentStatus)
		assert.Contains(t, f.recorded, events.EventRefundRequested)
	})

	t.Run("duplicate pending request conflicts", func(t *testing.T) {
		f := newFixture(t)
		ticket := settle(t, f)
		_, err := f.service.RequestRefund(ctx, "cust-1", ticket.ID, ticket.Payments[0].ID, "first")
		require.NoError(t, err)
		_, err = f.service.RequestRefund(ctx, "cust-1", ticket.ID, ticket.Payments[0].ID, "second")
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})

	t.Run("payments are blocked while a refund is pending", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.ticketWithProducts(t, "prod-web")
		ticket, err := f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeFinalPayment, 20000)
		require.NoError(t, err)
		_, err = f.service.RequestRefund(ctx, "cust-1", ticket.ID, ticket.Payments[0].ID, "slow delivery")
		require.NoError(t, err)

		_, err = f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeFinalPayment, 10000)
		assert.Equal(t, "CONFLICT", domainCode(t, err))
	})

	t.Run("only the owner can request", func(t *testing.T) {
		f := newFixture(t)
		ticket := settle(t, f)
		_, err := f.service.RequestRefund(ctx, "cust-2", ticket.ID, ticket.Payments[0].ID, "not mine")
		assert.Equal(t, "FORBIDDEN", domainCode(t, err))
	})

	t.Run("approval refunds the ticket", func(t *testing.T) {
		f := newFixture(t)
		ticket := settle(t, f)
		request, err := f.service.RequestRefund(ctx, "cust-1", ticket.ID, ticket.Payments[0].ID, "changed my mind")
		require.NoError(t, err)

		resolved, err := f.service.ResolveRefund(ctx, staff, request.ID, true)
		require.NoError(t, err)
		assert.Equal(t, domain.RefundStatusApproved, resolved.Status)
		require.NotNil(t, resolved.ResolvedAt)

		reloaded, err := f.service.GetTicket(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRefunded, reloaded.PaymentStatus)
	})

	t.Run("rejection restores the settled status and re-enables payments", func(t *testing.T) {
		f := newFixture(t)
		ticket := f.ticketWithProducts(t, "prod-web")
		ticket, err := f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeFinalPayment, 20000)
		require.NoError(t, err)
		request, err := f.service.RequestRefund(ctx, "cust-1", ticket.ID, ticket.Payments[0].ID, "slow delivery")
		require.NoError(t, err)

		resolved, err := f.service.ResolveRefund(ctx, staff, request.ID, false)
		require.NoError(t, err)
		assert.Equal(t, domain.RefundStatusRejected, resolved.Status)

		ticket, err = f.service.ApplyPayment(ctx, actor, ticket.ID, domain.PaymentTypeFinalPayment, 30000)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusFullyPaid, ticket.PaymentStatus)
	})

	t.Run("unknown request is not found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.ResolveRefund(ctx, staff, "nope", true)
		assert.Equal(t, "NOT_FOUND", domainCode(t, err))
	})
}

func TestGetQuoteIsReadOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.promoWithVoucher("LAUNCH10", 10000, nil)
	ticket := f.ticketWithProducts(t, "prod-web", "prod-seo")
	ticket, err := f.service.SetDiscountCode(ctx, ticket.ID, "LAUNCH10")
	require.NoError(t, err)

	savesBefore := f.repo.saveCalls
	first, err := f.service.GetQuote(ctx, ticket.ID)
	require.NoError(t, err)
	second, err := f.service.GetQuote(ctx, ticket.ID)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, domain.Money(60000), first.TotalAmount)
	assert.Equal(t, savesBefore, f.repo.saveCalls)
}

func TestListUserTicketsCarriesLedgers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.ticketWithProducts(t, "prod-web")
	_, err := f.service.ApplyPayment(ctx, UserActor("cust-1"), ticket.ID, domain.PaymentTypeFinalPayment, 20000)
	require.NoError(t, err)

	listed, err := f.service.ListUserTickets(ctx, "cust-1", 10, 0)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].Payments, 1, "listed tickets carry their payment ledgers")
	assert.Equal(t, domain.Money(20000), listed[0].Payments[0].Amount)
}

func TestUpdateStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.ticketWithProducts(t, "prod-web")

	ticket, err := f.service.UpdateStatus(ctx, ticket.ID, domain.TicketStatusInProgress)
	require.NoError(t, err)
	ticket, err = f.service.UpdateStatus(ctx, ticket.ID, domain.TicketStatusResolved)
	require.NoError(t, err)
	ticket, err = f.service.UpdateStatus(ctx, ticket.ID, domain.TicketStatusClosed)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusClosed, ticket.Status)

	_, err = f.service.UpdateStatus(ctx, ticket.ID, domain.TicketStatusOpen)
	assert.Equal(t, "CONFLICT", domainCode(t, err))
}

func TestListEligibleVouchers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	maxUses := 1
	f.events.events = []domain.PromoEvent{{
		ID:        "evt-1",
		Name:      "Season launch",
		StartDate: time.Now().AddDate(0, 0, -1),
		EndDate:   time.Now().AddDate(0, 0, 1),
		Vouchers: []domain.Voucher{
			{ID: "v-open", EventID: "evt-1", Code: "OPEN", DiscountAmount: 5000},
			{ID: "v-used", EventID: "evt-1", Code: "USED", DiscountAmount: 5000, Uses: 1, MaxUses: &maxUses},
		},
	}}
	ticket := f.ticketWithProducts(t, "prod-web")

	eligible, err := f.service.ListEligibleVouchers(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.True(t, eligible[0].Usable)
	assert.False(t, eligible[1].Usable, "exhausted vouchers are listed but unusable")
}

func TestBuildInvoiceSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.promoWithVoucher("LAUNCH10", 10000, nil)
	ticket := f.ticketWithProducts(t, "prod-web", "prod-seo")
	ticket, err := f.service.SetDiscountCode(ctx, ticket.ID, "LAUNCH10")
	require.NoError(t, err)
	ticket, err = f.service.ApplyPayment(ctx, UserActor("cust-1"), ticket.ID, domain.PaymentTypeFinalPayment, 25000)
	require.NoError(t, err)

	snapshot, err := f.service.BuildInvoiceSnapshot(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ExternalKey, snapshot.TicketKey)
	assert.Len(t, snapshot.Lines, 2)
	assert.Equal(t, "LAUNCH10", snapshot.DiscountCode)
	assert.Equal(t, domain.Money(60000), snapshot.TotalAmount)
	assert.Equal(t, domain.Money(25000), snapshot.AmountPaid)
	assert.Equal(t, domain.Money(35000), snapshot.RemainingBalance)
	assert.Len(t, snapshot.Payments, 1)
}

func intPointer(v int) *int { return &v }
