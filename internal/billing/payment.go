package billing

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

var (
	ErrInvalidAmount    = errors.New("payment amount must be positive")
	ErrAlreadySettled   = errors.New("ticket is already settled")
	ErrDepositUnset     = errors.New("deposit amount is not set on the ticket")
	ErrDuplicateDeposit = errors.New("a deposit has already been recorded")
	ErrRefundInProgress = errors.New("a refund request is pending on the ticket")
)

// ApplyPayment validates a payment command against the ticket's ledger,
// appends the accepted entry and advances the payment status.
//
// The accepted amount is capped at the remaining balance so the balance never
// goes negative. For deposits the caller-supplied amount is taken as-is
// otherwise; the processor does not recompute the deposit, which keeps
// partial or adjusted deposits recordable. The ledger is append-only: nothing
// here edits or removes prior entries.
func ApplyPayment(ticket *domain.Ticket, paymentType domain.PaymentType, amount domain.Money, now time.Time) (*domain.Payment, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if ticket.PaymentStatus == domain.PaymentStatusRefundRequested || ticket.PaymentStatus == domain.PaymentStatusRefunded {
		return nil, ErrRefundInProgress
	}

	remaining := RemainingBalance(ticket)
	if remaining <= 0 && len(ticket.Payments) > 0 {
		return nil, ErrAlreadySettled
	}

	if paymentType == domain.PaymentTypeDeposit {
		if ticket.DepositAmount <= 0 {
			return nil, ErrDepositUnset
		}
		if HasDeposit(ticket.Payments) {
			return nil, ErrDuplicateDeposit
		}
	}

	accepted := amount
	if accepted > remaining {
		accepted = remaining
	}
	if accepted <= 0 {
		return nil, ErrAlreadySettled
	}

	payment := domain.Payment{
		ID:        uuid.NewString(),
		TicketID:  ticket.ID,
		Date:      now,
		Amount:    accepted,
		Type:      paymentType,
		InvoiceID: generateInvoiceID(),
	}
	ticket.Payments = append(ticket.Payments, payment)
	ticket.PaymentStatus = SettledStatus(ticket)

	return &ticket.Payments[len(ticket.Payments)-1], nil
}

func generateInvoiceID() string {
	return "INV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
