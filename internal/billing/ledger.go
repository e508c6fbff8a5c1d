package billing

import (
	"github.com/spec-kit/ticket-billing/internal/domain"
)

// AmountPaid sums the ticket's append-only ledger.
func AmountPaid(payments []domain.Payment) domain.Money {
	var total domain.Money
	for _, p := range payments {
		total += p.Amount
	}
	return total
}

// RemainingBalance is the ticket total minus everything paid. It can be
// negative for display when a line item is removed after settlement; the
// processor never accepts a payment that would drive it negative.
func RemainingBalance(ticket *domain.Ticket) domain.Money {
	return ticket.TotalAmount - AmountPaid(ticket.Payments)
}

// HasDeposit reports whether the ledger already holds a deposit entry.
func HasDeposit(payments []domain.Payment) bool {
	for _, p := range payments {
		if p.Type == domain.PaymentTypeDeposit {
			return true
		}
	}
	return false
}

// SettledStatus derives the payment status from the ledger alone, ignoring
// the orthogonal refund flags. Used after each accepted payment and to
// restore the status when a refund request is rejected.
func SettledStatus(ticket *domain.Ticket) domain.PaymentStatus {
	switch {
	case len(ticket.Payments) > 0 && RemainingBalance(ticket) <= 0:
		return domain.PaymentStatusFullyPaid
	case HasDeposit(ticket.Payments):
		return domain.PaymentStatusDepositPaid
	default:
		return domain.PaymentStatusUnpaid
	}
}
