package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

// quotedTicket builds a ticket whose cached totals mirror a $550.00 quote
// with a 20% deposit ($110.00).
func quotedTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:             "tck-1",
		Subtotal:       65000,
		DiscountAmount: 10000,
		TotalAmount:    55000,
		DepositAmount:  11000,
		PaymentStatus:  domain.PaymentStatusUnpaid,
	}
}

func TestApplyPayment(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	t.Run("deposit advances ticket to deposit paid", func(t *testing.T) {
		ticket := quotedTicket()
		payment, err := ApplyPayment(ticket, domain.PaymentTypeDeposit, 11000, now)
		require.NoError(t, err)

		assert.Equal(t, domain.Money(11000), payment.Amount)
		assert.Equal(t, domain.PaymentTypeDeposit, payment.Type)
		assert.NotEmpty(t, payment.ID)
		assert.Regexp(t, `^INV-[0-9A-F]{8}$`, payment.InvoiceID)
		assert.Equal(t, domain.PaymentStatusDepositPaid, ticket.PaymentStatus)
		assert.Equal(t, domain.Money(44000), RemainingBalance(ticket))
	})

	t.Run("final payment settles the ticket", func(t *testing.T) {
		ticket := quotedTicket()
		_, err := ApplyPayment(ticket, domain.PaymentTypeDeposit, 11000, now)
		require.NoError(t, err)

		_, err = ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 44000, now)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusFullyPaid, ticket.PaymentStatus)
		assert.Equal(t, domain.Money(0), RemainingBalance(ticket))
	})

	t.Run("final payment without a deposit settles from unpaid", func(t *testing.T) {
		ticket := quotedTicket()
		_, err := ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 55000, now)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusFullyPaid, ticket.PaymentStatus)
	})

	t.Run("accepted amount is capped at the remaining balance", func(t *testing.T) {
		ticket := quotedTicket()
		payment, err := ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 99999, now)
		require.NoError(t, err)
		assert.Equal(t, domain.Money(55000), payment.Amount)
		assert.Equal(t, domain.Money(0), RemainingBalance(ticket))
	})

	t.Run("partial final payment keeps the ticket unsettled", func(t *testing.T) {
		ticket := quotedTicket()
		_, err := ApplyPayment(ticket, domain.PaymentTypeDeposit, 11000, now)
		require.NoError(t, err)

		_, err = ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 20000, now)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusDepositPaid, ticket.PaymentStatus)
		assert.Equal(t, domain.Money(24000), RemainingBalance(ticket))
	})

	t.Run("rejects non-positive amounts", func(t *testing.T) {
		ticket := quotedTicket()
		_, err := ApplyPayment(ticket, domain.PaymentTypeDeposit, 0, now)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		_, err = ApplyPayment(ticket, domain.PaymentTypeFinalPayment, -500, now)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Empty(t, ticket.Payments)
	})

	t.Run("rejects payment on a settled ticket", func(t *testing.T) {
		ticket := quotedTicket()
		_, err := ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 55000, now)
		require.NoError(t, err)

		_, err = ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 100, now)
		assert.ErrorIs(t, err, ErrAlreadySettled)
	})

	t.Run("rejects a second deposit", func(t *testing.T) {
		ticket := quotedTicket()
		_, err := ApplyPayment(ticket, domain.PaymentTypeDeposit, 11000, now)
		require.NoError(t, err)

		_, err = ApplyPayment(ticket, domain.PaymentTypeDeposit, 11000, now)
		assert.ErrorIs(t, err, ErrDuplicateDeposit)
		assert.Len(t, ticket.Payments, 1)
	})

	t.Run("rejects a deposit when no deposit amount is set", func(t *testing.T) {
		ticket := quotedTicket()
		ticket.DepositAmount = 0
		_, err := ApplyPayment(ticket, domain.PaymentTypeDeposit, 5000, now)
		assert.ErrorIs(t, err, ErrDepositUnset)
	})

	t.Run("rejects payments while a refund is pending", func(t *testing.T) {
		ticket := quotedTicket()
		_, err := ApplyPayment(ticket, domain.PaymentTypeDeposit, 11000, now)
		require.NoError(t, err)

		_, err = RequestRefund(ticket, ticket.Payments[0].ID, "cust-1", "changed my mind", now)
		require.NoError(t, err)

		_, err = ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 44000, now)
		assert.ErrorIs(t, err, ErrRefundInProgress)
	})

	t.Run("amount paid always equals the ledger sum", func(t *testing.T) {
		ticket := quotedTicket()
		_, err := ApplyPayment(ticket, domain.PaymentTypeDeposit, 11000, now)
		require.NoError(t, err)
		_, err = ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 20000, now)
		require.NoError(t, err)

		var sum domain.Money
		for _, p := range ticket.Payments {
			sum += p.Amount
		}
		assert.Equal(t, sum, AmountPaid(ticket.Payments))
	})
}

func TestSettledStatus(t *testing.T) {
	t.Run("empty ledger is unpaid", func(t *testing.T) {
		assert.Equal(t, domain.PaymentStatusUnpaid, SettledStatus(quotedTicket()))
	})

	t.Run("remaining balance may be negative for display only", func(t *testing.T) {
		ticket := quotedTicket()
		now := time.Now()
		_, err := ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 55000, now)
		require.NoError(t, err)

		// A line item removed after settlement lowers the total below the
		// amount already paid.
		ticket.TotalAmount = 40000
		assert.Equal(t, domain.Money(-15000), RemainingBalance(ticket))
		assert.Equal(t, domain.PaymentStatusFullyPaid, SettledStatus(ticket))
	})
}
