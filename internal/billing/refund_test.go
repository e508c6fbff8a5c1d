package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

func depositPaidTicket(t *testing.T, now time.Time) *domain.Ticket {
	t.Helper()
	ticket := quotedTicket()
	_, err := ApplyPayment(ticket, domain.PaymentTypeDeposit, 11000, now)
	require.NoError(t, err)
	return ticket
}

func TestRequestRefund(t *testing.T) {
	now := time.Date(2026, 3, 20, 14, 0, 0, 0, time.UTC)

	t.Run("creates a pending request and flags the ticket in one step", func(t *testing.T) {
		ticket := depositPaidTicket(t, now)
		request, err := RequestRefund(ticket, ticket.Payments[0].ID, "cust-1", "project cancelled", now)
		require.NoError(t, err)

		assert.Equal(t, domain.RefundStatusPending, request.Status)
		assert.Equal(t, ticket.Payments[0].ID, request.PaymentID)
		assert.Equal(t, "cust-1", request.CustomerID)
		assert.Equal(t, domain.PaymentStatusRefundRequested, ticket.PaymentStatus)
		assert.Len(t, ticket.Payments, 1, "the payment stays in the ledger")
	})

	t.Run("second request for the same payment conflicts until resolved", func(t *testing.T) {
		ticket := depositPaidTicket(t, now)
		paymentID := ticket.Payments[0].ID
		_, err := RequestRefund(ticket, paymentID, "cust-1", "project cancelled", now)
		require.NoError(t, err)

		_, err = RequestRefund(ticket, paymentID, "cust-1", "still cancelled", now)
		assert.ErrorIs(t, err, ErrDuplicateRequest)

		// Rejection resolves the first request, after which a new one is allowed.
		requestID := ticket.RefundRequests[0].ID
		_, err = ResolveRefund(ticket, requestID, false, now)
		require.NoError(t, err)

		_, err = RequestRefund(ticket, paymentID, "cust-1", "once more", now)
		assert.NoError(t, err)
	})

	t.Run("unknown payment is rejected", func(t *testing.T) {
		ticket := depositPaidTicket(t, now)
		_, err := RequestRefund(ticket, "pay-missing", "cust-1", "whatever", now)
		assert.ErrorIs(t, err, ErrUnknownPayment)
	})

	t.Run("ticket without payments has nothing to refund", func(t *testing.T) {
		ticket := quotedTicket()
		_, err := RequestRefund(ticket, "pay-1", "cust-1", "whatever", now)
		assert.ErrorIs(t, err, ErrNothingRefundable)
	})
}

func TestResolveRefund(t *testing.T) {
	now := time.Date(2026, 3, 21, 9, 0, 0, 0, time.UTC)

	t.Run("approval moves the ticket to refunded", func(t *testing.T) {
		ticket := depositPaidTicket(t, now)
		request, err := RequestRefund(ticket, ticket.Payments[0].ID, "cust-1", "cancelled", now)
		require.NoError(t, err)

		resolved, err := ResolveRefund(ticket, request.ID, true, now)
		require.NoError(t, err)
		assert.Equal(t, domain.RefundStatusApproved, resolved.Status)
		assert.NotNil(t, resolved.ResolvedAt)
		assert.Equal(t, domain.PaymentStatusRefunded, ticket.PaymentStatus)
	})

	t.Run("rejection restores the ledger-derived status and re-enables payments", func(t *testing.T) {
		ticket := depositPaidTicket(t, now)
		request, err := RequestRefund(ticket, ticket.Payments[0].ID, "cust-1", "cancelled", now)
		require.NoError(t, err)

		_, err = ResolveRefund(ticket, request.ID, false, now)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusDepositPaid, ticket.PaymentStatus)

		_, err = ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 44000, now)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusFullyPaid, ticket.PaymentStatus)
	})

	t.Run("rejection keeps the flag while another request is pending", func(t *testing.T) {
		ticket := depositPaidTicket(t, now)
		_, err := ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 20000, now)
		require.NoError(t, err)
		first, err := RequestRefund(ticket, ticket.Payments[0].ID, "cust-1", "cancelled", now)
		require.NoError(t, err)
		second, err := RequestRefund(ticket, ticket.Payments[1].ID, "cust-1", "cancelled", now)
		require.NoError(t, err)

		_, err = ResolveRefund(ticket, first.ID, false, now)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRefundRequested, ticket.PaymentStatus)
		_, err = ApplyPayment(ticket, domain.PaymentTypeFinalPayment, 5000, now)
		assert.ErrorIs(t, err, ErrRefundInProgress)

		_, err = ResolveRefund(ticket, second.ID, false, now)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusDepositPaid, ticket.PaymentStatus)
	})

	t.Run("unknown request is rejected", func(t *testing.T) {
		ticket := depositPaidTicket(t, now)
		_, err := ResolveRefund(ticket, "rr-missing", true, now)
		assert.ErrorIs(t, err, ErrUnknownRefund)
	})

	t.Run("already resolved request cannot be resolved twice", func(t *testing.T) {
		ticket := depositPaidTicket(t, now)
		request, err := RequestRefund(ticket, ticket.Payments[0].ID, "cust-1", "cancelled", now)
		require.NoError(t, err)

		_, err = ResolveRefund(ticket, request.ID, true, now)
		require.NoError(t, err)
		_, err = ResolveRefund(ticket, request.ID, false, now)
		assert.ErrorIs(t, err, ErrRefundNotPending)
	})
}
