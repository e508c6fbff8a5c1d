package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

func TestTicketSummaryRemainingBalance(t *testing.T) {
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	ticket := &domain.Ticket{
		ID:            "ticket-1",
		ExternalKey:   "TCK-AB12CD34",
		Title:         "Website build",
		Status:        domain.TicketStatusOpen,
		PaymentStatus: domain.PaymentStatusDepositPaid,
		Subtotal:      50000,
		TotalAmount:   50000,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	t.Run("unpaid ticket owes the full total", func(t *testing.T) {
		summary := ticketSummary(ticket)
		assert.Equal(t, int64(50000), summary.RemainingBalance)
	})

	t.Run("ledger entries reduce the outstanding amount", func(t *testing.T) {
		ticket.Payments = []domain.Payment{
			{ID: "pay-1", TicketID: ticket.ID, Date: now, Amount: 10000, Type: domain.PaymentTypeDeposit},
			{ID: "pay-2", TicketID: ticket.ID, Date: now, Amount: 15000, Type: domain.PaymentTypeFinalPayment},
		}
		summary := ticketSummary(ticket)
		assert.Equal(t, int64(25000), summary.RemainingBalance)
		assert.Equal(t, int64(50000), summary.TotalAmount)
	})
}
