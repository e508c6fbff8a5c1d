package events

import (
	"time"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventQuoteRecomputed EventType = "quote_recomputed"
	EventPaymentRecorded EventType = "payment_recorded"
	EventTicketFullyPaid EventType = "ticket_fully_paid"
	EventRefundRequested EventType = "refund_requested"
	EventRefundResolved  EventType = "refund_resolved"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  *string            `json:"user_id,omitempty"`
	StaffID *string            `json:"staff_id,omitempty"`
}

// Event represents a domain event emitted by the ticket aggregate.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	CustomerID string `json:"customer_id"`
	Title      string `json:"title"`
}

// QuoteRecomputedPayload carries the totals cached after a command.
type QuoteRecomputedPayload struct {
	Subtotal       domain.Money `json:"subtotal"`
	DiscountAmount domain.Money `json:"discount_amount"`
	TotalAmount    domain.Money `json:"total_amount"`
}

// PaymentRecordedPayload payload.
type PaymentRecordedPayload struct {
	PaymentID        string             `json:"payment_id"`
	InvoiceID        string             `json:"invoice_id"`
	PaymentType      domain.PaymentType `json:"payment_type"`
	Amount           domain.Money       `json:"amount"`
	RemainingBalance domain.Money       `json:"remaining_balance"`
}

// RefundRequestedPayload payload.
type RefundRequestedPayload struct {
	RequestID string `json:"request_id"`
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason"`
}

// RefundResolvedPayload payload.
type RefundResolvedPayload struct {
	RequestID string                     `json:"request_id"`
	Status    domain.RefundRequestStatus `json:"status"`
}
