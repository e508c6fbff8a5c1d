package dto

import (
	"time"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

// LinkProductRequest payload.
type LinkProductRequest struct {
	ProductID string `json:"product_id"`
}

// AddLineItemRequest payload. Price is in minor units and may be negative.
type AddLineItemRequest struct {
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

// AddChangeRequestRequest payload.
type AddChangeRequestRequest struct {
	Description string `json:"description"`
	PriceImpact int64  `json:"price_impact"`
}

// ReviewChangeRequestRequest payload.
type ReviewChangeRequestRequest struct {
	Approve bool `json:"approve"`
}

// SetDiscountCodeRequest payload. An empty code clears the discount.
type SetDiscountCodeRequest struct {
	Code string `json:"code"`
}

// SetReferralCodeRequest payload.
type SetReferralCodeRequest struct {
	Code string `json:"code"`
}

// SetDepositRequest sets the deposit either as an absolute amount or as a
// percentage of the current total; exactly one field must be present.
type SetDepositRequest struct {
	Amount  *int64 `json:"amount,omitempty"`
	Percent *int   `json:"percent,omitempty"`
}

// ApplyPaymentRequest payload.
type ApplyPaymentRequest struct {
	Type   domain.PaymentType `json:"type"`
	Amount int64              `json:"amount"`
}

// CreateRefundRequest payload.
type CreateRefundRequest struct {
	PaymentID string `json:"payment_id"`
	Reason    string `json:"reason"`
}

// ResolveRefundRequest payload.
type ResolveRefundRequest struct {
	Approve bool `json:"approve"`
}

// QuoteResponse is the reconciled totals view.
type QuoteResponse struct {
	Subtotal         int64 `json:"subtotal"`
	DiscountAmount   int64 `json:"discount_amount"`
	TotalAmount      int64 `json:"total_amount"`
	AmountPaid       int64 `json:"amount_paid"`
	RemainingBalance int64 `json:"remaining_balance"`
}

// VoucherResponse lists an eligible voucher with its usability.
type VoucherResponse struct {
	Code           string `json:"code"`
	DiscountAmount int64  `json:"discount_amount"`
	Usable         bool   `json:"usable"`
}

// PaymentResponse represents a ledger entry.
type PaymentResponse struct {
	ID        string             `json:"id"`
	Date      time.Time          `json:"date"`
	Amount    int64              `json:"amount"`
	Type      domain.PaymentType `json:"type"`
	InvoiceID string             `json:"invoice_id"`
}

// RefundRequestResponse represents a refund request record.
type RefundRequestResponse struct {
	ID         string                     `json:"id"`
	TicketID   string                     `json:"ticket_id"`
	PaymentID  string                     `json:"payment_id"`
	CustomerID string                     `json:"customer_id"`
	Reason     string                     `json:"reason"`
	Status     domain.RefundRequestStatus `json:"status"`
	CreatedAt  time.Time                  `json:"created_at"`
	ResolvedAt *time.Time                 `json:"resolved_at,omitempty"`
}

// InvoiceLineResponse is one printable invoice line.
type InvoiceLineResponse struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

// InvoiceResponse is the flattened invoice snapshot.
type InvoiceResponse struct {
	TicketKey        string                `json:"ticket_key"`
	CustomerID       string                `json:"customer_id"`
	Lines            []InvoiceLineResponse `json:"lines"`
	Subtotal         int64                 `json:"subtotal"`
	DiscountCode     string                `json:"discount_code,omitempty"`
	DiscountAmount   int64                 `json:"discount_amount"`
	TotalAmount      int64                 `json:"total_amount"`
	AmountPaid       int64                 `json:"amount_paid"`
	RemainingBalance int64                 `json:"remaining_balance"`
	Payments         []PaymentResponse     `json:"payments"`
	GeneratedAt      time.Time             `json:"generated_at"`
}
