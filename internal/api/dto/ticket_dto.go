package dto

import (
	"time"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// TicketSummary response.
type TicketSummary struct {
	ID               string               `json:"id"`
	ExternalKey      string               `json:"external_key"`
	Title            string               `json:"title"`
	Status           domain.TicketStatus  `json:"status"`
	PaymentStatus    domain.PaymentStatus `json:"payment_status"`
	Subtotal         int64                `json:"subtotal"`
	DiscountAmount   int64                `json:"discount_amount"`
	TotalAmount      int64                `json:"total_amount"`
	RemainingBalance int64                `json:"remaining_balance"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// TicketDetailResponse provides the full aggregate view.
type TicketDetailResponse struct {
	ID                string                  `json:"id"`
	ExternalKey       string                  `json:"external_key"`
	CustomerID        string                  `json:"customer_id"`
	Title             string                  `json:"title"`
	Description       string                  `json:"description"`
	Status            domain.TicketStatus     `json:"status"`
	PaymentStatus     domain.PaymentStatus    `json:"payment_status"`
	RelatedProductIDs []string                `json:"related_product_ids"`
	ChangeRequests    []ChangeRequestResponse `json:"change_requests"`
	LineItems         []LineItemResponse      `json:"line_items"`
	DiscountCode      *string                 `json:"discount_code,omitempty"`
	ReferralCode      *string                 `json:"referral_code,omitempty"`
	DepositAmount     int64                   `json:"deposit_amount"`
	DepositManual     bool                    `json:"deposit_manual"`
	Subtotal          int64                   `json:"subtotal"`
	DiscountAmount    int64                   `json:"discount_amount"`
	TotalAmount       int64                   `json:"total_amount"`
	Payments          []PaymentResponse       `json:"payments"`
	RefundRequests    []RefundRequestResponse `json:"refund_requests"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// ChangeRequestResponse represents a scope change entry.
type ChangeRequestResponse struct {
	ID          string                     `json:"id"`
	Description string                     `json:"description"`
	PriceImpact int64                      `json:"price_impact"`
	Status      domain.ChangeRequestStatus `json:"status"`
	CreatedAt   time.Time                  `json:"created_at"`
}

// LineItemResponse represents an ad-hoc line item.
type LineItemResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}
