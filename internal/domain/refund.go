package domain

import "time"

// RefundRequestStatus enumerates refund adjudication states.
type RefundRequestStatus string

const (
	RefundStatusPending  RefundRequestStatus = "PENDING"
	RefundStatusApproved RefundRequestStatus = "APPROVED"
	RefundStatusRejected RefundRequestStatus = "REJECTED"
)

// RefundRequest asks for a specific payment to be returned. At most one
// pending request may exist per payment.
type RefundRequest struct {
	ID         string
	TicketID   string
	PaymentID  string
	CustomerID string
	Reason     string
	Status     RefundRequestStatus
	CreatedAt  time.Time
	ResolvedAt *time.Time
}
