package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// PaymentStatus tracks how far a ticket has progressed through settlement.
type PaymentStatus string

const (
	PaymentStatusUnpaid          PaymentStatus = "UNPAID"
	PaymentStatusDepositPaid     PaymentStatus = "DEPOSIT_PAID"
	PaymentStatusFullyPaid       PaymentStatus = "FULLY_PAID"
	PaymentStatusRefundRequested PaymentStatus = "REFUND_REQUESTED"
	PaymentStatusRefunded        PaymentStatus = "REFUNDED"
)

// Ticket is the billing aggregate. The cached Subtotal, DiscountAmount and
// TotalAmount are recomputed from the line-item sources on every command and
// must never diverge from them.
type Ticket struct {
	ID                  string
	ExternalKey         string
	CustomerID          string
	Title               string
	Description         string
	Status              TicketStatus
	RelatedProductIDs   []string
	ChangeRequests      []ChangeRequest
	AdditionalLineItems []AdHocItem
	DiscountCode        *string
	ReferralCode        *string
	DepositAmount       Money
	DepositManual       bool
	Subtotal            Money
	DiscountAmount      Money
	TotalAmount         Money
	Payments            []Payment
	RefundRequests      []RefundRequest
	PaymentStatus       PaymentStatus
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasProduct reports whether the product is linked to the ticket.
func (t *Ticket) HasProduct(productID string) bool {
	for _, id := range t.RelatedProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// PaymentByID returns the ledger entry with the given id, or nil.
func (t *Ticket) PaymentByID(paymentID string) *Payment {
	for i := range t.Payments {
		if t.Payments[i].ID == paymentID {
			return &t.Payments[i]
		}
	}
	return nil
}

// PendingRefundFor returns the pending refund request against the payment, or nil.
func (t *Ticket) PendingRefundFor(paymentID string) *RefundRequest {
	for i := range t.RefundRequests {
		if t.RefundRequests[i].PaymentID == paymentID && t.RefundRequests[i].Status == RefundStatusPending {
			return &t.RefundRequests[i]
		}
	}
	return nil
}
