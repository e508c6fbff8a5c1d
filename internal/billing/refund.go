package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

var (
	ErrUnknownPayment    = errors.New("payment not found on ticket")
	ErrDuplicateRequest  = errors.New("a pending refund request already exists for this payment")
	ErrUnknownRefund     = errors.New("refund request not found on ticket")
	ErrRefundNotPending  = errors.New("refund request is already resolved")
	ErrNothingRefundable = errors.New("ticket has no refundable payment")
)

// RequestRefund creates a pending refund request against one ledger entry and
// flips the ticket to RefundRequested in the same step, so the request record
// and the ticket-level flag can never be observed apart. The payment itself
// stays in the ledger.
func RequestRefund(ticket *domain.Ticket, paymentID, customerID, reason string, now time.Time) (*domain.RefundRequest, error) {
	if len(ticket.Payments) == 0 {
		return nil, ErrNothingRefundable
	}
	if ticket.PaymentByID(paymentID) == nil {
		return nil, ErrUnknownPayment
	}
	if ticket.PendingRefundFor(paymentID) != nil {
		return nil, ErrDuplicateRequest
	}

	request := domain.RefundRequest{
		ID:         uuid.NewString(),
		TicketID:   ticket.ID,
		PaymentID:  paymentID,
		CustomerID: customerID,
		Reason:     reason,
		Status:     domain.RefundStatusPending,
		CreatedAt:  now,
	}
	ticket.RefundRequests = append(ticket.RefundRequests, request)
	ticket.PaymentStatus = domain.PaymentStatusRefundRequested

	return &ticket.RefundRequests[len(ticket.RefundRequests)-1], nil
}

// ResolveRefund applies the externally adjudicated outcome. Approval moves the
// ticket to Refunded; rejection restores the ledger-derived status once no
// pending request remains, which re-enables further payments.
func ResolveRefund(ticket *domain.Ticket, requestID string, approved bool, now time.Time) (*domain.RefundRequest, error) {
	var request *domain.RefundRequest
	for i := range ticket.RefundRequests {
		if ticket.RefundRequests[i].ID == requestID {
			request = &ticket.RefundRequests[i]
			break
		}
	}
	if request == nil {
		return nil, ErrUnknownRefund
	}
	if request.Status != domain.RefundStatusPending {
		return nil, ErrRefundNotPending
	}

	resolvedAt := now
	request.ResolvedAt = &resolvedAt
	if approved {
		request.Status = domain.RefundStatusApproved
		ticket.PaymentStatus = domain.PaymentStatusRefunded
	} else {
		request.Status = domain.RefundStatusRejected
		if hasPendingRefund(ticket) {
			ticket.PaymentStatus = domain.PaymentStatusRefundRequested
		} else {
			ticket.PaymentStatus = SettledStatus(ticket)
		}
	}
	return request, nil
}

func hasPendingRefund(ticket *domain.Ticket) bool {
	for _, request := range ticket.RefundRequests {
		if request.Status == domain.RefundStatusPending {
			return true
		}
	}
	return false
}
