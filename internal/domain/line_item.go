package domain

import "time"

// ChangeRequestStatus enumerates review outcomes for change requests.
type ChangeRequestStatus string

const (
	ChangeRequestPending  ChangeRequestStatus = "PENDING"
	ChangeRequestApproved ChangeRequestStatus = "APPROVED"
	ChangeRequestRejected ChangeRequestStatus = "REJECTED"
)

// ChangeRequest is a priced scope change. Only approved requests contribute to
// the ticket subtotal.
type ChangeRequest struct {
	ID          string
	Description string
	PriceImpact Money
	Status      ChangeRequestStatus
	CreatedAt   time.Time
}

// AdHocItem is a user-entered line item. Its price may be zero or negative;
// the quote total is floored at zero regardless.
type AdHocItem struct {
	ID          string
	Description string
	Price       Money
}
