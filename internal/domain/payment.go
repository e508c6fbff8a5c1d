package domain

import "time"

// PaymentType distinguishes staged payments on a ticket.
type PaymentType string

const (
	PaymentTypeDeposit      PaymentType = "DEPOSIT"
	PaymentTypeFinalPayment PaymentType = "FINAL_PAYMENT"
)

// Payment is one accepted entry in a ticket's append-only ledger. Entries are
// never edited or removed; corrections happen through new ad-hoc items or
// refund requests.
type Payment struct {
	ID        string
	TicketID  string
	Date      time.Time
	Amount    Money
	Type      PaymentType
	InvoiceID string
}
