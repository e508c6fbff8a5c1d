package billing

import (
	"github.com/spec-kit/ticket-billing/internal/domain"
)

// VoucherEligibility pairs an eligible voucher with its usability. Eligible
// means the owning event's window covers the ticket's creation day and the
// voucher's product scope intersects the ticket's linked products; usable
// additionally means the usage cap is not reached. Exhausted vouchers are
// listed so the UI can show them disabled.
type VoucherEligibility struct {
	Voucher domain.Voucher
	Usable  bool
}

// EligibleVouchers resolves the vouchers applicable to a ticket. It never
// fails: no overlapping event degrades to an empty result. It does not touch
// usage counters.
func EligibleVouchers(ticket *domain.Ticket, events []domain.PromoEvent) []VoucherEligibility {
	var eligible []VoucherEligibility
	for i := range events {
		event := &events[i]
		if !event.Covers(ticket.CreatedAt) {
			continue
		}
		for _, voucher := range event.Vouchers {
			if !voucher.AppliesTo(ticket.RelatedProductIDs) {
				continue
			}
			eligible = append(eligible, VoucherEligibility{
				Voucher: voucher,
				Usable:  !voucher.Exhausted(),
			})
		}
	}
	return eligible
}

// ResolveVoucher returns the usable eligible voucher matching the code, or
// nil. A nil result means the quote carries no discount; it is not an error.
func ResolveVoucher(ticket *domain.Ticket, events []domain.PromoEvent, code string) *domain.Voucher {
	if code == "" {
		return nil
	}
	for _, entry := range EligibleVouchers(ticket, events) {
		if entry.Voucher.Code == code && entry.Usable {
			voucher := entry.Voucher
			return &voucher
		}
	}
	return nil
}
