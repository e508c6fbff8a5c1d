package billing

import (
	"github.com/spec-kit/ticket-billing/internal/domain"
)

// LineKind tags the closed union of subtotal contributors.
type LineKind string

const (
	LineKindProduct       LineKind = "PRODUCT"
	LineKindChangeRequest LineKind = "CHANGE_REQUEST"
	LineKindAdHoc         LineKind = "AD_HOC"
)

// Line is one flattened contributor to a ticket's subtotal. The same shape
// feeds both the quote computation and the invoice snapshot export.
type Line struct {
	Kind        LineKind
	SourceID    string
	Description string
	Amount      domain.Money
}

// Quote holds the computed totals for a ticket.
type Quote struct {
	Subtotal       domain.Money
	DiscountAmount domain.Money
	TotalAmount    domain.Money
}

// Lines flattens a ticket's line-item sources in a stable order: linked
// products first, then approved change requests, then ad-hoc items. A linked
// product missing from resolvedProducts is skipped, not an error; catalog
// entries can be deleted after linking. Pending and rejected change requests
// never contribute.
func Lines(ticket *domain.Ticket, resolvedProducts map[string]domain.Product) []Line {
	lines := make([]Line, 0, len(ticket.RelatedProductIDs)+len(ticket.ChangeRequests)+len(ticket.AdditionalLineItems))
	for _, productID := range ticket.RelatedProductIDs {
		product, ok := resolvedProducts[productID]
		if !ok {
			continue
		}
		lines = append(lines, Line{
			Kind:        LineKindProduct,
			SourceID:    product.ID,
			Description: product.Name,
			Amount:      product.Price,
		})
	}
	for _, cr := range ticket.ChangeRequests {
		if cr.Status != domain.ChangeRequestApproved {
			continue
		}
		lines = append(lines, Line{
			Kind:        LineKindChangeRequest,
			SourceID:    cr.ID,
			Description: cr.Description,
			Amount:      cr.PriceImpact,
		})
	}
	for _, item := range ticket.AdditionalLineItems {
		lines = append(lines, Line{
			Kind:        LineKindAdHoc,
			SourceID:    item.ID,
			Description: item.Description,
			Amount:      item.Price,
		})
	}
	return lines
}

// ComputeQuote derives a ticket's totals from its line-item sources and the
// voucher its discount code resolved to. Pure: no I/O, no mutation.
//
// A nil selectedVoucher (code absent, unrecognized, ineligible or exhausted)
// yields a zero discount rather than an error; an unrecognized code must not
// block editing. The total is floored at zero.
func ComputeQuote(ticket *domain.Ticket, resolvedProducts map[string]domain.Product, selectedVoucher *domain.Voucher) Quote {
	var subtotal domain.Money
	for _, line := range Lines(ticket, resolvedProducts) {
		subtotal += line.Amount
	}

	var discount domain.Money
	if selectedVoucher != nil && ticket.DiscountCode != nil && selectedVoucher.Code == *ticket.DiscountCode {
		discount = selectedVoucher.DiscountAmount
	}

	total := subtotal - discount
	if total < 0 {
		total = 0
	}
	return Quote{
		Subtotal:       subtotal,
		DiscountAmount: discount,
		TotalAmount:    total,
	}
}
