package directory

import (
	"context"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

// CatalogAdapter supplies live product lookups. Prices are read at quote time
// so a catalog price change is reflected on the next recomputation.
type CatalogAdapter interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// GetProducts resolves a batch of ids. Ids missing from the catalog are
	// absent from the result map; only lookup failures return an error.
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

// EventDirectory lists promo events together with their vouchers.
type EventDirectory interface {
	ListEvents(ctx context.Context) ([]domain.PromoEvent, error)
}

// EmployeeDirectory resolves staff referral codes. An unknown code returns
// (nil, nil); referral validation is advisory and never affects totals.
type EmployeeDirectory interface {
	FindByReferralCode(ctx context.Context, code string) (*domain.Employee, error)
}
