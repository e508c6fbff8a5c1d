package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

// EventRepository is the Postgres-backed promo event directory. It also owns
// the voucher usage counter, which is advanced with a guarded update so the
// cap holds under concurrent settlement.
type EventRepository interface {
	ListEvents(ctx context.Context) ([]domain.PromoEvent, error)
	// IncrementVoucherUses bumps the counter if the cap allows it and reports
	// whether the increment was applied.
	IncrementVoucherUses(ctx context.Context, voucherID string) (bool, error)
}

type eventRepository struct {
	pool *pgxpool.Pool
}

// NewEventRepository instantiates the repository.
func NewEventRepository(pool *pgxpool.Pool) EventRepository {
	return &eventRepository{pool: pool}
}

func (r *eventRepository) ListEvents(ctx context.Context) ([]domain.PromoEvent, error) {
	const eventsQuery = `SELECT id, name, start_date, end_date FROM promo_events ORDER BY start_date`
	rows, err := r.pool.Query(ctx, eventsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.PromoEvent
	index := make(map[string]int)
	for rows.Next() {
		var event domain.PromoEvent
		if err := rows.Scan(&event.ID, &event.Name, &event.StartDate, &event.EndDate); err != nil {
			return nil, err
		}
		index[event.ID] = len(events)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return events, nil
	}

	const vouchersQuery = `
        SELECT id, event_id, code, discount_amount, applicable_product_ids, uses, max_uses
        FROM vouchers ORDER BY code`
	voucherRows, err := r.pool.Query(ctx, vouchersQuery)
	if err != nil {
		return nil, err
	}
	defer voucherRows.Close()

	for voucherRows.Next() {
		var (
			voucher  domain.Voucher
			discount int64
		)
		if err := voucherRows.Scan(&voucher.ID, &voucher.EventID, &voucher.Code, &discount,
			&voucher.ApplicableProductIDs, &voucher.Uses, &voucher.MaxUses); err != nil {
			return nil, err
		}
		voucher.DiscountAmount = domain.Money(discount)
		if i, ok := index[voucher.EventID]; ok {
			events[i].Vouchers = append(events[i].Vouchers, voucher)
		}
	}
	return events, voucherRows.Err()
}

func (r *eventRepository) IncrementVoucherUses(ctx context.Context, voucherID string) (bool, error) {
	const query = `
        UPDATE vouchers SET uses = uses + 1
        WHERE id=$1 AND (max_uses IS NULL OR uses < max_uses)`
	cmd, err := r.pool.Exec(ctx, query, voucherID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
