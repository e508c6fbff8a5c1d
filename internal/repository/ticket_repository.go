package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	CustomerID      *string
	Statuses        []domain.TicketStatus
	PaymentStatuses []domain.PaymentStatus
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
	Limit           int
	Offset          int
}

// TicketRepository encapsulates ticket aggregate persistence. GetByID loads
// the full aggregate (product links, change requests, line items, ledger,
// refund requests); SaveAggregate writes it back in one transaction.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByRefundRequest(ctx context.Context, requestID string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	SaveAggregate(ctx context.Context, ticket *domain.Ticket) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates the repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (external_key, customer_id, title, description, status,
            discount_code, referral_code, deposit_amount, deposit_manual,
            subtotal, discount_amount, total_amount, payment_status)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.ExternalKey,
		ticket.CustomerID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.DiscountCode,
		ticket.ReferralCode,
		int64(ticket.DepositAmount),
		ticket.DepositManual,
		int64(ticket.Subtotal),
		int64(ticket.DiscountAmount),
		int64(ticket.TotalAmount),
		ticket.PaymentStatus,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	const query = `
        SELECT id, external_key, customer_id, title, description, status,
               discount_code, referral_code, deposit_amount, deposit_manual,
               subtotal, discount_amount, total_amount, payment_status,
               created_at, updated_at
        FROM tickets WHERE id=$1`
	ticket, err := r.fetchSingle(ctx, query, id)
	if err != nil {
		return nil, err
	}
	if err := r.loadChildren(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

func (r *ticketRepository) GetByRefundRequest(ctx context.Context, requestID string) (*domain.Ticket, error) {
	const query = `SELECT ticket_id FROM refund_requests WHERE id=$1`
	var ticketID string
	if err := r.pool.QueryRow(ctx, query, requestID).Scan(&ticketID); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, ticketID)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var (
		ticket         domain.Ticket
		deposit        int64
		subtotal       int64
		discountAmount int64
		totalAmount    int64
	)
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&ticket.ID,
		&ticket.ExternalKey,
		&ticket.CustomerID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.DiscountCode,
		&ticket.ReferralCode,
		&deposit,
		&ticket.DepositManual,
		&subtotal,
		&discountAmount,
		&totalAmount,
		&ticket.PaymentStatus,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	ticket.DepositAmount = domain.Money(deposit)
	ticket.Subtotal = domain.Money(subtotal)
	ticket.DiscountAmount = domain.Money(discountAmount)
	ticket.TotalAmount = domain.Money(totalAmount)
	return &ticket, nil
}

func (r *ticketRepository) loadChildren(ctx context.Context, ticket *domain.Ticket) error {
	if err := r.loadProductLinks(ctx, ticket); err != nil {
		return err
	}
	if err := r.loadChangeRequests(ctx, ticket); err != nil {
		return err
	}
	if err := r.loadLineItems(ctx, ticket); err != nil {
		return err
	}
	if err := r.loadPayments(ctx, ticket); err != nil {
		return err
	}
	return r.loadRefundRequests(ctx, ticket)
}

func (r *ticketRepository) loadProductLinks(ctx context.Context, ticket *domain.Ticket) error {
	const query = `SELECT product_id FROM ticket_products WHERE ticket_id=$1 ORDER BY linked_at`
	rows, err := r.pool.Query(ctx, query, ticket.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var productID string
		if err := rows.Scan(&productID); err != nil {
			return err
		}
		ticket.RelatedProductIDs = append(ticket.RelatedProductIDs, productID)
	}
	return rows.Err()
}

func (r *ticketRepository) loadChangeRequests(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        SELECT id, description, price_impact, status, created_at
        FROM change_requests WHERE ticket_id=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, ticket.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cr     domain.ChangeRequest
			impact int64
		)
		if err := rows.Scan(&cr.ID, &cr.Description, &impact, &cr.Status, &cr.CreatedAt); err != nil {
			return err
		}
		cr.PriceImpact = domain.Money(impact)
		ticket.ChangeRequests = append(ticket.ChangeRequests, cr)
	}
	return rows.Err()
}

func (r *ticketRepository) loadLineItems(ctx context.Context, ticket *domain.Ticket) error {
	const query = `SELECT id, description, price FROM line_items WHERE ticket_id=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, ticket.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			item  domain.AdHocItem
			price int64
		)
		if err := rows.Scan(&item.ID, &item.Description, &price); err != nil {
			return err
		}
		item.Price = domain.Money(price)
		ticket.AdditionalLineItems = append(ticket.AdditionalLineItems, item)
	}
	return rows.Err()
}

func (r *ticketRepository) loadPayments(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        SELECT id, ticket_id, paid_at, amount, payment_type, invoice_id
        FROM payments WHERE ticket_id=$1 ORDER BY paid_at`
	rows, err := r.pool.Query(ctx, query, ticket.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			payment domain.Payment
			amount  int64
		)
		if err := rows.Scan(&payment.ID, &payment.TicketID, &payment.Date, &amount, &payment.Type, &payment.InvoiceID); err != nil {
			return err
		}
		payment.Amount = domain.Money(amount)
		ticket.Payments = append(ticket.Payments, payment)
	}
	return rows.Err()
}

func (r *ticketRepository) loadRefundRequests(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        SELECT id, ticket_id, payment_id, customer_id, reason, status, created_at, resolved_at
        FROM refund_requests WHERE ticket_id=$1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, ticket.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var request domain.RefundRequest
		if err := rows.Scan(&request.ID, &request.TicketID, &request.PaymentID, &request.CustomerID,
			&request.Reason, &request.Status, &request.CreatedAt, &request.ResolvedAt); err != nil {
			return err
		}
		ticket.RefundRequests = append(ticket.RefundRequests, request)
	}
	return rows.Err()
}

// SaveAggregate persists the whole ticket aggregate atomically. The payments
// table is append-only: existing ledger rows are never updated or deleted,
// new ones are inserted.
func (r *ticketRepository) SaveAggregate(ctx context.Context, ticket *domain.Ticket) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const updateTicket = `
        UPDATE tickets SET title=$1, description=$2, status=$3, discount_code=$4,
            referral_code=$5, deposit_amount=$6, deposit_manual=$7, subtotal=$8,
            discount_amount=$9, total_amount=$10, payment_status=$11, updated_at=NOW()
        WHERE id=$12`
	cmd, err := tx.Exec(ctx, updateTicket,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.DiscountCode,
		ticket.ReferralCode,
		int64(ticket.DepositAmount),
		ticket.DepositManual,
		int64(ticket.Subtotal),
		int64(ticket.DiscountAmount),
		int64(ticket.TotalAmount),
		ticket.PaymentStatus,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if err := r.saveProductLinks(ctx, tx, ticket); err != nil {
		return err
	}
	if err := r.saveChangeRequests(ctx, tx, ticket); err != nil {
		return err
	}
	if err := r.saveLineItems(ctx, tx, ticket); err != nil {
		return err
	}
	if err := r.savePayments(ctx, tx, ticket); err != nil {
		return err
	}
	if err := r.saveRefundRequests(ctx, tx, ticket); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ticketRepository) saveProductLinks(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	if _, err := tx.Exec(ctx, `DELETE FROM ticket_products WHERE ticket_id=$1`, ticket.ID); err != nil {
		return err
	}
	for _, productID := range ticket.RelatedProductIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO ticket_products (ticket_id, product_id) VALUES ($1,$2)`,
			ticket.ID, productID); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) saveChangeRequests(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	if _, err := tx.Exec(ctx, `DELETE FROM change_requests WHERE ticket_id=$1`, ticket.ID); err != nil {
		return err
	}
	for _, cr := range ticket.ChangeRequests {
		if _, err := tx.Exec(ctx,
			`INSERT INTO change_requests (id, ticket_id, description, price_impact, status, created_at)
             VALUES ($1,$2,$3,$4,$5,$6)`,
			cr.ID, ticket.ID, cr.Description, int64(cr.PriceImpact), cr.Status, cr.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) saveLineItems(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	if _, err := tx.Exec(ctx, `DELETE FROM line_items WHERE ticket_id=$1`, ticket.ID); err != nil {
		return err
	}
	for _, item := range ticket.AdditionalLineItems {
		if _, err := tx.Exec(ctx,
			`INSERT INTO line_items (id, ticket_id, description, price) VALUES ($1,$2,$3,$4)`,
			item.ID, ticket.ID, item.Description, int64(item.Price)); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) savePayments(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	for _, payment := range ticket.Payments {
		if _, err := tx.Exec(ctx,
			`INSERT INTO payments (id, ticket_id, paid_at, amount, payment_type, invoice_id)
             VALUES ($1,$2,$3,$4,$5,$6)
             ON CONFLICT (id) DO NOTHING`,
			payment.ID, ticket.ID, payment.Date, int64(payment.Amount), payment.Type, payment.InvoiceID); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) saveRefundRequests(ctx context.Context, tx pgx.Tx, ticket *domain.Ticket) error {
	for _, request := range ticket.RefundRequests {
		if _, err := tx.Exec(ctx,
			`INSERT INTO refund_requests (id, ticket_id, payment_id, customer_id, reason, status, created_at, resolved_at)
             VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
             ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, resolved_at=EXCLUDED.resolved_at`,
			request.ID, ticket.ID, request.PaymentID, request.CustomerID,
			request.Reason, request.Status, request.CreatedAt, request.ResolvedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	base := `SELECT id, external_key, customer_id, title, description, status,
                    discount_code, referral_code, deposit_amount, deposit_manual,
                    subtotal, discount_amount, total_amount, payment_status,
                    created_at, updated_at
             FROM tickets`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.CustomerID != nil {
		args = append(args, *filter.CustomerID)
		clauses = append(clauses, fmt.Sprintf("customer_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.PaymentStatuses) > 0 {
		placeholders := make([]string, len(filter.PaymentStatuses))
		for i, status := range filter.PaymentStatuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("payment_status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachPayments(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// attachPayments backfills the ledgers for a page of tickets in one query, so
// list read models derive paid amounts from the same data as single reads.
func (r *ticketRepository) attachPayments(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	index := make(map[string]*domain.Ticket, len(tickets))
	ids := make([]string, 0, len(tickets))
	for i := range tickets {
		index[tickets[i].ID] = &tickets[i]
		ids = append(ids, tickets[i].ID)
	}
	const query = `
        SELECT id, ticket_id, paid_at, amount, payment_type, invoice_id
        FROM payments WHERE ticket_id = ANY($1) ORDER BY paid_at`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			payment domain.Payment
			amount  int64
		)
		if err := rows.Scan(&payment.ID, &payment.TicketID, &payment.Date, &amount, &payment.Type, &payment.InvoiceID); err != nil {
			return err
		}
		payment.Amount = domain.Money(amount)
		if owner, ok := index[payment.TicketID]; ok {
			owner.Payments = append(owner.Payments, payment)
		}
	}
	return rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var (
			ticket         domain.Ticket
			deposit        int64
			subtotal       int64
			discountAmount int64
			totalAmount    int64
		)
		if err := rows.Scan(
			&ticket.ID,
			&ticket.ExternalKey,
			&ticket.CustomerID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.DiscountCode,
			&ticket.ReferralCode,
			&deposit,
			&ticket.DepositManual,
			&subtotal,
			&discountAmount,
			&totalAmount,
			&ticket.PaymentStatus,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, err
		}
		ticket.DepositAmount = domain.Money(deposit)
		ticket.Subtotal = domain.Money(subtotal)
		ticket.DiscountAmount = domain.Money(discountAmount)
		ticket.TotalAmount = domain.Money(totalAmount)
		result = append(result, ticket)
	}
	return result, rows.Err()
}
