package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

// ReferralRepository resolves staff referral codes. Unknown codes return
// (nil, nil) so the caller can treat them as a validation outcome rather than
// a lookup failure.
type ReferralRepository interface {
	FindByReferralCode(ctx context.Context, code string) (*domain.Employee, error)
}

type referralRepository struct {
	pool *pgxpool.Pool
}

// NewReferralRepository instantiates the repository.
func NewReferralRepository(pool *pgxpool.Pool) ReferralRepository {
	return &referralRepository{pool: pool}
}

func (r *referralRepository) FindByReferralCode(ctx context.Context, code string) (*domain.Employee, error) {
	const query = `SELECT id, name, referral_code FROM staff_referrals WHERE referral_code=$1`
	var employee domain.Employee
	if err := r.pool.QueryRow(ctx, query, code).Scan(&employee.ID, &employee.Name, &employee.ReferralCode); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &employee, nil
}
