package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/ticket-billing/internal/domain"
)

// ProductRepository is the Postgres-backed catalog adapter.
type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

type productRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository instantiates the repository.
func NewProductRepository(pool *pgxpool.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	const query = `SELECT id, name, price FROM products WHERE id=$1`
	var (
		product domain.Product
		price   int64
	)
	if err := r.pool.QueryRow(ctx, query, id).Scan(&product.ID, &product.Name, &price); err != nil {
		return nil, err
	}
	product.Price = domain.Money(price)
	return &product, nil
}

func (r *productRepository) GetProducts(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	resolved := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return resolved, nil
	}
	const query = `SELECT id, name, price FROM products WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			product domain.Product
			price   int64
		)
		if err := rows.Scan(&product.ID, &product.Name, &price); err != nil {
			return nil, err
		}
		product.Price = domain.Money(price)
		resolved[product.ID] = product
	}
	return resolved, rows.Err()
}
