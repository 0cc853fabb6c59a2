package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cartloop/checkout/internal/domain/product"
)

const (
	getProductsByIDsSQL = `SELECT id, name, price, stock
		FROM products WHERE id = ANY($1)`

	// Guarded decrement: applies only when stock can cover the quantity,
	// so concurrent commits cannot drive stock negative.
	decrementStockSQL = `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// GetByIDs returns current price and stock for the given product IDs,
// keyed by ID. Missing IDs are simply absent from the map.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) (map[string]product.Product, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}

	fetched, err := pgx.CollectRows(rows, scanProduct)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}

	out := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		out[p.ID] = p
	}
	return out, nil
}

// DecrementStock atomically reduces stock for the product. Returns
// product.ErrInsufficientStock when the guarded update does not apply,
// either because stock is too low or the product is gone.
func (r *ProductRepository) DecrementStock(ctx context.Context, productID string, quantity int) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, decrementStockSQL, productID, quantity)
	if err != nil {
		return errors.Wrapf(err, "decrement stock for %q", productID)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrInsufficientStock
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
		stock int32
	)
	err := row.Scan(&p.ID, &p.Name, &price, &stock)
	p.Price = price
	p.Stock = int(stock)
	return p, err
}
