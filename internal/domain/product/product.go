// Package product is the read-side view into the catalog that pricing and
// fulfillment need: current prices and stock counts. Catalog management
// lives elsewhere.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned by guarded stock decrements that
	// would take stock negative. The decrement has no effect in that case.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Product is a catalog snapshot at read time: identifier, current unit
// price, and available stock.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
}

// Reader provides batch read access to the catalog.
type Reader interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]Product, error)
}

// Repository extends Reader with the stock mutation the order commit needs.
// DecrementStock must be guarded: two concurrent commits for the last unit
// must not both succeed.
type Repository interface {
	Reader
	DecrementStock(ctx context.Context, productID string, quantity int) error
}
