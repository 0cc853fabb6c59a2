// Package order prices carts into quotes and commits them into orders,
// coordinating stock, promo usage, and the points ledger inside one
// transaction.
package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cartloop/checkout/internal/domain/geo"
)

// Status is the order lifecycle state. Orders are created Pending; later
// transitions are driven by the fulfillment workflow through SetStatus.
type Status string

const (
	StatusPending        Status = "pending"
	StatusProcessing     Status = "processing"
	StatusShipped        Status = "shipped"
	StatusOutForDelivery Status = "out_for_delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
	StatusRefunded       Status = "refunded"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped,
		StatusOutForDelivery, StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	}
	return false
}

// Sentinel errors for request validation and business outcomes.
var (
	ErrEmptyItems          = errors.New("items required")
	ErrInvalidDestination  = errors.New("invalid delivery coordinates")
	ErrProductsUnavailable = errors.New("some products in cart are no longer available")
	ErrNotFound            = errors.New("order not found")
	ErrInvalidStatus       = errors.New("invalid order status")
)

// InvalidQuantityError indicates a line item with a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// OutOfStockError indicates a line item exceeding available stock.
type OutOfStockError struct {
	ProductID string
	Name      string
	Requested int
	Available int
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.Name, e.Requested, e.Available)
}

// Item is an order line with the unit price captured at commit time.
type Item struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order is a committed customer order. It is created only by Service.Commit
// inside one atomic transaction and is never deleted; cancellation is a
// status transition.
type Order struct {
	ID              string
	UserID          string
	CreatedAt       time.Time
	Status          Status
	DeliveryAddress string
	Destination     geo.Point
	CustomerName    string
	CustomerPhone   string
	Subtotal        decimal.Decimal
	ShippingCost    decimal.Decimal
	Tip             decimal.Decimal
	PromoDiscount   decimal.Decimal
	PointsDiscount  decimal.Decimal
	Total           decimal.Decimal
	PromoCode       string
	PointsUsed      int
	PointsEarned    int
	Items           []Item
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, orderID, userID string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	SetStatus(ctx context.Context, orderID string, status Status) error
}

// TxRunner executes fn inside a storage transaction. Nested calls join the
// surrounding transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
