package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cartloop/checkout/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders
		(id, user_id, created_at, status, delivery_address, delivery_lat, delivery_lng,
		 customer_name, customer_phone, subtotal, shipping_cost, tip,
		 promo_discount, points_discount, total, promo_code, points_used, points_earned)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	insertOrderItemSQL = `INSERT INTO order_items (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)`

	getOrderSQL = `SELECT id, user_id, created_at, status, delivery_address,
		delivery_lat, delivery_lng, customer_name, customer_phone, subtotal, shipping_cost,
		tip, promo_discount, points_discount, total, promo_code, points_used, points_earned
		FROM orders WHERE id = $1 AND user_id = $2`

	listOrdersSQL = `SELECT id, user_id, created_at, status, delivery_address,
		delivery_lat, delivery_lng, customer_name, customer_phone, subtotal, shipping_cost,
		tip, promo_discount, points_discount, total, promo_code, points_used, points_earned
		FROM orders WHERE user_id = $1 ORDER BY created_at DESC`

	getOrderItemsSQL = `SELECT product_id, quantity, unit_price
		FROM order_items WHERE order_id = $1 ORDER BY product_id`

	setOrderStatusSQL = `UPDATE orders SET status = $2 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order header and its items. Callers are expected to
// run it inside a transaction via TxManager.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	q := conn(ctx, r.pool)
	_, err := q.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, o.CreatedAt, string(o.Status), o.DeliveryAddress,
		o.Destination.Lat, o.Destination.Lng, o.CustomerName, o.CustomerPhone,
		o.Subtotal, o.ShippingCost, o.Tip, o.PromoDiscount, o.PointsDiscount,
		o.Total, o.PromoCode, o.PointsUsed, o.PointsEarned,
	)
	if err != nil {
		return errors.Wrapf(err, "insert order %q", o.ID)
	}

	for _, item := range o.Items {
		_, err := q.Exec(ctx, insertOrderItemSQL, o.ID, item.ProductID, item.Quantity, item.UnitPrice)
		if err != nil {
			return errors.Wrapf(err, "insert item %q for order %q", item.ProductID, o.ID)
		}
	}
	return nil
}

// GetByID returns the order with its items, scoped to the owning user.
// Returns order.ErrNotFound when no such order exists for the user.
func (r *OrderRepository) GetByID(ctx context.Context, orderID, userID string) (*order.Order, error) {
	q := conn(ctx, r.pool)

	rows, err := q.Query(ctx, getOrderSQL, orderID, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", orderID)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", orderID)
	}

	items, err := r.itemsFor(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	o.Items = items
	return &o, nil
}

// ListByUser returns the user's orders, newest first, each with items.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listOrdersSQL, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders for user %q", userID)
	}

	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, errors.Wrapf(err, "list orders for user %q", userID)
	}

	for i := range orders {
		items, err := r.itemsFor(ctx, orders[i].ID)
		if err != nil {
			return nil, err
		}
		orders[i].Items = items
	}
	return orders, nil
}

// SetStatus updates the lifecycle state. Returns order.ErrNotFound when the
// order does not exist.
func (r *OrderRepository) SetStatus(ctx context.Context, orderID string, status order.Status) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, setOrderStatusSQL, orderID, string(status))
	if err != nil {
		return errors.Wrapf(err, "set status for order %q", orderID)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func (r *OrderRepository) itemsFor(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getOrderItemsSQL, orderID)
	if err != nil {
		return nil, errors.Wrapf(err, "get items for order %q", orderID)
	}
	items, err := pgx.CollectRows(rows, scanOrderItem)
	if err != nil {
		return nil, errors.Wrapf(err, "get items for order %q", orderID)
	}
	return items, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o      order.Order
		status string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.CreatedAt, &status, &o.DeliveryAddress,
		&o.Destination.Lat, &o.Destination.Lng, &o.CustomerName, &o.CustomerPhone,
		&o.Subtotal, &o.ShippingCost, &o.Tip, &o.PromoDiscount, &o.PointsDiscount,
		&o.Total, &o.PromoCode, &o.PointsUsed, &o.PointsEarned,
	)
	o.Status = order.Status(status)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var (
		it    order.Item
		price decimal.Decimal
	)
	err := row.Scan(&it.ProductID, &it.Quantity, &price)
	it.UnitPrice = price
	return it, err
}
