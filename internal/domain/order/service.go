package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartloop/checkout/internal/domain/product"
	"github.com/cartloop/checkout/internal/domain/promo"
)

// PointsLedger is the slice of the points ledger the commit needs.
type PointsLedger interface {
	Debit(ctx context.Context, userID string, pts int, orderID *string) error
	Credit(ctx context.Context, userID string, pts int, description string, orderID *string) error
}

// CommitRequest is a QuoteRequest plus the delivery and contact fields
// required to persist an order.
type CommitRequest struct {
	QuoteRequest
	DeliveryAddress string
	CustomerName    string
	CustomerPhone   string
}

// Service commits quotes into orders. All resource mutations (order row,
// stock, promo usage, points) happen inside one transaction: either the
// whole commit is observable or none of it is.
type Service struct {
	calc     *Calculator
	products product.Repository
	promos   promo.Repository
	ledger   PointsLedger
	orders   Repository
	tx       TxRunner
	now      func() time.Time
}

// NewService creates an order Service.
func NewService(
	calc *Calculator,
	products product.Repository,
	promos promo.Repository,
	ledger PointsLedger,
	orders Repository,
	tx TxRunner,
) *Service {
	return &Service{
		calc:     calc,
		products: products,
		promos:   promos,
		ledger:   ledger,
		orders:   orders,
		tx:       tx,
		now:      time.Now,
	}
}

// Quote prices the request without side effects. See Calculator.Quote.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	return s.calc.Quote(ctx, req)
}

// Commit recomputes the quote under a transaction, verifies stock, persists
// the order, and applies every resource mutation atomically. Caller-supplied
// money figures are never trusted; the recomputed quote is authoritative.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (*Order, error) {
	var committed *Order

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		quote, err := s.calc.Quote(ctx, req.QuoteRequest)
		if err != nil {
			return err
		}

		ids := make([]string, len(req.Items))
		for i, item := range req.Items {
			ids[i] = item.ProductID
		}
		current, err := s.products.GetByIDs(ctx, ids)
		if err != nil {
			return errors.Wrap(err, "get products")
		}

		// Fail before any write if a line cannot be satisfied.
		for _, item := range req.Items {
			p, ok := current[item.ProductID]
			if !ok {
				return ErrProductsUnavailable
			}
			if p.Stock < item.Quantity {
				return &OutOfStockError{
					ProductID: p.ID,
					Name:      p.Name,
					Requested: item.Quantity,
					Available: p.Stock,
				}
			}
		}

		o := &Order{
			ID:              uuid.New().String(),
			UserID:          req.UserID,
			CreatedAt:       s.now().UTC(),
			Status:          StatusPending,
			DeliveryAddress: req.DeliveryAddress,
			Destination:     req.Destination,
			CustomerName:    req.CustomerName,
			CustomerPhone:   req.CustomerPhone,
			Subtotal:        quote.Subtotal,
			ShippingCost:    quote.ShippingCost,
			Tip:             quote.Tip,
			PromoDiscount:   quote.PromoDiscount,
			PointsDiscount:  quote.PointsDiscount,
			Total:           quote.Total,
			PromoCode:       quote.PromoCode,
			PointsUsed:      quote.PointsToUse,
			PointsEarned:    quote.PointsToEarn,
			Items:           quote.Lines,
		}
		if err := s.orders.Create(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}

		// Guarded decrements: a concurrent commit that took the last unit
		// between our check and here surfaces as ErrInsufficientStock and
		// aborts the whole transaction.
		for _, item := range req.Items {
			if err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				if errors.Is(err, product.ErrInsufficientStock) {
					p := current[item.ProductID]
					return &OutOfStockError{
						ProductID: p.ID,
						Name:      p.Name,
						Requested: item.Quantity,
						Available: p.Stock,
					}
				}
				return errors.Wrapf(err, "decrement stock for %s", item.ProductID)
			}
		}

		if quote.PromoCode != "" {
			if err := s.promos.IncrementUses(ctx, quote.PromoCode); err != nil {
				return err
			}
		}

		if quote.PointsToUse > 0 {
			if err := s.ledger.Debit(ctx, req.UserID, quote.PointsToUse, &o.ID); err != nil {
				return err
			}
		}
		if quote.PointsToEarn > 0 {
			desc := fmt.Sprintf("Points earned from order %s", o.ID)
			if err := s.ledger.Credit(ctx, req.UserID, quote.PointsToEarn, desc, &o.ID); err != nil {
				return err
			}
		}

		committed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	zctx.From(ctx).Info("Order committed",
		zap.String("order_id", committed.ID),
		zap.String("user_id", committed.UserID),
		zap.String("total", committed.Total.String()),
	)
	return committed, nil
}

// GetOrder returns the user's order by ID, or ErrNotFound.
func (s *Service) GetOrder(ctx context.Context, orderID, userID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID, userID)
}

// ListUserOrders returns the user's orders, newest first.
func (s *Service) ListUserOrders(ctx context.Context, userID string) ([]Order, error) {
	return s.orders.ListByUser(ctx, userID)
}

// SetStatus updates an order's status. Which transitions are legal is a
// fulfillment-workflow concern; the engine only rejects unknown statuses.
func (s *Service) SetStatus(ctx context.Context, orderID string, status Status) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if err := s.orders.SetStatus(ctx, orderID, status); err != nil {
		return err
	}
	zctx.From(ctx).Info("Order status updated",
		zap.String("order_id", orderID),
		zap.String("status", string(status)),
	)
	return nil
}
