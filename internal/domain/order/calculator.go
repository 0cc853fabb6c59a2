package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cartloop/checkout/internal/domain/geo"
	"github.com/cartloop/checkout/internal/domain/points"
	"github.com/cartloop/checkout/internal/domain/product"
	"github.com/cartloop/checkout/internal/domain/promo"
)

// Additional validation sentinels for quote requests.
var (
	ErrNegativeTip    = errors.New("tip must not be negative")
	ErrNegativePoints = errors.New("points to use must not be negative")
)

// PricingConfig holds the loyalty conversion rates.
type PricingConfig struct {
	// PointValue is the currency value of one redeemed point.
	PointValue decimal.Decimal
	// EarnRate is the number of points earned per currency unit spent.
	EarnRate decimal.Decimal
}

// LineItem is a cart line in a quote or commit request.
type LineItem struct {
	ProductID string
	Quantity  int
}

// QuoteRequest carries everything needed to price a cart.
type QuoteRequest struct {
	UserID      string
	Items       []LineItem
	Destination geo.Point
	PromoCode   string
	PointsToUse int
	Tip         decimal.Decimal
}

// Quote is a fully itemized pricing result. Quotes carry no promises: the
// commit recomputes everything under the transaction.
type Quote struct {
	Subtotal       decimal.Decimal
	ShippingCost   decimal.Decimal
	Tip            decimal.Decimal
	PromoDiscount  decimal.Decimal
	PointsDiscount decimal.Decimal
	Total          decimal.Decimal
	PointsToEarn   int
	PromoCode      string
	PointsToUse    int
	Lines          []Item
}

// ShippingQuoter prices delivery to a destination.
type ShippingQuoter interface {
	QuoteCost(ctx context.Context, dest geo.Point) (decimal.Decimal, error)
}

// BalanceReader reads a user's current points balance.
type BalanceReader interface {
	GetBalance(ctx context.Context, userID string) (*points.Balance, error)
}

// Calculator prices carts. Quoting is read-only and idempotent: it never
// touches stock, points, or promo counters, and may be called repeatedly.
type Calculator struct {
	cfg      PricingConfig
	products product.Reader
	shipping ShippingQuoter
	promos   promo.Validator
	balances BalanceReader
}

// NewCalculator creates a Calculator with the given dependencies.
func NewCalculator(
	cfg PricingConfig,
	products product.Reader,
	shipping ShippingQuoter,
	promos promo.Validator,
	balances BalanceReader,
) *Calculator {
	return &Calculator{
		cfg:      cfg,
		products: products,
		shipping: shipping,
		promos:   promos,
		balances: balances,
	}
}

// Quote prices the request against current data. Prices are always re-read
// from the catalog; a stale cart referencing a removed product fails with
// ErrProductsUnavailable.
func (c *Calculator) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if err := validateQuoteRequest(req); err != nil {
		return nil, err
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		ids[i] = item.ProductID
	}

	current, err := c.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	// Subtotal from current catalog prices, never from caller-supplied ones.
	subtotal := decimal.Zero
	lines := make([]Item, len(req.Items))
	for i, item := range req.Items {
		p, ok := current[item.ProductID]
		if !ok {
			return nil, ErrProductsUnavailable
		}
		qty := decimal.NewFromInt(int64(item.Quantity))
		subtotal = subtotal.Add(p.Price.Mul(qty))
		lines[i] = Item{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		}
	}

	shippingCost, err := c.shipping.QuoteCost(ctx, req.Destination)
	if err != nil {
		// shipping.ErrUnavailable included: an undeliverable destination
		// fails the whole quote.
		return nil, err
	}

	promoDiscount := decimal.Zero
	if req.PromoCode != "" {
		res, err := c.promos.Check(ctx, req.PromoCode, subtotal)
		if err != nil {
			return nil, err
		}
		promoDiscount = res.Discount
	}

	pointsDiscount := decimal.Zero
	if req.PointsToUse > 0 {
		balance, err := c.balances.GetBalance(ctx, req.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "get points balance")
		}
		if balance.AvailablePoints < req.PointsToUse {
			return nil, points.ErrInsufficientPoints
		}
		pointsDiscount = decimal.NewFromInt(int64(req.PointsToUse)).Mul(c.cfg.PointValue)
	}

	total := subtotal.Add(shippingCost).Add(req.Tip).
		Sub(promoDiscount).Sub(pointsDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &Quote{
		Subtotal:       subtotal.Round(2),
		ShippingCost:   shippingCost.Round(2),
		Tip:            req.Tip.Round(2),
		PromoDiscount:  promoDiscount.Round(2),
		PointsDiscount: pointsDiscount.Round(2),
		Total:          total.Round(2),
		PointsToEarn:   int(total.Mul(c.cfg.EarnRate).Floor().IntPart()),
		PromoCode:      req.PromoCode,
		PointsToUse:    req.PointsToUse,
		Lines:          lines,
	}, nil
}

func validateQuoteRequest(req QuoteRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return &InvalidQuantityError{ProductID: item.ProductID}
		}
	}
	if !req.Destination.Valid() {
		return ErrInvalidDestination
	}
	if req.Tip.IsNegative() {
		return ErrNegativeTip
	}
	if req.PointsToUse < 0 {
		return ErrNegativePoints
	}
	return nil
}
