package order

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cartloop/checkout/internal/domain/geo"
	"github.com/cartloop/checkout/internal/domain/points"
	"github.com/cartloop/checkout/internal/domain/promo"
	"github.com/cartloop/checkout/internal/domain/shipping"
)

func innerZone() []geo.Zone {
	return []geo.Zone{{
		ID:       "z1",
		Name:     "Inner",
		Center:   testWarehouse,
		RadiusKm: 5,
		Cost:     decimal.NewFromInt(5),
		Active:   true,
	}}
}

func basicRequest() QuoteRequest {
	return QuoteRequest{
		UserID:      "u1",
		Items:       []LineItem{{ProductID: "p1", Quantity: 2}},
		Destination: testDest,
	}
}

func TestQuote_Subtotal(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "10.00", 10)
	store.addProduct("p2", "Gadget", "20.00", 10)
	svc := newTestService(store, innerZone())

	q, err := svc.Quote(context.Background(), QuoteRequest{
		UserID: "u1",
		Items: []LineItem{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 1},
		},
		Destination: testDest,
	})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(40).Equal(q.Subtotal), "subtotal %s", q.Subtotal)
	assert.True(t, decimal.NewFromInt(5).Equal(q.ShippingCost), "shipping %s", q.ShippingCost)
	// total = 40 + 5 zone shipping.
	assert.True(t, decimal.NewFromInt(45).Equal(q.Total), "total %s", q.Total)
	assert.Equal(t, 45, q.PointsToEarn)
}

func TestQuote_EmptyItems(t *testing.T) {
	svc := newTestService(newFakeStore(), nil)

	_, err := svc.Quote(context.Background(), QuoteRequest{UserID: "u1", Destination: testDest})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestQuote_InvalidQuantity(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "10.00", 10)
	svc := newTestService(store, nil)

	req := basicRequest()
	req.Items[0].Quantity = 0
	_, err := svc.Quote(context.Background(), req)

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestQuote_InvalidDestination(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "10.00", 10)
	svc := newTestService(store, nil)

	req := basicRequest()
	req.Destination = geo.Point{Lat: 95, Lng: 31}
	_, err := svc.Quote(context.Background(), req)
	require.ErrorIs(t, err, ErrInvalidDestination)
}

func TestQuote_StaleCart(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "10.00", 10)
	svc := newTestService(store, nil)

	req := basicRequest()
	req.Items = append(req.Items, LineItem{ProductID: "gone", Quantity: 1})
	_, err := svc.Quote(context.Background(), req)
	require.ErrorIs(t, err, ErrProductsUnavailable)
}

func TestQuote_DeliveryUnavailable(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "10.00", 10)
	svc := newTestService(store, nil)

	req := basicRequest()
	// Roughly 550km away, far outside the 50km radius.
	req.Destination = geo.Point{Lat: 35.0, Lng: 31.0}
	_, err := svc.Quote(context.Background(), req)
	require.ErrorIs(t, err, shipping.ErrUnavailable)
}

func TestQuote_DistanceBasedShipping(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "10.00", 10)
	svc := newTestService(store, nil) // no zones

	req := basicRequest()
	// Roughly 40km north: base 5 + 40*0.5 = 25.
	req.Destination = geo.Point{Lat: testWarehouse.Lat + 40/111.19, Lng: testWarehouse.Lng}
	q, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(25).Equal(q.ShippingCost), "shipping %s", q.ShippingCost)
}

func TestQuote_PromoPercentage(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "50.00", 10)
	store.addPromo("SAVE10", promo.KindPercentage, "10", 0)
	svc := newTestService(store, innerZone())

	req := basicRequest() // 2 x 50 = 100 subtotal
	req.PromoCode = "SAVE10"
	q, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(10).Equal(q.PromoDiscount), "discount %s", q.PromoDiscount)
	// 100 + 5 - 10 = 95.
	assert.True(t, decimal.NewFromInt(95).Equal(q.Total), "total %s", q.Total)
}

func TestQuote_InvalidPromoFailsQuote(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "50.00", 10)
	svc := newTestService(store, innerZone())

	req := basicRequest()
	req.PromoCode = "BOGUS"
	_, err := svc.Quote(context.Background(), req)
	require.ErrorIs(t, err, promo.ErrNotFound)
}

func TestQuote_ExpiredPromoFailsQuote(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "50.00", 10)
	rule := store.addPromo("SAVE10", promo.KindPercentage, "10", 0)
	rule.EndsAt = testNow.AddDate(0, 0, -1)
	svc := newTestService(store, innerZone())

	req := basicRequest()
	req.PromoCode = "SAVE10"
	_, err := svc.Quote(context.Background(), req)
	require.ErrorIs(t, err, promo.ErrExpired)
}

func TestQuote_PointsDiscount(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "50.00", 10)
	store.available["u1"] = 100
	svc := newTestService(store, innerZone())

	req := basicRequest()
	req.PointsToUse = 50
	q, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(50).Equal(q.PointsDiscount))
	// 100 + 5 - 50 = 55.
	assert.True(t, decimal.NewFromInt(55).Equal(q.Total), "total %s", q.Total)
}

func TestQuote_InsufficientPoints(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "50.00", 10)
	store.available["u1"] = 50
	svc := newTestService(store, innerZone())

	req := basicRequest()
	req.PointsToUse = 100
	_, err := svc.Quote(context.Background(), req)
	require.ErrorIs(t, err, points.ErrInsufficientPoints)
}

func TestQuote_TotalNeverNegative(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "5.00", 10)
	store.addPromo("BIG", promo.KindFixed, "500", 0)
	store.available["u1"] = 1000
	svc := newTestService(store, innerZone())

	req := basicRequest() // subtotal 10
	req.PromoCode = "BIG"
	req.PointsToUse = 100
	q, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, q.Total.IsZero(), "total %s", q.Total)
	assert.Zero(t, q.PointsToEarn)
}

func TestQuote_TipIncluded(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "10.00", 10)
	svc := newTestService(store, innerZone())

	req := basicRequest()
	req.Tip = decimal.NewFromInt(3)
	q, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)

	// 20 + 5 + 3 = 28.
	assert.True(t, decimal.NewFromInt(28).Equal(q.Total), "total %s", q.Total)
}

func TestQuote_NegativeTip(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "10.00", 10)
	svc := newTestService(store, innerZone())

	req := basicRequest()
	req.Tip = decimal.NewFromInt(-1)
	_, err := svc.Quote(context.Background(), req)
	require.ErrorIs(t, err, ErrNegativeTip)
}

func TestQuote_Idempotent(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "10.00", 10)
	store.addPromo("SAVE10", promo.KindPercentage, "10", 5)
	store.available["u1"] = 100
	svc := newTestService(store, innerZone())

	req := basicRequest()
	req.PromoCode = "SAVE10"
	req.PointsToUse = 10

	q1, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	q2, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)

	assert.True(t, q1.Total.Equal(q2.Total))
	assert.True(t, q1.PromoDiscount.Equal(q2.PromoDiscount))

	// Quoting twice left every counter untouched.
	assert.Equal(t, 0, store.promos["SAVE10"].UsedCount)
	assert.Equal(t, 100, store.available["u1"])
	assert.Equal(t, 10, store.products["p1"].Stock)
	assert.Empty(t, store.orders)
}

func TestQuote_PointsEarnedFloor(t *testing.T) {
	store := newFakeStore()
	store.addProduct("p1", "Widget", "10.40", 10)
	svc := newTestService(store, innerZone())

	req := basicRequest() // 2 x 10.40 = 20.80 + 5 shipping = 25.80
	q, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 25, q.PointsToEarn)
}
