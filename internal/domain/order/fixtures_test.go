package order

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cartloop/checkout/internal/domain/geo"
	"github.com/cartloop/checkout/internal/domain/points"
	"github.com/cartloop/checkout/internal/domain/product"
	"github.com/cartloop/checkout/internal/domain/promo"
	"github.com/cartloop/checkout/internal/domain/shipping"
)

var (
	testNow       = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	testWarehouse = geo.Point{Lat: 30.0, Lng: 31.0}
	// Roughly 3km north of the warehouse.
	testDest = geo.Point{Lat: 30.027, Lng: 31.0}
)

// storeState is everything a fakeStore can roll back.
type storeState struct {
	products  map[string]product.Product
	promos    map[string]*promo.Rule
	available map[string]int
	total     map[string]int
	ledger    []points.Transaction
	orders    []Order
}

func (s storeState) clone() storeState {
	cp := storeState{
		products:  make(map[string]product.Product, len(s.products)),
		promos:    make(map[string]*promo.Rule, len(s.promos)),
		available: make(map[string]int, len(s.available)),
		total:     make(map[string]int, len(s.total)),
		ledger:    append([]points.Transaction(nil), s.ledger...),
		orders:    append([]Order(nil), s.orders...),
	}
	for k, v := range s.products {
		cp.products[k] = v
	}
	for k, v := range s.promos {
		r := *v
		cp.promos[k] = &r
	}
	for k, v := range s.available {
		cp.available[k] = v
	}
	for k, v := range s.total {
		cp.total[k] = v
	}
	return cp
}

// fakeStore implements every repository the orchestrator touches, with
// snapshot-based transactions: InTx clones the state and restores it when
// fn fails, mimicking a database rollback.
type fakeStore struct {
	mu sync.Mutex
	storeState

	failLedgerCredit bool
	failOrderCreate  bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{storeState: storeState{
		products:  make(map[string]product.Product),
		promos:    make(map[string]*promo.Rule),
		available: make(map[string]int),
		total:     make(map[string]int),
	}}
}

// --- TxRunner ---

func (f *fakeStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snapshot := f.storeState.clone()
	if err := fn(ctx); err != nil {
		f.storeState = snapshot
		return err
	}
	return nil
}

// --- product.Repository ---

func (f *fakeStore) GetByIDs(_ context.Context, ids []string) (map[string]product.Product, error) {
	out := make(map[string]product.Product, len(ids))
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (f *fakeStore) DecrementStock(_ context.Context, productID string, qty int) error {
	p, ok := f.products[productID]
	if !ok {
		return product.ErrNotFound
	}
	if p.Stock < qty {
		return product.ErrInsufficientStock
	}
	p.Stock -= qty
	f.products[productID] = p
	return nil
}

// --- promo.Repository ---

func (f *fakeStore) FindByCode(_ context.Context, code string) (*promo.Rule, error) {
	for _, r := range f.promos {
		if strings.EqualFold(r.Code, code) && r.Active {
			cp := *r
			return &cp, nil
		}
	}
	return nil, promo.ErrNotFound
}

func (f *fakeStore) IncrementUses(_ context.Context, code string) error {
	for _, r := range f.promos {
		if strings.EqualFold(r.Code, code) {
			if r.UsageLimit > 0 && r.UsedCount >= r.UsageLimit {
				return promo.ErrUsageLimitReached
			}
			r.UsedCount++
			return nil
		}
	}
	return promo.ErrNotFound
}

// --- PointsLedger + BalanceReader ---

func (f *fakeStore) GetBalance(_ context.Context, userID string) (*points.Balance, error) {
	return &points.Balance{
		UserID:          userID,
		TotalPoints:     f.total[userID],
		AvailablePoints: f.available[userID],
		UpdatedAt:       testNow,
	}, nil
}

func (f *fakeStore) Debit(_ context.Context, userID string, pts int, orderID *string) error {
	if pts <= 0 {
		return points.ErrNonPositivePoints
	}
	if f.available[userID] < pts {
		return points.ErrInsufficientPoints
	}
	f.available[userID] -= pts
	f.ledger = append(f.ledger, points.Transaction{
		UserID: userID, Points: -pts, Type: points.TypeUsed, OrderID: orderID,
	})
	return nil
}

func (f *fakeStore) Credit(_ context.Context, userID string, pts int, description string, orderID *string) error {
	if f.failLedgerCredit {
		return assertFail
	}
	if pts <= 0 {
		return points.ErrNonPositivePoints
	}
	f.available[userID] += pts
	f.total[userID] += pts
	f.ledger = append(f.ledger, points.Transaction{
		UserID: userID, Points: pts, Type: points.TypeEarned,
		Description: description, OrderID: orderID,
	})
	return nil
}

// --- order.Repository ---

func (f *fakeStore) Create(_ context.Context, o *Order) error {
	if f.failOrderCreate {
		return assertFail
	}
	f.orders = append(f.orders, *o)
	return nil
}

func (f *fakeStore) GetByID(_ context.Context, orderID, userID string) (*Order, error) {
	for i := range f.orders {
		if f.orders[i].ID == orderID && f.orders[i].UserID == userID {
			cp := f.orders[i]
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (f *fakeStore) ListByUser(_ context.Context, userID string) ([]Order, error) {
	var out []Order
	for i := len(f.orders) - 1; i >= 0; i-- {
		if f.orders[i].UserID == userID {
			out = append(out, f.orders[i])
		}
	}
	return out, nil
}

func (f *fakeStore) SetStatus(_ context.Context, orderID string, status Status) error {
	for i := range f.orders {
		if f.orders[i].ID == orderID {
			f.orders[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

// --- zone repo for the shipping service ---

type fakeZoneRepo struct {
	zones []geo.Zone
}

func (f *fakeZoneRepo) ActiveZones(_ context.Context) ([]geo.Zone, error) {
	return f.zones, nil
}

// --- assembly helpers ---

var assertFail = injectedError{}

type injectedError struct{}

func (injectedError) Error() string { return "injected failure" }

func testPricingConfig() PricingConfig {
	return PricingConfig{
		PointValue: decimal.NewFromInt(1),
		EarnRate:   decimal.NewFromInt(1),
	}
}

func testShippingConfig() shipping.Config {
	return shipping.Config{
		Warehouse:           testWarehouse,
		MaxDeliveryRadiusKm: 50,
		BaseCost:            decimal.NewFromInt(5),
		CostPerKm:           decimal.RequireFromString("0.5"),
		MaxCost:             decimal.NewFromInt(50),
		DefaultCost:         decimal.NewFromInt(10),
	}
}

func newTestService(store *fakeStore, zones []geo.Zone) *Service {
	ship := shipping.NewService(testShippingConfig(), &fakeZoneRepo{zones: zones},
		shipping.WithClock(func() time.Time { return testNow }))
	validator := promo.NewRepoValidator(store).WithClock(func() time.Time { return testNow })
	calc := NewCalculator(testPricingConfig(), store, ship, validator, store)

	svc := NewService(calc, store, store, store, store, store)
	svc.now = func() time.Time { return testNow }
	return svc
}

func (f *fakeStore) addProduct(id, name string, price string, stock int) {
	f.products[id] = product.Product{
		ID:    id,
		Name:  name,
		Price: decimal.RequireFromString(price),
		Stock: stock,
	}
}

func (f *fakeStore) addPromo(code string, kind promo.Kind, value string, limit int) *promo.Rule {
	r := &promo.Rule{
		ID:         "promo-" + code,
		Code:       code,
		Kind:       kind,
		Value:      decimal.RequireFromString(value),
		StartsAt:   testNow.AddDate(0, -1, 0),
		EndsAt:     testNow.AddDate(0, 1, 0),
		UsageLimit: limit,
		Active:     true,
	}
	f.promos[code] = r
	return r
}
