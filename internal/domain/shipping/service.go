package shipping

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/cartloop/checkout/internal/domain/geo"
)

// Service computes delivery availability, shipping costs, and delivery
// estimates for a single warehouse.
type Service struct {
	cfg       Config
	zones     geo.Repository
	now       func() time.Time
	fallbacks metric.Int64Counter
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithMeter registers the fallback counter on the given meter so the
// default-cost fallback path is observable.
func WithMeter(m metric.Meter) Option {
	return func(s *Service) {
		c, err := m.Int64Counter("shipping.fallback.count",
			metric.WithDescription("shipping cost computations that fell back to the default cost"),
		)
		if err == nil {
			s.fallbacks = c
		}
	}
}

// NewService creates a shipping Service with the given pricing configuration
// and zone repository.
func NewService(cfg Config, zones geo.Repository, opts ...Option) *Service {
	fallbacks, _ := noop.Meter{}.Int64Counter("shipping.fallback.count")
	s := &Service{
		cfg:       cfg,
		zones:     zones,
		now:       time.Now,
		fallbacks: fallbacks,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether delivery can reach the destination. It fails
// closed: anything beyond the configured maximum radius is not deliverable.
func (s *Service) Available(dest geo.Point) bool {
	d := geo.Distance(s.cfg.Warehouse, dest)
	return d <= s.cfg.MaxDeliveryRadiusKm
}

// QuoteCost returns the shipping cost for the destination, rounded
// half-away-from-zero to whole currency units.
//
// Zone flat rates win over distance-based pricing. When the zone lookup
// fails the service falls back to the configured default cost instead of
// propagating the fault: quoting stays available at the price of a possibly
// wrong figure. The fallback is logged and counted so it is never silent.
func (s *Service) QuoteCost(ctx context.Context, dest geo.Point) (decimal.Decimal, error) {
	if !s.Available(dest) {
		return decimal.Zero, ErrUnavailable
	}

	cost, _ := s.resolveCost(ctx, dest)
	return cost, nil
}

// resolveCost fetches active zones once and prices the destination from that
// single snapshot: the matched zone's flat rate, else distance-based pricing
// capped at MaxCost. The second return value is the matched zone's name, or
// empty when no zone contains the destination.
func (s *Service) resolveCost(ctx context.Context, dest geo.Point) (decimal.Decimal, string) {
	zones, err := s.zones.ActiveZones(ctx)
	if err != nil {
		zctx.From(ctx).Warn("Zone lookup failed, using default shipping cost",
			zap.Float64("lat", dest.Lat),
			zap.Float64("lng", dest.Lng),
			zap.Error(err),
		)
		s.fallbacks.Add(ctx, 1)
		return s.cfg.DefaultCost, ""
	}

	if zone := geo.ResolveZone(dest, zones); zone != nil {
		return zone.Cost.Round(0), zone.Name
	}

	distanceKm := geo.Distance(s.cfg.Warehouse, dest)
	cost := s.cfg.BaseCost.Add(decimal.NewFromFloat(distanceKm).Mul(s.cfg.CostPerKm))
	cost = decimal.Min(cost, s.cfg.MaxCost)

	return cost.Round(0), ""
}

// Estimate returns the full delivery estimate for the destination. An
// out-of-range destination yields Available=false with an explanatory
// message rather than an error.
func (s *Service) Estimate(ctx context.Context, dest geo.Point) (*Estimate, error) {
	distanceKm := geo.Distance(s.cfg.Warehouse, dest)

	if !s.Available(dest) {
		return &Estimate{
			Available:  false,
			DistanceKm: distanceKm,
			Message:    ErrUnavailable.Error(),
		}, nil
	}

	cost, zoneName := s.resolveCost(ctx, dest)
	days := deliveryDays(distanceKm)

	return &Estimate{
		Available:    true,
		Cost:         cost,
		DistanceKm:   distanceKm,
		DeliveryDays: days,
		DeliveryDate: deliveryDate(s.now().UTC(), days),
		ZoneName:     zoneName,
		Message:      availableMessage(days),
	}, nil
}
