// Package shipping prices deliveries by destination: zone-based flat rates
// where a zone matches, distance-based rates otherwise, with a hard cutoff
// on the maximum delivery radius.
package shipping

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/cartloop/checkout/internal/domain/geo"
)

// ErrUnavailable is returned when the destination is outside the maximum
// delivery radius. It is a business outcome, not a system fault, and
// callers must treat it as such.
var ErrUnavailable = errors.New("delivery is not available to this location")

// Config holds warehouse location and pricing parameters. All costs are in
// whole currency units after rounding.
type Config struct {
	Warehouse           geo.Point
	MaxDeliveryRadiusKm float64
	BaseCost            decimal.Decimal
	CostPerKm           decimal.Decimal
	MaxCost             decimal.Decimal
	DefaultCost         decimal.Decimal
}

// Estimate is the full delivery estimate for a destination.
type Estimate struct {
	Available    bool
	Cost         decimal.Decimal
	DistanceKm   float64
	DeliveryDays int
	DeliveryDate time.Time
	ZoneName     string
	Message      string
}

// deliveryDays maps distance to an estimated number of business days.
func deliveryDays(distanceKm float64) int {
	switch {
	case distanceKm <= 10:
		return 1
	case distanceKm <= 25:
		return 2
	case distanceKm <= 50:
		return 3
	default:
		return 5
	}
}

// deliveryDate walks forward from now counting businessDays days that are
// not Friday or Saturday. The Friday/Saturday weekend matches the market
// this service operates in.
func deliveryDate(now time.Time, businessDays int) time.Time {
	date := now
	added := 0
	for added < businessDays {
		date = date.AddDate(0, 0, 1)
		if wd := date.Weekday(); wd != time.Friday && wd != time.Saturday {
			added++
		}
	}
	return date
}

func availableMessage(days int) string {
	return fmt.Sprintf("Delivery available in %d business days", days)
}
