// Package geo provides great-circle distance computation and shipping zone
// resolution for delivery destinations.
package geo

import (
	"context"
	"math"

	"github.com/shopspring/decimal"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// Point is a geographic coordinate in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Valid reports whether both coordinates are real numbers within the valid
// latitude/longitude ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Zone is a circular shipping zone with flat-rate pricing.
type Zone struct {
	ID       string
	Name     string
	Center   Point
	RadiusKm float64
	Cost     decimal.Decimal
	Active   bool
}

// Contains reports whether the given point lies within the zone's radius.
func (z Zone) Contains(p Point) bool {
	return Distance(z.Center, p) <= z.RadiusKm
}

// Repository provides read access to shipping zones.
type Repository interface {
	ActiveZones(ctx context.Context) ([]Zone, error)
}

// Distance returns the great-circle distance in kilometers between two
// points using the haversine formula. NaN coordinates propagate to the
// result.
func Distance(a, b Point) float64 {
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(a.Lat))*math.Cos(toRadians(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// ResolveZone returns the best-matching active zone for the given point, or
// nil when no active zone contains it. When multiple zones contain the
// point, the one with the smallest radius wins; equal radii are broken by
// the lowest zone ID so resolution stays deterministic regardless of input
// order.
func ResolveZone(p Point, zones []Zone) *Zone {
	var best *Zone
	for i := range zones {
		z := &zones[i]
		if !z.Active || !z.Contains(p) {
			continue
		}
		if best == nil || z.RadiusKm < best.RadiusKm ||
			(z.RadiusKm == best.RadiusKm && z.ID < best.ID) {
			best = z
		}
	}
	return best
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
