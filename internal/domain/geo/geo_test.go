package geo

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newZone(id, name string, center Point, radiusKm float64, active bool) Zone {
	return Zone{
		ID:       id,
		Name:     name,
		Center:   center,
		RadiusKm: radiusKm,
		Cost:     decimal.NewFromInt(5),
		Active:   active,
	}
}

func TestDistance_KnownPoints(t *testing.T) {
	// Cairo downtown to Giza pyramids, roughly 12km apart.
	cairo := Point{Lat: 30.0444, Lng: 31.2357}
	giza := Point{Lat: 29.9792, Lng: 31.1342}

	d := Distance(cairo, giza)
	assert.InDelta(t, 12.2, d, 1.0)
}

func TestDistance_SamePoint(t *testing.T) {
	p := Point{Lat: 30.0, Lng: 31.0}
	assert.Zero(t, Distance(p, p))
}

func TestDistance_Symmetric(t *testing.T) {
	a := Point{Lat: 30.0, Lng: 31.0}
	b := Point{Lat: 31.5, Lng: 29.8}
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)
}

func TestDistance_NaNPropagates(t *testing.T) {
	a := Point{Lat: math.NaN(), Lng: 31.0}
	b := Point{Lat: 30.0, Lng: 31.0}
	assert.True(t, math.IsNaN(Distance(a, b)))
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 30, Lng: 31}.Valid())
	assert.False(t, Point{Lat: math.NaN(), Lng: 31}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: -181}.Valid())
}

func TestResolveZone_SmallestRadiusWins(t *testing.T) {
	center := Point{Lat: 30.0, Lng: 31.0}
	zones := []Zone{
		newZone("z-outer", "Outer", center, 50, true),
		newZone("z-inner", "Inner", center, 5, true),
		newZone("z-mid", "Mid", center, 20, true),
	}

	got := ResolveZone(Point{Lat: 30.01, Lng: 31.01}, zones)
	require.NotNil(t, got)
	assert.Equal(t, "Inner", got.Name)
}

func TestResolveZone_SkipsInactive(t *testing.T) {
	center := Point{Lat: 30.0, Lng: 31.0}
	zones := []Zone{
		newZone("z-inner", "Inner", center, 5, false),
		newZone("z-outer", "Outer", center, 50, true),
	}

	got := ResolveZone(center, zones)
	require.NotNil(t, got)
	assert.Equal(t, "Outer", got.Name)
}

func TestResolveZone_NoMatch(t *testing.T) {
	zones := []Zone{
		newZone("z1", "Inner", Point{Lat: 30.0, Lng: 31.0}, 5, true),
	}

	// Roughly 550km away.
	got := ResolveZone(Point{Lat: 35.0, Lng: 31.0}, zones)
	assert.Nil(t, got)
}

func TestResolveZone_EqualRadiusTieBreaksOnID(t *testing.T) {
	center := Point{Lat: 30.0, Lng: 31.0}
	zones := []Zone{
		newZone("z-b", "B", center, 10, true),
		newZone("z-a", "A", center, 10, true),
	}

	got := ResolveZone(center, zones)
	require.NotNil(t, got)
	assert.Equal(t, "z-a", got.ID)
}
