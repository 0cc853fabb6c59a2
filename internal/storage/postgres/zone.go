package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cartloop/checkout/internal/domain/geo"
)

// Ordered by (radius_km, id) so zone resolution ties stay deterministic.
const activeZonesSQL = `SELECT id, name, center_lat, center_lng, radius_km, shipping_cost, active
	FROM shipping_zones WHERE active = TRUE ORDER BY radius_km, id`

var _ geo.Repository = (*ZoneRepository)(nil)

// ZoneRepository implements geo.Repository backed by PostgreSQL.
type ZoneRepository struct {
	pool *pgxpool.Pool
}

// NewZoneRepository returns a ZoneRepository that uses the given pool.
func NewZoneRepository(pool *pgxpool.Pool) *ZoneRepository {
	return &ZoneRepository{pool: pool}
}

// ActiveZones returns all active shipping zones.
func (r *ZoneRepository) ActiveZones(ctx context.Context) ([]geo.Zone, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, activeZonesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list active zones")
	}
	return pgx.CollectRows(rows, scanZone)
}

func scanZone(row pgx.CollectableRow) (geo.Zone, error) {
	var (
		z    geo.Zone
		cost decimal.Decimal
	)
	err := row.Scan(&z.ID, &z.Name, &z.Center.Lat, &z.Center.Lng, &z.RadiusKm, &cost, &z.Active)
	z.Cost = cost
	return z, err
}
