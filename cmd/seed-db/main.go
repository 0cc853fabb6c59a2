// Command seed-db loads the catalog fixture (products, shipping zones, and
// promo codes) into the database, running migrations first.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cartloop/checkout/internal/storage/postgres"
)

type catalogJSON struct {
	Products []productJSON `json:"products"`
	Zones    []zoneJSON    `json:"zones"`
	Promos   []promoJSON   `json:"promo_codes"`
}

type productJSON struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type zoneJSON struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	CenterLat    float64         `json:"center_lat"`
	CenterLng    float64         `json:"center_lng"`
	RadiusKm     float64         `json:"radius_km"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
}

type promoJSON struct {
	ID             string           `json:"id"`
	Code           string           `json:"code"`
	Description    string           `json:"description"`
	Kind           string           `json:"kind"`
	Value          decimal.Decimal  `json:"value"`
	MinOrderAmount *decimal.Decimal `json:"min_order_amount,omitempty"`
	StartsAt       time.Time        `json:"starts_at"`
	EndsAt         time.Time        `json:"ends_at"`
	UsageLimit     int              `json:"usage_limit"`
}

const (
	upsertProductSQL = `INSERT INTO products (id, name, price, stock)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = $2, price = $3, stock = $4`

	upsertZoneSQL = `INSERT INTO shipping_zones (id, name, center_lat, center_lng, radius_km, shipping_cost)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = $2, center_lat = $3, center_lng = $4, radius_km = $5, shipping_cost = $6`

	upsertPromoSQL = `INSERT INTO promo_codes
		(id, code, description, kind, value, min_order_amount, starts_at, ends_at, usage_limit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			code = $2, description = $3, kind = $4, value = $5,
			min_order_amount = $6, starts_at = $7, ends_at = $8, usage_limit = $9`
)

func main() {
	var (
		databaseURL string
		catalogFile string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "db/seed/catalog.json", "path to catalog JSON fixture")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile string) error {
	slog.Info("reading catalog fixture", slog.String("path", catalogFile))

	data, err := os.ReadFile(catalogFile)
	if err != nil {
		return errors.Wrap(err, "read catalog file")
	}

	var catalog catalogJSON
	if err := json.Unmarshal(data, &catalog); err != nil {
		return errors.Wrap(err, "parse catalog JSON")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, catalog.Products); err != nil {
		return errors.Wrap(err, "seed products")
	}
	if err := seedZones(ctx, pool, catalog.Zones); err != nil {
		return errors.Wrap(err, "seed zones")
	}
	if err := seedPromos(ctx, pool, catalog.Promos); err != nil {
		return errors.Wrap(err, "seed promo codes")
	}

	return nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, products []productJSON) error {
	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.Price, p.Stock); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}
	return nil
}

func seedZones(ctx context.Context, pool *pgxpool.Pool, zones []zoneJSON) error {
	slog.Info("upserting shipping zones", slog.Int("count", len(zones)))

	for _, z := range zones {
		if _, err := pool.Exec(ctx, upsertZoneSQL,
			z.ID, z.Name, z.CenterLat, z.CenterLng, z.RadiusKm, z.ShippingCost,
		); err != nil {
			return errors.Wrapf(err, "upsert zone %s", z.ID)
		}
		slog.Info("upserted zone", slog.String("id", z.ID), slog.String("name", z.Name))
	}
	return nil
}

func seedPromos(ctx context.Context, pool *pgxpool.Pool, promos []promoJSON) error {
	slog.Info("upserting promo codes", slog.Int("count", len(promos)))

	for _, p := range promos {
		if _, err := pool.Exec(ctx, upsertPromoSQL,
			p.ID, p.Code, p.Description, p.Kind, p.Value, p.MinOrderAmount,
			p.StartsAt, p.EndsAt, p.UsageLimit,
		); err != nil {
			return errors.Wrapf(err, "upsert promo code %s", p.Code)
		}
		slog.Info("upserted promo code", slog.String("code", p.Code))
	}
	return nil
}
