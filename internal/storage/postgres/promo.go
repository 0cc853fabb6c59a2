package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/cartloop/checkout/internal/domain/promo"
)

const (
	getPromoByCodeSQL = `SELECT id, code, description, kind, value, min_order_amount,
		starts_at, ends_at, usage_limit, used_count, active
		FROM promo_codes WHERE UPPER(code) = UPPER($1) AND active = TRUE`

	// Guarded increment: refuses to push used_count past usage_limit under
	// concurrent redemption (usage_limit = 0 means unlimited).
	incrementPromoUsesSQL = `UPDATE promo_codes SET used_count = used_count + 1
		WHERE UPPER(code) = UPPER($1) AND active = TRUE
		AND (usage_limit = 0 OR used_count < usage_limit)`

	createPromoStageSQL = `CREATE TEMP TABLE promo_codes_stage (code TEXT PRIMARY KEY) ON COMMIT DROP`

	// Bare ON CONFLICT DO NOTHING covers every unique constraint on the
	// table, including the expression index on UPPER(code). DISTINCT ON
	// collapses case variants within the batch to one row.
	insertStagedPromosSQL = `INSERT INTO promo_codes
		(id, code, description, kind, value, starts_at, ends_at, usage_limit)
		SELECT DISTINCT ON (UPPER(s.code)) LOWER(s.code), s.code, $1, $2, $3, $4, $5, 0
		FROM promo_codes_stage s
		ON CONFLICT DO NOTHING`
)

var _ promo.Repository = (*PromoRepository)(nil)

// PromoRepository implements promo.Repository backed by PostgreSQL.
type PromoRepository struct {
	pool *pgxpool.Pool
}

// NewPromoRepository returns a PromoRepository that uses the given pool.
func NewPromoRepository(pool *pgxpool.Pool) *PromoRepository {
	return &PromoRepository{pool: pool}
}

// FindByCode looks up an active promo code (case-insensitive). Returns
// promo.ErrNotFound when no matching active code exists.
func (r *PromoRepository) FindByCode(ctx context.Context, code string) (*promo.Rule, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, getPromoByCodeSQL, code)
	if err != nil {
		return nil, errors.Wrapf(err, "find promo code %q", code)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanPromoRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promo.ErrNotFound
		}
		return nil, errors.Wrapf(err, "find promo code %q", code)
	}
	return &rule, nil
}

// IncrementUses atomically increments the usage counter. Returns
// promo.ErrUsageLimitReached when the guarded update does not apply.
func (r *PromoRepository) IncrementUses(ctx context.Context, code string) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, incrementPromoUsesSQL, code)
	if err != nil {
		return errors.Wrapf(err, "increment uses for promo code %q", code)
	}
	if tag.RowsAffected() == 0 {
		return promo.ErrUsageLimitReached
	}
	return nil
}

// BulkCodeRule is the shared rule applied to every code of a bulk insert.
type BulkCodeRule struct {
	Description string
	Kind        promo.Kind
	Value       decimal.Decimal
	StartsAt    time.Time
	EndsAt      time.Time
}

// BulkInsertCodes stages codes with CopyFrom and folds them into promo_codes.
// The staging table is ON COMMIT DROP, so create, copy and insert must share
// one transaction. Codes colliding case-insensitively with existing rows are
// skipped rather than aborting the batch. Returns the number of rows inserted.
func (r *PromoRepository) BulkInsertCodes(ctx context.Context, codes []string, rule BulkCodeRule) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "acquire connection")
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "begin bulk insert")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, createPromoStageSQL); err != nil {
		return 0, errors.Wrap(err, "create staging table")
	}

	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"promo_codes_stage"},
		[]string{"code"},
		pgx.CopyFromSlice(len(codes), func(i int) ([]any, error) {
			return []any{codes[i]}, nil
		}),
	); err != nil {
		return 0, errors.Wrap(err, "copy codes to staging table")
	}

	tag, err := tx.Exec(ctx, insertStagedPromosSQL,
		rule.Description, string(rule.Kind), rule.Value, rule.StartsAt, rule.EndsAt,
	)
	if err != nil {
		return 0, errors.Wrap(err, "insert staged codes")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, errors.Wrap(err, "commit bulk insert")
	}

	return tag.RowsAffected(), nil
}

func scanPromoRule(row pgx.CollectableRow) (promo.Rule, error) {
	var (
		rule       promo.Rule
		kind       string
		value      decimal.Decimal
		minAmount  *decimal.Decimal
		startsAt   time.Time
		endsAt     time.Time
		usageLimit int32
		usedCount  int32
	)
	err := row.Scan(
		&rule.ID, &rule.Code, &rule.Description, &kind, &value, &minAmount,
		&startsAt, &endsAt, &usageLimit, &usedCount, &rule.Active,
	)
	rule.Kind = promo.Kind(kind)
	rule.Value = value
	rule.MinOrderAmount = minAmount
	rule.StartsAt = startsAt
	rule.EndsAt = endsAt
	rule.UsageLimit = int(usageLimit)
	rule.UsedCount = int(usedCount)
	return rule, err
}
