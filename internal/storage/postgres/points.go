package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cartloop/checkout/internal/domain/points"
)

const (
	// Get-or-create in one round trip: the no-op upsert makes the
	// following select always find a row.
	ensureBalanceSQL = `INSERT INTO user_points (user_id)
		VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	getBalanceSQL = `SELECT user_id, total_points, available_points, updated_at
		FROM user_points WHERE user_id = $1`

	addPointsSQL = `UPDATE user_points
		SET total_points = total_points + $2,
		    available_points = available_points + $2,
		    updated_at = now()
		WHERE user_id = $1`

	// Guarded spend: no partial debit, no negative balance.
	spendPointsSQL = `UPDATE user_points
		SET available_points = available_points - $2, updated_at = now()
		WHERE user_id = $1 AND available_points >= $2`

	appendTransactionSQL = `INSERT INTO point_transactions
		(id, user_id, points, type, description, order_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	listTransactionsSQL = `SELECT id, user_id, points, type, description, order_id, created_at
		FROM point_transactions WHERE user_id = $1
		ORDER BY created_at DESC LIMIT $2`

	ledgerTotalsSQL = `SELECT
		COALESCE(SUM(points) FILTER (WHERE points > 0), 0),
		COALESCE(SUM(points), 0)
		FROM point_transactions WHERE user_id = $1`
)

var _ points.Repository = (*PointsRepository)(nil)

// PointsRepository implements points.Repository backed by PostgreSQL.
type PointsRepository struct {
	pool *pgxpool.Pool
}

// NewPointsRepository returns a PointsRepository that uses the given pool.
func NewPointsRepository(pool *pgxpool.Pool) *PointsRepository {
	return &PointsRepository{pool: pool}
}

// GetOrCreateBalance returns the user's balance, inserting a zero record on
// first access.
func (r *PointsRepository) GetOrCreateBalance(ctx context.Context, userID string) (*points.Balance, error) {
	q := conn(ctx, r.pool)
	if _, err := q.Exec(ctx, ensureBalanceSQL, userID); err != nil {
		return nil, errors.Wrapf(err, "ensure balance for user %q", userID)
	}

	var b points.Balance
	err := q.QueryRow(ctx, getBalanceSQL, userID).Scan(
		&b.UserID, &b.TotalPoints, &b.AvailablePoints, &b.UpdatedAt,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "get balance for user %q", userID)
	}
	return &b, nil
}

// AddPoints increments both total and available points.
func (r *PointsRepository) AddPoints(ctx context.Context, userID string, pts int) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, addPointsSQL, userID, pts)
	if err != nil {
		return errors.Wrapf(err, "add points for user %q", userID)
	}
	if tag.RowsAffected() == 0 {
		return errors.Errorf("no balance row for user %q", userID)
	}
	return nil
}

// SpendPoints decrements available points. Returns
// points.ErrInsufficientPoints when the guarded update does not apply.
func (r *PointsRepository) SpendPoints(ctx context.Context, userID string, pts int) error {
	tag, err := conn(ctx, r.pool).Exec(ctx, spendPointsSQL, userID, pts)
	if err != nil {
		return errors.Wrapf(err, "spend points for user %q", userID)
	}
	if tag.RowsAffected() == 0 {
		return points.ErrInsufficientPoints
	}
	return nil
}

// AppendTransaction inserts an immutable ledger entry.
func (r *PointsRepository) AppendTransaction(ctx context.Context, tx *points.Transaction) error {
	_, err := conn(ctx, r.pool).Exec(ctx, appendTransactionSQL,
		tx.ID, tx.UserID, tx.Points, string(tx.Type), tx.Description, tx.OrderID,
	)
	if err != nil {
		return errors.Wrapf(err, "append transaction for user %q", tx.UserID)
	}
	return nil
}

// Transactions returns the user's most recent ledger entries, newest first.
func (r *PointsRepository) Transactions(ctx context.Context, userID string, limit int) ([]points.Transaction, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, listTransactionsSQL, userID, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "list transactions for user %q", userID)
	}
	return pgx.CollectRows(rows, scanTransaction)
}

// LedgerTotals sums the ledger for the user: earned is the sum of positive
// entries, available the sum of all entries.
func (r *PointsRepository) LedgerTotals(ctx context.Context, userID string) (earned, available int, err error) {
	var e, a int64
	err = conn(ctx, r.pool).QueryRow(ctx, ledgerTotalsSQL, userID).Scan(&e, &a)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "ledger totals for user %q", userID)
	}
	return int(e), int(a), nil
}

func scanTransaction(row pgx.CollectableRow) (points.Transaction, error) {
	var (
		tx  points.Transaction
		typ string
	)
	err := row.Scan(&tx.ID, &tx.UserID, &tx.Points, &typ, &tx.Description, &tx.OrderID, &tx.CreatedAt)
	tx.Type = points.TransactionType(typ)
	return tx, err
}
