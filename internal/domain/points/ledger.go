package points

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Ledger exposes atomic credit and debit operations over the points
// balance and transaction log.
type Ledger struct {
	repo Repository
	tx   TxRunner
}

// NewLedger creates a Ledger over the given repository and transaction
// runner.
func NewLedger(repo Repository, tx TxRunner) *Ledger {
	return &Ledger{repo: repo, tx: tx}
}

// GetBalance returns the user's balance, creating a zero record on first
// access. Get-or-create keeps provisioning out of the callers' way.
func (l *Ledger) GetBalance(ctx context.Context, userID string) (*Balance, error) {
	b, err := l.repo.GetOrCreateBalance(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get balance")
	}
	return b, nil
}

// Credit adds points to the user's balance and appends an "earned" ledger
// entry as one atomic unit.
func (l *Ledger) Credit(ctx context.Context, userID string, pts int, description string, orderID *string) error {
	if pts <= 0 {
		return ErrNonPositivePoints
	}

	err := l.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := l.repo.GetOrCreateBalance(ctx, userID); err != nil {
			return errors.Wrap(err, "ensure balance")
		}
		if err := l.repo.AddPoints(ctx, userID, pts); err != nil {
			return errors.Wrap(err, "add points")
		}
		return l.repo.AppendTransaction(ctx, &Transaction{
			ID:          uuid.New().String(),
			UserID:      userID,
			Points:      pts,
			Type:        TypeEarned,
			Description: description,
			OrderID:     orderID,
		})
	})
	if err != nil {
		return err
	}

	zctx.From(ctx).Info("Points credited",
		zap.String("user_id", userID),
		zap.Int("points", pts),
	)
	return nil
}

// Debit spends points from the user's available balance and appends a
// "used" ledger entry with a negative point value, as one atomic unit.
// Debits never partially apply: on ErrInsufficientPoints the balance is
// untouched.
func (l *Ledger) Debit(ctx context.Context, userID string, pts int, orderID *string) error {
	if pts <= 0 {
		return ErrNonPositivePoints
	}

	description := "Points redeemed"
	if orderID != nil {
		description = fmt.Sprintf("Used for order %s", *orderID)
	}

	err := l.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := l.repo.GetOrCreateBalance(ctx, userID); err != nil {
			return errors.Wrap(err, "ensure balance")
		}
		if err := l.repo.SpendPoints(ctx, userID, pts); err != nil {
			return err
		}
		return l.repo.AppendTransaction(ctx, &Transaction{
			ID:          uuid.New().String(),
			UserID:      userID,
			Points:      -pts,
			Type:        TypeUsed,
			Description: description,
			OrderID:     orderID,
		})
	})
	if err != nil {
		return err
	}

	zctx.From(ctx).Info("Points debited",
		zap.String("user_id", userID),
		zap.Int("points", pts),
	)
	return nil
}

// History returns the user's most recent ledger entries, newest first.
func (l *Ledger) History(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	txs, err := l.repo.Transactions(ctx, userID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list transactions")
	}
	return txs, nil
}

// Reconciliation compares the cached balance against the ledger sums.
type Reconciliation struct {
	UserID          string
	StoredTotal     int
	StoredAvailable int
	LedgerEarned    int
	LedgerAvailable int
}

// Consistent reports whether the cached projection matches the ledger.
func (r Reconciliation) Consistent() bool {
	return r.StoredTotal == r.LedgerEarned && r.StoredAvailable == r.LedgerAvailable
}

// ReconcileBalance recomputes the balance from the ledger and reports any
// drift against the cached projection. Maintenance operation, not a hot
// path.
func (l *Ledger) ReconcileBalance(ctx context.Context, userID string) (*Reconciliation, error) {
	b, err := l.repo.GetOrCreateBalance(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "get balance")
	}

	earned, available, err := l.repo.LedgerTotals(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "ledger totals")
	}

	rec := &Reconciliation{
		UserID:          userID,
		StoredTotal:     b.TotalPoints,
		StoredAvailable: b.AvailablePoints,
		LedgerEarned:    earned,
		LedgerAvailable: available,
	}
	if !rec.Consistent() {
		zctx.From(ctx).Warn("Points balance drifted from ledger",
			zap.String("user_id", userID),
			zap.Int("stored_total", rec.StoredTotal),
			zap.Int("ledger_earned", rec.LedgerEarned),
			zap.Int("stored_available", rec.StoredAvailable),
			zap.Int("ledger_available", rec.LedgerAvailable),
		)
	}
	return rec, nil
}
