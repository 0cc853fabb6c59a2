// Package points owns the loyalty points balance and its append-only
// transaction ledger. The ledger is the source of truth; the balance row is
// a cached projection maintained in the same transaction as every ledger
// append.
package points

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	// TypeEarned marks points credited to a user.
	TypeEarned TransactionType = "earned"
	// TypeUsed marks points spent by a user (negative point value).
	TypeUsed TransactionType = "used"
	// TypeExpired marks points removed by expiry.
	TypeExpired TransactionType = "expired"
)

var (
	// ErrNonPositivePoints is returned when a credit or debit is requested
	// for zero or negative points.
	ErrNonPositivePoints = errors.New("points must be greater than 0")
	// ErrInsufficientPoints is returned when a debit exceeds the available
	// balance. Debits are all-or-nothing.
	ErrInsufficientPoints = errors.New("insufficient points available")
)

// Balance is the cached per-user points projection. AvailablePoints never
// exceeds TotalPoints and never goes negative.
type Balance struct {
	UserID          string
	TotalPoints     int
	AvailablePoints int
	UpdatedAt       time.Time
}

// Transaction is an immutable ledger entry. Points are signed: positive for
// earned, negative for used or expired. OrderID is nil when the movement is
// not tied to an order, and survives order deletion as a nulled reference.
type Transaction struct {
	ID          string
	UserID      string
	Points      int
	Type        TransactionType
	Description string
	OrderID     *string
	CreatedAt   time.Time
}

// Repository persists balances and ledger entries.
//
// AddPoints increments both total and available. SpendPoints decrements
// available only and must be guarded: it returns ErrInsufficientPoints
// when the balance cannot cover the amount, without partial effect.
type Repository interface {
	GetOrCreateBalance(ctx context.Context, userID string) (*Balance, error)
	AddPoints(ctx context.Context, userID string, points int) error
	SpendPoints(ctx context.Context, userID string, points int) error
	AppendTransaction(ctx context.Context, tx *Transaction) error
	Transactions(ctx context.Context, userID string, limit int) ([]Transaction, error)
	LedgerTotals(ctx context.Context, userID string) (earned, available int, err error)
}

// TxRunner executes fn inside a storage transaction. Nested calls join the
// surrounding transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
