package points

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRepo is an in-memory Repository with the same guarded-update semantics
// as the postgres implementation.
type memRepo struct {
	balances map[string]*Balance
	ledger   []Transaction
}

func newMemRepo() *memRepo {
	return &memRepo{balances: make(map[string]*Balance)}
}

func (m *memRepo) GetOrCreateBalance(_ context.Context, userID string) (*Balance, error) {
	if b, ok := m.balances[userID]; ok {
		cp := *b
		return &cp, nil
	}
	b := &Balance{UserID: userID, UpdatedAt: time.Now()}
	m.balances[userID] = b
	cp := *b
	return &cp, nil
}

func (m *memRepo) AddPoints(_ context.Context, userID string, pts int) error {
	b := m.balances[userID]
	b.TotalPoints += pts
	b.AvailablePoints += pts
	b.UpdatedAt = time.Now()
	return nil
}

func (m *memRepo) SpendPoints(_ context.Context, userID string, pts int) error {
	b := m.balances[userID]
	if b.AvailablePoints < pts {
		return ErrInsufficientPoints
	}
	b.AvailablePoints -= pts
	b.UpdatedAt = time.Now()
	return nil
}

func (m *memRepo) AppendTransaction(_ context.Context, tx *Transaction) error {
	tx.CreatedAt = time.Now()
	m.ledger = append(m.ledger, *tx)
	return nil
}

func (m *memRepo) Transactions(_ context.Context, userID string, limit int) ([]Transaction, error) {
	var out []Transaction
	for i := len(m.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		if m.ledger[i].UserID == userID {
			out = append(out, m.ledger[i])
		}
	}
	return out, nil
}

func (m *memRepo) LedgerTotals(_ context.Context, userID string) (earned, available int, err error) {
	for _, tx := range m.ledger {
		if tx.UserID != userID {
			continue
		}
		if tx.Points > 0 {
			earned += tx.Points
		}
		available += tx.Points
	}
	return earned, available, nil
}

// passTx runs fn directly; the repo applies mutations immediately.
type passTx struct{}

func (passTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newLedger() (*Ledger, *memRepo) {
	repo := newMemRepo()
	return NewLedger(repo, passTx{}), repo
}

func TestGetBalance_CreatesZeroRecord(t *testing.T) {
	l, _ := newLedger()

	b, err := l.GetBalance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", b.UserID)
	assert.Zero(t, b.TotalPoints)
	assert.Zero(t, b.AvailablePoints)

	// Idempotent.
	b2, err := l.GetBalance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, b.UserID, b2.UserID)
}

func TestCredit(t *testing.T) {
	l, repo := newLedger()

	require.NoError(t, l.Credit(context.Background(), "u1", 100, "welcome bonus", nil))

	b, err := l.GetBalance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, b.TotalPoints)
	assert.Equal(t, 100, b.AvailablePoints)

	require.Len(t, repo.ledger, 1)
	assert.Equal(t, TypeEarned, repo.ledger[0].Type)
	assert.Equal(t, 100, repo.ledger[0].Points)
}

func TestCredit_NonPositive(t *testing.T) {
	l, repo := newLedger()

	require.ErrorIs(t, l.Credit(context.Background(), "u1", 0, "x", nil), ErrNonPositivePoints)
	require.ErrorIs(t, l.Credit(context.Background(), "u1", -5, "x", nil), ErrNonPositivePoints)
	assert.Empty(t, repo.ledger)
}

func TestDebit(t *testing.T) {
	l, repo := newLedger()
	require.NoError(t, l.Credit(context.Background(), "u1", 100, "bonus", nil))

	orderID := "ord-1"
	require.NoError(t, l.Debit(context.Background(), "u1", 50, &orderID))

	b, err := l.GetBalance(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 100, b.TotalPoints)
	assert.Equal(t, 50, b.AvailablePoints)

	require.Len(t, repo.ledger, 2)
	used := repo.ledger[1]
	assert.Equal(t, TypeUsed, used.Type)
	assert.Equal(t, -50, used.Points)
	require.NotNil(t, used.OrderID)
	assert.Equal(t, "ord-1", *used.OrderID)
}

func TestDebit_InsufficientIsAllOrNothing(t *testing.T) {
	l, repo := newLedger()
	require.NoError(t, l.Credit(context.Background(), "u1", 50, "bonus", nil))

	err := l.Debit(context.Background(), "u1", 100, nil)
	require.ErrorIs(t, err, ErrInsufficientPoints)

	b, berr := l.GetBalance(context.Background(), "u1")
	require.NoError(t, berr)
	assert.Equal(t, 50, b.AvailablePoints)
	require.Len(t, repo.ledger, 1)
}

func TestDebit_NonPositive(t *testing.T) {
	l, _ := newLedger()
	require.ErrorIs(t, l.Debit(context.Background(), "u1", 0, nil), ErrNonPositivePoints)
}

func TestHistory(t *testing.T) {
	l, _ := newLedger()
	require.NoError(t, l.Credit(context.Background(), "u1", 100, "bonus", nil))
	require.NoError(t, l.Debit(context.Background(), "u1", 30, nil))

	txs, err := l.History(context.Background(), "u1", 10)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, TypeUsed, txs[0].Type)
	assert.Equal(t, TypeEarned, txs[1].Type)
}

func TestReconcileBalance(t *testing.T) {
	l, repo := newLedger()
	require.NoError(t, l.Credit(context.Background(), "u1", 100, "bonus", nil))
	require.NoError(t, l.Debit(context.Background(), "u1", 30, nil))

	rec, err := l.ReconcileBalance(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, rec.Consistent())
	assert.Equal(t, 100, rec.LedgerEarned)
	assert.Equal(t, 70, rec.LedgerAvailable)

	// Introduce drift directly in the projection.
	repo.balances["u1"].AvailablePoints = 60
	rec, err = l.ReconcileBalance(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, rec.Consistent())
}
