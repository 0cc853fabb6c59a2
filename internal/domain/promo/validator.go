package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Result is the outcome of a successful promo check.
type Result struct {
	Rule     *Rule
	Discount decimal.Decimal
}

// Validator checks promo codes against an order amount. Checking is
// read-only; usage counters are only incremented when an order commits.
type Validator interface {
	Check(ctx context.Context, code string, orderAmount decimal.Decimal) (*Result, error)
}

// RepoValidator implements Validator by looking up rules from a Repository.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// WithClock overrides the validator's time source, for tests.
func (v *RepoValidator) WithClock(now func() time.Time) *RepoValidator {
	v.now = now
	return v
}

// Check looks up the code, validates it against the order amount, and
// returns the computed discount. All validation failures surface as the
// package's sentinel errors so callers can name the outcome.
func (v *RepoValidator) Check(ctx context.Context, code string, orderAmount decimal.Decimal) (*Result, error) {
	rule, err := v.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup promo code")
	}

	now := v.now().UTC()
	if err := Validate(rule, orderAmount, now); err != nil {
		return nil, err
	}

	return &Result{
		Rule:     rule,
		Discount: Discount(rule, orderAmount, now),
	}, nil
}
