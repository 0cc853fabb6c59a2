// Package promo holds promotional code rules and their validation and
// discount arithmetic.
package promo

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind enumerates the supported discount strategies.
type Kind string

const (
	// KindPercentage applies value% of the order amount.
	KindPercentage Kind = "percentage"
	// KindFixed applies a fixed monetary discount capped at the order amount.
	KindFixed Kind = "fixed"
)

var (
	// ErrNotFound is returned when a code does not exist or is inactive.
	ErrNotFound = errors.New("promo code not found")
	// ErrExpired is returned when the current time is outside the code's
	// validity window.
	ErrExpired = errors.New("promo code expired")
	// ErrMinOrderAmount is returned when the order amount is below the
	// code's minimum.
	ErrMinOrderAmount = errors.New("order amount below promo code minimum")
	// ErrUsageLimitReached is returned when the code has exhausted its
	// allowed uses.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
)

// Rule defines a promo code's discount behaviour and eligibility
// constraints. A zero UsageLimit means unlimited; a nil MinOrderAmount
// means no minimum.
type Rule struct {
	ID             string
	Code           string
	Description    string
	Kind           Kind
	Value          decimal.Decimal
	MinOrderAmount *decimal.Decimal
	StartsAt       time.Time
	EndsAt         time.Time
	UsageLimit     int
	UsedCount      int
	Active         bool
}

// Repository provides lookup and mutation of promo code rules.
//
// FindByCode is case-insensitive and only returns active codes.
// IncrementUses must refuse to push UsedCount past UsageLimit under
// concurrent redemption; implementations return ErrUsageLimitReached when
// the guarded increment does not apply.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Rule, error)
	IncrementUses(ctx context.Context, code string) error
}

// Validate checks the rule against the order amount at the given instant.
// The validity window is inclusive on both ends, matching how codes are
// communicated to customers ("valid through ...").
func Validate(rule *Rule, orderAmount decimal.Decimal, now time.Time) error {
	if rule == nil || !rule.Active {
		return ErrNotFound
	}
	if now.Before(rule.StartsAt) || now.After(rule.EndsAt) {
		return ErrExpired
	}
	if rule.MinOrderAmount != nil && orderAmount.LessThan(*rule.MinOrderAmount) {
		return ErrMinOrderAmount
	}
	if rule.UsageLimit > 0 && rule.UsedCount >= rule.UsageLimit {
		return ErrUsageLimitReached
	}
	return nil
}

// Discount computes the discount the rule yields for the order amount.
// An invalid rule yields zero. A fixed discount never exceeds the order
// amount.
func Discount(rule *Rule, orderAmount decimal.Decimal, now time.Time) decimal.Decimal {
	if err := Validate(rule, orderAmount, now); err != nil {
		return decimal.Zero
	}

	switch rule.Kind {
	case KindPercentage:
		return orderAmount.Mul(rule.Value).Div(decimal.NewFromInt(100))
	case KindFixed:
		return decimal.Min(rule.Value, orderAmount)
	default:
		return decimal.Zero
	}
}
