// Package limits implements exposure caps checked before a buy is applied.
//
// The ledger itself only refuses buys the balance cannot cover. A limiter
// adds two optional caps on top: how much may be invested in any single
// token, and how much across all held positions together.
package limits

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/tragent/account-engine/internal/model"
)

var (
	// ErrPerTokenLimitExceeded is returned when a buy would push the amount
	// invested in one token beyond the per-token maximum.
	ErrPerTokenLimitExceeded = errors.New("limits: per-token exposure limit exceeded")

	// ErrTotalLimitExceeded is returned when a buy would push the amount
	// invested across all positions beyond the total maximum.
	ErrTotalLimitExceeded = errors.New("limits: total exposure limit exceeded")
)

// ExposureLimiter enforces invested-amount caps. A zero (or negative) cap
// is disabled.
type ExposureLimiter struct {
	// MaxPerToken is the maximum invested amount in any single token.
	MaxPerToken decimal.Decimal

	// MaxTotal is the maximum invested amount summed over all positions.
	MaxTotal decimal.Decimal
}

// NewExposureLimiter creates a limiter with the given caps.
func NewExposureLimiter(maxPerToken, maxTotal decimal.Decimal) *ExposureLimiter {
	return &ExposureLimiter{
		MaxPerToken: maxPerToken,
		MaxTotal:    maxTotal,
	}
}

// Enabled reports whether any cap is active.
func (l *ExposureLimiter) Enabled() bool {
	return l != nil && (l.MaxPerToken.IsPositive() || l.MaxTotal.IsPositive())
}

// CheckBuy validates whether spending amount on tokenID respects the caps.
//
// Parameters:
//   - positions: current holdings, token ID → position
//   - tokenID: token being bought
//   - amount: currency about to be invested
//
// Returns nil if the buy is within limits, or an error describing the violation.
func (l *ExposureLimiter) CheckBuy(
	positions map[string]model.Position,
	tokenID string,
	amount decimal.Decimal,
) error {
	if !l.Enabled() {
		return nil
	}

	// 1. Per-token limit.
	newInToken := positions[tokenID].Invested.Add(amount)
	if l.MaxPerToken.IsPositive() && newInToken.GreaterThan(l.MaxPerToken) {
		return ErrPerTokenLimitExceeded
	}

	// 2. Total invested across all positions.
	if l.MaxTotal.IsPositive() {
		total := amount
		for _, p := range positions {
			total = total.Add(p.Invested)
		}
		if total.GreaterThan(l.MaxTotal) {
			return ErrTotalLimitExceeded
		}
	}

	return nil
}
