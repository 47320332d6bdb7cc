package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/tragent/account-engine/internal/model"
)

// PositionValue is a position marked to a current price.
type PositionValue struct {
	model.Position
	Price         decimal.Decimal `json:"price"`
	CurrentValue  decimal.Decimal `json:"current_value"`  // quantity * price
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"` // (price - average cost) * quantity
	Priced        bool            `json:"priced"`         // false when no price was available
}

// Valuation aggregates marked positions with account totals.
type Valuation struct {
	Balance         decimal.Decimal `json:"balance"`
	SurvivalCredits decimal.Decimal `json:"survival_credits"`
	Positions       []PositionValue `json:"positions"`
	TotalInvested   decimal.Decimal `json:"total_invested"`
	MarketValue     decimal.Decimal `json:"market_value"`
	UnrealizedPnL   decimal.Decimal `json:"unrealized_pnl"`
	Equity          decimal.Decimal `json:"equity"` // balance + market value
}

// Value marks every position in s to prices (token id → unit price).
// Positions without a price are carried at average cost, so they add
// nothing to unrealized P&L. Positions are ordered by token id.
func Value(s *model.AccountState, prices map[string]decimal.Decimal) Valuation {
	v := Valuation{
		Balance:         s.Balance,
		SurvivalCredits: s.SurvivalCredits,
		Positions:       make([]PositionValue, 0, len(s.Positions)),
	}

	for _, p := range s.Positions {
		price, ok := prices[p.TokenID]
		if !ok || !price.IsPositive() {
			price, ok = p.AverageCost, false
		}
		value := p.Quantity.Mul(price)
		pnl := price.Sub(p.AverageCost).Mul(p.Quantity)

		v.Positions = append(v.Positions, PositionValue{
			Position:      p,
			Price:         price,
			CurrentValue:  value,
			UnrealizedPnL: pnl,
			Priced:        ok,
		})
		v.TotalInvested = v.TotalInvested.Add(p.Invested)
		v.MarketValue = v.MarketValue.Add(value)
		v.UnrealizedPnL = v.UnrealizedPnL.Add(pnl)
	}

	sort.Slice(v.Positions, func(i, j int) bool {
		return v.Positions[i].TokenID < v.Positions[j].TokenID
	})
	v.Equity = v.Balance.Add(v.MarketValue)
	return v
}
