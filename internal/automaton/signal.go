package automaton

import (
	"math"
	"time"

	"github.com/tragent/account-engine/internal/catalog"
)

// SignalKind is the composite market rating of a token.
type SignalKind string

const (
	SignalStrongBuy  SignalKind = "strong_buy"
	SignalBuy        SignalKind = "buy"
	SignalHold       SignalKind = "hold"
	SignalSell       SignalKind = "sell"
	SignalStrongSell SignalKind = "strong_sell"
)

// Indicators are the normalized inputs of a signal, each 0-1.
type Indicators struct {
	PriceMomentum  float64 `json:"price_momentum"`
	VolumeTrend    float64 `json:"volume_trend"`
	LiquidityDepth float64 `json:"liquidity_depth"`
	HolderGrowth   float64 `json:"holder_growth"`
	SurvivalTier   string  `json:"survival_tier"`
}

// MarketSignal is a scored buy/sell rating for a token.
type MarketSignal struct {
	TokenID    string     `json:"tokenId"`
	Signal     SignalKind `json:"signal"`
	Strength   float64    `json:"strength"`
	Indicators Indicators `json:"indicators"`
	Timestamp  time.Time  `json:"timestamp"`
}

const (
	weightMomentum  = 0.30
	weightVolume    = 0.20
	weightLiquidity = 0.20
	weightHolders   = 0.15
	weightSurvival  = 0.15
)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func survivalScore(status string) float64 {
	switch status {
	case catalog.StatusThriving:
		return 1
	case catalog.StatusStable:
		return 0.7
	case catalog.StatusAtRisk:
		return 0.3
	default:
		return 0
	}
}

// ComputeSignal scores a token on momentum, volume, liquidity, holder
// count and survival tier. A 24h change of -20% or worse scores zero
// momentum, +20% or better scores full momentum.
func ComputeSignal(t catalog.Token, at time.Time) MarketSignal {
	ind := Indicators{
		PriceMomentum:  clamp01((t.Change24h + 20) / 40),
		VolumeTrend:    math.Min(1, t.Volume24h.InexactFloat64()/500000),
		LiquidityDepth: float64(t.LiquidityDepth) / 100,
		HolderGrowth:   math.Min(1, float64(t.Holders)/10000),
		SurvivalTier:   t.Status,
	}

	composite := ind.PriceMomentum*weightMomentum +
		ind.VolumeTrend*weightVolume +
		ind.LiquidityDepth*weightLiquidity +
		ind.HolderGrowth*weightHolders +
		survivalScore(t.Status)*weightSurvival

	return MarketSignal{
		TokenID:    t.ID,
		Signal:     classify(composite),
		Strength:   composite,
		Indicators: ind,
		Timestamp:  at,
	}
}

func classify(composite float64) SignalKind {
	switch {
	case composite > 0.75:
		return SignalStrongBuy
	case composite > 0.55:
		return SignalBuy
	case composite > 0.40:
		return SignalHold
	case composite > 0.25:
		return SignalSell
	default:
		return SignalStrongSell
	}
}

// ActionFor maps a signal onto the buy/hold/sell action an agent takes.
func ActionFor(kind SignalKind) Action {
	switch kind {
	case SignalStrongBuy, SignalBuy:
		return ActionBuy
	case SignalSell, SignalStrongSell:
		return ActionSell
	default:
		return ActionHold
	}
}
