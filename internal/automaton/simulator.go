package automaton

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tragent/account-engine/internal/catalog"
)

// Simulator produces deterministic agent reports seeded from ids, for
// demo use without a Conway API key. Only timestamps depend on the clock.
type Simulator struct {
	now func() time.Time
}

func NewSimulator(now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	return &Simulator{now: now}
}

var simulatedStatuses = []AgentStatus{
	StatusRunning, StatusRunning, StatusRunning, StatusSleeping, StatusWaking, StatusLowCompute,
}

var tradeReasons = []string{
	"RSI oversold + volume spike",
	"Bullish divergence on 15m chart",
	"Holder growth acceleration",
	"Survival tier upgraded to thriving",
	"Liquidity depth surged > 80%",
	"Stop-loss triggered, risk limit",
	"Take profit target reached",
	"Rebalance, overweight position",
	"Momentum fading, partial exit",
	"Genesis prompt directive: accumulate during dips",
}

var simulatedSymbols = []string{"NCB", "SDX", "VRX", "MNT", "PLX"}

// maxSimulatedTrades caps the simulated history regardless of limit.
const maxSimulatedTrades = 12

func charSum(s string) int {
	sum := 0
	for i := 0; i < len(s); i++ {
		sum += int(s[i])
	}
	return sum
}

func firstChar(s string) int {
	if s == "" {
		return 0
	}
	return int(s[0])
}

func lastChar(s string) int {
	if s == "" {
		return 0
	}
	return int(s[len(s)-1])
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func (s *Simulator) Status(_ context.Context, sandboxID string) (Status, error) {
	seed := lastChar(sandboxID)
	return Status{
		Status:        simulatedStatuses[seed%len(simulatedStatuses)],
		Credits:       int64(200 + (seed*37)%9800),
		USDCBalance:   decimal.NewFromFloat(0.5 + float64((seed*13)%99)).Round(4),
		SandboxID:     sandboxID,
		LastHeartbeat: s.now().Add(-time.Duration((seed*10000)%300000) * time.Millisecond).UTC(),
		Uptime:        (seed*17)%720 + 1,
		TurnCount:     (seed * 43) % 2000,
	}, nil
}

func (s *Simulator) Decision(_ context.Context, sandboxID string, token catalog.Token) (Decision, error) {
	now := s.now()
	signal := ComputeSignal(token, now)
	seed := firstChar(sandboxID) + firstChar(token.ID)
	action := ActionFor(signal.Signal)

	risk := 0.5
	if token.Status == catalog.StatusThriving {
		risk = 0.1
	}

	return Decision{
		AgentID:    sandboxID,
		TokenID:    token.ID,
		Action:     action,
		Confidence: 0.5 + float64(seed%40)/100,
		Reasoning:  reasoning(action, token),
		Factors: DecisionFactors{
			TechnicalScore: signal.Indicators.PriceMomentum,
			SentimentScore: signal.Indicators.HolderGrowth,
			RiskScore:      risk,
			LiquidityScore: signal.Indicators.LiquidityDepth,
		},
		Timestamp: now.UTC(),
	}, nil
}

func reasoning(action Action, t catalog.Token) string {
	switch action {
	case ActionBuy:
		sign := ""
		if t.Change24h > 0 {
			sign = "+"
		}
		return fmt.Sprintf("%s shows strong momentum (%s%s%%). Liquidity depth at %d%% supports entry. Agent status: %s.",
			t.Symbol, sign, strconv.FormatFloat(t.Change24h, 'f', -1, 64), t.LiquidityDepth, t.Status)
	case ActionSell:
		return fmt.Sprintf("%s exhibiting weakness. Survival tier: %s. Liquidity dropping. Risk-adjusted exit recommended.",
			t.Symbol, t.Status)
	default:
		return fmt.Sprintf("%s in consolidation. Monitoring for breakout signal. Current status: %s.", t.Symbol, t.Status)
	}
}

func (s *Simulator) Performance(_ context.Context, agent AgentConfig) (Performance, error) {
	seed := charSum(agent.ID)
	totalTrades := 20 + seed%180
	winRate := 0.45 + float64((seed*7)%30)/100
	successful := int(math.Floor(float64(totalTrades) * winRate))

	avgPnL := 7.0
	switch agent.Strategy {
	case StrategyAggressive:
		avgPnL = 12
	case StrategyConservative:
		avgPnL = 4
	}

	pnl := float64(successful)*avgPnL - float64(totalTrades-successful)*avgPnL*0.8
	volume := decimal.NewFromInt(int64(totalTrades)).
		Mul(agent.MaxPositionSize).
		Mul(decimal.RequireFromString("0.7")).
		Round(2)
	sharpe := round(0.8+float64(seed%20)/10, 2)
	lastTrade := s.now().Add(-time.Duration(seed%86400) * time.Second).UTC()

	return Performance{
		AgentID:          agent.ID,
		TotalTrades:      totalTrades,
		SuccessfulTrades: successful,
		TotalPnL:         decimal.NewFromFloat(pnl).Round(2),
		TotalVolume:      volume,
		WinRate:          round(winRate, 3),
		SharpeRatio:      &sharpe,
		MaxDrawdown:      float64(5 + seed%20),
		CurrentPositions: seed % 5,
		LastTradeAt:      &lastTrade,
	}, nil
}

func (s *Simulator) Trades(_ context.Context, agentID string, limit int) ([]Trade, error) {
	if limit <= 0 {
		limit = DefaultTradeLimit
	}
	n := min(limit, maxSimulatedTrades)
	seed := charSum(agentID)
	now := s.now()

	trades := make([]Trade, 0, n)
	for i := 0; i < n; i++ {
		r := (seed + i*31) % 100
		kind := "buy"
		if r%2 != 0 {
			kind = "sell"
		}

		t := Trade{
			ID:          fmt.Sprintf("trade-%s-%d", agentID, i),
			AgentID:     agentID,
			TokenID:     fmt.Sprintf("token-%d", i%5),
			TokenSymbol: simulatedSymbols[i%len(simulatedSymbols)],
			Type:        kind,
			Amount:      decimal.NewFromInt(int64(2 + (r*7)%48)),
			Price:       decimal.NewFromFloat(0.5 + math.Mod(float64(r)*0.13, 9.5)).Round(4),
			Reason:      tradeReasons[(seed+i)%len(tradeReasons)],
			Timestamp:   now.Add(-time.Duration(i*1800+r*600) * time.Second).UTC(),
		}
		if kind == "sell" {
			sign := -1.0
			if r%3 == 0 {
				sign = 1
			}
			pnl := decimal.NewFromFloat(sign * float64(r%800) / 100).Round(2)
			t.PnL = &pnl
		}
		trades = append(trades, t)
	}
	return trades, nil
}
