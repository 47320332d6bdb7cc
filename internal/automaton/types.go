// Package automaton integrates Conway automaton trading agents.
//
// It is isolated from the ledger: nothing here reads or writes the
// account state. A Provider reports agent status, decisions, performance
// and trade history, either from the Conway HTTP API or from a
// deterministic simulator when no API key is configured. Agent configs
// are kept in a Registry persisted through a store.Slot.
package automaton

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrAgentNotFound   = errors.New("automaton: agent not found")
	ErrInvalidStrategy = errors.New("automaton: invalid strategy")
	ErrInvalidConfig   = errors.New("automaton: invalid agent config")
	ErrUpstream        = errors.New("automaton: upstream error")
)

// AgentStatus is the lifecycle state of an automaton sandbox.
type AgentStatus string

const (
	StatusSetup      AgentStatus = "setup"
	StatusWaking     AgentStatus = "waking"
	StatusRunning    AgentStatus = "running"
	StatusSleeping   AgentStatus = "sleeping"
	StatusLowCompute AgentStatus = "low_compute"
	StatusCritical   AgentStatus = "critical"
	StatusDead       AgentStatus = "dead"
)

func (s AgentStatus) Valid() bool {
	switch s {
	case StatusSetup, StatusWaking, StatusRunning, StatusSleeping,
		StatusLowCompute, StatusCritical, StatusDead:
		return true
	}
	return false
}

// Strategy selects an agent's trading style.
type Strategy string

const (
	StrategyConservative Strategy = "conservative"
	StrategyBalanced     Strategy = "balanced"
	StrategyAggressive   Strategy = "aggressive"
	StrategyScalp        Strategy = "scalp"
	StrategyHodl         Strategy = "hodl"
)

// StrategyInfo is display metadata for a strategy.
type StrategyInfo struct {
	Strategy    Strategy `json:"strategy"`
	Label       string   `json:"label"`
	Description string   `json:"description"`
	Emoji       string   `json:"emoji"`
}

// Strategies lists every strategy in display order.
var Strategies = []StrategyInfo{
	{StrategyConservative, "Conservative", "Low risk, steady gains. Targets thriving/stable tokens only.", "🛡️"},
	{StrategyBalanced, "Balanced", "Balanced risk/reward. Trades across all tiers with position limits.", "⚖️"},
	{StrategyAggressive, "Aggressive", "High risk, high reward. Chases momentum and at-risk recoveries.", "⚡"},
	{StrategyScalp, "Scalper", "High-frequency micro-trades on short-term price movements.", "🎯"},
	{StrategyHodl, "HODL", "Accumulate and hold. Buys dips, ignores short-term volatility.", "💎"},
}

func (s Strategy) Valid() bool {
	for _, info := range Strategies {
		if info.Strategy == s {
			return true
		}
	}
	return false
}

// AgentConfig is a registered trading agent. WalletAddress doubles as the
// agent's sandbox id.
type AgentConfig struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	WalletAddress   string          `json:"walletAddress"`
	Strategy        Strategy        `json:"strategy"`
	RiskTolerance   float64         `json:"riskTolerance"` // 0-1
	MaxPositionSize decimal.Decimal `json:"maxPositionSize"`
	MaxDailyTrades  int             `json:"maxDailyTrades"`
	TargetTokens    []string        `json:"targetTokens,omitempty"`
	AutoTrade       bool            `json:"autoTrade"`
	CreatedAt       time.Time       `json:"createdAt"`
	Status          AgentStatus     `json:"status"`
}

// Status is the runtime report of an automaton sandbox.
type Status struct {
	Status        AgentStatus     `json:"status"`
	Credits       int64           `json:"credits"`
	USDCBalance   decimal.Decimal `json:"usdcBalance"`
	SandboxID     string          `json:"sandboxId,omitempty"`
	LastHeartbeat time.Time       `json:"lastHeartbeat"`
	Uptime        int             `json:"uptime"`
	TurnCount     int             `json:"turnCount"`
}

// Performance summarizes an agent's trading record.
type Performance struct {
	AgentID          string          `json:"agentId"`
	TotalTrades      int             `json:"totalTrades"`
	SuccessfulTrades int             `json:"successfulTrades"`
	TotalPnL         decimal.Decimal `json:"totalPnL"`
	TotalVolume      decimal.Decimal `json:"totalVolume"`
	WinRate          float64         `json:"winRate"`
	SharpeRatio      *float64        `json:"sharpeRatio,omitempty"`
	MaxDrawdown      float64         `json:"maxDrawdown"`
	CurrentPositions int             `json:"currentPositions"`
	LastTradeAt      *time.Time      `json:"lastTradeAt,omitempty"`
}

// Trade is one executed agent trade.
type Trade struct {
	ID          string           `json:"id"`
	AgentID     string           `json:"agentId"`
	TokenID     string           `json:"tokenId"`
	TokenSymbol string           `json:"tokenSymbol"`
	Type        string           `json:"type"` // buy or sell
	Amount      decimal.Decimal  `json:"amount"`
	Price       decimal.Decimal  `json:"price"`
	Reason      string           `json:"reason"`
	Timestamp   time.Time        `json:"timestamp"`
	PnL         *decimal.Decimal `json:"pnl,omitempty"`
}

// Action is an agent's recommendation for a token.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// DecisionFactors are the scores behind a decision, each 0-1.
type DecisionFactors struct {
	TechnicalScore float64 `json:"technicalScore"`
	SentimentScore float64 `json:"sentimentScore"`
	RiskScore      float64 `json:"riskScore"`
	LiquidityScore float64 `json:"liquidityScore"`
}

// Decision is an agent's trading decision for one token.
type Decision struct {
	AgentID    string          `json:"agentId"`
	TokenID    string          `json:"tokenId"`
	Action     Action          `json:"action"`
	Confidence float64         `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
	Factors    DecisionFactors `json:"factors"`
	Timestamp  time.Time       `json:"timestamp"`
}
