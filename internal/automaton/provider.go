package automaton

import (
	"context"
	"log/slog"
	"time"

	"github.com/tragent/account-engine/internal/catalog"
)

// DefaultBaseURL is the public Conway API endpoint.
const DefaultBaseURL = "https://api.conway.tech"

// DefaultTradeLimit is the trade history length when none is requested.
const DefaultTradeLimit = 20

// Provider reports on automaton agents.
type Provider interface {
	Status(ctx context.Context, sandboxID string) (Status, error)
	Decision(ctx context.Context, sandboxID string, token catalog.Token) (Decision, error)
	Performance(ctx context.Context, agent AgentConfig) (Performance, error)
	Trades(ctx context.Context, agentID string, limit int) ([]Trade, error)
}

// NewProvider returns a Conway API client when apiKey is set and a
// simulator otherwise.
func NewProvider(baseURL, apiKey string) Provider {
	if apiKey == "" {
		slog.Info("automaton provider: simulator (no api key configured)")
		return NewSimulator(time.Now)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	slog.Info("automaton provider: conway api", "base_url", baseURL)
	return NewClient(baseURL, apiKey)
}
