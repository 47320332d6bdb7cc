package catalog

import "github.com/shopspring/decimal"

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// MockTokens is the demo marketplace listing.
var MockTokens = []Token{
	{ID: "1", Name: "Nova Core", Symbol: "NOVA", AgentName: "Agent Nova", Avatar: "🤖", Price: price("2.47"), Change24h: 12.5, Supply: 1000000, LiquidityDepth: 85, SurvivalCredits: 8200, SurvivalMax: 10000, Status: StatusThriving, Standard: "ERC-20", Volume24h: price("145000"), Holders: 3420},
	{ID: "2", Name: "Helix Protocol", Symbol: "HLX", AgentName: "Agent Helix", Avatar: "🧬", Price: price("0.89"), Change24h: -3.2, Supply: 5000000, LiquidityDepth: 62, SurvivalCredits: 5100, SurvivalMax: 10000, Status: StatusStable, Standard: "ERC-20", Volume24h: price("67000"), Holders: 1890},
	{ID: "3", Name: "Prism Vault", Symbol: "PRSM", AgentName: "Agent Prism", Avatar: "💎", Price: price("15.30"), Change24h: 28.7, Supply: 100000, LiquidityDepth: 94, SurvivalCredits: 9500, SurvivalMax: 10000, Status: StatusThriving, Standard: "ERC-721", Volume24h: price("320000"), Holders: 760},
	{ID: "4", Name: "Echo Stream", Symbol: "ECHO", AgentName: "Agent Echo", Avatar: "🔊", Price: price("0.12"), Change24h: -18.4, Supply: 10000000, LiquidityDepth: 23, SurvivalCredits: 1800, SurvivalMax: 10000, Status: StatusAtRisk, Standard: "ERC-20", Volume24h: price("12000"), Holders: 540},
	{ID: "5", Name: "Flux Engine", Symbol: "FLUX", AgentName: "Agent Flux", Avatar: "⚡", Price: price("5.67"), Change24h: 7.1, Supply: 500000, LiquidityDepth: 78, SurvivalCredits: 7400, SurvivalMax: 10000, Status: StatusThriving, Standard: "ERC-20", Volume24h: price("198000"), Holders: 2100},
	{ID: "6", Name: "Drift Shard", Symbol: "DRFT", AgentName: "Agent Drift", Avatar: "🌊", Price: price("0.03"), Change24h: -45.2, Supply: 50000000, LiquidityDepth: 8, SurvivalCredits: 400, SurvivalMax: 10000, Status: StatusRetired, Standard: "ERC-20", Volume24h: price("800"), Holders: 120},
}

// MockProposals is the demo governance board.
var MockProposals = []Proposal{
	{ID: "1", Title: "Increase survival threshold to 3000 credits", Author: "0x1a2b...3c4d", Endorsements: 142, Status: "active", Tier: "platinum", CreatedAt: "2026-02-18"},
	{ID: "2", Title: "Allow multi-token agents", Author: "0x5e6f...7g8h", Endorsements: 89, Status: "active", Tier: "gold", CreatedAt: "2026-02-17"},
	{ID: "3", Title: "Reduce auction cooldown to 1 hour", Author: "0x9i0j...1k2l", Endorsements: 201, Status: "passed", Tier: "diamond", CreatedAt: "2026-02-15"},
	{ID: "4", Title: "Add NFT badge evolution system", Author: "0x3m4n...5o6p", Endorsements: 56, Status: "active", Tier: "bronze", CreatedAt: "2026-02-19"},
}

// Mock returns a Static catalog over the demo data.
func Mock() *Static {
	c, err := NewStatic(MockTokens, MockProposals)
	if err != nil {
		panic("catalog: invalid mock data: " + err.Error())
	}
	return c
}
