// Package model defines the account state shared across the engine.
// All monetary values use shopspring/decimal, never float64.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Default balances for a fresh account.
var (
	DefaultBalance         = decimal.NewFromInt(1000)
	DefaultSurvivalCredits = decimal.NewFromInt(8200)
)

// Tier is the badge shown next to a chat author.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
	TierDiamond  Tier = "diamond"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	switch t {
	case TierBronze, TierGold, TierPlatinum, TierDiamond:
		return true
	}
	return false
}

// Badge returns the glyph rendered for the tier.
func (t Tier) Badge() string {
	switch t {
	case TierBronze:
		return "🥉"
	case TierGold:
		return "🥇"
	case TierPlatinum:
		return "💠"
	case TierDiamond:
		return "💎"
	}
	return ""
}

// Position is a holding in one token. Display metadata is copied when the
// position is opened and never refreshed.
type Position struct {
	TokenID     string          `json:"token_id"`
	Symbol      string          `json:"symbol"`
	Name        string          `json:"name"`
	Avatar      string          `json:"avatar"`
	Invested    decimal.Decimal `json:"invested"`     // cumulative currency paid in
	Quantity    decimal.Decimal `json:"quantity"`     // token units held
	AverageCost decimal.Decimal `json:"average_cost"` // invested / quantity
}

// ChatMessage is one entry in a room's chat log.
type ChatMessage struct {
	ID        string `json:"id"`
	Author    string `json:"author"`
	Text      string `json:"text"`
	Tier      Tier   `json:"tier"`
	Timestamp string `json:"timestamp"` // display string, e.g. "just now"
	IsSelf    bool   `json:"is_self"`
}

// Bid is the user's single active bid on an auction.
type Bid struct {
	AuctionID string          `json:"auction_id"`
	Amount    decimal.Decimal `json:"amount"`
	PlacedAt  time.Time       `json:"placed_at"`
}

// AccountState is the root aggregate for one user's simulated account.
//
// Values are treated as immutable once published: ledger operations copy
// any collection they change and share the rest.
type AccountState struct {
	Balance         decimal.Decimal          `json:"balance"`
	SurvivalCredits decimal.Decimal          `json:"survival_credits"`
	Positions       map[string]Position      `json:"positions"`
	Watchlist       StringSet                `json:"watchlist"`
	Endorsements    StringSet                `json:"endorsements"`
	ChatLogs        map[string][]ChatMessage `json:"chat_logs"`
	Bids            map[string]Bid           `json:"bids"`
}

// NewAccountState returns the state of a first run.
func NewAccountState() *AccountState {
	return &AccountState{
		Balance:         DefaultBalance,
		SurvivalCredits: DefaultSurvivalCredits,
		Positions:       make(map[string]Position),
		Watchlist:       NewStringSet(),
		Endorsements:    NewStringSet(),
		ChatLogs:        make(map[string][]ChatMessage),
		Bids:            make(map[string]Bid),
	}
}

// Normalize repairs a decoded state in place: nil collections become empty
// and positions that hold nothing are dropped.
func (s *AccountState) Normalize() {
	if s.Positions == nil {
		s.Positions = make(map[string]Position)
	}
	for id, p := range s.Positions {
		if !p.Quantity.IsPositive() {
			delete(s.Positions, id)
		}
	}
	if s.Watchlist == nil {
		s.Watchlist = NewStringSet()
	}
	if s.Endorsements == nil {
		s.Endorsements = NewStringSet()
	}
	if s.ChatLogs == nil {
		s.ChatLogs = make(map[string][]ChatMessage)
	}
	if s.Bids == nil {
		s.Bids = make(map[string]Bid)
	}
}

// Clone returns a deep copy of s.
func (s *AccountState) Clone() *AccountState {
	c := &AccountState{
		Balance:         s.Balance,
		SurvivalCredits: s.SurvivalCredits,
		Positions:       make(map[string]Position, len(s.Positions)),
		Watchlist:       s.Watchlist.Clone(),
		Endorsements:    s.Endorsements.Clone(),
		ChatLogs:        make(map[string][]ChatMessage, len(s.ChatLogs)),
		Bids:            make(map[string]Bid, len(s.Bids)),
	}
	for k, v := range s.Positions {
		c.Positions[k] = v
	}
	for k, v := range s.ChatLogs {
		c.ChatLogs[k] = append([]ChatMessage(nil), v...)
	}
	for k, v := range s.Bids {
		c.Bids[k] = v
	}
	return c
}
