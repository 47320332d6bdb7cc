package account

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tragent/account-engine/internal/model"
)

// Event types emitted after a successful mutation.
const (
	EventTradeExecuted      = "trade_executed"
	EventWatchlistToggled   = "watchlist_toggled"
	EventEndorsementToggled = "endorsement_toggled"
	EventBidPlaced          = "bid_placed"
	EventChatMessage        = "chat_message"
)

// Event describes one applied account change. Only the fields relevant to
// Type are set.
type Event struct {
	Type       string             `json:"type"`
	Side       string             `json:"side,omitempty"` // buy or sell
	TokenID    string             `json:"token_id,omitempty"`
	Symbol     string             `json:"symbol,omitempty"`
	ProposalID string             `json:"proposal_id,omitempty"`
	AuctionID  string             `json:"auction_id,omitempty"`
	Room       string             `json:"room,omitempty"`
	Amount     *decimal.Decimal   `json:"amount,omitempty"`
	Price      *decimal.Decimal   `json:"price,omitempty"`
	Active     *bool              `json:"active,omitempty"` // toggles: member after the change
	Message    *model.ChatMessage `json:"message,omitempty"`
	Balance    decimal.Decimal    `json:"balance"`
	At         time.Time          `json:"at"`
}

// Notifier receives events. Notify must not block.
type Notifier interface {
	Notify(Event)
}
