// Package ledger implements the account's ledger operations as pure
// functions. Each operation takes the current state and returns a new one;
// the input is never modified, and a failed operation returns no state at
// all, so there is nothing to roll back.
//
// All monetary values use shopspring/decimal, never float64.
package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tragent/account-engine/internal/model"
)

var (
	// ErrInsufficientBalance is returned when a buy or bid exceeds the
	// available balance.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrNoPosition is returned when selling a token that is not held.
	ErrNoPosition = errors.New("ledger: no position")

	// ErrInvalidArgument is returned for non-positive amounts or prices,
	// percentages outside (0, 100] and empty identifiers.
	ErrInvalidArgument = errors.New("ledger: invalid argument")
)

// ChatLogLimit is the number of most recent messages kept per room.
const ChatLogLimit = 100

var (
	// Dust is the quantity below which a sold-down position is removed.
	Dust = decimal.New(1, -4)

	hundred = decimal.NewFromInt(100)
)

// BuyOrder describes a purchase of Amount currency worth of a token at
// UnitPrice. Display metadata is only used when the position is opened.
type BuyOrder struct {
	TokenID   string
	Symbol    string
	Name      string
	Avatar    string
	Amount    decimal.Decimal
	UnitPrice decimal.Decimal
}

// Buy spends order.Amount from the balance on order.Amount/UnitPrice
// units, merging into an existing position at a recomputed average cost.
func Buy(s *model.AccountState, order BuyOrder) (*model.AccountState, error) {
	if order.TokenID == "" {
		return nil, fmt.Errorf("%w: token id is required", ErrInvalidArgument)
	}
	if !order.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidArgument, order.Amount)
	}
	if !order.UnitPrice.IsPositive() {
		return nil, fmt.Errorf("%w: unit price must be positive, got %s", ErrInvalidArgument, order.UnitPrice)
	}
	if order.Amount.GreaterThan(s.Balance) {
		return nil, fmt.Errorf("%w: need %s, have %s", ErrInsufficientBalance, order.Amount, s.Balance)
	}

	bought := order.Amount.Div(order.UnitPrice)

	pos, ok := s.Positions[order.TokenID]
	if ok {
		pos.Invested = pos.Invested.Add(order.Amount)
		pos.Quantity = pos.Quantity.Add(bought)
		pos.AverageCost = pos.Invested.Div(pos.Quantity)
	} else {
		pos = model.Position{
			TokenID:     order.TokenID,
			Symbol:      order.Symbol,
			Name:        order.Name,
			Avatar:      order.Avatar,
			Invested:    order.Amount,
			Quantity:    bought,
			AverageCost: order.UnitPrice,
		}
	}

	next := shallowCopy(s)
	next.Balance = s.Balance.Sub(order.Amount)
	next.Positions = copyPositions(s.Positions)
	next.Positions[order.TokenID] = pos
	return next, nil
}

// Sell sells percentage of the position in tokenID at unitPrice and
// credits the proceeds. A position left below Dust is removed; otherwise
// its average cost is kept and its invested amount shrinks with quantity.
func Sell(s *model.AccountState, tokenID string, percentage, unitPrice decimal.Decimal) (*model.AccountState, error) {
	q, err := QuoteSell(s, tokenID, percentage, unitPrice)
	if err != nil {
		return nil, err
	}

	pos := s.Positions[tokenID]
	next := shallowCopy(s)
	next.Balance = s.Balance.Add(q.Proceeds)
	next.Positions = copyPositions(s.Positions)
	if q.Closed {
		delete(next.Positions, tokenID)
	} else {
		pos.Quantity = q.Remaining
		pos.Invested = q.Remaining.Mul(pos.AverageCost)
		next.Positions[tokenID] = pos
	}
	return next, nil
}

// SellQuote is the outcome of a sell computed without applying it.
type SellQuote struct {
	TokenID      string          `json:"token_id"`
	QuantitySold decimal.Decimal `json:"quantity_sold"`
	Proceeds     decimal.Decimal `json:"proceeds"`
	CostBasis    decimal.Decimal `json:"cost_basis"`   // quantity sold * average cost
	RealizedPnL  decimal.Decimal `json:"realized_pnl"` // proceeds - cost basis
	Remaining    decimal.Decimal `json:"remaining"`
	Closed       bool            `json:"closed"` // remaining fell below dust
}

// QuoteSell computes what Sell would do. Realized P&L is reported here
// only; the ledger keeps no record of it.
func QuoteSell(s *model.AccountState, tokenID string, percentage, unitPrice decimal.Decimal) (SellQuote, error) {
	if !percentage.IsPositive() || percentage.GreaterThan(hundred) {
		return SellQuote{}, fmt.Errorf("%w: percentage must be in (0, 100], got %s", ErrInvalidArgument, percentage)
	}
	if !unitPrice.IsPositive() {
		return SellQuote{}, fmt.Errorf("%w: unit price must be positive, got %s", ErrInvalidArgument, unitPrice)
	}
	pos, ok := s.Positions[tokenID]
	if !ok {
		return SellQuote{}, fmt.Errorf("%w: %s", ErrNoPosition, tokenID)
	}

	sold := pos.Quantity.Mul(percentage).Div(hundred)
	proceeds := sold.Mul(unitPrice)
	basis := sold.Mul(pos.AverageCost)
	remaining := pos.Quantity.Sub(sold)

	return SellQuote{
		TokenID:      tokenID,
		QuantitySold: sold,
		Proceeds:     proceeds,
		CostBasis:    basis,
		RealizedPnL:  proceeds.Sub(basis),
		Remaining:    remaining,
		Closed:       remaining.LessThan(Dust),
	}, nil
}

// ToggleWatch adds tokenID to the watchlist, or removes it if present.
func ToggleWatch(s *model.AccountState, tokenID string) (*model.AccountState, error) {
	if tokenID == "" {
		return nil, fmt.Errorf("%w: token id is required", ErrInvalidArgument)
	}
	next := shallowCopy(s)
	next.Watchlist = toggle(s.Watchlist, tokenID)
	return next, nil
}

// ToggleEndorsement adds proposalID to the endorsements, or removes it if
// present.
func ToggleEndorsement(s *model.AccountState, proposalID string) (*model.AccountState, error) {
	if proposalID == "" {
		return nil, fmt.Errorf("%w: proposal id is required", ErrInvalidArgument)
	}
	next := shallowCopy(s)
	next.Endorsements = toggle(s.Endorsements, proposalID)
	return next, nil
}

// PlaceBid records amount as the user's bid on auctionID, replacing any
// earlier bid on the same auction. Bids do not reserve balance, and there
// is no minimum increment at this layer.
func PlaceBid(s *model.AccountState, auctionID string, amount decimal.Decimal, at time.Time) (*model.AccountState, error) {
	if auctionID == "" {
		return nil, fmt.Errorf("%w: auction id is required", ErrInvalidArgument)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("%w: bid must be positive, got %s", ErrInvalidArgument, amount)
	}
	if amount.GreaterThan(s.Balance) {
		return nil, fmt.Errorf("%w: bid %s, have %s", ErrInsufficientBalance, amount, s.Balance)
	}

	next := shallowCopy(s)
	next.Bids = make(map[string]model.Bid, len(s.Bids)+1)
	for k, v := range s.Bids {
		next.Bids[k] = v
	}
	next.Bids[auctionID] = model.Bid{AuctionID: auctionID, Amount: amount, PlacedAt: at}
	return next, nil
}

// AppendChatMessage appends msg to room, keeping the last ChatLogLimit
// messages.
func AppendChatMessage(s *model.AccountState, room string, msg model.ChatMessage) (*model.AccountState, error) {
	if room == "" {
		return nil, fmt.Errorf("%w: room is required", ErrInvalidArgument)
	}
	if msg.Text == "" {
		return nil, fmt.Errorf("%w: message text is required", ErrInvalidArgument)
	}

	existing := s.ChatLogs[room]
	start := 0
	if len(existing)+1 > ChatLogLimit {
		start = len(existing) + 1 - ChatLogLimit
	}
	entries := make([]model.ChatMessage, 0, len(existing)-start+1)
	entries = append(entries, existing[start:]...)
	entries = append(entries, msg)

	next := shallowCopy(s)
	next.ChatLogs = make(map[string][]model.ChatMessage, len(s.ChatLogs)+1)
	for k, v := range s.ChatLogs {
		next.ChatLogs[k] = v
	}
	next.ChatLogs[room] = entries
	return next, nil
}

func shallowCopy(s *model.AccountState) *model.AccountState {
	c := *s
	return &c
}

func copyPositions(src map[string]model.Position) map[string]model.Position {
	dst := make(map[string]model.Position, len(src)+1)
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func toggle(set model.StringSet, id string) model.StringSet {
	next := set.Clone()
	if next.Has(id) {
		delete(next, id)
	} else {
		next[id] = struct{}{}
	}
	return next
}
