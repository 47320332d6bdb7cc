// Package account owns the live account state. Service is the single
// writer: every ledger operation runs read-modify-write under one mutex,
// so concurrent requests are applied strictly in sequence. Successful
// changes are persisted in the background and published to a Notifier.
//
// All monetary values use shopspring/decimal, never float64.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tragent/account-engine/internal/catalog"
	"github.com/tragent/account-engine/internal/ledger"
	"github.com/tragent/account-engine/internal/limits"
	"github.com/tragent/account-engine/internal/metrics"
	"github.com/tragent/account-engine/internal/model"
	"github.com/tragent/account-engine/internal/store"
)

// ErrClosed is returned by mutations after Close.
var ErrClosed = errors.New("account: service closed")

// Chat identity used for messages the user posts.
const (
	SelfAuthor    = "You"
	SelfTier      = model.TierGold
	SelfTimestamp = "just now"
)

// Options configures optional collaborators of a Service.
type Options struct {
	Limiter  *limits.ExposureLimiter // nil disables exposure caps
	Notifier Notifier                // nil disables events
	Now      func() time.Time        // defaults to time.Now
}

// Service serializes all account mutations. Uses a mutex for serialized
// execution (single-instance); the persisted blob is only read at start.
type Service struct {
	catalog  catalog.Catalog
	limiter  *limits.ExposureLimiter
	notifier Notifier
	now      func() time.Time
	saver    *saver

	mu     sync.Mutex
	state  *model.AccountState
	closed bool
}

// NewService loads the saved state through p and starts the background
// saver. Call Close to flush the last state.
func NewService(ctx context.Context, p *store.Persister, cat catalog.Catalog, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	st := p.Load(ctx)
	s := &Service{
		catalog:  cat,
		limiter:  opts.Limiter,
		notifier: opts.Notifier,
		now:      now,
		saver:    newSaver(p),
		state:    st,
	}
	s.observe(st)
	slog.Info("account loaded",
		"balance", st.Balance.String(),
		"positions", len(st.Positions),
		"watchlist", len(st.Watchlist),
	)
	return s
}

// Close stops accepting mutations and waits for the last state to be
// written.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.saver.close()
}

// TradeResult reports an applied buy or sell.
type TradeResult struct {
	Side      string            `json:"side"`
	TokenID   string            `json:"token_id"`
	Symbol    string            `json:"symbol"`
	Amount    decimal.Decimal   `json:"amount"` // currency spent or received
	Price     decimal.Decimal   `json:"price"`
	Quantity  decimal.Decimal   `json:"quantity"` // units bought or sold
	Position  *model.Position   `json:"position"` // nil once closed
	Balance   decimal.Decimal   `json:"balance"`
	SellQuote *ledger.SellQuote `json:"sell,omitempty"`
}

// Buy spends amount on tokenID at the catalog price.
func (s *Service) Buy(_ context.Context, tokenID string, amount decimal.Decimal) (TradeResult, error) {
	const op = "buy"
	tok, err := s.catalog.Token(tokenID)
	if err != nil {
		s.record(op, err)
		return TradeResult{}, fmt.Errorf("buy %s: %w", tokenID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	if err := s.open(); err != nil {
		return TradeResult{}, err
	}
	if err := s.limiter.CheckBuy(s.state.Positions, tokenID, amount); err != nil {
		s.countLimit(err)
		s.record(op, err)
		return TradeResult{}, fmt.Errorf("buy %s: %w", tokenID, err)
	}

	next, err := ledger.Buy(s.state, ledger.BuyOrder{
		TokenID:   tok.ID,
		Symbol:    tok.Symbol,
		Name:      tok.Name,
		Avatar:    tok.Avatar,
		Amount:    amount,
		UnitPrice: tok.Price,
	})
	if err != nil {
		s.record(op, err)
		return TradeResult{}, fmt.Errorf("buy %s: %w", tokenID, err)
	}
	s.commit(op, next, start)

	pos := next.Positions[tokenID]
	res := TradeResult{
		Side:     op,
		TokenID:  tok.ID,
		Symbol:   tok.Symbol,
		Amount:   amount,
		Price:    tok.Price,
		Quantity: amount.Div(tok.Price),
		Position: &pos,
		Balance:  next.Balance,
	}
	slog.Info("buy executed",
		"token", tok.ID,
		"amount", amount.String(),
		"price", tok.Price.String(),
		"balance", next.Balance.String(),
	)
	s.emit(Event{
		Type:    EventTradeExecuted,
		Side:    op,
		TokenID: tok.ID,
		Symbol:  tok.Symbol,
		Amount:  &res.Amount,
		Price:   &res.Price,
		Balance: next.Balance,
	})
	return res, nil
}

// Sell sells percentage of the tokenID position at the catalog price.
func (s *Service) Sell(_ context.Context, tokenID string, percentage decimal.Decimal) (TradeResult, error) {
	const op = "sell"
	tok, err := s.catalog.Token(tokenID)
	if err != nil {
		s.record(op, err)
		return TradeResult{}, fmt.Errorf("sell %s: %w", tokenID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	if err := s.open(); err != nil {
		return TradeResult{}, err
	}
	quote, err := ledger.QuoteSell(s.state, tokenID, percentage, tok.Price)
	if err != nil {
		s.record(op, err)
		return TradeResult{}, fmt.Errorf("sell %s: %w", tokenID, err)
	}
	next, err := ledger.Sell(s.state, tokenID, percentage, tok.Price)
	if err != nil {
		s.record(op, err)
		return TradeResult{}, fmt.Errorf("sell %s: %w", tokenID, err)
	}
	s.commit(op, next, start)

	res := TradeResult{
		Side:      op,
		TokenID:   tok.ID,
		Symbol:    tok.Symbol,
		Amount:    quote.Proceeds,
		Price:     tok.Price,
		Quantity:  quote.QuantitySold,
		Balance:   next.Balance,
		SellQuote: &quote,
	}
	if pos, ok := next.Positions[tokenID]; ok {
		res.Position = &pos
	}
	slog.Info("sell executed",
		"token", tok.ID,
		"percentage", percentage.String(),
		"proceeds", quote.Proceeds.String(),
		"realized_pnl", quote.RealizedPnL.String(),
		"closed", quote.Closed,
	)
	s.emit(Event{
		Type:    EventTradeExecuted,
		Side:    op,
		TokenID: tok.ID,
		Symbol:  tok.Symbol,
		Amount:  &res.Amount,
		Price:   &res.Price,
		Balance: next.Balance,
	})
	return res, nil
}

// ToggleWatch flips tokenID in the watchlist and reports whether it is
// now watched.
func (s *Service) ToggleWatch(_ context.Context, tokenID string) (bool, error) {
	const op = "toggle_watch"
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	if err := s.open(); err != nil {
		return false, err
	}
	next, err := ledger.ToggleWatch(s.state, tokenID)
	if err != nil {
		s.record(op, err)
		return false, fmt.Errorf("toggle watch %s: %w", tokenID, err)
	}
	s.commit(op, next, start)

	watching := next.Watchlist.Has(tokenID)
	s.emit(Event{Type: EventWatchlistToggled, TokenID: tokenID, Active: &watching, Balance: next.Balance})
	return watching, nil
}

// ToggleEndorsement flips proposalID in the endorsements and reports
// whether it is now endorsed.
func (s *Service) ToggleEndorsement(_ context.Context, proposalID string) (bool, error) {
	const op = "toggle_endorsement"
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	if err := s.open(); err != nil {
		return false, err
	}
	next, err := ledger.ToggleEndorsement(s.state, proposalID)
	if err != nil {
		s.record(op, err)
		return false, fmt.Errorf("toggle endorsement %s: %w", proposalID, err)
	}
	s.commit(op, next, start)

	endorsed := next.Endorsements.Has(proposalID)
	s.emit(Event{Type: EventEndorsementToggled, ProposalID: proposalID, Active: &endorsed, Balance: next.Balance})
	return endorsed, nil
}

// PlaceBid records amount as the user's bid on auctionID, replacing any
// earlier bid.
func (s *Service) PlaceBid(_ context.Context, auctionID string, amount decimal.Decimal) (model.Bid, error) {
	const op = "place_bid"
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	if err := s.open(); err != nil {
		return model.Bid{}, err
	}
	next, err := ledger.PlaceBid(s.state, auctionID, amount, s.now().UTC())
	if err != nil {
		s.record(op, err)
		return model.Bid{}, fmt.Errorf("place bid %s: %w", auctionID, err)
	}
	s.commit(op, next, start)

	bid := next.Bids[auctionID]
	s.emit(Event{Type: EventBidPlaced, AuctionID: auctionID, Amount: &bid.Amount, Balance: next.Balance})
	return bid, nil
}

// SendChat posts text to room as the user.
func (s *Service) SendChat(ctx context.Context, room, text string) (model.ChatMessage, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return model.ChatMessage{}, fmt.Errorf("chat message id: %w", err)
	}
	return s.AppendChat(ctx, room, model.ChatMessage{
		ID:        id.String(),
		Author:    SelfAuthor,
		Text:      text,
		Tier:      SelfTier,
		Timestamp: SelfTimestamp,
		IsSelf:    true,
	})
}

// AppendChat appends msg to room's log.
func (s *Service) AppendChat(_ context.Context, room string, msg model.ChatMessage) (model.ChatMessage, error) {
	const op = "append_chat"
	s.mu.Lock()
	defer s.mu.Unlock()
	start := time.Now()

	if err := s.open(); err != nil {
		return model.ChatMessage{}, err
	}
	next, err := ledger.AppendChatMessage(s.state, room, msg)
	if err != nil {
		s.record(op, err)
		return model.ChatMessage{}, fmt.Errorf("chat %s: %w", room, err)
	}
	s.commit(op, next, start)

	s.emit(Event{Type: EventChatMessage, Room: room, Message: &msg, Balance: next.Balance})
	return msg, nil
}

// ChatLog returns a copy of room's messages, oldest first.
func (s *Service) ChatLog(room string) []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage{}, s.state.ChatLogs[room]...)
}

// Snapshot returns a deep copy of the current state.
func (s *Service) Snapshot() *model.AccountState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Valuation marks the current positions to catalog prices.
func (s *Service) Valuation() ledger.Valuation {
	prices := s.catalog.Prices()
	s.mu.Lock()
	st := s.state
	s.mu.Unlock()
	// Published states are never mutated, so st is safe to read unlocked.
	return ledger.Value(st, prices)
}

func (s *Service) open() error {
	if s.closed {
		return ErrClosed
	}
	return nil
}

// commit publishes next as the live state. Caller holds mu.
func (s *Service) commit(op string, next *model.AccountState, start time.Time) {
	s.state = next
	s.observe(next)
	s.saver.enqueue(next)
	metrics.LedgerOpsTotal.WithLabelValues(op, "ok").Inc()
	metrics.LedgerOpLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *Service) observe(st *model.AccountState) {
	metrics.AccountBalance.Set(st.Balance.InexactFloat64())
	metrics.OpenPositions.Set(float64(len(st.Positions)))
}

func (s *Service) record(op string, err error) {
	metrics.LedgerOpsTotal.WithLabelValues(op, ErrorKind(err)).Inc()
	slog.Warn("ledger operation rejected", "op", op, "err", err)
}

func (s *Service) countLimit(err error) {
	switch {
	case errors.Is(err, limits.ErrPerTokenLimitExceeded):
		metrics.PositionLimitRejections.WithLabelValues("per_token").Inc()
	case errors.Is(err, limits.ErrTotalLimitExceeded):
		metrics.PositionLimitRejections.WithLabelValues("total").Inc()
	}
}

// emit stamps ev and hands it to the notifier. Caller holds mu, which
// keeps events in mutation order.
func (s *Service) emit(ev Event) {
	if s.notifier == nil {
		return
	}
	ev.At = s.now().UTC()
	s.notifier.Notify(ev)
}

// ErrorKind names the class of a ledger error for metrics and logs.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ledger.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ledger.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ledger.ErrNoPosition):
		return "no_position"
	case errors.Is(err, catalog.ErrTokenNotFound), errors.Is(err, catalog.ErrProposalNotFound):
		return "not_found"
	case errors.Is(err, limits.ErrPerTokenLimitExceeded), errors.Is(err, limits.ErrTotalLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "error"
	}
}
