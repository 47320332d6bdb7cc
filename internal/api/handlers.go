// Package api provides the HTTP handlers for the account ledger, the
// token catalog and the automaton agents, plus the WebSocket event hub.
//
// All monetary values use shopspring/decimal, never float64.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/tragent/account-engine/internal/account"
	"github.com/tragent/account-engine/internal/automaton"
	"github.com/tragent/account-engine/internal/catalog"
	"github.com/tragent/account-engine/internal/model"
)

// Handler serves the HTTP API.
type Handler struct {
	accounts *account.Service
	catalog  catalog.Catalog
	agents   *automaton.Registry
	provider automaton.Provider
	now      func() time.Time
}

// NewHandler creates the API handler. agents and provider may be nil, in
// which case the agent routes are not mounted.
func NewHandler(accounts *account.Service, cat catalog.Catalog, agents *automaton.Registry, provider automaton.Provider) *Handler {
	return &Handler{
		accounts: accounts,
		catalog:  cat,
		agents:   agents,
		provider: provider,
		now:      time.Now,
	}
}

// --- Request/Response types ---

// BuyRequest is the JSON body for POST /buy.
type BuyRequest struct {
	TokenID string          `json:"token_id"`
	Amount  decimal.Decimal `json:"amount"` // currency to spend
}

// SellRequest is the JSON body for POST /sell.
type SellRequest struct {
	TokenID    string          `json:"token_id"`
	Percentage decimal.Decimal `json:"percentage"` // (0, 100]
}

// BidRequest is the JSON body for POST /auctions/{auctionID}/bids.
type BidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// ChatRequest is the JSON body for POST /chat/{room}.
type ChatRequest struct {
	Text string `json:"text"`
}

// ToggleResponse reports set membership after a toggle.
type ToggleResponse struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

// --- Account handlers ---

// GetAccount handles GET /api/v1/account
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.accounts.Snapshot())
}

// GetPortfolio handles GET /api/v1/portfolio
// Returns positions marked to catalog prices with P&L totals.
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.accounts.Valuation())
}

// Buy handles POST /api/v1/buy
func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TokenID == "" {
		writeError(w, "token_id is required", http.StatusBadRequest)
		return
	}

	res, err := h.accounts.Buy(r.Context(), req.TokenID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Sell handles POST /api/v1/sell
func (h *Handler) Sell(w http.ResponseWriter, r *http.Request) {
	var req SellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TokenID == "" {
		writeError(w, "token_id is required", http.StatusBadRequest)
		return
	}

	res, err := h.accounts.Sell(r.Context(), req.TokenID, req.Percentage)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ToggleWatch handles POST /api/v1/watchlist/{tokenID}
func (h *Handler) ToggleWatch(w http.ResponseWriter, r *http.Request) {
	tokenID := chi.URLParam(r, "tokenID")

	watching, err := h.accounts.ToggleWatch(r.Context(), tokenID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToggleResponse{ID: tokenID, Active: watching})
}

// PlaceBid handles POST /api/v1/auctions/{auctionID}/bids
func (h *Handler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	auctionID := chi.URLParam(r, "auctionID")

	var req BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	bid, err := h.accounts.PlaceBid(r.Context(), auctionID, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, bid)
}

// GetChat handles GET /api/v1/chat/{room}
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.accounts.ChatLog(chi.URLParam(r, "room")))
}

// PostChat handles POST /api/v1/chat/{room}
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	room := chi.URLParam(r, "room")

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	msg, err := h.accounts.SendChat(r.Context(), room, req.Text)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// --- Governance ---

// ProposalView is a proposal with the user's endorsement applied.
type ProposalView struct {
	catalog.Proposal
	Endorsed bool `json:"endorsed"`
}

func proposalView(p catalog.Proposal, endorsements model.StringSet) ProposalView {
	v := ProposalView{Proposal: p, Endorsed: endorsements.Has(p.ID)}
	if v.Endorsed {
		v.Endorsements++
	}
	return v
}

// ListProposals handles GET /api/v1/proposals
func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	endorsements := h.accounts.Snapshot().Endorsements
	proposals := h.catalog.Proposals()

	views := make([]ProposalView, 0, len(proposals))
	for _, p := range proposals {
		views = append(views, proposalView(p, endorsements))
	}
	writeJSON(w, http.StatusOK, views)
}

// Endorse handles POST /api/v1/proposals/{proposalID}/endorse
// Toggles the user's endorsement of a known proposal.
func (h *Handler) Endorse(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "proposalID")

	p, err := h.catalog.Proposal(proposalID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if _, err := h.accounts.ToggleEndorsement(r.Context(), proposalID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposalView(p, h.accounts.Snapshot().Endorsements))
}

// --- Catalog ---

// TokenView is a catalog token with the user's watch flag.
type TokenView struct {
	catalog.Token
	Watching bool `json:"watching"`
}

// ListTokens handles GET /api/v1/tokens
func (h *Handler) ListTokens(w http.ResponseWriter, r *http.Request) {
	watchlist := h.accounts.Snapshot().Watchlist
	tokens := h.catalog.Tokens()

	views := make([]TokenView, 0, len(tokens))
	for _, t := range tokens {
		views = append(views, TokenView{Token: t, Watching: watchlist.Has(t.ID)})
	}
	writeJSON(w, http.StatusOK, views)
}

// GetToken handles GET /api/v1/tokens/{tokenID}
func (h *Handler) GetToken(w http.ResponseWriter, r *http.Request) {
	tok, err := h.catalog.Token(chi.URLParam(r, "tokenID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenView{Token: tok, Watching: h.accounts.Snapshot().Watchlist.Has(tok.ID)})
}

// GetSignal handles GET /api/v1/tokens/{tokenID}/signal
func (h *Handler) GetSignal(w http.ResponseWriter, r *http.Request) {
	tok, err := h.catalog.Token(chi.URLParam(r, "tokenID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, automaton.ComputeSignal(tok, h.now().UTC()))
}
