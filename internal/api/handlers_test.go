package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/tragent/account-engine/internal/account"
	"github.com/tragent/account-engine/internal/api"
	"github.com/tragent/account-engine/internal/automaton"
	"github.com/tragent/account-engine/internal/catalog"
	"github.com/tragent/account-engine/internal/ledger"
	"github.com/tragent/account-engine/internal/limits"
	"github.com/tragent/account-engine/internal/model"
	"github.com/tragent/account-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var fixedNow = time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)

// newTestEnv creates the full router over an in-memory slot.
func newTestEnv(t *testing.T, limiter *limits.ExposureLimiter, hub *api.Hub) chi.Router {
	t.Helper()
	slot := store.NewMemorySlot()
	clock := func() time.Time { return fixedNow }

	opts := account.Options{Limiter: limiter, Now: clock}
	if hub != nil {
		opts.Notifier = hub
	}
	svc := account.NewService(context.Background(), store.NewPersister(slot, ""), catalog.Mock(), opts)
	t.Cleanup(svc.Close)

	registry := automaton.NewRegistry(slot, "", clock)
	h := api.NewHandler(svc, catalog.Mock(), registry, automaton.NewSimulator(clock))
	return api.NewRouter(h, hub)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func buy(t *testing.T, router http.Handler, tokenID string, amount float64) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, router, "POST", "/api/v1/buy", api.BuyRequest{TokenID: tokenID, Amount: d(amount)})
}

// --- Ledger endpoints ---

func TestBuy_OpensPosition(t *testing.T) {
	router := newTestEnv(t, nil, nil)

	w := buy(t, router, "1", 247)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var res account.TradeResult
	json.Unmarshal(w.Body.Bytes(), &res)

	if res.Side != "buy" || res.Symbol != "NOVA" {
		t.Errorf("unexpected trade result %+v", res)
	}
	if !res.Quantity.Equal(d(100)) {
		t.Errorf("expected 100 units at 2.47, got %s", res.Quantity)
	}
	if !res.Balance.Equal(d(753)) {
		t.Errorf("expected balance 753, got %s", res.Balance)
	}
	if res.Position == nil || !res.Position.Invested.Equal(d(247)) {
		t.Errorf("expected position with 247 invested, got %+v", res.Position)
	}
}

func TestBuy_StatusMapping(t *testing.T) {
	router := newTestEnv(t, nil, nil)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"zero amount", api.BuyRequest{TokenID: "1", Amount: decimal.Zero}, http.StatusBadRequest},
		{"negative amount", api.BuyRequest{TokenID: "1", Amount: d(-5)}, http.StatusBadRequest},
		{"missing token", api.BuyRequest{Amount: d(5)}, http.StatusBadRequest},
		{"unknown token", api.BuyRequest{TokenID: "GHOST", Amount: d(5)}, http.StatusNotFound},
		{"over balance", api.BuyRequest{TokenID: "1", Amount: d(1001)}, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, "POST", "/api/v1/buy", tt.body)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestBuy_InvalidBody(t *testing.T) {
	router := newTestEnv(t, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/buy", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestBuy_ExposureLimit(t *testing.T) {
	router := newTestEnv(t, limits.NewExposureLimiter(d(100), decimal.Zero), nil)

	if w := buy(t, router, "1", 100); w.Code != http.StatusOK {
		t.Fatalf("buy at the cap should pass: %d %s", w.Code, w.Body.String())
	}
	if w := buy(t, router, "1", 1); w.Code != http.StatusConflict {
		t.Errorf("expected 409 past the cap, got %d: %s", w.Code, w.Body.String())
	}
}

func TestSell_PartialThenFull(t *testing.T) {
	router := newTestEnv(t, nil, nil)
	buy(t, router, "3", 153)

	w := do(t, router, "POST", "/api/v1/sell", api.SellRequest{TokenID: "3", Percentage: d(50)})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res account.TradeResult
	json.Unmarshal(w.Body.Bytes(), &res)
	if res.SellQuote == nil || res.SellQuote.Closed {
		t.Fatalf("half sell should keep the position, got %+v", res.SellQuote)
	}
	if !res.Quantity.Equal(d(5)) {
		t.Errorf("expected 5 units sold, got %s", res.Quantity)
	}

	w = do(t, router, "POST", "/api/v1/sell", api.SellRequest{TokenID: "3", Percentage: d(100)})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, "POST", "/api/v1/sell", api.SellRequest{TokenID: "3", Percentage: d(100)})
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 with no position, got %d", w.Code)
	}
}

func TestSell_InvalidPercentage(t *testing.T) {
	router := newTestEnv(t, nil, nil)
	buy(t, router, "1", 10)

	for _, pct := range []float64{0, -1, 101} {
		w := do(t, router, "POST", "/api/v1/sell", api.SellRequest{TokenID: "1", Percentage: d(pct)})
		if w.Code != http.StatusBadRequest {
			t.Errorf("percentage %v: expected 400, got %d", pct, w.Code)
		}
	}
}

func TestGetAccount_Defaults(t *testing.T) {
	router := newTestEnv(t, nil, nil)

	w := do(t, router, "GET", "/api/v1/account", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var st model.AccountState
	json.Unmarshal(w.Body.Bytes(), &st)
	if !st.Balance.Equal(d(1000)) || !st.SurvivalCredits.Equal(d(8200)) {
		t.Errorf("unexpected defaults: balance %s credits %s", st.Balance, st.SurvivalCredits)
	}
}

func TestGetPortfolio_WithPositions(t *testing.T) {
	router := newTestEnv(t, nil, nil)
	buy(t, router, "1", 247)

	w := do(t, router, "GET", "/api/v1/portfolio", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var v ledger.Valuation
	json.Unmarshal(w.Body.Bytes(), &v)
	if len(v.Positions) != 1 {
		t.Fatalf("expected 1 position, got %d", len(v.Positions))
	}
	if !v.MarketValue.Equal(d(247)) {
		t.Errorf("expected market value 247, got %s", v.MarketValue)
	}
}

func TestToggleWatch_ReflectedInTokens(t *testing.T) {
	router := newTestEnv(t, nil, nil)

	w := do(t, router, "POST", "/api/v1/watchlist/4", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var toggle api.ToggleResponse
	json.Unmarshal(w.Body.Bytes(), &toggle)
	if !toggle.Active || toggle.ID != "4" {
		t.Errorf("expected token 4 watched, got %+v", toggle)
	}

	w = do(t, router, "GET", "/api/v1/tokens/4", nil)
	var tok api.TokenView
	json.Unmarshal(w.Body.Bytes(), &tok)
	if !tok.Watching || tok.Symbol != "ECHO" {
		t.Errorf("expected watched ECHO, got %+v", tok)
	}

	w = do(t, router, "GET", "/api/v1/tokens", nil)
	var tokens []api.TokenView
	json.Unmarshal(w.Body.Bytes(), &tokens)
	if len(tokens) != 6 {
		t.Fatalf("expected 6 tokens, got %d", len(tokens))
	}
	for _, tv := range tokens {
		if tv.Watching != (tv.ID == "4") {
			t.Errorf("token %s: unexpected watching=%v", tv.ID, tv.Watching)
		}
	}
}

func TestGetToken_NotFound(t *testing.T) {
	router := newTestEnv(t, nil, nil)

	if w := do(t, router, "GET", "/api/v1/tokens/99", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if w := do(t, router, "GET", "/api/v1/tokens/99/signal", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetSignal(t *testing.T) {
	router := newTestEnv(t, nil, nil)

	w := do(t, router, "GET", "/api/v1/tokens/3/signal", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var sig automaton.MarketSignal
	json.Unmarshal(w.Body.Bytes(), &sig)
	if sig.Signal != automaton.SignalStrongBuy {
		t.Errorf("expected strong_buy for PRSM, got %s", sig.Signal)
	}
}

func TestEndorse_TogglesCount(t *testing.T) {
	router := newTestEnv(t, nil, nil)

	w := do(t, router, "POST", "/api/v1/proposals/2/endorse", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var p api.ProposalView
	json.Unmarshal(w.Body.Bytes(), &p)
	if !p.Endorsed || p.Endorsements != 90 {
		t.Errorf("expected endorsed with 90, got %+v", p)
	}

	w = do(t, router, "POST", "/api/v1/proposals/2/endorse", nil)
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.Endorsed || p.Endorsements != 89 {
		t.Errorf("expected un-endorsed with 89, got %+v", p)
	}

	if w := do(t, router, "POST", "/api/v1/proposals/nope/endorse", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown proposal, got %d", w.Code)
	}
}

func TestListProposals(t *testing.T) {
	router := newTestEnv(t, nil, nil)
	do(t, router, "POST", "/api/v1/proposals/4/endorse", nil)

	w := do(t, router, "GET", "/api/v1/proposals", nil)
	var props []api.ProposalView
	json.Unmarshal(w.Body.Bytes(), &props)
	if len(props) != 4 {
		t.Fatalf("expected 4 proposals, got %d", len(props))
	}
	if props[0].ID != "3" {
		t.Errorf("expected most endorsed first, got %s", props[0].ID)
	}
	for _, p := range props {
		if p.Endorsed != (p.ID == "4") {
			t.Errorf("proposal %s: unexpected endorsed=%v", p.ID, p.Endorsed)
		}
	}
}

func TestPlaceBid(t *testing.T) {
	router := newTestEnv(t, nil, nil)

	w := do(t, router, "POST", "/api/v1/auctions/a1/bids", api.BidRequest{Amount: d(50)})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var bid model.Bid
	json.Unmarshal(w.Body.Bytes(), &bid)
	if bid.AuctionID != "a1" || !bid.Amount.Equal(d(50)) || !bid.PlacedAt.Equal(fixedNow) {
		t.Errorf("unexpected bid %+v", bid)
	}

	if w := do(t, router, "POST", "/api/v1/auctions/a1/bids", api.BidRequest{Amount: d(5000)}); w.Code != http.StatusConflict {
		t.Errorf("expected 409 for bid over balance, got %d", w.Code)
	}
	if w := do(t, router, "POST", "/api/v1/auctions/a1/bids", api.BidRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for zero bid, got %d", w.Code)
	}
}

func TestChat_PostAndRead(t *testing.T) {
	router := newTestEnv(t, nil, nil)

	w := do(t, router, "POST", "/api/v1/chat/nova", api.ChatRequest{Text: "gm"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, "GET", "/api/v1/chat/nova", nil)
	var msgs []model.ChatMessage
	json.Unmarshal(w.Body.Bytes(), &msgs)
	if len(msgs) != 1 || msgs[0].Author != "You" || !msgs[0].IsSelf {
		t.Errorf("unexpected chat log %+v", msgs)
	}

	w = do(t, router, "GET", "/api/v1/chat/empty", nil)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Errorf("expected empty array for unused room, got %s", w.Body.String())
	}

	if w := do(t, router, "POST", "/api/v1/chat/nova", api.ChatRequest{}); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty text, got %d", w.Code)
	}
}

// --- Agents ---

func createAgent(t *testing.T, router http.Handler) automaton.AgentConfig {
	t.Helper()
	w := do(t, router, "POST", "/api/v1/agents", map[string]any{"name": "Scout", "strategy": "aggressive"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var agent automaton.AgentConfig
	json.Unmarshal(w.Body.Bytes(), &agent)
	return agent
}

func TestAgents_Lifecycle(t *testing.T) {
	router := newTestEnv(t, nil, nil)
	agent := createAgent(t, router)

	if agent.Strategy != automaton.StrategyAggressive || agent.Status != automaton.StatusWaking {
		t.Errorf("unexpected agent %+v", agent)
	}

	w := do(t, router, "GET", "/api/v1/agents", nil)
	var agents []automaton.AgentConfig
	json.Unmarshal(w.Body.Bytes(), &agents)
	if len(agents) != 1 {
		t.Fatalf("expected 1 agent, got %d", len(agents))
	}

	w = do(t, router, "PATCH", "/api/v1/agents/"+agent.ID, map[string]any{"autoTrade": true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, "GET", "/api/v1/agents/"+agent.ID+"/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var st automaton.Status
	json.Unmarshal(w.Body.Bytes(), &st)
	if st.SandboxID != agent.WalletAddress {
		t.Errorf("status should be for sandbox %s, got %s", agent.WalletAddress, st.SandboxID)
	}

	w = do(t, router, "GET", "/api/v1/agents/"+agent.ID+"/trades?limit=4", nil)
	var trades []automaton.Trade
	json.Unmarshal(w.Body.Bytes(), &trades)
	if len(trades) != 4 {
		t.Errorf("expected 4 trades, got %d", len(trades))
	}

	w = do(t, router, "GET", "/api/v1/agents/"+agent.ID+"/performance", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	w = do(t, router, "GET", "/api/v1/agents/"+agent.ID+"/decision?token=1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var dec automaton.Decision
	json.Unmarshal(w.Body.Bytes(), &dec)
	if dec.Action != automaton.ActionBuy {
		t.Errorf("expected buy decision for NOVA, got %s", dec.Action)
	}

	if w := do(t, router, "DELETE", "/api/v1/agents/"+agent.ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", w.Code)
	}
	if w := do(t, router, "GET", "/api/v1/agents/"+agent.ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", w.Code)
	}
}

func TestAgents_BadRequests(t *testing.T) {
	router := newTestEnv(t, nil, nil)
	agent := createAgent(t, router)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"bad strategy", "POST", "/api/v1/agents", map[string]any{"name": "x", "strategy": "yolo"}, http.StatusBadRequest},
		{"missing name", "POST", "/api/v1/agents", map[string]any{}, http.StatusBadRequest},
		{"decision without token", "GET", "/api/v1/agents/" + agent.ID + "/decision", nil, http.StatusBadRequest},
		{"decision unknown token", "GET", "/api/v1/agents/" + agent.ID + "/decision?token=99", nil, http.StatusNotFound},
		{"bad trade limit", "GET", "/api/v1/agents/" + agent.ID + "/trades?limit=abc", nil, http.StatusBadRequest},
		{"unknown agent", "GET", "/api/v1/agents/agent-nope/status", nil, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, tt.method, tt.path, tt.body)
			if w.Code != tt.status {
				t.Errorf("expected %d, got %d: %s", tt.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestHealth(t *testing.T) {
	router := newTestEnv(t, nil, nil)

	w := do(t, router, "GET", "/health", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("unexpected health response %d %s", w.Code, w.Body.String())
	}
}

// --- WebSocket ---

func TestWebSocket_ReceivesTradeEvent(t *testing.T) {
	hub := api.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	router := newTestEnv(t, nil, hub)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Clients() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if w := buy(t, router, "5", 56.7); w.Code != http.StatusOK {
		t.Fatalf("buy failed: %d %s", w.Code, w.Body.String())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	var ev account.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatalf("bad event payload: %v", err)
	}
	if ev.Type != account.EventTradeExecuted || ev.TokenID != "5" || ev.Symbol != "FLUX" {
		t.Errorf("unexpected event %+v", ev)
	}
}
