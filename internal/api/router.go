package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/tragent/account-engine/internal/metrics"
)

// NewRouter mounts the API, health and metrics endpoints. hub may be nil
// to serve without the WebSocket feed.
func NewRouter(h *Handler, hub *Hub) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)
	r.Use(cors)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"account-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for account events.
		if hub != nil {
			r.Get("/ws", hub.HandleWS)
		}

		// Account ledger.
		r.Get("/account", h.GetAccount)
		r.Get("/portfolio", h.GetPortfolio)
		r.Post("/buy", h.Buy)
		r.Post("/sell", h.Sell)
		r.Post("/watchlist/{tokenID}", h.ToggleWatch)
		r.Post("/auctions/{auctionID}/bids", h.PlaceBid)
		r.Get("/chat/{room}", h.GetChat)
		r.Post("/chat/{room}", h.PostChat)

		// Governance.
		r.Get("/proposals", h.ListProposals)
		r.Post("/proposals/{proposalID}/endorse", h.Endorse)

		// Token catalog.
		r.Get("/tokens", h.ListTokens)
		r.Get("/tokens/{tokenID}", h.GetToken)
		r.Get("/tokens/{tokenID}/signal", h.GetSignal)

		// Automaton agents.
		if h.agents != nil && h.provider != nil {
			r.Get("/strategies", h.ListStrategies)
			r.Get("/agents", h.ListAgents)
			r.Post("/agents", h.CreateAgent)
			r.Get("/agents/{agentID}", h.GetAgent)
			r.Patch("/agents/{agentID}", h.UpdateAgent)
			r.Delete("/agents/{agentID}", h.DeleteAgent)
			r.Get("/agents/{agentID}/status", h.AgentStatus)
			r.Get("/agents/{agentID}/performance", h.AgentPerformance)
			r.Get("/agents/{agentID}/trades", h.AgentTrades)
			r.Get("/agents/{agentID}/decision", h.AgentDecision)
		}
	})

	return r
}

// cors allows cross-origin requests from the front end.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
