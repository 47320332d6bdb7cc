package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tragent/account-engine/internal/automaton"
)

// ListAgents handles GET /api/v1/agents
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agents.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

// CreateAgent handles POST /api/v1/agents
func (h *Handler) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var spec automaton.AgentSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	agent, err := h.agents.Create(r.Context(), spec)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

// GetAgent handles GET /api/v1/agents/{agentID}
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	agent, err := h.agents.Get(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// UpdateAgent handles PATCH /api/v1/agents/{agentID}
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var spec automaton.AgentSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	agent, err := h.agents.Update(r.Context(), chi.URLParam(r, "agentID"), spec)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

// DeleteAgent handles DELETE /api/v1/agents/{agentID}
func (h *Handler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.agents.Delete(r.Context(), chi.URLParam(r, "agentID")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AgentStatus handles GET /api/v1/agents/{agentID}/status
func (h *Handler) AgentStatus(w http.ResponseWriter, r *http.Request) {
	agent, err := h.agents.Get(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	st, err := h.provider.Status(r.Context(), agent.WalletAddress)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// AgentPerformance handles GET /api/v1/agents/{agentID}/performance
func (h *Handler) AgentPerformance(w http.ResponseWriter, r *http.Request) {
	agent, err := h.agents.Get(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	perf, err := h.provider.Performance(r.Context(), agent)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, perf)
}

// AgentTrades handles GET /api/v1/agents/{agentID}/trades?limit=N
func (h *Handler) AgentTrades(w http.ResponseWriter, r *http.Request) {
	limit := automaton.DefaultTradeLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	agent, err := h.agents.Get(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	trades, err := h.provider.Trades(r.Context(), agent.ID, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if trades == nil {
		trades = []automaton.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

// AgentDecision handles GET /api/v1/agents/{agentID}/decision?token=ID
func (h *Handler) AgentDecision(w http.ResponseWriter, r *http.Request) {
	tokenID := r.URL.Query().Get("token")
	if tokenID == "" {
		writeError(w, "token query parameter is required", http.StatusBadRequest)
		return
	}

	agent, err := h.agents.Get(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tok, err := h.catalog.Token(tokenID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dec, err := h.provider.Decision(r.Context(), agent.WalletAddress, tok)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dec)
}

// ListStrategies handles GET /api/v1/strategies
func (h *Handler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, automaton.Strategies)
}
