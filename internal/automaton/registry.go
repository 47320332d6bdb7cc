package automaton

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tragent/account-engine/internal/store"
)

// DefaultRegistryKey is the slot key holding the agent list.
const DefaultRegistryKey = "tragent:agents"

// Defaults applied to new agents.
var (
	DefaultRiskTolerance   = 0.5
	DefaultMaxPositionSize = decimal.NewFromInt(25)
	DefaultMaxDailyTrades  = 10
)

// AgentSpec carries the fields of an agent create or update. Nil fields
// keep the default (create) or the current value (update).
type AgentSpec struct {
	Name            *string          `json:"name,omitempty"`
	Strategy        *Strategy        `json:"strategy,omitempty"`
	RiskTolerance   *float64         `json:"riskTolerance,omitempty"`
	MaxPositionSize *decimal.Decimal `json:"maxPositionSize,omitempty"`
	MaxDailyTrades  *int             `json:"maxDailyTrades,omitempty"`
	TargetTokens    []string         `json:"targetTokens,omitempty"`
	AutoTrade       *bool            `json:"autoTrade,omitempty"`
	Status          *AgentStatus     `json:"status,omitempty"`
}

// Registry keeps agent configs as one JSON list in a store slot.
// Every call reads the slot, so several processes sharing a slot see
// each other's writes; mu only serializes writers within this process.
type Registry struct {
	slot store.Slot
	key  string
	now  func() time.Time

	mu sync.Mutex
}

// NewRegistry returns a registry over slot. An empty key uses
// DefaultRegistryKey.
func NewRegistry(slot store.Slot, key string, now func() time.Time) *Registry {
	if key == "" {
		key = DefaultRegistryKey
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{slot: slot, key: key, now: now}
}

// List returns all agents in creation order.
func (r *Registry) List(ctx context.Context) ([]AgentConfig, error) {
	return r.load(ctx)
}

func (r *Registry) Get(ctx context.Context, id string) (AgentConfig, error) {
	agents, err := r.load(ctx)
	if err != nil {
		return AgentConfig{}, err
	}
	for _, a := range agents {
		if a.ID == id {
			return a, nil
		}
	}
	return AgentConfig{}, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
}

// Create registers a new agent. New agents start waking.
func (r *Registry) Create(ctx context.Context, spec AgentSpec) (AgentConfig, error) {
	agent := AgentConfig{
		ID:              "agent-" + uuid.NewString(),
		WalletAddress:   newSandboxID(),
		Strategy:        StrategyBalanced,
		RiskTolerance:   DefaultRiskTolerance,
		MaxPositionSize: DefaultMaxPositionSize,
		MaxDailyTrades:  DefaultMaxDailyTrades,
		CreatedAt:       r.now().UTC(),
	}
	apply(&agent, spec)
	agent.Status = StatusWaking
	if err := validate(agent); err != nil {
		return AgentConfig{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	agents, err := r.load(ctx)
	if err != nil {
		return AgentConfig{}, err
	}
	if err := r.save(ctx, append(agents, agent)); err != nil {
		return AgentConfig{}, err
	}
	slog.Info("agent created", "agent_id", agent.ID, "strategy", agent.Strategy)
	return agent, nil
}

// Update applies spec to an existing agent.
func (r *Registry) Update(ctx context.Context, id string, spec AgentSpec) (AgentConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	agents, err := r.load(ctx)
	if err != nil {
		return AgentConfig{}, err
	}
	for i := range agents {
		if agents[i].ID != id {
			continue
		}
		updated := agents[i]
		apply(&updated, spec)
		if spec.Status != nil {
			updated.Status = *spec.Status
		}
		if err := validate(updated); err != nil {
			return AgentConfig{}, err
		}
		agents[i] = updated
		if err := r.save(ctx, agents); err != nil {
			return AgentConfig{}, err
		}
		return updated, nil
	}
	return AgentConfig{}, fmt.Errorf("%w: %s", ErrAgentNotFound, id)
}

// Delete removes an agent. Deleting an unknown id is a no-op.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	agents, err := r.load(ctx)
	if err != nil {
		return err
	}
	kept := agents[:0]
	for _, a := range agents {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if len(kept) == len(agents) {
		return nil
	}
	if err := r.save(ctx, kept); err != nil {
		return err
	}
	slog.Info("agent deleted", "agent_id", id)
	return nil
}

// load reads the agent list. A missing or corrupt blob reads as empty.
func (r *Registry) load(ctx context.Context) ([]AgentConfig, error) {
	data, err := r.slot.Get(ctx, r.key)
	if errors.Is(err, store.ErrNotFound) {
		return []AgentConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("automaton: load agents: %w", err)
	}
	var agents []AgentConfig
	if err := json.Unmarshal(data, &agents); err != nil {
		slog.Warn("agent registry corrupt, treating as empty", "key", r.key, "err", err)
		return []AgentConfig{}, nil
	}
	if agents == nil {
		agents = []AgentConfig{}
	}
	return agents, nil
}

func (r *Registry) save(ctx context.Context, agents []AgentConfig) error {
	data, err := json.Marshal(agents)
	if err != nil {
		return fmt.Errorf("automaton: encode agents: %w", err)
	}
	if err := r.slot.Put(ctx, r.key, data); err != nil {
		return fmt.Errorf("automaton: save agents: %w", err)
	}
	return nil
}

func apply(a *AgentConfig, spec AgentSpec) {
	if spec.Name != nil {
		a.Name = strings.TrimSpace(*spec.Name)
	}
	if spec.Strategy != nil {
		a.Strategy = *spec.Strategy
	}
	if spec.RiskTolerance != nil {
		a.RiskTolerance = *spec.RiskTolerance
	}
	if spec.MaxPositionSize != nil {
		a.MaxPositionSize = *spec.MaxPositionSize
	}
	if spec.MaxDailyTrades != nil {
		a.MaxDailyTrades = *spec.MaxDailyTrades
	}
	if spec.TargetTokens != nil {
		a.TargetTokens = append([]string(nil), spec.TargetTokens...)
	}
	if spec.AutoTrade != nil {
		a.AutoTrade = *spec.AutoTrade
	}
}

func validate(a AgentConfig) error {
	if a.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidConfig)
	}
	if !a.Strategy.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, a.Strategy)
	}
	if a.RiskTolerance < 0 || a.RiskTolerance > 1 {
		return fmt.Errorf("%w: risk tolerance %v outside [0,1]", ErrInvalidConfig, a.RiskTolerance)
	}
	if !a.MaxPositionSize.IsPositive() {
		return fmt.Errorf("%w: max position size must be positive", ErrInvalidConfig)
	}
	if a.MaxDailyTrades <= 0 {
		return fmt.Errorf("%w: max daily trades must be positive", ErrInvalidConfig)
	}
	if !a.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidConfig, a.Status)
	}
	return nil
}

func newSandboxID() string {
	return "sbx_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:10]
}
