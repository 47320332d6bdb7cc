package automaton

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tragent/account-engine/internal/store"
)

func ptr[T any](v T) *T { return &v }

func newRegistry(slot store.Slot) *Registry {
	return NewRegistry(slot, "", func() time.Time { return simNow })
}

func TestRegistry_CreateAppliesDefaults(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(store.NewMemorySlot())

	agent, err := reg.Create(ctx, AgentSpec{Name: ptr("Scout")})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(agent.ID, "agent-"))
	assert.True(t, strings.HasPrefix(agent.WalletAddress, "sbx_"))
	assert.Len(t, agent.WalletAddress, len("sbx_")+10)
	assert.Equal(t, StrategyBalanced, agent.Strategy)
	assert.Equal(t, 0.5, agent.RiskTolerance)
	assert.True(t, agent.MaxPositionSize.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, 10, agent.MaxDailyTrades)
	assert.False(t, agent.AutoTrade)
	assert.Equal(t, StatusWaking, agent.Status)
	assert.Equal(t, simNow, agent.CreatedAt)
}

func TestRegistry_CreateIgnoresRequestedStatus(t *testing.T) {
	reg := newRegistry(store.NewMemorySlot())

	agent, err := reg.Create(context.Background(), AgentSpec{
		Name:     ptr("Scout"),
		Strategy: ptr(StrategyHodl),
		Status:   ptr(StatusDead),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusWaking, agent.Status)
	assert.Equal(t, StrategyHodl, agent.Strategy)
}

func TestRegistry_CreateValidates(t *testing.T) {
	reg := newRegistry(store.NewMemorySlot())
	ctx := context.Background()

	_, err := reg.Create(ctx, AgentSpec{Name: ptr("x"), Strategy: ptr(Strategy("yolo"))})
	assert.ErrorIs(t, err, ErrInvalidStrategy)

	_, err = reg.Create(ctx, AgentSpec{Name: ptr("  ")})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = reg.Create(ctx, AgentSpec{Name: ptr("x"), RiskTolerance: ptr(1.5)})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = reg.Create(ctx, AgentSpec{Name: ptr("x"), MaxPositionSize: ptr(decimal.Zero)})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	agents, err := reg.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestRegistry_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	slot := store.NewMemorySlot()

	a, err := newRegistry(slot).Create(ctx, AgentSpec{Name: ptr("A")})
	require.NoError(t, err)
	b, err := newRegistry(slot).Create(ctx, AgentSpec{Name: ptr("B")})
	require.NoError(t, err)

	agents, err := newRegistry(slot).List(ctx)
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, a.ID, agents[0].ID)
	assert.Equal(t, b.ID, agents[1].ID)

	_, err = slot.Get(ctx, DefaultRegistryKey)
	assert.NoError(t, err)
}

func TestRegistry_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	reg := newRegistry(store.NewMemorySlot())

	agent, err := reg.Create(ctx, AgentSpec{Name: ptr("Scout")})
	require.NoError(t, err)

	updated, err := reg.Update(ctx, agent.ID, AgentSpec{
		AutoTrade: ptr(true),
		Status:    ptr(StatusRunning),
	})
	require.NoError(t, err)
	assert.True(t, updated.AutoTrade)
	assert.Equal(t, StatusRunning, updated.Status)
	assert.Equal(t, "Scout", updated.Name)

	got, err := reg.Get(ctx, agent.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, got)

	_, err = reg.Update(ctx, agent.ID, AgentSpec{Status: ptr(AgentStatus("zombie"))})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = reg.Update(ctx, "agent-missing", AgentSpec{})
	assert.ErrorIs(t, err, ErrAgentNotFound)

	require.NoError(t, reg.Delete(ctx, agent.ID))
	_, err = reg.Get(ctx, agent.ID)
	assert.ErrorIs(t, err, ErrAgentNotFound)

	assert.NoError(t, reg.Delete(ctx, agent.ID))
}

func TestRegistry_CorruptBlobReadsEmpty(t *testing.T) {
	ctx := context.Background()
	slot := store.NewMemorySlot()
	require.NoError(t, slot.Put(ctx, DefaultRegistryKey, []byte("{not json")))

	agents, err := newRegistry(slot).List(ctx)
	require.NoError(t, err)
	assert.Empty(t, agents)
}

func TestRegistry_SaveFailureIsReturned(t *testing.T) {
	slot := store.NewMemorySlot()
	slot.SetFailPuts(true)

	_, err := newRegistry(slot).Create(context.Background(), AgentSpec{Name: ptr("Scout")})
	assert.Error(t, err)
}
