package automaton

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tragent/account-engine/internal/catalog"
)

func mockToken(t *testing.T, id string) catalog.Token {
	t.Helper()
	tok, err := catalog.Mock().Token(id)
	require.NoError(t, err)
	return tok
}

func TestComputeSignal_MockTokens(t *testing.T) {
	tests := []struct {
		id       string
		want     SignalKind
		strength float64
	}{
		{"3", SignalStrongBuy, 0.7774},  // PRSM
		{"1", SignalBuy, 0.67305},       // NOVA
		{"5", SignalBuy, 0.61995},       // FLUX
		{"2", SignalHold, 0.41015},      // HLX
		{"4", SignalStrongSell, 0.1159}, // ECHO
		{"6", SignalStrongSell, 0.01812},
	}
	at := time.Date(2026, 2, 20, 12, 0, 0, 0, time.UTC)
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			sig := ComputeSignal(mockToken(t, tt.id), at)
			assert.Equal(t, tt.want, sig.Signal)
			assert.InDelta(t, tt.strength, sig.Strength, 1e-9)
			assert.Equal(t, tt.id, sig.TokenID)
			assert.Equal(t, at, sig.Timestamp)
		})
	}
}

func TestComputeSignal_Sell(t *testing.T) {
	tok := catalog.Token{
		ID:             "x",
		Change24h:      -10,
		Volume24h:      decimal.Zero,
		LiquidityDepth: 50,
		Status:         catalog.StatusStable,
	}
	sig := ComputeSignal(tok, time.Time{})
	assert.InDelta(t, 0.28, sig.Strength, 1e-9)
	assert.Equal(t, SignalSell, sig.Signal)
}

func TestComputeSignal_ClampsMomentum(t *testing.T) {
	up := catalog.Token{Change24h: 500, Status: catalog.StatusRetired}
	down := catalog.Token{Change24h: -500, Status: catalog.StatusRetired}

	assert.Equal(t, 1.0, ComputeSignal(up, time.Time{}).Indicators.PriceMomentum)
	assert.Equal(t, 0.0, ComputeSignal(down, time.Time{}).Indicators.PriceMomentum)
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, ActionBuy, ActionFor(SignalStrongBuy))
	assert.Equal(t, ActionBuy, ActionFor(SignalBuy))
	assert.Equal(t, ActionHold, ActionFor(SignalHold))
	assert.Equal(t, ActionSell, ActionFor(SignalSell))
	assert.Equal(t, ActionSell, ActionFor(SignalStrongSell))
}
