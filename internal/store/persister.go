package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/tragent/account-engine/internal/metrics"
	"github.com/tragent/account-engine/internal/model"
)

// DefaultStateKey is the slot key holding the account state.
const DefaultStateKey = "tragent_state"

// Persister loads and saves the account state through a Slot. Neither
// direction reports failure to its caller: a missing or unreadable blob
// loads as a first run, and a failed write is logged and counted.
type Persister struct {
	slot Slot
	key  string
}

// NewPersister returns a Persister for key. An empty key uses
// DefaultStateKey.
func NewPersister(slot Slot, key string) *Persister {
	if key == "" {
		key = DefaultStateKey
	}
	return &Persister{slot: slot, key: key}
}

// Load returns the stored state decoded over the defaults, so fields the
// blob does not carry keep their default values. Absence or corruption
// yields the default state.
func (p *Persister) Load(ctx context.Context) *model.AccountState {
	data, err := p.slot.Get(ctx, p.key)
	if errors.Is(err, ErrNotFound) {
		slog.Info("no saved account state, starting fresh", "key", p.key)
		return model.NewAccountState()
	}
	if err != nil {
		metrics.PersistFailures.WithLabelValues("load").Inc()
		slog.Warn("account state unreadable, starting fresh", "key", p.key, "err", err)
		return model.NewAccountState()
	}

	st, err := Decode(data)
	if err != nil {
		metrics.PersistFailures.WithLabelValues("decode").Inc()
		slog.Warn("account state corrupt, starting fresh", "key", p.key, "err", err)
		return model.NewAccountState()
	}
	return st
}

// Save writes the full state. Failures are logged and counted, never
// returned.
func (p *Persister) Save(ctx context.Context, st *model.AccountState) {
	data, err := json.Marshal(st)
	if err != nil {
		metrics.PersistFailures.WithLabelValues("encode").Inc()
		slog.Error("account state encode failed", "key", p.key, "err", err)
		return
	}
	if err := p.slot.Put(ctx, p.key, data); err != nil {
		metrics.PersistFailures.WithLabelValues("save").Inc()
		slog.Error("account state save failed", "key", p.key, "bytes", len(data), "err", err)
		return
	}
	metrics.PersistWrites.Inc()
}

// Decode parses a stored blob over a default state and normalizes it.
func Decode(data []byte) (*model.AccountState, error) {
	st := model.NewAccountState()
	if err := json.Unmarshal(data, st); err != nil {
		return nil, err
	}
	st.Normalize()
	return st, nil
}
