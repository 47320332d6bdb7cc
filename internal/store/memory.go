package store

import (
	"context"
	"fmt"
	"sync"
)

// MemorySlot implements Slot with an in-memory map. Used for testing
// and development. Not suitable for production (no persistence).
type MemorySlot struct {
	mu   sync.RWMutex
	data map[string][]byte
	fail bool
}

// NewMemorySlot creates a new in-memory slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{
		data: make(map[string][]byte),
	}
}

func (s *MemorySlot) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	// Return a copy to avoid external mutation.
	return append([]byte(nil), v...), nil
}

func (s *MemorySlot) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return fmt.Errorf("memory slot: write to %s refused", key)
	}
	s.data[key] = append([]byte(nil), data...)
	return nil
}

// SetFailPuts makes every subsequent Put fail (or succeed again). Tests use
// it to exercise the best-effort save path.
func (s *MemorySlot) SetFailPuts(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = fail
}
