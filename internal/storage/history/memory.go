package history

import (
	"sync"

	"github.com/vadiminshakov/quorum/internal/domain"
)

// Memory keeps history in process. Nothing survives a restart.
type Memory struct {
	mu   sync.RWMutex
	ring *ring
}

// NewMemory creates a memory store retaining at most limit records.
func NewMemory(limit int) *Memory {
	return &Memory{ring: newRing(limit)}
}

func (m *Memory) Append(rec domain.DecisionRecord) error {
	if m == nil {
		return ErrNotInitialized
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ring.push(rec)
	return nil
}

func (m *Memory) List() ([]domain.DecisionRecord, error) {
	if m == nil {
		return nil, ErrNotInitialized
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.ring.records(), nil
}

// EventsAfter returns retained records appended after index.
func (m *Memory) EventsAfter(index uint64) ([]domain.DecisionEventRecord, error) {
	if m == nil {
		return nil, ErrNotInitialized
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.ring.after(index), nil
}

// CurrentIndex returns the index of the latest append.
func (m *Memory) CurrentIndex() uint64 {
	if m == nil {
		return 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.ring.last
}

func (m *Memory) Close() error {
	return nil
}
