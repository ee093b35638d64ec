package events

import (
	"sync"

	"nftmarket/core/types"
)

// Payload is implemented by events that carry a canonical types.Event record.
type Payload interface {
	Event() *types.Event
}

// Memory is an Emitter that retains emitted events in order, bounded by a
// fixed capacity. The RPC layer reads from it to answer event queries.
type Memory struct {
	mu     sync.RWMutex
	limit  int
	stored []*types.Event
}

// NewMemory returns a bounded in-memory emitter. A non-positive limit keeps
// every event.
func NewMemory(limit int) *Memory {
	return &Memory{limit: limit}
}

// Emit implements the Emitter interface. Events without a Payload record are
// stored as bare typed events.
func (m *Memory) Emit(evt Event) {
	if m == nil || evt == nil {
		return
	}
	record := &types.Event{Type: evt.EventType(), Attributes: map[string]string{}}
	if payload, ok := evt.(Payload); ok {
		if inner := payload.Event(); inner != nil {
			record = inner.Clone()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stored = append(m.stored, record)
	if m.limit > 0 && len(m.stored) > m.limit {
		m.stored = m.stored[len(m.stored)-m.limit:]
	}
}

// List returns a copy of the retained events in emission order.
func (m *Memory) List() []*types.Event {
	if m == nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*types.Event, 0, len(m.stored))
	for _, evt := range m.stored {
		out = append(out, evt.Clone())
	}
	return out
}
