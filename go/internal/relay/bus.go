package relay

import (
	"context"
	"sync"
)

// Bus carries relayed frames between relay instances. Delivery is at-most-once.
type Bus interface {
	// Publish sends a frame for roomID to the other instances
	Publish(roomID string, frame []byte) error
	// Subscribe calls deliver for every frame published by another instance until ctx
	// is done.
	Subscribe(ctx context.Context, deliver func(roomID string, frame []byte)) error
	Close() error
}

// MemoryBroker connects in-process buses, one per simulated instance
type MemoryBroker struct {
	mu   sync.RWMutex
	subs map[*MemoryBus]func(roomID string, frame []byte)
}

// NewMemoryBroker creates an empty broker
func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[*MemoryBus]func(string, []byte))}
}

// Bus returns a new bus attached to the broker
func (b *MemoryBroker) Bus() *MemoryBus {
	return &MemoryBus{broker: b}
}

// MemoryBus is a Bus whose frames reach the other buses of the same broker
type MemoryBus struct {
	broker *MemoryBroker
}

func (m *MemoryBus) Publish(roomID string, frame []byte) error {
	m.broker.mu.RLock()
	defer m.broker.mu.RUnlock()
	for bus, deliver := range m.broker.subs {
		if bus != m {
			deliver(roomID, frame)
		}
	}
	return nil
}

func (m *MemoryBus) Subscribe(ctx context.Context, deliver func(roomID string, frame []byte)) error {
	m.broker.mu.Lock()
	m.broker.subs[m] = deliver
	m.broker.mu.Unlock()

	<-ctx.Done()

	m.broker.mu.Lock()
	delete(m.broker.subs, m)
	m.broker.mu.Unlock()
	return nil
}

func (m *MemoryBus) Close() error {
	return nil
}
