// Package events fans recorded decisions out to live subscribers.
package events

import (
	"sync"
	"sync/atomic"

	"github.com/vadiminshakov/quorum/internal/domain"
)

const defaultBuffer = 64

// DecisionBroadcaster fans out decisions to all subscribers via buffered channels.
type DecisionBroadcaster struct {
	mu      sync.RWMutex
	subs    map[chan domain.DecisionRecord]struct{}
	buffer  int
	dropped atomic.Uint64
}

// NewDecisionBroadcaster creates a broadcaster with the given per-subscriber buffer.
func NewDecisionBroadcaster(buffer int) *DecisionBroadcaster {
	if buffer < 1 {
		buffer = defaultBuffer
	}
	return &DecisionBroadcaster{
		subs:   make(map[chan domain.DecisionRecord]struct{}),
		buffer: buffer,
	}
}

// Publish sends rec to every subscriber, dropping it for readers whose buffer is full.
func (b *DecisionBroadcaster) Publish(rec domain.DecisionRecord) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subs {
		select {
		case ch <- rec.Clone():
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of deliveries skipped because a subscriber was slow.
func (b *DecisionBroadcaster) Dropped() uint64 {
	return b.dropped.Load()
}

// Subscribe returns a channel that receives decisions until Unsubscribe is called.
func (b *DecisionBroadcaster) Subscribe() chan domain.DecisionRecord {
	ch := make(chan domain.DecisionRecord, b.buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the channel and closes it.
func (b *DecisionBroadcaster) Unsubscribe(ch chan domain.DecisionRecord) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Subscribers returns the current subscriber count.
func (b *DecisionBroadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
