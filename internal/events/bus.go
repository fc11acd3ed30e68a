package events

import (
	"sync"
)

// Topic names for calendar change envelopes.
const (
	TopicAppointmentsUpserted = "appointments.upserted"
	TopicAppointmentsRemoved  = "appointments.removed"
	TopicAppointmentsReloaded = "appointments.reloaded"
)

// Envelope is one published change, scoped to an org.
type Envelope struct {
	OrgID   string `json:"org_id"`
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

// Bus is a small in-process pub/sub fanout keyed by org. Slow subscribers
// are skipped rather than blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]map[int]chan Envelope
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]map[int]chan Envelope)}
}

// Subscribe registers a buffered subscription for one org. The returned
// cancel func must be called to release the channel.
func (b *Bus) Subscribe(orgID string) (<-chan Envelope, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Envelope, 16)
	id := b.next
	b.next++
	if b.subs[orgID] == nil {
		b.subs[orgID] = make(map[int]chan Envelope)
	}
	b.subs[orgID][id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if set, ok := b.subs[orgID]; ok {
			if existing, ok := set[id]; ok {
				delete(set, id)
				close(existing)
			}
			if len(set) == 0 {
				delete(b.subs, orgID)
			}
		}
	}
	return ch, cancel
}

// Publish fans the envelope out to the org's subscribers.
func (b *Bus) Publish(env Envelope) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[env.OrgID] {
		select {
		case ch <- env:
		default:
			// subscriber is not keeping up; drop rather than block
		}
	}
}

// SubscriberCount reports active subscriptions for an org.
func (b *Bus) SubscriberCount(orgID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[orgID])
}
