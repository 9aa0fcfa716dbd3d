package realtime

import (
	"sync"

	"github.com/google/uuid"

	"review-portal-backend/internal/domain"
	"review-portal-backend/internal/metrics"
)

const defaultBuffer = 16

// Filter scopes a subscription to one table and optionally one application.
type Filter struct {
	Table         domain.Table
	ApplicationID string
}

// Matches reports whether e falls inside the filter. An empty ApplicationID
// on the filter matches every row of the table. An event without an
// ApplicationID is a table-wide resync and reaches every filter on the table.
func (f Filter) Matches(e domain.ChangeEvent) bool {
	if f.Table != e.Table {
		return false
	}
	return f.ApplicationID == "" || e.ApplicationID == "" || f.ApplicationID == e.ApplicationID
}

// Subscription delivers matching change events until closed.
type Subscription struct {
	id     string
	filter Filter
	ch     chan domain.ChangeEvent
	broker *Broker
	once   sync.Once
}

func (s *Subscription) ID() string { return s.id }

func (s *Subscription) Filter() Filter { return s.filter }

// Events is closed when the subscription or the broker closes.
func (s *Subscription) Events() <-chan domain.ChangeEvent { return s.ch }

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.remove(s)
	})
}

// Broker fans change events out to subscribers. Delivery never blocks the
// publisher: when a subscriber's buffer is full the event is dropped, which is
// harmless because every event leads to the same full re-fetch.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	buffer int
	closed bool
}

func NewBroker(buffer int) *Broker {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Broker{
		subs:   make(map[string]*Subscription),
		buffer: buffer,
	}
}

func (b *Broker) Subscribe(filter Filter) *Subscription {
	sub := &Subscription{
		id:     uuid.NewString(),
		filter: filter,
		ch:     make(chan domain.ChangeEvent, b.buffer),
		broker: b,
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(sub.ch)
		sub.once.Do(func() {})
		return sub
	}
	b.subs[sub.id] = sub
	metrics.ActiveSubscriptions.Inc()
	return sub
}

func (b *Broker) Publish(e domain.ChangeEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if !sub.filter.Matches(e) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			metrics.DroppedChangeEvents.WithLabelValues(string(e.Table)).Inc()
		}
	}
}

// Len returns the number of open subscriptions.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close ends every subscription. Later Subscribe calls get a closed one.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		delete(b.subs, id)
		close(sub.ch)
		metrics.ActiveSubscriptions.Dec()
	}
}

func (b *Broker) remove(s *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[s.id]; !ok {
		return
	}
	delete(b.subs, s.id)
	close(s.ch)
	metrics.ActiveSubscriptions.Dec()
}
