package service

import (
	"context"
	"log/slog"
	"sync"

	"review-portal-backend/internal/metrics"
	"review-portal-backend/internal/realtime"
)

// snapshot holds the last fetched rows of a store and keeps them current
// by re-running the fetch whenever the change feed reports a matching event.
type snapshot[T any] struct {
	name         string
	fetchMessage string
	log          *slog.Logger
	feed         Feed
	filter       realtime.Filter
	fetch        func(ctx context.Context) ([]T, error)

	mu       sync.RWMutex
	rows     []T
	inflight int
	fetched  bool
	// started numbers fetches in start order; stored is the number of the
	// fetch whose rows are held. An older fetch never replaces a newer one.
	started uint64
	stored  uint64

	subMu  sync.Mutex
	subs   []*realtime.Subscription
	closed bool
}

func (s *snapshot[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.rows))
	copy(out, s.rows)
	return out
}

// Loading is true until the first fetch completes and while one is running.
func (s *snapshot[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.fetched || s.inflight > 0
}

func (s *snapshot[T]) Refresh(ctx context.Context) error {
	return s.refresh(ctx, metrics.ReasonManual)
}

// refresh replaces the rows with a fresh fetch. On failure the previous
// rows are kept, and so are rows from a fetch that started later.
func (s *snapshot[T]) refresh(ctx context.Context, reason string) error {
	s.mu.Lock()
	s.inflight++
	s.started++
	seq := s.started
	s.mu.Unlock()

	metrics.StoreRefetches.WithLabelValues(s.name, reason).Inc()
	rows, err := s.fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.log.Error("Fetch failed", "reason", reason, "error", err)
		return opError("fetch", s.fetchMessage, err)
	}
	if seq > s.stored {
		s.rows = rows
		s.stored = seq
	} else {
		s.log.Debug("Discarding stale fetch", "reason", reason)
	}
	s.fetched = true
	return nil
}

// Watch subscribes to the change feed and re-fetches on every event until
// ctx ends or the store is closed. onRefresh, if set, runs after each
// successful re-fetch.
func (s *snapshot[T]) Watch(ctx context.Context, onRefresh func()) error {
	if s.feed == nil {
		return ErrNoFeed
	}

	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		return nil
	}
	sub := s.feed.Subscribe(s.filter)
	s.subs = append(s.subs, sub)
	s.subMu.Unlock()
	defer sub.Close()

	s.log.Debug("Watching for changes", "table", s.filter.Table, "application_id", s.filter.ApplicationID)
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-sub.Events():
			if !ok {
				return nil
			}
			if err := s.refresh(ctx, metrics.ReasonChange); err != nil {
				continue
			}
			if onRefresh != nil {
				onRefresh()
			}
		}
	}
}

// Close ends every running Watch. Safe to call more than once.
func (s *snapshot[T]) Close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.closed = true
	for _, sub := range s.subs {
		sub.Close()
	}
	s.subs = nil
}

func (s *snapshot[T]) afterMutation(ctx context.Context) {
	if err := s.refresh(ctx, metrics.ReasonMutation); err != nil {
		s.log.Warn("Re-fetch after mutation failed", "error", err)
	}
}

func recordOperation(store, operation string, err error) {
	metrics.StoreOperations.WithLabelValues(store, operation, resultLabel(err)).Inc()
}
