package memory

import (
	"context"
	"sort"
	"sync"

	"mintsniper/internal/domain"
	"mintsniper/internal/storage"
)

// DispatchEventStore is an in-memory implementation of
// storage.DispatchEventStore.
type DispatchEventStore struct {
	mu   sync.RWMutex
	data []*domain.DispatchEvent
}

// NewDispatchEventStore creates a new in-memory dispatch event store.
func NewDispatchEventStore() *DispatchEventStore {
	return &DispatchEventStore{}
}

// Compile-time interface check.
var _ storage.DispatchEventStore = (*DispatchEventStore)(nil)

// Insert appends one event.
func (s *DispatchEventStore) Insert(_ context.Context, e *domain.DispatchEvent) error {
	if e == nil || e.Token == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eventCopy := *e
	s.data = append(s.data, &eventCopy)
	return nil
}

// GetByToken retrieves all events for a token, ordered by dispatched_at ASC.
func (s *DispatchEventStore) GetByToken(_ context.Context, token string) ([]*domain.DispatchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DispatchEvent
	for _, e := range s.data {
		if e.Token == token {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}
	sortEvents(result)
	return result, nil
}

// GetByTimeRange retrieves events within [start, end] (inclusive, ms).
func (s *DispatchEventStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.DispatchEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DispatchEvent
	for _, e := range s.data {
		if e.DispatchedAt >= start && e.DispatchedAt <= end {
			eventCopy := *e
			result = append(result, &eventCopy)
		}
	}
	sortEvents(result)
	return result, nil
}

func sortEvents(events []*domain.DispatchEvent) {
	sort.Slice(events, func(i, j int) bool {
		if events[i].DispatchedAt != events[j].DispatchedAt {
			return events[i].DispatchedAt < events[j].DispatchedAt
		}
		return events[i].Token < events[j].Token
	})
}
