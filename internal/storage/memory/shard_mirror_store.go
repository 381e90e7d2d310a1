package memory

import (
	"context"
	"sort"
	"sync"

	"mintsniper/internal/domain"
	"mintsniper/internal/storage"
)

// ShardMirrorStore is an in-memory implementation of storage.ShardMirrorStore.
type ShardMirrorStore struct {
	mu   sync.RWMutex
	data map[string]map[string]int64 // shard_key -> address -> observed_at
}

// NewShardMirrorStore creates a new in-memory shard mirror store.
func NewShardMirrorStore() *ShardMirrorStore {
	return &ShardMirrorStore{
		data: make(map[string]map[string]int64),
	}
}

// Compile-time interface check.
var _ storage.ShardMirrorStore = (*ShardMirrorStore)(nil)

// UpsertMembers writes members idempotently.
func (s *ShardMirrorStore) UpsertMembers(_ context.Context, members []domain.ShardMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range members {
		if m.ShardKey == "" || m.Address == "" {
			return storage.ErrInvalidInput
		}
		bucket, ok := s.data[m.ShardKey]
		if !ok {
			bucket = make(map[string]int64)
			s.data[m.ShardKey] = bucket
		}
		if _, exists := bucket[m.Address]; !exists {
			bucket[m.Address] = m.ObservedAt
		}
	}
	return nil
}

// GetMembers retrieves all members of one shard key, ordered by address.
func (s *ShardMirrorStore) GetMembers(_ context.Context, shardKey string) ([]domain.ShardMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.data[shardKey]
	members := make([]domain.ShardMember, 0, len(bucket))
	for addr, ts := range bucket {
		members = append(members, domain.ShardMember{
			ShardKey:   shardKey,
			Address:    addr,
			ObservedAt: ts,
		})
	}
	sort.Slice(members, func(i, j int) bool {
		return members[i].Address < members[j].Address
	})
	return members, nil
}

// Scan streams every member to fn in deterministic key order.
func (s *ShardMirrorStore) Scan(_ context.Context, fn func(m domain.ShardMember) error) error {
	s.mu.RLock()
	snapshot := make([]domain.ShardMember, 0)
	for key, bucket := range s.data {
		for addr, ts := range bucket {
			snapshot = append(snapshot, domain.ShardMember{
				ShardKey:   key,
				Address:    addr,
				ObservedAt: ts,
			})
		}
	}
	s.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool {
		if snapshot[i].ShardKey != snapshot[j].ShardKey {
			return snapshot[i].ShardKey < snapshot[j].ShardKey
		}
		return snapshot[i].Address < snapshot[j].Address
	})

	for _, m := range snapshot {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAddress removes every member row of one address.
func (s *ShardMirrorStore) DeleteAddress(_ context.Context, address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, bucket := range s.data {
		delete(bucket, address)
		if len(bucket) == 0 {
			delete(s.data, key)
		}
	}
	return nil
}
