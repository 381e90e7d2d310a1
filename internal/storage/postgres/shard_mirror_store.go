package postgres

import (
	"context"
	"fmt"

	"mintsniper/internal/domain"
	"mintsniper/internal/storage"
)

// ShardMirrorStore implements storage.ShardMirrorStore using PostgreSQL.
// Rows mirror the live index and are rebuildable from the feed; writes are
// insert-or-ignore so flushing the same dirty key twice is harmless.
type ShardMirrorStore struct {
	pool *Pool
}

// NewShardMirrorStore creates a new ShardMirrorStore.
func NewShardMirrorStore(pool *Pool) *ShardMirrorStore {
	return &ShardMirrorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ShardMirrorStore = (*ShardMirrorStore)(nil)

// UpsertMembers writes members idempotently.
func (s *ShardMirrorStore) UpsertMembers(ctx context.Context, members []domain.ShardMember) error {
	if len(members) == 0 {
		return nil
	}

	query := `
		INSERT INTO shard_members (shard_key, address, observed_at)
		SELECT unnest($1::text[]), unnest($2::text[]), unnest($3::bigint[])
		ON CONFLICT (shard_key, address) DO NOTHING
	`

	keys := make([]string, len(members))
	addrs := make([]string, len(members))
	observed := make([]int64, len(members))
	for i, m := range members {
		if m.ShardKey == "" || m.Address == "" {
			return storage.ErrInvalidInput
		}
		keys[i] = m.ShardKey
		addrs[i] = m.Address
		observed[i] = m.ObservedAt
	}

	if _, err := s.pool.Exec(ctx, query, keys, addrs, observed); err != nil {
		return fmt.Errorf("upsert shard members: %w", err)
	}
	return nil
}

// GetMembers retrieves all members of one shard key, ordered by address.
func (s *ShardMirrorStore) GetMembers(ctx context.Context, shardKey string) ([]domain.ShardMember, error) {
	query := `
		SELECT shard_key, address, observed_at
		FROM shard_members
		WHERE shard_key = $1
		ORDER BY address ASC
	`

	rows, err := s.pool.Query(ctx, query, shardKey)
	if err != nil {
		return nil, fmt.Errorf("get shard members: %w", err)
	}
	defer rows.Close()

	var members []domain.ShardMember
	for rows.Next() {
		var m domain.ShardMember
		if err := rows.Scan(&m.ShardKey, &m.Address, &m.ObservedAt); err != nil {
			return nil, fmt.Errorf("scan shard member row: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shard member rows: %w", err)
	}
	return members, nil
}

// Scan streams every member to fn in key order. Iteration stops on the
// first error returned by fn.
func (s *ShardMirrorStore) Scan(ctx context.Context, fn func(m domain.ShardMember) error) error {
	query := `
		SELECT shard_key, address, observed_at
		FROM shard_members
		ORDER BY shard_key ASC, address ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("scan shard members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.ShardMember
		if err := rows.Scan(&m.ShardKey, &m.Address, &m.ObservedAt); err != nil {
			return fmt.Errorf("scan shard member row: %w", err)
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate shard member rows: %w", err)
	}
	return nil
}

// DeleteAddress removes every member row of one address.
func (s *ShardMirrorStore) DeleteAddress(ctx context.Context, address string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM shard_members WHERE address = $1`, address); err != nil {
		return fmt.Errorf("delete shard member address: %w", err)
	}
	return nil
}
