package shardindex

import (
	"context"
	"fmt"

	"mintsniper/internal/domain"
	"mintsniper/internal/storage"
)

// Rehydrate rebuilds the in-memory index from the persistent mirror.
// Returns the number of distinct addresses restored. The mirror stores one
// row per (shard key, address); Restore dedupes by address, so each address
// is fully re-indexed on its first row.
func (ix *Index) Rehydrate(ctx context.Context, store storage.ShardMirrorStore) (int, error) {
	var restored int
	err := store.Scan(ctx, func(m domain.ShardMember) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		inserted, err := ix.Restore(m.Address, m.ObservedAt)
		if err != nil {
			// Mirror rows that fail shape validation are stale garbage,
			// not fatal: the mirror is rebuildable from the feed.
			return nil
		}
		if inserted {
			restored++
		}
		return nil
	})
	if err != nil {
		return restored, fmt.Errorf("scan shard mirror: %w", err)
	}
	return restored, nil
}

// FlushDirty writes the buckets of all dirty shard keys to the mirror and
// returns the number of keys flushed. On failure the keys are re-marked
// dirty so no insert is lost to a transient store error.
func (ix *Index) FlushDirty(ctx context.Context, store storage.ShardMirrorStore) (int, error) {
	keys := ix.takeDirty()
	if len(keys) == 0 {
		return 0, nil
	}

	members := ix.membersOf(keys)
	if len(members) == 0 {
		return len(keys), nil
	}

	if err := store.UpsertMembers(ctx, members); err != nil {
		ix.markDirty(keys)
		return 0, fmt.Errorf("upsert shard members: %w", err)
	}
	return len(keys), nil
}
