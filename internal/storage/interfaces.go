package storage

import (
	"context"

	"mintsniper/internal/domain"
)

// TaskStore provides durable access to task records, keyed by owner and task.
type TaskStore interface {
	// Insert adds a new task. Returns ErrDuplicateKey if the task_id or the
	// (owner_id, name) pair already exists.
	Insert(ctx context.Context, t *domain.Task) error

	// Update replaces an existing task. Returns ErrNotFound if it does not
	// exist, ErrInvalidInput if the owner does not match.
	Update(ctx context.Context, t *domain.Task) error

	// Delete removes a task owned by ownerID. Returns ErrNotFound if absent.
	Delete(ctx context.Context, ownerID, taskID string) error

	// GetByID retrieves one task. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, ownerID, taskID string) (*domain.Task, error)

	// ListByOwner retrieves all tasks of one owner, ordered by created_at ASC.
	ListByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error)

	// ListAll retrieves every task, ordered by created_at ASC.
	ListAll(ctx context.Context) ([]*domain.Task, error)
}

// ShardMirrorStore persists shard key -> address memberships of the live
// index. Entirely rebuildable from the token feed; a cache, not a source of
// truth.
type ShardMirrorStore interface {
	// UpsertMembers writes members idempotently (insert-or-ignore).
	UpsertMembers(ctx context.Context, members []domain.ShardMember) error

	// GetMembers retrieves all members of one shard key.
	GetMembers(ctx context.Context, shardKey string) ([]domain.ShardMember, error)

	// Scan streams every member to fn. Iteration stops on the first error
	// returned by fn.
	Scan(ctx context.Context, fn func(m domain.ShardMember) error) error

	// DeleteAddress removes every member row of one address (age eviction).
	DeleteAddress(ctx context.Context, address string) error
}

// DispatchEventStore is the append-only audit trail of dispatch decisions.
type DispatchEventStore interface {
	// Insert appends one event.
	Insert(ctx context.Context, e *domain.DispatchEvent) error

	// GetByToken retrieves all events for a token, ordered by dispatched_at ASC.
	GetByToken(ctx context.Context, token string) ([]*domain.DispatchEvent, error)

	// GetByTimeRange retrieves events within [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DispatchEvent, error)
}
