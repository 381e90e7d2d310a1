// Package dispatch matches confirmed tokens against user tasks and emits at
// most one buy trigger per (token, task) within the dedup window.
package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mintsniper/internal/domain"
	"mintsniper/internal/storage"
)

// TaskRegistry holds every user's task definitions. Reads during matching
// see an internally consistent snapshot; mutations go through the store
// first and replace the snapshot atomically afterwards, so a concurrent
// match pass never observes a partial update.
type TaskRegistry struct {
	store  storage.TaskStore
	logger zerolog.Logger

	mu    sync.RWMutex
	tasks []*domain.Task
}

// NewTaskRegistry creates a registry backed by the given store.
func NewTaskRegistry(store storage.TaskStore, logger zerolog.Logger) *TaskRegistry {
	return &TaskRegistry{
		store:  store,
		logger: logger.With().Str("component", "dispatch").Logger(),
	}
}

// Reload replaces the in-memory snapshot from the store.
func (r *TaskRegistry) Reload(ctx context.Context) error {
	tasks, err := r.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}

	r.mu.Lock()
	r.tasks = tasks
	r.mu.Unlock()

	r.logger.Info().Int("tasks", len(tasks)).Msg("task registry loaded")
	return nil
}

// Snapshot returns the current consistent task list. Callers must not
// mutate the returned tasks.
func (r *TaskRegistry) Snapshot() []*domain.Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tasks
}

// Create validates and persists a new task, then refreshes the snapshot.
// A missing TaskID is generated.
func (r *TaskRegistry) Create(ctx context.Context, t *domain.Task) error {
	if err := validateTask(t); err != nil {
		return err
	}
	if t.TaskID == "" {
		t.TaskID = uuid.NewString()
	}
	if err := r.store.Insert(ctx, t); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return r.Reload(ctx)
}

// Update persists task changes, then refreshes the snapshot.
func (r *TaskRegistry) Update(ctx context.Context, t *domain.Task) error {
	if err := validateTask(t); err != nil {
		return err
	}
	if t.TaskID == "" {
		return fmt.Errorf("%w: missing task id", storage.ErrInvalidInput)
	}
	if err := r.store.Update(ctx, t); err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return r.Reload(ctx)
}

// Delete removes one task owned by ownerID, then refreshes the snapshot.
func (r *TaskRegistry) Delete(ctx context.Context, ownerID, taskID string) error {
	if err := r.store.Delete(ctx, ownerID, taskID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return r.Reload(ctx)
}

// Get retrieves one task from the store.
func (r *TaskRegistry) Get(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	return r.store.GetByID(ctx, ownerID, taskID)
}

// ListByOwner retrieves every task of one owner from the store.
func (r *TaskRegistry) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	return r.store.ListByOwner(ctx, ownerID)
}

func validateTask(t *domain.Task) error {
	switch {
	case t == nil:
		return fmt.Errorf("%w: nil task", storage.ErrInvalidInput)
	case t.OwnerID == "":
		return fmt.Errorf("%w: missing owner id", storage.ErrInvalidInput)
	case t.Name == "":
		return fmt.Errorf("%w: missing task name", storage.ErrInvalidInput)
	case !t.Platform.IsValid():
		return fmt.Errorf("%w: unknown platform %q", storage.ErrInvalidInput, t.Platform)
	case !t.InformOnly && t.BuyAmountSOL <= 0:
		return fmt.Errorf("%w: buy amount must be positive", storage.ErrInvalidInput)
	case t.SlippagePercent < 0 || t.SlippagePercent > 100:
		return fmt.Errorf("%w: slippage out of range", storage.ErrInvalidInput)
	}
	return nil
}
