package memory

import (
	"context"
	"sort"
	"sync"

	"mintsniper/internal/domain"
	"mintsniper/internal/storage"
)

// TaskStore is an in-memory implementation of storage.TaskStore.
type TaskStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Task // keyed by task_id
}

// NewTaskStore creates a new in-memory task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{
		data: make(map[string]*domain.Task),
	}
}

// Compile-time interface check.
var _ storage.TaskStore = (*TaskStore)(nil)

// Insert adds a new task. Returns ErrDuplicateKey if the task_id or the
// (owner_id, name) pair already exists.
func (s *TaskStore) Insert(_ context.Context, t *domain.Task) error {
	if t == nil || t.TaskID == "" || t.OwnerID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[t.TaskID]; exists {
		return storage.ErrDuplicateKey
	}
	for _, existing := range s.data {
		if existing.OwnerID == t.OwnerID && existing.Name == t.Name {
			return storage.ErrDuplicateKey
		}
	}

	taskCopy := cloneTask(t)
	s.data[t.TaskID] = taskCopy
	return nil
}

// Update replaces an existing task.
func (s *TaskStore) Update(_ context.Context, t *domain.Task) error {
	if t == nil || t.TaskID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[t.TaskID]
	if !ok {
		return storage.ErrNotFound
	}
	if existing.OwnerID != t.OwnerID {
		return storage.ErrInvalidInput
	}

	s.data[t.TaskID] = cloneTask(t)
	return nil
}

// Delete removes a task owned by ownerID.
func (s *TaskStore) Delete(_ context.Context, ownerID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.data[taskID]
	if !ok || existing.OwnerID != ownerID {
		return storage.ErrNotFound
	}
	delete(s.data, taskID)
	return nil
}

// GetByID retrieves one task.
func (s *TaskStore) GetByID(_ context.Context, ownerID, taskID string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.data[taskID]
	if !ok || t.OwnerID != ownerID {
		return nil, storage.ErrNotFound
	}
	return cloneTask(t), nil
}

// ListByOwner retrieves all tasks of one owner, ordered by created_at ASC.
func (s *TaskStore) ListByOwner(_ context.Context, ownerID string) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Task
	for _, t := range s.data {
		if t.OwnerID == ownerID {
			result = append(result, cloneTask(t))
		}
	}
	sortTasks(result)
	return result, nil
}

// ListAll retrieves every task, ordered by created_at ASC.
func (s *TaskStore) ListAll(_ context.Context) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Task, 0, len(s.data))
	for _, t := range s.data {
		result = append(result, cloneTask(t))
	}
	sortTasks(result)
	return result, nil
}

func sortTasks(tasks []*domain.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].CreatedAt != tasks[j].CreatedAt {
			return tasks[i].CreatedAt < tasks[j].CreatedAt
		}
		return tasks[i].TaskID < tasks[j].TaskID
	})
}

// cloneTask deep-copies a task so callers cannot mutate stored state.
func cloneTask(t *domain.Task) *domain.Task {
	c := *t
	c.AuthorIDs = append([]string(nil), t.AuthorIDs...)
	c.BlacklistWords = append([]string(nil), t.BlacklistWords...)
	return &c
}
