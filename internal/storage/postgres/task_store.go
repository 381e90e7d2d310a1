package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"mintsniper/internal/domain"
	"mintsniper/internal/storage"
)

// TaskStore implements storage.TaskStore using PostgreSQL.
type TaskStore struct {
	pool *Pool
}

// NewTaskStore creates a new TaskStore.
func NewTaskStore(pool *Pool) *TaskStore {
	return &TaskStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TaskStore = (*TaskStore)(nil)

const taskColumns = `
	task_id, owner_id, name, platform, channel_id, author_ids,
	buy_amount_sol, slippage_percent, priority_fee_sol, blacklist_words,
	wallet_address, wallet_label, inform_only, enabled, created_at, updated_at
`

// Insert adds a new task. Returns ErrDuplicateKey if the task_id or the
// (owner_id, name) pair already exists.
func (s *TaskStore) Insert(ctx context.Context, t *domain.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := s.pool.Exec(ctx, query,
		t.TaskID,
		t.OwnerID,
		t.Name,
		string(t.Platform),
		t.ChannelID,
		t.AuthorIDs,
		t.BuyAmountSOL,
		t.SlippagePercent,
		t.PriorityFeeSOL,
		t.BlacklistWords,
		t.WalletAddress,
		t.WalletLabel,
		t.InformOnly,
		t.Enabled,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Update replaces an existing task. Returns ErrNotFound if it does not
// exist; the owner_id predicate means one user can never touch another's
// task.
func (s *TaskStore) Update(ctx context.Context, t *domain.Task) error {
	query := `
		UPDATE tasks SET
			name = $3, platform = $4, channel_id = $5, author_ids = $6,
			buy_amount_sol = $7, slippage_percent = $8, priority_fee_sol = $9,
			blacklist_words = $10, wallet_address = $11, wallet_label = $12,
			inform_only = $13, enabled = $14, updated_at = $15
		WHERE task_id = $1 AND owner_id = $2
	`

	tag, err := s.pool.Exec(ctx, query,
		t.TaskID,
		t.OwnerID,
		t.Name,
		string(t.Platform),
		t.ChannelID,
		t.AuthorIDs,
		t.BuyAmountSOL,
		t.SlippagePercent,
		t.PriorityFeeSOL,
		t.BlacklistWords,
		t.WalletAddress,
		t.WalletLabel,
		t.InformOnly,
		t.Enabled,
		t.UpdatedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a task owned by ownerID. Returns ErrNotFound if absent.
func (s *TaskStore) Delete(ctx context.Context, ownerID, taskID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tasks WHERE task_id = $1 AND owner_id = $2`,
		taskID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// GetByID retrieves one task. Returns ErrNotFound if absent.
func (s *TaskStore) GetByID(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE task_id = $1 AND owner_id = $2
	`

	row := s.pool.QueryRow(ctx, query, taskID, ownerID)
	t, err := scanTask(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}
	return t, nil
}

// ListByOwner retrieves all tasks of one owner, ordered by created_at ASC.
func (s *TaskStore) ListByOwner(ctx context.Context, ownerID string) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at ASC, task_id ASC
	`

	rows, err := s.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tasks by owner: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// ListAll retrieves every task, ordered by created_at ASC.
func (s *TaskStore) ListAll(ctx context.Context) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		ORDER BY created_at ASC, task_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all tasks: %w", err)
	}
	defer rows.Close()

	return scanTasks(rows)
}

// scanTask scans a single row into a Task.
func scanTask(row pgx.Row) (*domain.Task, error) {
	var t domain.Task
	var platform string

	err := row.Scan(
		&t.TaskID,
		&t.OwnerID,
		&t.Name,
		&platform,
		&t.ChannelID,
		&t.AuthorIDs,
		&t.BuyAmountSOL,
		&t.SlippagePercent,
		&t.PriorityFeeSOL,
		&t.BlacklistWords,
		&t.WalletAddress,
		&t.WalletLabel,
		&t.InformOnly,
		&t.Enabled,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Platform = domain.Platform(platform)
	return &t, nil
}

// scanTasks scans multiple rows into a slice of Task.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	var tasks []*domain.Task

	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task row: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task rows: %w", err)
	}

	return tasks, nil
}
