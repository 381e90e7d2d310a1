package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mintsniper/internal/domain"
	"mintsniper/internal/storage"
)

func sampleTask(taskID, owner, name string) *domain.Task {
	return &domain.Task{
		TaskID:          taskID,
		OwnerID:         owner,
		Name:            name,
		Platform:        domain.PlatformTelegram,
		ChannelID:       "C1",
		AuthorIDs:       []string{"author-1", "author-2"},
		BuyAmountSOL:    0.5,
		SlippagePercent: 15,
		PriorityFeeSOL:  0.0005,
		BlacklistWords:  []string{"rug", "scam"},
		WalletAddress:   "WalletAddrAAAAAAAAAAAAAAAAAAAAAA",
		WalletLabel:     "main",
		Enabled:         true,
		CreatedAt:       1700000000000,
		UpdatedAt:       1700000000000,
	}
}

func TestTaskStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaskStore(pool)
	ctx := context.Background()

	task := sampleTask("task-001", "owner-1", "alpha")
	require.NoError(t, store.Insert(ctx, task))

	retrieved, err := store.GetByID(ctx, "owner-1", "task-001")
	require.NoError(t, err)

	assert.Equal(t, task.TaskID, retrieved.TaskID)
	assert.Equal(t, task.OwnerID, retrieved.OwnerID)
	assert.Equal(t, task.Name, retrieved.Name)
	assert.Equal(t, task.Platform, retrieved.Platform)
	assert.Equal(t, task.ChannelID, retrieved.ChannelID)
	assert.Equal(t, task.AuthorIDs, retrieved.AuthorIDs)
	assert.Equal(t, task.BuyAmountSOL, retrieved.BuyAmountSOL)
	assert.Equal(t, task.SlippagePercent, retrieved.SlippagePercent)
	assert.Equal(t, task.BlacklistWords, retrieved.BlacklistWords)
	assert.Equal(t, task.WalletAddress, retrieved.WalletAddress)
	assert.True(t, retrieved.Enabled)
}

func TestTaskStore_InsertDuplicateID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaskStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleTask("task-dup", "owner-1", "alpha")))
	err := store.Insert(ctx, sampleTask("task-dup", "owner-2", "beta"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTaskStore_InsertDuplicateOwnerName(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaskStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleTask("task-001", "owner-1", "alpha")))
	err := store.Insert(ctx, sampleTask("task-002", "owner-1", "alpha"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Same name under another owner is allowed.
	require.NoError(t, store.Insert(ctx, sampleTask("task-003", "owner-2", "alpha")))
}

func TestTaskStore_GetByIDNotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaskStore(pool)
	ctx := context.Background()

	_, err := store.GetByID(ctx, "owner-1", "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Right task, wrong owner.
	require.NoError(t, store.Insert(ctx, sampleTask("task-001", "owner-1", "alpha")))
	_, err = store.GetByID(ctx, "owner-2", "task-001")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTaskStore_Update(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaskStore(pool)
	ctx := context.Background()

	task := sampleTask("task-001", "owner-1", "alpha")
	require.NoError(t, store.Insert(ctx, task))

	task.BuyAmountSOL = 1.25
	task.Enabled = false
	task.BlacklistWords = []string{"honeypot"}
	task.UpdatedAt = 1700000001000
	require.NoError(t, store.Update(ctx, task))

	retrieved, err := store.GetByID(ctx, "owner-1", "task-001")
	require.NoError(t, err)
	assert.Equal(t, 1.25, retrieved.BuyAmountSOL)
	assert.False(t, retrieved.Enabled)
	assert.Equal(t, []string{"honeypot"}, retrieved.BlacklistWords)

	// Update through the wrong owner touches nothing.
	task.OwnerID = "owner-2"
	err = store.Update(ctx, task)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTaskStore_Delete(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaskStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleTask("task-001", "owner-1", "alpha")))

	assert.ErrorIs(t, store.Delete(ctx, "owner-2", "task-001"), storage.ErrNotFound)
	require.NoError(t, store.Delete(ctx, "owner-1", "task-001"))
	assert.ErrorIs(t, store.Delete(ctx, "owner-1", "task-001"), storage.ErrNotFound)
}

func TestTaskStore_ListByOwnerAndListAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTaskStore(pool)
	ctx := context.Background()

	first := sampleTask("task-001", "owner-1", "alpha")
	first.CreatedAt = 1000
	second := sampleTask("task-002", "owner-1", "beta")
	second.CreatedAt = 2000
	other := sampleTask("task-003", "owner-2", "gamma")
	other.CreatedAt = 1500

	require.NoError(t, store.Insert(ctx, second))
	require.NoError(t, store.Insert(ctx, first))
	require.NoError(t, store.Insert(ctx, other))

	owned, err := store.ListByOwner(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, owned, 2)
	assert.Equal(t, "task-001", owned[0].TaskID)
	assert.Equal(t, "task-002", owned[1].TaskID)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "task-001", all[0].TaskID)
	assert.Equal(t, "task-003", all[1].TaskID)
	assert.Equal(t, "task-002", all[2].TaskID)
}
