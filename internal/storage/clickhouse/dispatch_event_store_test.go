package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mintsniper/internal/domain"
)

func sampleEvent(token, taskID string, outcome domain.DispatchOutcome, at int64) *domain.DispatchEvent {
	return &domain.DispatchEvent{
		Token:        token,
		TaskID:       taskID,
		OwnerID:      "owner-1",
		Outcome:      outcome,
		Platform:     domain.PlatformTelegram,
		ChannelID:    "C1",
		AuthorID:     "author-1",
		Method:       domain.MethodPattern,
		DispatchedAt: at,
	}
}

func TestDispatchEventStore_InsertAndGetByToken(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDispatchEventStore(conn)
	ctx := context.Background()

	const token = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefgh"
	require.NoError(t, store.Insert(ctx, sampleEvent(token, "task-1", domain.OutcomeBuySent, 2000)))
	require.NoError(t, store.Insert(ctx, sampleEvent(token, "task-1", domain.OutcomeSuppressed, 3000)))
	require.NoError(t, store.Insert(ctx, sampleEvent("OtherTokenAAAAAAAAAAAAAAAAAAAAAA", "task-2", domain.OutcomeInformed, 2500)))

	events, err := store.GetByToken(ctx, token)
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, domain.OutcomeBuySent, events[0].Outcome)
	assert.Equal(t, domain.OutcomeSuppressed, events[1].Outcome)
	assert.Equal(t, domain.PlatformTelegram, events[0].Platform)
	assert.Equal(t, domain.MethodPattern, events[0].Method)
	assert.Equal(t, int64(2000), events[0].DispatchedAt)
}

func TestDispatchEventStore_GatewayErrorKeepsCause(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDispatchEventStore(conn)
	ctx := context.Background()

	event := sampleEvent("ABCDEFGHJKLMNPQRSTUVWXYZabcdefgh", "task-1", domain.OutcomeGatewayError, 2000)
	event.Error = "buy gateway status 502: upstream down"
	require.NoError(t, store.Insert(ctx, event))

	events, err := store.GetByToken(ctx, event.Token)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, event.Error, events[0].Error)
}

func TestDispatchEventStore_GetByTimeRange(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDispatchEventStore(conn)
	ctx := context.Background()

	const token = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefgh"
	for _, at := range []int64{1000, 2000, 3000, 4000} {
		require.NoError(t, store.Insert(ctx, sampleEvent(token, "task-1", domain.OutcomeBuySent, at)))
	}

	events, err := store.GetByTimeRange(ctx, 2000, 3000)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, int64(2000), events[0].DispatchedAt)
	assert.Equal(t, int64(3000), events[1].DispatchedAt)

	none, err := store.GetByTimeRange(ctx, 9000, 9999)
	require.NoError(t, err)
	assert.Empty(t, none)
}
