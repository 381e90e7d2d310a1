package clickhouse

import (
	"context"
	"fmt"

	"mintsniper/internal/domain"
	"mintsniper/internal/storage"
)

// DispatchEventStore implements storage.DispatchEventStore using ClickHouse.
// The table is append-only MergeTree; dedup correctness lives in the
// dispatcher, this is the audit trail.
type DispatchEventStore struct {
	conn *Conn
}

// NewDispatchEventStore creates a new DispatchEventStore.
func NewDispatchEventStore(conn *Conn) *DispatchEventStore {
	return &DispatchEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DispatchEventStore = (*DispatchEventStore)(nil)

// Insert appends one event.
func (s *DispatchEventStore) Insert(ctx context.Context, e *domain.DispatchEvent) error {
	query := `
		INSERT INTO dispatch_events (
			token, task_id, owner_id, outcome, platform,
			channel_id, author_id, method, error, dispatched_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := s.conn.Exec(ctx, query,
		e.Token,
		e.TaskID,
		e.OwnerID,
		string(e.Outcome),
		string(e.Platform),
		e.ChannelID,
		e.AuthorID,
		string(e.Method),
		e.Error,
		e.DispatchedAt,
	)
	if err != nil {
		return fmt.Errorf("insert dispatch event: %w", err)
	}
	return nil
}

// GetByToken retrieves all events for a token, ordered by dispatched_at ASC.
func (s *DispatchEventStore) GetByToken(ctx context.Context, token string) ([]*domain.DispatchEvent, error) {
	query := `
		SELECT token, task_id, owner_id, outcome, platform,
		       channel_id, author_id, method, error, dispatched_at
		FROM dispatch_events
		WHERE token = ?
		ORDER BY dispatched_at ASC
	`
	return s.query(ctx, query, token)
}

// GetByTimeRange retrieves events within [start, end] (inclusive, ms).
func (s *DispatchEventStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.DispatchEvent, error) {
	query := `
		SELECT token, task_id, owner_id, outcome, platform,
		       channel_id, author_id, method, error, dispatched_at
		FROM dispatch_events
		WHERE dispatched_at >= ? AND dispatched_at <= ?
		ORDER BY dispatched_at ASC, token ASC
	`
	return s.query(ctx, query, start, end)
}

func (s *DispatchEventStore) query(ctx context.Context, query string, args ...any) ([]*domain.DispatchEvent, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query dispatch events: %w", err)
	}
	defer rows.Close()

	var events []*domain.DispatchEvent
	for rows.Next() {
		var e domain.DispatchEvent
		var outcome, platform, method string

		err := rows.Scan(
			&e.Token,
			&e.TaskID,
			&e.OwnerID,
			&outcome,
			&platform,
			&e.ChannelID,
			&e.AuthorID,
			&method,
			&e.Error,
			&e.DispatchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan dispatch event row: %w", err)
		}

		e.Outcome = domain.DispatchOutcome(outcome)
		e.Platform = domain.Platform(platform)
		e.Method = domain.ExtractionMethod(method)
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatch event rows: %w", err)
	}
	return events, nil
}
