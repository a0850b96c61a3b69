package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	txcontext "dealdesk/pkg/platform/tx"
)

const aggregateSubject = "subject"

// OutboxRecord is one undelivered row.
type OutboxRecord struct {
	ID        uuid.UUID
	Key       string
	Kind      Kind
	Payload   []byte
	CreatedAt time.Time
}

// OutboxStore implements Notifier with the transactional outbox pattern:
// events land in the outbox table in the caller's transaction and the Relay
// publishes them afterwards.
type OutboxStore struct {
	db *sql.DB
}

func NewOutboxStore(db *sql.DB) *OutboxStore {
	return &OutboxStore{db: db}
}

func (s *OutboxStore) Notify(ctx context.Context, events ...Event) error {
	const query = `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	exec := txcontext.Execer(ctx, s.db)
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		if _, err := exec.ExecContext(ctx, query,
			e.ID,
			aggregateSubject,
			e.SubjectID.String(),
			string(e.Kind),
			payload,
			e.OccurredAt,
		); err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}
	return nil
}

// Pending returns up to limit unprocessed rows, oldest first.
func (s *OutboxStore) Pending(ctx context.Context, limit int) ([]OutboxRecord, error) {
	const query = `
		SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at ASC, id ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []OutboxRecord
	for rows.Next() {
		var (
			rec  OutboxRecord
			kind string
		)
		if err := rows.Scan(&rec.ID, &rec.Key, &kind, &rec.Payload, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		rec.Kind = Kind(kind)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox rows: %w", err)
	}
	return out, nil
}

// MarkProcessed stamps rows as delivered.
func (s *OutboxStore) MarkProcessed(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, v := range ids {
		raw[i] = v.String()
	}
	const query = `UPDATE outbox SET processed_at = $1 WHERE id = ANY($2::uuid[])`
	if _, err := s.db.ExecContext(ctx, query, at, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark outbox processed: %w", err)
	}
	return nil
}
