package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"dealdesk/internal/ledger"
	id "dealdesk/pkg/domain"
	"dealdesk/pkg/platform/sentinel"
	txcontext "dealdesk/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists entries in the ledger_entries table.
// The table rejects UPDATE and DELETE via trigger; see the platform schema.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertEntry = `
	INSERT INTO ledger_entries (
		id, subject_id, subject_kind, sequence, actor_id, action,
		previous_state, new_state, details, recorded_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`

// Append inserts entries inside the caller's transaction when one is on ctx,
// otherwise inside a transaction of its own.
func (s *PostgresStore) Append(ctx context.Context, entries ...ledger.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	if tx, ok := txcontext.From(ctx); ok {
		return insertEntries(ctx, tx, entries)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger append: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := insertEntries(ctx, tx, entries); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger append: %w", err)
	}
	return nil
}

func insertEntries(ctx context.Context, tx *sql.Tx, entries []ledger.Entry) error {
	for _, e := range entries {
		details, err := ledger.EncodeDetails(e.Details)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, insertEntry,
			uuid.UUID(e.ID),
			e.SubjectID,
			string(e.SubjectKind),
			e.Sequence,
			uuid.UUID(e.Actor),
			string(e.Action),
			e.PreviousState,
			e.NewState,
			details,
			e.Timestamp,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return fmt.Errorf("append %s seq %d: %w", e.SubjectID, e.Sequence, sentinel.ErrConflict)
			}
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}
	return nil
}

const selectColumns = `
	SELECT id, subject_id, subject_kind, sequence, actor_id, action,
		previous_state, new_state, details, recorded_at
	FROM ledger_entries
`

func (s *PostgresStore) Stream(ctx context.Context, subjectID uuid.UUID) ([]ledger.Entry, error) {
	rows, err := txcontext.Execer(ctx, s.db).QueryContext(ctx,
		selectColumns+` WHERE subject_id = $1 ORDER BY sequence`, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query ledger stream: %w", err)
	}
	return scanEntries(rows)
}

func (s *PostgresStore) List(ctx context.Context, filter ledger.Filter) ([]ledger.Entry, error) {
	query, args := buildListQuery(filter)
	rows, err := txcontext.Execer(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger entries: %w", err)
	}
	return scanEntries(rows)
}

func buildListQuery(f ledger.Filter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if !f.From.IsZero() {
		add("recorded_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("recorded_at < $%d", f.To)
	}
	if f.SubjectID != uuid.Nil {
		add("subject_id = $%d", f.SubjectID)
	}
	if f.Kind != "" {
		add("subject_kind = $%d", string(f.Kind))
	}
	if !f.Actor.IsNil() {
		add("actor_id = $%d", uuid.UUID(f.Actor))
	}
	if len(f.Actions) > 0 {
		actions := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			actions[i] = string(a)
		}
		add("action = ANY($%d)", pq.Array(actions))
	}
	if f.After != nil {
		args = append(args, f.After.Timestamp, f.After.SubjectID, f.After.Sequence)
		n := len(args)
		where = append(where, fmt.Sprintf("(recorded_at, subject_id, sequence) > ($%d, $%d, $%d)", n-2, n-1, n))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at, subject_id, sequence"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	return query, args
}

func scanEntries(rows *sql.Rows) ([]ledger.Entry, error) {
	defer rows.Close()

	var out []ledger.Entry
	for rows.Next() {
		var (
			e       ledger.Entry
			entryID uuid.UUID
			actor   uuid.UUID
			kind    string
			action  string
			raw     []byte
		)
		if err := rows.Scan(&entryID, &e.SubjectID, &kind, &e.Sequence, &actor, &action,
			&e.PreviousState, &e.NewState, &raw, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		e.ID = id.EntryID(entryID)
		e.Actor = id.ActorID(actor)
		e.SubjectKind = ledger.SubjectKind(kind)
		e.Action = ledger.Action(action)
		e.Timestamp = e.Timestamp.UTC()

		details, err := ledger.DecodeDetails(e.Action, raw)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", entryID, errors.Join(err, sentinel.ErrInvalidState))
		}
		e.Details = details
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger entries: %w", err)
	}
	return out, nil
}
