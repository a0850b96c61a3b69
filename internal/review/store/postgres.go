package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"dealdesk/internal/review/models"
	"dealdesk/internal/scoring"
	id "dealdesk/pkg/domain"
	"dealdesk/pkg/platform/sentinel"
	txcontext "dealdesk/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresFactsStore persists facts in the subjects table.
type PostgresFactsStore struct {
	db *sql.DB
}

func NewPostgresFactsStore(db *sql.DB) *PostgresFactsStore {
	return &PostgresFactsStore{db: db}
}

func (s *PostgresFactsStore) Create(ctx context.Context, f *models.Facts) error {
	const query = `
		INSERT INTO subjects (id, owner_id, counterparty_id, title, amount_minor, currency, deliverables, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := txcontext.Execer(ctx, s.db).ExecContext(ctx, query,
		f.ID.String(), f.OwnerID.String(), f.CounterpartyID.String(), f.Title,
		f.Terms.AmountMinor, f.Terms.Currency, f.Deliverables, string(f.Status), f.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return fmt.Errorf("subject %s: %w", f.ID, sentinel.ErrConflict)
		}
		return fmt.Errorf("insert subject: %w", err)
	}
	return nil
}

func (s *PostgresFactsStore) FindByID(ctx context.Context, subjectID id.SubjectID) (*models.Facts, error) {
	const query = `
		SELECT id, owner_id, counterparty_id, title, amount_minor, currency, deliverables, status, created_at
		FROM subjects WHERE id = $1
	`
	var (
		f                        models.Facts
		rawID, owner, cp, status string
	)
	err := txcontext.Execer(ctx, s.db).QueryRowContext(ctx, query, subjectID.String()).Scan(
		&rawID, &owner, &cp, &f.Title, &f.Terms.AmountMinor, &f.Terms.Currency, &f.Deliverables, &status, &f.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find subject: %w", err)
	}
	if f.ID, err = id.ParseSubjectID(rawID); err != nil {
		return nil, errors.Join(err, sentinel.ErrInvalidState)
	}
	if f.OwnerID, err = id.ParseActorID(owner); err != nil {
		return nil, errors.Join(err, sentinel.ErrInvalidState)
	}
	if f.CounterpartyID, err = id.ParseActorID(cp); err != nil {
		return nil, errors.Join(err, sentinel.ErrInvalidState)
	}
	f.Status = models.LifecycleStatus(status)
	f.CreatedAt = f.CreatedAt.UTC()
	return &f, nil
}

func (s *PostgresFactsStore) UpdateStatus(ctx context.Context, subjectID id.SubjectID, status models.LifecycleStatus) error {
	res, err := txcontext.Execer(ctx, s.db).ExecContext(ctx,
		`UPDATE subjects SET status = $1 WHERE id = $2`, string(status), subjectID.String())
	if err != nil {
		return fmt.Errorf("update subject status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subject status: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// PostgresScoreStore keeps one row per subject in the scores table.
type PostgresScoreStore struct {
	db *sql.DB
}

func NewPostgresScoreStore(db *sql.DB) *PostgresScoreStore {
	return &PostgresScoreStore{db: db}
}

func (s *PostgresScoreStore) Put(ctx context.Context, score *scoring.Score) error {
	breakdown, err := json.Marshal(score.Breakdown)
	if err != nil {
		return fmt.Errorf("marshal breakdown: %w", err)
	}
	const query = `
		INSERT INTO scores (subject_id, id, total, breakdown, computed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (subject_id) DO UPDATE
		SET id = EXCLUDED.id, total = EXCLUDED.total, breakdown = EXCLUDED.breakdown, computed_at = EXCLUDED.computed_at
	`
	_, err = txcontext.Execer(ctx, s.db).ExecContext(ctx, query,
		score.SubjectID.String(), score.ID.String(), score.Total, breakdown, score.ComputedAt)
	if err != nil {
		return fmt.Errorf("upsert score: %w", err)
	}
	return nil
}

func (s *PostgresScoreStore) Current(ctx context.Context, subjectID id.SubjectID) (*scoring.Score, error) {
	const query = `SELECT id, total, breakdown, computed_at FROM scores WHERE subject_id = $1`
	var (
		score     scoring.Score
		rawID     string
		breakdown []byte
	)
	err := txcontext.Execer(ctx, s.db).QueryRowContext(ctx, query, subjectID.String()).Scan(
		&rawID, &score.Total, &breakdown, &score.ComputedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find score: %w", err)
	}
	if score.ID, err = id.ParseScoreID(rawID); err != nil {
		return nil, errors.Join(err, sentinel.ErrInvalidState)
	}
	if err := json.Unmarshal(breakdown, &score.Breakdown); err != nil {
		return nil, errors.Join(fmt.Errorf("decode breakdown: %w", err), sentinel.ErrInvalidState)
	}
	score.SubjectID = subjectID
	score.ComputedAt = score.ComputedAt.UTC()
	return &score, nil
}
