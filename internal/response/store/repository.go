// Package store persists response records as ledger streams. The ledger is
// the only storage: a record's facts live in its response_opened entry.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"dealdesk/internal/ledger"
	"dealdesk/internal/response/models"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/platform/sentinel"
)

// DecideFunc validates against the loaded record and returns entries to append.
type DecideFunc func(ctx context.Context, r *models.Record) ([]ledger.Entry, error)

type Repository struct {
	ledger ledger.Store
	tx     ledger.Transactor
}

func NewRepository(ledgerStore ledger.Store, tx ledger.Transactor) (*Repository, error) {
	if ledgerStore == nil || tx == nil {
		return nil, errors.New("ledger and transactor are required")
	}
	return &Repository{ledger: ledgerStore, tx: tx}, nil
}

// Create appends the opening entries of a new record.
func (r *Repository) Create(ctx context.Context, record *models.Record, entries []ledger.Entry) error {
	return r.tx.RunInTx(ctx, uuid.UUID(record.ID), func(txCtx context.Context) error {
		if err := r.ledger.Append(txCtx, entries...); err != nil {
			return translate(err, string(models.StatusNone))
		}
		return nil
	})
}

// Load folds the record's stream.
func (r *Repository) Load(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	stream, err := r.ledger.Stream(ctx, uuid.UUID(recordID))
	if err != nil {
		return nil, translate(err, "")
	}
	if len(stream) > 0 && stream[0].SubjectKind != ledger.KindResponse {
		return nil, dErrors.New(dErrors.CodeNotFound, "response record not found")
	}
	record, err := models.Replay(recordID, stream)
	if err != nil {
		return nil, translate(err, "")
	}
	return record, nil
}

// Execute runs decide against a freshly loaded record and appends its
// entries in one transaction.
func (r *Repository) Execute(ctx context.Context, recordID id.RecordID, decide DecideFunc) (*models.Record, []ledger.Entry, error) {
	var (
		record  *models.Record
		entries []ledger.Entry
	)
	err := r.tx.RunInTx(ctx, uuid.UUID(recordID), func(txCtx context.Context) error {
		rec, err := r.Load(txCtx, recordID)
		if err != nil {
			return err
		}
		before := rec.Status
		produced, err := decide(txCtx, rec)
		if err != nil {
			return err
		}
		if len(produced) > 0 {
			if err := r.ledger.Append(txCtx, produced...); err != nil {
				return translate(err, string(before))
			}
		}
		record, entries = rec, produced
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return record, entries, nil
}

func translate(err error, current string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "response record not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Conflict(dErrors.CodeConflict, "response record was modified concurrently; reload and retry", current)
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInternal, "stored response state is invalid")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "storage unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
	}
}
