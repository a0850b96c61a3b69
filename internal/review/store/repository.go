package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"dealdesk/internal/ledger"
	"dealdesk/internal/review/models"
	"dealdesk/internal/scoring"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/platform/sentinel"
)

type FactsStore interface {
	Create(ctx context.Context, f *models.Facts) error
	FindByID(ctx context.Context, subjectID id.SubjectID) (*models.Facts, error)
	UpdateStatus(ctx context.Context, subjectID id.SubjectID, status models.LifecycleStatus) error
}

type ScoreStore interface {
	Put(ctx context.Context, score *scoring.Score) error
	Current(ctx context.Context, subjectID id.SubjectID) (*scoring.Score, error)
}

// DecideFunc inspects a freshly loaded subject and returns the entries to
// append. Returning no entries and no error makes Execute a read.
type DecideFunc func(ctx context.Context, s *models.Subject) ([]ledger.Entry, error)

// AfterFunc runs in the same transaction once the entries are appended.
type AfterFunc func(ctx context.Context, s *models.Subject, entries []ledger.Entry) error

// Repository is the aggregate boundary of a review subject. It folds a
// subject from facts and ledger stream and appends the entries produced by
// its commands. Errors leaving the repository are domain errors.
type Repository struct {
	facts  FactsStore
	scores ScoreStore
	ledger ledger.Store
	tx     ledger.Transactor
}

func NewRepository(facts FactsStore, scores ScoreStore, ledgerStore ledger.Store, tx ledger.Transactor) (*Repository, error) {
	if facts == nil || scores == nil || ledgerStore == nil || tx == nil {
		return nil, errors.New("facts, scores, ledger and transactor are required")
	}
	return &Repository{facts: facts, scores: scores, ledger: ledgerStore, tx: tx}, nil
}

func (r *Repository) Facts() FactsStore  { return r.facts }
func (r *Repository) Scores() ScoreStore { return r.scores }

// Load returns the subject's current projection.
func (r *Repository) Load(ctx context.Context, subjectID id.SubjectID) (*models.Subject, error) {
	facts, err := r.facts.FindByID(ctx, subjectID)
	if err != nil {
		return nil, translate(err, "subject not found")
	}
	stream, err := r.ledger.Stream(ctx, uuid.UUID(subjectID))
	if err != nil {
		return nil, translate(err, "subject not found")
	}
	subject, err := models.Replay(*facts, stream)
	if err != nil {
		return nil, translate(err, "subject not found")
	}
	return subject, nil
}

// Stream returns the subject's raw ledger entries.
func (r *Repository) Stream(ctx context.Context, subjectID id.SubjectID) ([]ledger.Entry, error) {
	stream, err := r.ledger.Stream(ctx, uuid.UUID(subjectID))
	if err != nil {
		return nil, translate(err, "subject not found")
	}
	return stream, nil
}

// CurrentScore returns the subject's score, or nil when none was reported.
func (r *Repository) CurrentScore(ctx context.Context, subjectID id.SubjectID) (*scoring.Score, error) {
	score, err := r.scores.Current(ctx, subjectID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err, "score not found")
	}
	return score, nil
}

// Execute loads the subject, lets decide validate and produce entries, and
// appends them in one transaction. A concurrent writer makes the append fail
// with a conflict; nothing is retried here.
func (r *Repository) Execute(ctx context.Context, subjectID id.SubjectID, decide DecideFunc, after AfterFunc) (*models.Subject, []ledger.Entry, error) {
	var (
		subject *models.Subject
		entries []ledger.Entry
	)
	err := r.tx.RunInTx(ctx, uuid.UUID(subjectID), func(txCtx context.Context) error {
		s, err := r.Load(txCtx, subjectID)
		if err != nil {
			return err
		}
		before := s.Decision
		produced, err := decide(txCtx, s)
		if err != nil {
			return err
		}
		if len(produced) == 0 {
			subject = s
			return nil
		}
		if err := r.ledger.Append(txCtx, produced...); err != nil {
			return translateAppend(err, before)
		}
		if after != nil {
			if err := after(txCtx, s, produced); err != nil {
				return err
			}
		}
		subject, entries = s, produced
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return subject, entries, nil
}

func translate(err error, notFound string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFound)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "resource was modified concurrently")
	case errors.Is(err, sentinel.ErrInvalidState):
		return dErrors.Wrap(err, dErrors.CodeInternal, "stored subject state is invalid")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "storage unavailable")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "storage failure")
	}
}

func translateAppend(err error, current models.Decision) error {
	if errors.Is(err, sentinel.ErrConflict) {
		return dErrors.Conflict(dErrors.CodeConflict,
			"subject was modified concurrently; reload and retry", string(current))
	}
	return translate(err, "subject not found")
}
