package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"dealdesk/internal/ledger"
	"dealdesk/internal/scoring"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/platform/sentinel"
)

// Subject is a review subject as of its latest ledger entry. Nothing here is
// stored directly; Replay folds it from the facts and the entry stream, and
// every command applies the entries it emits through the same fold.
type Subject struct {
	Facts Facts

	Decision              Decision
	DecidedAt             *time.Time
	DecidedBy             id.ActorID
	ReviewerNote          string
	InternalNote          string
	SubjectNote           string
	ConditionsCompletedAt *time.Time
	// ViewedDecisionAt is the counterparty's first read of the current decision.
	ViewedDecisionAt *time.Time
	Override         *scoring.Override
	Appeals          []Appeal

	// Version is the sequence of the last applied entry and LastEntryAt its
	// timestamp. Entries never move backwards in time.
	Version     int64
	LastEntryAt time.Time
}

// ErrCorruptStream is wrapped by Replay when a stream cannot be folded.
var ErrCorruptStream = errors.New("corrupt subject stream")

// Replay folds entries over a fresh subject with the given facts.
func Replay(facts Facts, entries []ledger.Entry) (*Subject, error) {
	s := &Subject{Facts: facts, Decision: DecisionNone}
	for _, e := range entries {
		if err := s.apply(e); err != nil {
			return nil, errors.Join(err, sentinel.ErrInvalidState)
		}
	}
	return s, nil
}

// PendingAppeal returns the open appeal, if any.
func (s *Subject) PendingAppeal() *Appeal {
	for i := range s.Appeals {
		if s.Appeals[i].IsPending() {
			return &s.Appeals[i]
		}
	}
	return nil
}

// Appeal returns the appeal with the given id.
func (s *Subject) Appeal(appealID id.AppealID) *Appeal {
	for i := range s.Appeals {
		if s.Appeals[i].ID == appealID {
			return &s.Appeals[i]
		}
	}
	return nil
}

// HasDecision reports whether a reviewer decision is currently in force.
func (s *Subject) HasDecision() bool {
	return s.DecidedAt != nil && s.Decision != DecisionPending && s.Decision != DecisionNone
}

func (s *Subject) apply(e ledger.Entry) error {
	if e.Sequence != s.Version+1 {
		return fmt.Errorf("%w: sequence %d after %d", ErrCorruptStream, e.Sequence, s.Version)
	}
	prev, next := Decision(e.PreviousState), Decision(e.NewState)
	if prev != s.Decision || !next.IsValid() || !IsEdge(prev, next) {
		return fmt.Errorf("%w: %s entry %s → %s from %s", ErrCorruptStream, e.Action, prev, next, s.Decision)
	}
	if e.Timestamp.Before(s.LastEntryAt) {
		return fmt.Errorf("%w: entry %d at %s precedes %s", ErrCorruptStream, e.Sequence, e.Timestamp, s.LastEntryAt)
	}

	at := e.Timestamp
	switch d := e.Details.(type) {
	case ledger.Submitted:
	case ledger.DecisionRecorded:
		s.DecidedAt = &at
		s.DecidedBy = e.Actor
		s.ReviewerNote = d.ReviewerNote
		s.InternalNote = d.InternalNote
		s.ViewedDecisionAt = nil
	case ledger.DecisionViewed:
		s.ViewedDecisionAt = &at
	case ledger.ScoreOverridden:
		s.Override = &scoring.Override{
			ScoreID:       id.ScoreID(d.ScoreID),
			Value:         d.Value,
			Justification: d.Justification,
			Actor:         e.Actor,
			At:            at,
		}
	case ledger.ConditionsCompleted:
		s.ConditionsCompletedAt = &at
		s.SubjectNote = d.Notes
	case ledger.AppealFiled:
		s.Appeals = append(s.Appeals, Appeal{
			ID:                   id.AppealID(d.AppealID),
			SubjectID:            s.Facts.ID,
			Appellant:            e.Actor,
			Reason:               d.Reason,
			Documents:            d.Documents,
			OriginalDecision:     Decision(d.OriginalDecision),
			OriginalReviewerNote: d.OriginalReviewerNote,
			OriginalDecidedAt:    d.OriginalDecidedAt,
			Status:               AppealSubmitted,
			FiledAt:              at,
		})
	case ledger.AppealResolved:
		appeal := s.Appeal(id.AppealID(d.AppealID))
		if appeal == nil || !appeal.IsPending() {
			return fmt.Errorf("%w: resolution for unknown or closed appeal %s", ErrCorruptStream, d.AppealID)
		}
		appeal.Status = AppealStatus(d.Outcome)
		appeal.ResolvedAt = &at
		appeal.ResolvedBy = e.Actor
		appeal.ResolutionNote = d.ReviewerNote
		appeal.NewDecision = Decision(d.NewDecision)
	default:
		return fmt.Errorf("%w: action %s does not belong to a review subject", ErrCorruptStream, e.Action)
	}

	s.Decision = next
	s.Version = e.Sequence
	s.LastEntryAt = e.Timestamp
	return nil
}

// emit builds the next entry and applies it. It is the only way commands
// change a subject.
func (s *Subject) emit(actor id.ActorID, next Decision, details ledger.Details, at time.Time) (ledger.Entry, error) {
	if at.Before(s.LastEntryAt) {
		return ledger.Entry{}, dErrors.Conflict(dErrors.CodeConflict,
			"action time precedes the subject's last recorded entry", string(s.Decision))
	}
	e := ledger.NewEntry(ledger.KindDeal, uuid.UUID(s.Facts.ID), s.Version+1, actor,
		string(s.Decision), string(next), details, at)
	if err := s.apply(e); err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}
