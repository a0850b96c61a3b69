package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"dealdesk/internal/ledger"
	"dealdesk/internal/scoring"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	pstrings "dealdesk/pkg/platform/strings"
)

const maxNoteLength = 4000

// Submit moves a subject from none to pending.
func (s *Subject) Submit(actor id.ActorID, at time.Time) ([]ledger.Entry, error) {
	if s.Facts.Status == StatusCancelled {
		return nil, dErrors.Conflict(dErrors.CodeInvalidTransition, "a cancelled subject cannot be submitted", string(s.Decision))
	}
	if !s.Decision.CanTransitionTo(DecisionPending) {
		return nil, invalidTransition(s.Decision, DecisionPending)
	}
	e, err := s.emit(actor, DecisionPending, ledger.Submitted{}, at)
	if err != nil {
		return nil, err
	}
	return []ledger.Entry{e}, nil
}

// RecordDecision applies a reviewer outcome from pending, or a final
// approved/rejected from conditions_completed.
func (s *Subject) RecordDecision(actor id.ActorID, outcome Decision, reviewerNote, internalNote string, at time.Time) ([]ledger.Entry, error) {
	if !outcome.IsOutcome() {
		return nil, dErrors.New(dErrors.CodeValidation, "outcome must be approved, approved_with_conditions or rejected")
	}
	reviewerNote, internalNote = strings.TrimSpace(reviewerNote), strings.TrimSpace(internalNote)
	if err := checkNote("reviewer_note", reviewerNote); err != nil {
		return nil, err
	}
	if err := checkNote("internal_note", internalNote); err != nil {
		return nil, err
	}
	if !s.Decision.CanTransitionTo(outcome) {
		return nil, invalidTransition(s.Decision, outcome)
	}
	e, err := s.emit(actor, outcome, ledger.DecisionRecorded{
		Outcome:      string(outcome),
		ReviewerNote: reviewerNote,
		InternalNote: internalNote,
	}, at)
	if err != nil {
		return nil, err
	}
	return []ledger.Entry{e}, nil
}

// MarkViewed records the counterparty's first read of the current decision.
// It returns no entry when there is nothing to record.
func (s *Subject) MarkViewed(actor id.ActorID, at time.Time) ([]ledger.Entry, error) {
	if !s.HasDecision() || s.ViewedDecisionAt != nil || !s.Facts.IsCounterparty(actor) {
		return nil, nil
	}
	e, err := s.emit(actor, s.Decision, ledger.DecisionViewed{}, at)
	if err != nil {
		return nil, err
	}
	return []ledger.Entry{e}, nil
}

// OverrideScore replaces the effective total of the current score. The
// decision is untouched.
func (s *Subject) OverrideScore(actor id.ActorID, score *scoring.Score, value float64, justification string, at time.Time) ([]ledger.Entry, error) {
	justification = strings.TrimSpace(justification)
	if err := scoring.ValidateOverride(value, justification); err != nil {
		return nil, err
	}
	if err := checkNote("justification", justification); err != nil {
		return nil, err
	}
	if score == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "subject has no current score")
	}
	e, err := s.emit(actor, s.Decision, ledger.ScoreOverridden{
		ScoreID:       uuid.UUID(score.ID),
		Value:         value,
		PreviousTotal: scoring.Effective(score, s.Override),
		Justification: justification,
	}, at)
	if err != nil {
		return nil, err
	}
	return []ledger.Entry{e}, nil
}

// CompleteConditions records the owner's remediation and hands the subject
// back for final re-review.
func (s *Subject) CompleteConditions(actor id.ActorID, notes string, acknowledged bool, at time.Time) ([]ledger.Entry, error) {
	if !acknowledged {
		return nil, dErrors.New(dErrors.CodeAcknowledgmentRequired, "conditions must be acknowledged")
	}
	notes = strings.TrimSpace(notes)
	if err := checkNote("notes", notes); err != nil {
		return nil, err
	}
	if s.PendingAppeal() != nil {
		return nil, dErrors.Conflict(dErrors.CodeAppealPending, "an appeal is pending for this subject", string(s.Decision))
	}
	if !s.Decision.CanTransitionTo(DecisionConditionsCompleted) {
		return nil, invalidTransition(s.Decision, DecisionConditionsCompleted)
	}
	e, err := s.emit(actor, DecisionConditionsCompleted, ledger.ConditionsCompleted{
		Notes:        notes,
		Acknowledged: true,
	}, at)
	if err != nil {
		return nil, err
	}
	return []ledger.Entry{e}, nil
}

// FileAppeal opens an appeal against the current decision. The decision
// itself does not change.
func (s *Subject) FileAppeal(actor id.ActorID, reason string, documents []string, at time.Time) (id.AppealID, []ledger.Entry, error) {
	if !s.Decision.IsAppealable() {
		return id.AppealID{}, nil, dErrors.Conflict(dErrors.CodeNotAppealable,
			"only rejected or conditionally approved decisions can be appealed", string(s.Decision))
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) < MinAppealReasonLength {
		return id.AppealID{}, nil, dErrors.New(dErrors.CodeReasonTooShort, "appeal reason must be at least 50 characters")
	}
	if err := checkNote("reason", reason); err != nil {
		return id.AppealID{}, nil, err
	}
	documents = pstrings.DedupeAndTrim(documents)
	for _, doc := range documents {
		if !pstrings.Storable(doc) {
			return id.AppealID{}, nil, dErrors.New(dErrors.CodeValidation, "documents contain invalid characters")
		}
	}
	if s.PendingAppeal() != nil {
		return id.AppealID{}, nil, dErrors.Conflict(dErrors.CodeAppealAlreadyPending,
			"an appeal is already pending for this subject", string(s.Decision))
	}

	appealID := uuid.New()
	var decidedAt time.Time
	if s.DecidedAt != nil {
		decidedAt = *s.DecidedAt
	}
	e, err := s.emit(actor, s.Decision, ledger.AppealFiled{
		AppealID:             appealID,
		Reason:               reason,
		Documents:            documents,
		OriginalDecision:     string(s.Decision),
		OriginalReviewerNote: s.ReviewerNote,
		OriginalDecidedAt:    decidedAt,
	}, at)
	if err != nil {
		return id.AppealID{}, nil, err
	}
	return id.AppealID(appealID), []ledger.Entry{e}, nil
}

// ResolveAppeal closes a pending appeal. Upholding leaves the subject alone.
// Overturning cycles the decision through pending to newDecision, producing
// two entries that must be appended together.
func (s *Subject) ResolveAppeal(actor id.ActorID, appealID id.AppealID, outcome AppealStatus, reviewerNote string, newDecision Decision, at time.Time) ([]ledger.Entry, error) {
	if !outcome.IsResolution() {
		return nil, dErrors.New(dErrors.CodeValidation, "outcome must be upheld or overturned")
	}
	reviewerNote = strings.TrimSpace(reviewerNote)
	if err := checkNote("reviewer_note", reviewerNote); err != nil {
		return nil, err
	}
	appeal := s.Appeal(appealID)
	if appeal == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "appeal not found")
	}
	if !appeal.IsPending() {
		return nil, dErrors.Conflict(dErrors.CodeInvalidTransition, "appeal is already resolved", string(appeal.Status))
	}

	if outcome == AppealUpheld {
		e, err := s.emit(actor, s.Decision, ledger.AppealResolved{
			AppealID:     uuid.UUID(appealID),
			Outcome:      string(AppealUpheld),
			ReviewerNote: reviewerNote,
		}, at)
		if err != nil {
			return nil, err
		}
		return []ledger.Entry{e}, nil
	}

	if !newDecision.IsOutcome() {
		return nil, dErrors.New(dErrors.CodeValidation, "an overturn requires a new decision")
	}
	if newDecision == appeal.OriginalDecision {
		return nil, dErrors.New(dErrors.CodeValidation, "an overturn must change the decision")
	}
	if !s.Decision.IsAppealable() {
		return nil, invalidTransition(s.Decision, DecisionPending)
	}

	resolved, err := s.emit(actor, DecisionPending, ledger.AppealResolved{
		AppealID:     uuid.UUID(appealID),
		Outcome:      string(AppealOverturned),
		ReviewerNote: reviewerNote,
		NewDecision:  string(newDecision),
	}, at)
	if err != nil {
		return nil, err
	}
	ref := uuid.UUID(appealID)
	decided, err := s.emit(actor, newDecision, ledger.DecisionRecorded{
		Outcome:      string(newDecision),
		ReviewerNote: reviewerNote,
		AppealID:     &ref,
	}, at)
	if err != nil {
		return nil, err
	}
	return []ledger.Entry{resolved, decided}, nil
}

func invalidTransition(from, to Decision) error {
	return dErrors.Conflict(dErrors.CodeInvalidTransition,
		"cannot move from "+string(from)+" to "+string(to), string(from))
}

func checkNote(field, v string) error {
	if !pstrings.Storable(v) {
		return dErrors.New(dErrors.CodeValidation, field+" contains invalid characters")
	}
	if utf8.RuneCountInString(v) > maxNoteLength {
		return dErrors.New(dErrors.CodeValidation, field+" is too long")
	}
	return nil
}
