package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"dealdesk/internal/authz"
	"dealdesk/internal/ledger"
	"dealdesk/internal/notify"
	"dealdesk/internal/review/models"
	"dealdesk/internal/scoring"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/requestcontext"
)

// RegisterInput carries the facts of a new subject. The caller becomes the owner.
type RegisterInput struct {
	CounterpartyID id.ActorID
	Title          string
	Terms          models.Terms
	Deliverables   string
}

// Register stores the facts of a new subject in draft status. No ledger
// entry is written; the decision lifecycle starts at Submit.
func (s *Service) Register(ctx context.Context, owner authz.PartyContext, in RegisterInput) (*models.View, error) {
	subjectID := id.SubjectID(uuid.New())
	ctx, done := s.start(ctx, "register", subjectID.String())
	var err error
	defer func() { done(err) }()

	if !owner.Valid() {
		err = authz.ErrInvalidCapability()
		return nil, err
	}
	facts, err := models.NewFacts(subjectID, owner.Actor(), in.CounterpartyID, in.Title, in.Terms, in.Deliverables, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err = s.repo.Facts().Create(ctx, facts); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to store subject")
		return nil, err
	}
	s.logAudit(ctx, "subject_registered",
		"subject_id", subjectID.String(),
		"owner_id", owner.Actor().String(),
	)
	subject, err := models.Replay(*facts, nil)
	if err != nil {
		return nil, err
	}
	view := subject.ViewFor(owner.IsReviewer(), nil, s.adapter)
	return &view, nil
}

// SetStatus moves the subject's lifecycle status. Owner only.
func (s *Service) SetStatus(ctx context.Context, owner authz.PartyContext, subjectID id.SubjectID, status models.LifecycleStatus) (*models.View, error) {
	ctx, done := s.start(ctx, "set_status", subjectID.String())
	var err error
	defer func() { done(err) }()

	if !status.IsValid() {
		err = dErrors.New(dErrors.CodeValidation, "unknown status: "+string(status))
		return nil, err
	}
	subject, err := s.repo.Load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err = requireOwner(owner, &subject.Facts); err != nil {
		return nil, err
	}
	if !subject.Facts.Status.CanTransitionTo(status) {
		err = dErrors.Conflict(dErrors.CodeInvalidTransition,
			"cannot move status from "+string(subject.Facts.Status)+" to "+string(status), string(subject.Facts.Status))
		return nil, err
	}
	if err = s.repo.Facts().UpdateStatus(ctx, subjectID, status); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to update status")
		return nil, err
	}
	s.logAudit(ctx, "subject_status_changed",
		"subject_id", subjectID.String(),
		"from", string(subject.Facts.Status),
		"to", string(status),
	)
	subject.Facts.Status = status
	return s.view(ctx, subject, owner.IsReviewer())
}

// Submit moves the subject from none to pending. Owner only.
func (s *Service) Submit(ctx context.Context, owner authz.PartyContext, subjectID id.SubjectID) (*models.View, error) {
	ctx, done := s.start(ctx, "submit", subjectID.String())
	var err error
	defer func() { done(err) }()

	now := requestcontext.Now(ctx)
	subject, entries, err := s.repo.Execute(ctx, subjectID, func(_ context.Context, subject *models.Subject) ([]ledger.Entry, error) {
		if err := requireOwner(owner, &subject.Facts); err != nil {
			return nil, err
		}
		return subject.Submit(owner.Actor(), now)
	}, nil)
	if err != nil {
		return nil, err
	}
	s.recordEntries(ctx, entries)
	return s.view(ctx, subject, owner.IsReviewer())
}

// RecordDecision applies a reviewer outcome and notifies the counterparty.
func (s *Service) RecordDecision(ctx context.Context, reviewer authz.ReviewerContext, subjectID id.SubjectID, outcome models.Decision, reviewerNote, internalNote string) (*models.View, error) {
	ctx, done := s.start(ctx, "record_decision", subjectID.String())
	var err error
	defer func() { done(err) }()

	now := requestcontext.Now(ctx)
	subject, entries, err := s.repo.Execute(ctx, subjectID,
		func(_ context.Context, subject *models.Subject) ([]ledger.Entry, error) {
			if err := requireImpartial(reviewer, &subject.Facts); err != nil {
				return nil, err
			}
			return subject.RecordDecision(reviewer.Actor(), outcome, reviewerNote, internalNote, now)
		},
		func(txCtx context.Context, subject *models.Subject, _ []ledger.Entry) error {
			return s.notify(txCtx, notify.NewEvent(notify.KindDecisionRecorded,
				subject.Facts.ID, subject.Facts.CounterpartyID, string(subject.Decision),
				decisionSummary(subject), now))
		})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementDecision(string(outcome))
	s.recordEntries(ctx, entries)
	return s.view(ctx, subject, true)
}

// View returns the subject as the caller may see it. The counterparty's
// first read of a recorded decision is itself recorded.
func (s *Service) View(ctx context.Context, caller authz.PartyContext, subjectID id.SubjectID) (*models.View, error) {
	ctx, done := s.start(ctx, "view", subjectID.String())
	var err error
	defer func() { done(err) }()

	subject, err := s.repo.Load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err = authorizeRead(caller, &subject.Facts); err != nil {
		return nil, err
	}
	if subject.HasDecision() && subject.ViewedDecisionAt == nil && subject.Facts.IsCounterparty(caller.Actor()) {
		subject, err = s.markViewed(ctx, caller, subject)
		if err != nil {
			return nil, err
		}
	}
	return s.view(ctx, subject, caller.IsReviewer())
}

// markViewed appends the first-read entry. Losing a race to another writer
// only means the read is retried against the newer state.
func (s *Service) markViewed(ctx context.Context, caller authz.PartyContext, current *models.Subject) (*models.Subject, error) {
	now := requestcontext.Now(ctx)
	subject, entries, err := s.repo.Execute(ctx, current.Facts.ID, func(_ context.Context, subject *models.Subject) ([]ledger.Entry, error) {
		return subject.MarkViewed(caller.Actor(), now)
	}, nil)
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		return s.repo.Load(ctx, current.Facts.ID)
	}
	if err != nil {
		return nil, err
	}
	s.recordEntries(ctx, entries)
	return subject, nil
}

// History returns the subject's ledger stream, redacted for non-reviewers.
func (s *Service) History(ctx context.Context, caller authz.PartyContext, subjectID id.SubjectID) ([]ledger.Entry, error) {
	ctx, done := s.start(ctx, "history", subjectID.String())
	var err error
	defer func() { done(err) }()

	subject, err := s.repo.Load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if err = authorizeRead(caller, &subject.Facts); err != nil {
		return nil, err
	}
	stream, err := s.repo.Stream(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if caller.IsReviewer() {
		return stream, nil
	}
	redacted := make([]ledger.Entry, len(stream))
	for i, e := range stream {
		e.Details = e.Details.Redacted()
		redacted[i] = e
	}
	return redacted, nil
}

// OverrideScore replaces the effective total of the subject's current score.
func (s *Service) OverrideScore(ctx context.Context, reviewer authz.ReviewerContext, subjectID id.SubjectID, value float64, justification string) (*models.View, error) {
	ctx, done := s.start(ctx, "override_score", subjectID.String())
	var err error
	defer func() { done(err) }()

	now := requestcontext.Now(ctx)
	subject, entries, err := s.repo.Execute(ctx, subjectID, func(txCtx context.Context, subject *models.Subject) ([]ledger.Entry, error) {
		if err := requireImpartial(reviewer, &subject.Facts); err != nil {
			return nil, err
		}
		score, err := s.repo.CurrentScore(txCtx, subjectID)
		if err != nil {
			return nil, err
		}
		return subject.OverrideScore(reviewer.Actor(), score, value, justification, now)
	}, nil)
	if err != nil {
		return nil, err
	}
	s.recordEntries(ctx, entries)
	return s.view(ctx, subject, true)
}

// ScoreInput is one snapshot reported by the scoring collaborator.
type ScoreInput struct {
	Total     float64
	Breakdown scoring.Breakdown
}

// PutScore replaces the subject's current score. An override recorded
// against the previous score no longer applies.
func (s *Service) PutScore(ctx context.Context, scorer authz.ScorerContext, subjectID id.SubjectID, in ScoreInput) (*scoring.Score, error) {
	ctx, done := s.start(ctx, "put_score", subjectID.String())
	var err error
	defer func() { done(err) }()

	if !scorer.Valid() {
		err = authz.ErrInvalidCapability()
		return nil, err
	}
	score := &scoring.Score{
		ID:         id.ScoreID(uuid.New()),
		SubjectID:  subjectID,
		Total:      in.Total,
		Breakdown:  in.Breakdown,
		ComputedAt: requestcontext.Now(ctx).UTC(),
	}
	if err = score.Validate(); err != nil {
		return nil, err
	}
	if _, err = s.repo.Load(ctx, subjectID); err != nil {
		return nil, err
	}
	if err = s.repo.Scores().Put(ctx, score); err != nil {
		err = dErrors.Wrap(err, dErrors.CodeInternal, "failed to store score")
		return nil, err
	}
	s.logAudit(ctx, "score_reported",
		"subject_id", subjectID.String(),
		"score_id", score.ID.String(),
		"actor_id", scorer.Actor().String(),
	)
	return score, nil
}

func (s *Service) view(ctx context.Context, subject *models.Subject, reviewer bool) (*models.View, error) {
	score, err := s.repo.CurrentScore(ctx, subject.Facts.ID)
	if err != nil {
		return nil, err
	}
	view := subject.ViewFor(reviewer, score, s.adapter)
	return &view, nil
}

func (s *Service) recordEntries(ctx context.Context, entries []ledger.Entry) {
	for _, e := range entries {
		s.metrics.IncrementEntry(string(e.Action))
		s.logAudit(ctx, string(e.Action),
			"subject_id", e.SubjectID.String(),
			"actor_id", e.Actor.String(),
			"sequence", e.Sequence,
			"previous_state", e.PreviousState,
			"new_state", e.NewState,
		)
	}
}

func decisionSummary(subject *models.Subject) string {
	return fmt.Sprintf("Decision on %q: %s", subject.Facts.Title, subject.Decision)
}
