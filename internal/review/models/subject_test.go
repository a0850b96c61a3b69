package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"dealdesk/internal/ledger"
	"dealdesk/internal/scoring"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
)

// =============================================================================
// Subject Projection Test Suite
// =============================================================================
// Commands and replay share one fold, so each test checks both the emitted
// entries and the resulting projection.

type SubjectSuite struct {
	suite.Suite
	owner        id.ActorID
	counterparty id.ActorID
	reviewer     id.ActorID
	now          time.Time
}

func TestSubjectSuite(t *testing.T) {
	suite.Run(t, new(SubjectSuite))
}

func (s *SubjectSuite) SetupTest() {
	s.owner = id.ActorID(uuid.New())
	s.counterparty = id.ActorID(uuid.New())
	s.reviewer = id.ActorID(uuid.New())
	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

func (s *SubjectSuite) newSubject() *Subject {
	facts, err := NewFacts(id.SubjectID(uuid.New()), s.owner, s.counterparty, "Spring campaign",
		Terms{AmountMinor: 250000, Currency: "EUR"}, "3 posts", s.now)
	s.Require().NoError(err)
	subject, err := Replay(*facts, nil)
	s.Require().NoError(err)
	return subject
}

func (s *SubjectSuite) tick() time.Time {
	s.now = s.now.Add(time.Minute)
	return s.now
}

func (s *SubjectSuite) mustApply(entries []ledger.Entry, err error) []ledger.Entry {
	s.Require().NoError(err)
	return entries
}

func (s *SubjectSuite) rejected() *Subject {
	subject := s.newSubject()
	s.mustApply(subject.Submit(s.owner, s.tick()))
	s.mustApply(subject.RecordDecision(s.reviewer, DecisionRejected, "missing usage rights", "brand flagged", s.tick()))
	return subject
}

var longReason = strings.Repeat("the usage rights were attached to the original brief. ", 2)

func (s *SubjectSuite) TestNewFacts() {
	_, err := NewFacts(id.SubjectID(uuid.New()), s.owner, s.owner, "t", Terms{Currency: "EUR"}, "", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "same party twice")

	_, err = NewFacts(id.SubjectID(uuid.New()), s.owner, s.counterparty, "t", Terms{Currency: "eur"}, "", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "lower-case currency")

	_, err = NewFacts(id.SubjectID(uuid.New()), s.owner, s.counterparty, "t", Terms{AmountMinor: -1, Currency: "EUR"}, "", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "negative amount")

	_, err = NewFacts(id.SubjectID(uuid.New()), s.owner, s.counterparty, "t", Terms{Currency: "EUR"}, "3 posts\x00", s.now)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation), "NUL in deliverables")
}

func (s *SubjectSuite) TestSubmit() {
	s.Run("none to pending", func() {
		subject := s.newSubject()
		entries := s.mustApply(subject.Submit(s.owner, s.tick()))
		s.Require().Len(entries, 1)
		s.Equal("none", entries[0].PreviousState)
		s.Equal("pending", entries[0].NewState)
		s.Equal(DecisionPending, subject.Decision)
		s.Equal(int64(1), subject.Version)
	})

	s.Run("twice is an invalid transition", func() {
		subject := s.newSubject()
		s.mustApply(subject.Submit(s.owner, s.tick()))
		_, err := subject.Submit(s.owner, s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		s.Equal("pending", dErrors.StateOf(err))
	})

	s.Run("cancelled subject", func() {
		subject := s.newSubject()
		subject.Facts.Status = StatusCancelled
		_, err := subject.Submit(s.owner, s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		s.Equal(int64(0), subject.Version)
	})
}

func (s *SubjectSuite) TestRecordDecision() {
	s.Run("requires pending", func() {
		subject := s.newSubject()
		_, err := subject.RecordDecision(s.reviewer, DecisionApproved, "", "", s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("rejects non-outcomes", func() {
		subject := s.newSubject()
		s.mustApply(subject.Submit(s.owner, s.tick()))
		_, err := subject.RecordDecision(s.reviewer, DecisionConditionsCompleted, "", "", s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(DecisionPending, subject.Decision, "never partially applied")
	})

	s.Run("sets decided fields", func() {
		subject := s.newSubject()
		s.mustApply(subject.Submit(s.owner, s.tick()))
		at := s.tick()
		entries := s.mustApply(subject.RecordDecision(s.reviewer, DecisionApproved, "looks good", "fee on the high side", at))
		s.Require().Len(entries, 1)
		s.Equal(ledger.DecisionRecorded{Outcome: "approved", ReviewerNote: "looks good", InternalNote: "fee on the high side"}, entries[0].Details)
		s.Equal(at, *subject.DecidedAt)
		s.Equal(s.reviewer, subject.DecidedBy)
		s.Equal("fee on the high side", subject.InternalNote)
	})

	s.Run("approved is terminal", func() {
		subject := s.newSubject()
		s.mustApply(subject.Submit(s.owner, s.tick()))
		s.mustApply(subject.RecordDecision(s.reviewer, DecisionApproved, "", "", s.tick()))
		_, err := subject.RecordDecision(s.reviewer, DecisionRejected, "", "", s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		s.Equal("approved", dErrors.StateOf(err))
	})

	s.Run("refuses a time before the last entry", func() {
		subject := s.newSubject()
		day := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
		s.mustApply(subject.Submit(s.owner, day.Add(8*time.Hour)))
		s.mustApply(subject.RecordDecision(s.reviewer, DecisionApprovedWithConditions, "add disclosure", "", day.Add(10*time.Hour)))
		s.mustApply(subject.CompleteConditions(s.owner, "added", true, day.Add(11*time.Hour)))

		_, err := subject.RecordDecision(s.reviewer, DecisionApproved, "", "", day.Add(9*time.Hour+30*time.Minute))
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
		s.Equal(DecisionConditionsCompleted, subject.Decision)
		s.Equal(day.Add(10*time.Hour), *subject.DecidedAt)
		s.Equal(int64(3), subject.Version)

		entries := s.mustApply(subject.RecordDecision(s.reviewer, DecisionApproved, "", "", day.Add(11*time.Hour)))
		s.Len(entries, 1)
	})

	s.Run("rejects NUL in notes", func() {
		subject := s.newSubject()
		s.mustApply(subject.Submit(s.owner, s.tick()))
		_, err := subject.RecordDecision(s.reviewer, DecisionRejected, "see\x00attached", "", s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = subject.RecordDecision(s.reviewer, DecisionRejected, "", "bad \xff byte", s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(DecisionPending, subject.Decision)
	})
}

func (s *SubjectSuite) TestMarkViewed() {
	subject := s.newSubject()
	s.mustApply(subject.Submit(s.owner, s.tick()))

	entries, err := subject.MarkViewed(s.counterparty, s.tick())
	s.NoError(err)
	s.Empty(entries, "nothing to view while pending")

	s.mustApply(subject.RecordDecision(s.reviewer, DecisionApproved, "", "", s.tick()))

	entries, err = subject.MarkViewed(s.owner, s.tick())
	s.NoError(err)
	s.Empty(entries, "owner reads are not recorded")

	entries = s.mustApply(subject.MarkViewed(s.counterparty, s.tick()))
	s.Require().Len(entries, 1)
	s.Equal("approved", entries[0].PreviousState)
	s.Equal("approved", entries[0].NewState)
	s.NotNil(subject.ViewedDecisionAt)

	entries, err = subject.MarkViewed(s.counterparty, s.tick())
	s.NoError(err)
	s.Empty(entries, "second read is a no-op")
}

func (s *SubjectSuite) TestOverrideScore() {
	subject := s.newSubject()
	score := &scoring.Score{ID: id.ScoreID(uuid.New()), Total: 55}

	s.Run("justification required", func() {
		_, err := subject.OverrideScore(s.reviewer, score, 90, "   ", s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeJustificationRequired))
		s.Nil(subject.Override)
		s.Equal(55.0, scoring.Effective(score, subject.Override))
	})

	s.Run("no score", func() {
		_, err := subject.OverrideScore(s.reviewer, nil, 90, "manual review", s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("out of range is not clamped", func() {
		_, err := subject.OverrideScore(s.reviewer, score, 101, "manual review", s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("replaces effective total without touching decision", func() {
		entries := s.mustApply(subject.OverrideScore(s.reviewer, score, 90, "tax docs verified by phone", s.tick()))
		s.Require().Len(entries, 1)
		s.Equal(ledger.ScoreOverridden{ScoreID: uuid.UUID(score.ID), Value: 90, PreviousTotal: 55,
			Justification: "tax docs verified by phone"}, entries[0].Details)
		s.Equal(DecisionNone, subject.Decision)
		s.Equal(90.0, scoring.Effective(score, subject.Override))

		replaced := &scoring.Score{ID: id.ScoreID(uuid.New()), Total: 40}
		s.Equal(40.0, scoring.Effective(replaced, subject.Override), "override binds to its score")
	})
}

func (s *SubjectSuite) TestCompleteConditions() {
	s.Run("acknowledgment required", func() {
		subject := s.newSubject()
		_, err := subject.CompleteConditions(s.owner, "done", false, s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeAcknowledgmentRequired))
	})

	s.Run("requires approved_with_conditions", func() {
		subject := s.rejected()
		_, err := subject.CompleteConditions(s.owner, "done", true, s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("blocked while appeal pending", func() {
		subject := s.newSubject()
		s.mustApply(subject.Submit(s.owner, s.tick()))
		s.mustApply(subject.RecordDecision(s.reviewer, DecisionApprovedWithConditions, "add disclosure", "", s.tick()))
		_, _, err := subject.FileAppeal(s.owner, longReason, nil, s.tick())
		s.Require().NoError(err)

		_, err = subject.CompleteConditions(s.owner, "done", true, s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeAppealPending))
	})
}

func (s *SubjectSuite) TestFileAppeal() {
	s.Run("not appealable from approved", func() {
		subject := s.newSubject()
		s.mustApply(subject.Submit(s.owner, s.tick()))
		s.mustApply(subject.RecordDecision(s.reviewer, DecisionApproved, "", "", s.tick()))
		_, _, err := subject.FileAppeal(s.owner, longReason, nil, s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeNotAppealable))
	})

	s.Run("reason counted in characters after trimming", func() {
		subject := s.rejected()
		_, _, err := subject.FileAppeal(s.owner, "  "+strings.Repeat("é", 49)+"     ", nil, s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeReasonTooShort))

		_, entries, err := subject.FileAppeal(s.owner, strings.Repeat("é", 50), nil, s.tick())
		s.NoError(err)
		s.Len(entries, 1)
	})

	s.Run("snapshots decision and leaves it unchanged", func() {
		subject := s.rejected()
		appealID, entries, err := subject.FileAppeal(s.owner, longReason, []string{" doc-1 ", "doc-1", "", "doc-2"}, s.tick())
		s.Require().NoError(err)
		s.Equal("rejected", entries[0].PreviousState)
		s.Equal("rejected", entries[0].NewState)
		s.Equal(DecisionRejected, subject.Decision)

		appeal := subject.Appeal(appealID)
		s.Require().NotNil(appeal)
		s.Equal(AppealSubmitted, appeal.Status)
		s.Equal(DecisionRejected, appeal.OriginalDecision)
		s.Equal("missing usage rights", appeal.OriginalReviewerNote)
		s.Equal([]string{"doc-1", "doc-2"}, appeal.Documents)
	})

	s.Run("rejects NUL in reason and documents", func() {
		subject := s.rejected()
		_, _, err := subject.FileAppeal(s.owner, longReason+"\x00", nil, s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, _, err = subject.FileAppeal(s.owner, longReason, []string{"doc\x00"}, s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Nil(subject.PendingAppeal())
	})
}

func (s *SubjectSuite) TestResolveAppeal() {
	s.Run("upheld leaves subject unchanged", func() {
		subject := s.rejected()
		appealID, _, err := subject.FileAppeal(s.owner, longReason, nil, s.tick())
		s.Require().NoError(err)

		entries := s.mustApply(subject.ResolveAppeal(s.reviewer, appealID, AppealUpheld, "still missing", "", s.tick()))
		s.Len(entries, 1)
		s.Equal(DecisionRejected, subject.Decision)
		s.Equal(AppealUpheld, subject.Appeal(appealID).Status)
		s.Nil(subject.PendingAppeal())
	})

	s.Run("overturn must change the decision", func() {
		subject := s.rejected()
		appealID, _, err := subject.FileAppeal(s.owner, longReason, nil, s.tick())
		s.Require().NoError(err)
		_, err = subject.ResolveAppeal(s.reviewer, appealID, AppealOverturned, "", DecisionRejected, s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("already resolved", func() {
		subject := s.rejected()
		appealID, _, err := subject.FileAppeal(s.owner, longReason, nil, s.tick())
		s.Require().NoError(err)
		s.mustApply(subject.ResolveAppeal(s.reviewer, appealID, AppealUpheld, "", "", s.tick()))
		_, err = subject.ResolveAppeal(s.reviewer, appealID, AppealUpheld, "", "", s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("unknown appeal", func() {
		subject := s.rejected()
		_, err := subject.ResolveAppeal(s.reviewer, id.AppealID(uuid.New()), AppealUpheld, "", "", s.tick())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// Scenario: submitted → approved_with_conditions → conditions completed →
// approved, with four entries in that order.
func (s *SubjectSuite) TestConditionalApprovalRoundTrip() {
	subject := s.newSubject()
	var stream []ledger.Entry
	stream = append(stream, s.mustApply(subject.Submit(s.owner, s.tick()))...)
	stream = append(stream, s.mustApply(subject.RecordDecision(s.reviewer, DecisionApprovedWithConditions, "add #ad disclosure", "", s.tick()))...)
	stream = append(stream, s.mustApply(subject.CompleteConditions(s.owner, "disclosure added to all posts", true, s.tick()))...)
	stream = append(stream, s.mustApply(subject.RecordDecision(s.reviewer, DecisionApproved, "thanks", "", s.tick()))...)

	s.Equal(DecisionApproved, subject.Decision)
	s.Require().Len(stream, 4)
	s.Equal([]ledger.Action{
		ledger.ActionSubmitted,
		ledger.ActionDecisionRecorded,
		ledger.ActionConditionsCompleted,
		ledger.ActionDecisionRecorded,
	}, actions(stream))
	s.Equal("disclosure added to all posts", subject.SubjectNote)

	replayed, err := Replay(subject.Facts, stream)
	s.Require().NoError(err)
	s.Equal(subject, replayed)
}

// Scenario: rejected → appeal filed → second appeal refused → overturned to
// approved through pending.
func (s *SubjectSuite) TestAppealOverturnRoundTrip() {
	subject := s.rejected()
	rejectedAt := *subject.DecidedAt

	appealID, _, err := subject.FileAppeal(s.owner, longReason, []string{"contract.pdf"}, s.tick())
	s.Require().NoError(err)

	_, _, err = subject.FileAppeal(s.owner, longReason, nil, s.tick())
	s.True(dErrors.HasCode(err, dErrors.CodeAppealAlreadyPending))

	at := s.tick()
	entries := s.mustApply(subject.ResolveAppeal(s.reviewer, appealID, AppealOverturned, "rights confirmed", DecisionApproved, at))
	s.Require().Len(entries, 2)
	s.Equal(ledger.ActionAppealResolved, entries[0].Action)
	s.Equal("rejected", entries[0].PreviousState)
	s.Equal("pending", entries[0].NewState)
	s.Equal(ledger.ActionDecisionRecorded, entries[1].Action)
	s.Equal("pending", entries[1].PreviousState)
	s.Equal("approved", entries[1].NewState)
	s.Equal(entries[0].Sequence+1, entries[1].Sequence)

	s.Equal(DecisionApproved, subject.Decision)
	s.True(subject.DecidedAt.After(rejectedAt))
	s.Equal(AppealOverturned, subject.Appeal(appealID).Status)
	s.Equal(DecisionApproved, subject.Appeal(appealID).NewDecision)
}

func (s *SubjectSuite) TestReplayRejectsCorruptStreams() {
	subject := s.newSubject()
	entries := s.mustApply(subject.Submit(s.owner, s.tick()))

	s.Run("gap", func() {
		bad := entries[0]
		bad.Sequence = 2
		_, err := Replay(subject.Facts, []ledger.Entry{bad})
		s.ErrorIs(err, ErrCorruptStream)
	})

	s.Run("skipped state", func() {
		bad := ledger.NewEntry(ledger.KindDeal, uuid.UUID(subject.Facts.ID), 1, s.reviewer, "none", "approved",
			ledger.DecisionRecorded{Outcome: "approved"}, s.now)
		_, err := Replay(subject.Facts, []ledger.Entry{bad})
		s.ErrorIs(err, ErrCorruptStream)
	})

	s.Run("time goes backwards", func() {
		later := ledger.NewEntry(ledger.KindDeal, uuid.UUID(subject.Facts.ID), 2, s.reviewer, "pending", "rejected",
			ledger.DecisionRecorded{Outcome: "rejected"}, entries[0].Timestamp.Add(-time.Second))
		_, err := Replay(subject.Facts, []ledger.Entry{entries[0], later})
		s.ErrorIs(err, ErrCorruptStream)
	})

	s.Run("foreign action", func() {
		bad := ledger.NewEntry(ledger.KindDeal, uuid.UUID(subject.Facts.ID), 1, s.reviewer, "none", "none",
			ledger.ResponseAccepted{}, s.now)
		_, err := Replay(subject.Facts, []ledger.Entry{bad})
		s.ErrorIs(err, ErrCorruptStream)
	})
}

func (s *SubjectSuite) TestViewForRedactsForParties() {
	subject := s.newSubject()
	score := &scoring.Score{ID: id.ScoreID(uuid.New()), Total: 70}
	s.mustApply(subject.Submit(s.owner, s.tick()))
	s.mustApply(subject.OverrideScore(s.reviewer, score, 85, "verified offline", s.tick()))
	s.mustApply(subject.RecordDecision(s.reviewer, DecisionApproved, "ok", "internal only", s.tick()))
	adapter, err := scoring.NewThresholdAdapter(scoring.DefaultPassThreshold, scoring.DefaultConditionalThreshold)
	s.Require().NoError(err)

	party := subject.ViewFor(false, score, adapter)
	s.Empty(party.InternalNote)
	s.Nil(party.Recommendation)
	s.Require().NotNil(party.Score.Override)
	s.Empty(party.Score.Override.Justification)
	s.Equal(85.0, party.Score.Effective)

	reviewer := subject.ViewFor(true, score, adapter)
	s.Equal("internal only", reviewer.InternalNote)
	s.Require().NotNil(reviewer.Recommendation)
	s.Equal(scoring.RecommendPass, *reviewer.Recommendation)
	s.Equal("verified offline", reviewer.Score.Override.Justification)
}

func actions(entries []ledger.Entry) []ledger.Action {
	out := make([]ledger.Action, len(entries))
	for i, e := range entries {
		out[i] = e.Action
	}
	return out
}
