package service

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"dealdesk/internal/authz"
	"dealdesk/internal/ledger"
	"dealdesk/internal/notify"
	"dealdesk/internal/review/models"
	"dealdesk/internal/review/reviewtest"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
)

var reason = strings.Repeat("The tax document was attached on the first day. ", 2)

type ServiceSuite struct {
	suite.Suite
	env     *reviewtest.Env
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.env = reviewtest.NewEnv(s.T())
	svc, err := New(s.env.Repo, WithNotifier(s.env.Notifier))
	s.Require().NoError(err)
	s.service = svc
	s.ctx = s.env.Ctx()
}

func (s *ServiceSuite) TestFile() {
	s.Run("only rejected or conditional decisions are appealable", func() {
		subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionApproved)
		_, err := s.service.File(s.ctx, s.env.Owner, subjectID, reason, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAppealable))
		s.Equal("approved", dErrors.StateOf(err))
	})

	s.Run("reason of 49 characters is too short, 50 is enough", func() {
		subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionRejected)
		_, err := s.service.File(s.ctx, s.env.Owner, subjectID, "  "+strings.Repeat("é", 49)+"  ", nil)
		s.True(dErrors.HasCode(err, dErrors.CodeReasonTooShort))

		appeal, err := s.service.File(s.ctx, s.env.Owner, subjectID, strings.Repeat("é", 50), nil)
		s.Require().NoError(err)
		s.Equal(models.AppealSubmitted, appeal.Status)
	})

	s.Run("outsider cannot appeal", func() {
		subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionRejected)
		_, err := s.service.File(s.ctx, s.env.Outsider, subjectID, reason, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Len(s.env.Stream(s.T(), subjectID), 2)
	})

	s.Run("snapshots the contested decision and keeps it", func() {
		subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionApprovedWithConditions)
		appeal, err := s.service.File(s.ctx, s.env.Counterparty, subjectID, reason, []string{" doc-1 ", "doc-1", "doc-2"})
		s.Require().NoError(err)
		s.Equal(models.DecisionApprovedWithConditions, appeal.OriginalDecision)
		s.Equal("seeded", appeal.OriginalReviewerNote)
		s.Equal([]string{"doc-1", "doc-2"}, appeal.Documents)
		s.Equal(s.env.Counterparty.Actor(), appeal.Appellant)

		subject := s.env.Load(s.T(), subjectID)
		s.Equal(models.DecisionApprovedWithConditions, subject.Decision)
	})
}

// TestAppealOverturnRoundTrip follows a rejected subject through appeal,
// duplicate appeal and overturn.
func (s *ServiceSuite) TestAppealOverturnRoundTrip() {
	subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionRejected)

	appeal, err := s.service.File(s.ctx, s.env.Owner, subjectID, reason, nil)
	s.Require().NoError(err)

	_, err = s.service.File(s.ctx, s.env.Owner, subjectID, reason, nil)
	s.True(dErrors.HasCode(err, dErrors.CodeAppealAlreadyPending))

	resolved, err := s.service.Resolve(s.ctx, s.env.Reviewer, subjectID, appeal.ID, models.AppealOverturned, "document verified", models.DecisionApproved)
	s.Require().NoError(err)
	s.Equal(models.AppealOverturned, resolved.Status)
	s.Equal(models.DecisionApproved, resolved.NewDecision)

	subject := s.env.Load(s.T(), subjectID)
	s.Equal(models.DecisionApproved, subject.Decision)
	s.Equal(s.env.Reviewer.Actor(), subject.DecidedBy)

	stream := s.env.Stream(s.T(), subjectID)
	s.Require().Len(stream, 5)
	s.Equal(ledger.ActionAppealResolved, stream[3].Action)
	s.Equal("rejected", stream[3].PreviousState)
	s.Equal("pending", stream[3].NewState)
	s.Equal(ledger.ActionDecisionRecorded, stream[4].Action)
	s.Equal("pending", stream[4].PreviousState)
	s.Equal("approved", stream[4].NewState)
	s.Equal(stream[3].Timestamp, stream[4].Timestamp)

	s.Run("appellant and counterparty are notified", func() {
		owner := s.env.Notifier.For(s.env.Owner.Actor())
		s.Require().Len(owner, 1)
		s.Equal(notify.KindAppealResolved, owner[0].Kind)
		counterparty := s.env.Notifier.For(s.env.Counterparty.Actor())
		s.Require().Len(counterparty, 1)
		s.Equal(notify.KindDecisionRecorded, counterparty[0].Kind)
		s.Equal("approved", counterparty[0].Decision)
	})

	s.Run("a resolved appeal cannot be resolved again", func() {
		_, err := s.service.Resolve(s.ctx, s.env.Reviewer, subjectID, appeal.ID, models.AppealUpheld, "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *ServiceSuite) TestResolveUpheld() {
	subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionRejected)
	appeal, err := s.service.File(s.ctx, s.env.Owner, subjectID, reason, nil)
	s.Require().NoError(err)

	resolved, err := s.service.Resolve(s.ctx, s.env.Reviewer, subjectID, appeal.ID, models.AppealUpheld, "still missing", "")
	s.Require().NoError(err)
	s.Equal(models.AppealUpheld, resolved.Status)

	subject := s.env.Load(s.T(), subjectID)
	s.Equal(models.DecisionRejected, subject.Decision)
	s.Nil(subject.PendingAppeal())
	s.Len(s.env.Stream(s.T(), subjectID), 4)
	s.Len(s.env.Notifier.For(s.env.Owner.Actor()), 1)
	s.Empty(s.env.Notifier.For(s.env.Counterparty.Actor()))

	s.Run("a new appeal may follow", func() {
		_, err := s.service.File(s.ctx, s.env.Owner, subjectID, reason, nil)
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestResolveRejectsBadInput() {
	subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionRejected)
	appeal, err := s.service.File(s.ctx, s.env.Owner, subjectID, reason, nil)
	s.Require().NoError(err)

	s.Run("overturn must change the decision", func() {
		_, err := s.service.Resolve(s.ctx, s.env.Reviewer, subjectID, appeal.ID, models.AppealOverturned, "", models.DecisionRejected)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("overturn needs an outcome", func() {
		_, err := s.service.Resolve(s.ctx, s.env.Reviewer, subjectID, appeal.ID, models.AppealOverturned, "", models.DecisionPending)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown appeal", func() {
		_, err := s.service.Resolve(s.ctx, s.env.Reviewer, subjectID, id.AppealID(uuid.New()), models.AppealUpheld, "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("zero reviewer capability", func() {
		_, err := s.service.Resolve(s.ctx, authz.ReviewerContext{}, subjectID, appeal.ID, models.AppealUpheld, "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("nothing was written", func() {
		s.Len(s.env.Stream(s.T(), subjectID), 3)
		s.Empty(s.env.Notifier.Events())
	})
}

func (s *ServiceSuite) TestList() {
	subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionRejected)
	_, err := s.service.File(s.ctx, s.env.Owner, subjectID, reason, nil)
	s.Require().NoError(err)

	appeals, err := s.service.List(s.ctx, s.env.Counterparty, subjectID)
	s.Require().NoError(err)
	s.Len(appeals, 1)

	appeals, err = s.service.List(s.ctx, s.env.ReviewerParty, subjectID)
	s.Require().NoError(err)
	s.Len(appeals, 1)

	_, err = s.service.List(s.ctx, s.env.Outsider, subjectID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}
