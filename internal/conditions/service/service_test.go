package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"dealdesk/internal/ledger"
	"dealdesk/internal/notify"
	"dealdesk/internal/review/models"
	"dealdesk/internal/review/reviewtest"
	dErrors "dealdesk/pkg/domain-errors"
)

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

func (s *ServiceSuite) TestComplete() {
	s.Run("acknowledgment is checked first", func() {
		subjectID := s.env.Seed(s.T(), models.DecisionPending)
		_, err := s.service.Complete(s.ctx, s.env.Owner, subjectID, "done", false)
		s.True(dErrors.HasCode(err, dErrors.CodeAcknowledgmentRequired))
	})

	s.Run("requires approved_with_conditions", func() {
		subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionApproved)
		_, err := s.service.Complete(s.ctx, s.env.Owner, subjectID, "done", true)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		s.Equal("approved", dErrors.StateOf(err))
	})

	s.Run("counterparty cannot complete", func() {
		subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionApprovedWithConditions)
		_, err := s.service.Complete(s.ctx, s.env.Counterparty, subjectID, "done", true)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("completes and notifies the deciding reviewer", func() {
		subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionApprovedWithConditions)
		view, err := s.service.Complete(s.ctx, s.env.Owner, subjectID, "  disclosure added  ", true)
		s.Require().NoError(err)
		s.Equal(models.DecisionConditionsCompleted, view.Decision)
		s.Equal("disclosure added", view.SubjectNote)
		s.Require().NotNil(view.ConditionsCompletedAt)

		stream := s.env.Stream(s.T(), subjectID)
		s.Require().Len(stream, 3)
		s.Equal(ledger.ActionConditionsCompleted, stream[2].Action)
		s.Equal("approved_with_conditions", stream[2].PreviousState)

		events := s.env.Notifier.For(s.env.Reviewer.Actor())
		s.Require().Len(events, 1)
		s.Equal(notify.KindConditionsCompleted, events[0].Kind)
	})
}

// TestConditionalApprovalRoundTrip drives a subject from submission through
// conditional approval, completion and final approval.
func (s *ServiceSuite) TestConditionalApprovalRoundTrip() {
	subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionApprovedWithConditions)

	_, err := s.service.Complete(s.ctx, s.env.Owner, subjectID, "all conditions met", true)
	s.Require().NoError(err)

	subject := s.env.Load(s.T(), subjectID)
	entries, err := subject.RecordDecision(s.env.Reviewer.Actor(), models.DecisionApproved, "final", "", s.env.Now)
	s.Require().NoError(err)
	s.Require().NoError(s.env.Ledger.Append(context.Background(), entries...))

	final := s.env.Load(s.T(), subjectID)
	s.Equal(models.DecisionApproved, final.Decision)
	s.Len(s.env.Stream(s.T(), subjectID), 4)
}

func (s *ServiceSuite) TestCompleteBlockedByPendingAppeal() {
	subjectID := s.env.Seed(s.T(), models.DecisionPending, models.DecisionApprovedWithConditions)
	subject := s.env.Load(s.T(), subjectID)
	_, entries, err := subject.FileAppeal(s.env.Owner.Actor(),
		"The conditions set are not part of the agreed deliverables at all.", nil, s.env.Now)
	s.Require().NoError(err)
	s.Require().NoError(s.env.Ledger.Append(context.Background(), entries...))

	_, err = s.service.Complete(s.ctx, s.env.Owner, subjectID, "done", true)
	s.True(dErrors.HasCode(err, dErrors.CodeAppealPending))
	s.Empty(s.env.Notifier.Events())
}
