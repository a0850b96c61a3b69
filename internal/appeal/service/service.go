// Package service files and resolves appeals against review decisions.
//
// An appeal is recorded in the subject's own ledger stream, so filing and
// resolving share the subject's transaction and concurrency control with
// every other decision change.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dealdesk/internal/authz"
	"dealdesk/internal/ledger"
	"dealdesk/internal/notify"
	"dealdesk/internal/review/metrics"
	"dealdesk/internal/review/models"
	"dealdesk/internal/review/store"
	"dealdesk/pkg/attrs"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/requestcontext"
)

var tracer = otel.Tracer("dealdesk/appeal")

type Service struct {
	repo     *store.Repository
	notifier notify.Notifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

func New(repo *store.Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	s := &Service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// File opens an appeal on behalf of one of the subject's parties.
func (s *Service) File(ctx context.Context, appellant authz.PartyContext, subjectID id.SubjectID, reason string, documents []string) (*models.Appeal, error) {
	ctx, span := tracer.Start(ctx, "appeal.File", trace.WithAttributes(attribute.String("subject_id", subjectID.String())))
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("file_appeal", time.Since(start)) }()

	if !appellant.Valid() {
		return nil, authz.ErrInvalidCapability()
	}
	now := requestcontext.Now(ctx)
	var appealID id.AppealID
	subject, entries, err := s.repo.Execute(ctx, subjectID, func(_ context.Context, subject *models.Subject) ([]ledger.Entry, error) {
		if !subject.Facts.IsParty(appellant.Actor()) {
			return nil, dErrors.New(dErrors.CodeForbidden, "only a party to the subject may appeal")
		}
		filed, entries, err := subject.FileAppeal(appellant.Actor(), reason, documents, now)
		appealID = filed
		return entries, err
	}, nil)
	if err != nil {
		s.countConflict("file_appeal", err)
		return nil, err
	}
	s.metrics.IncrementAppeal("filed")
	s.recordEntries(ctx, entries)
	return subject.Appeal(appealID), nil
}

// Resolve closes a pending appeal. An overturn re-decides the subject and
// notifies the counterparty as a fresh decision would.
func (s *Service) Resolve(ctx context.Context, reviewer authz.ReviewerContext, subjectID id.SubjectID, appealID id.AppealID, outcome models.AppealStatus, reviewerNote string, newDecision models.Decision) (*models.Appeal, error) {
	ctx, span := tracer.Start(ctx, "appeal.Resolve", trace.WithAttributes(
		attribute.String("subject_id", subjectID.String()),
		attribute.String("appeal_id", appealID.String()),
	))
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("resolve_appeal", time.Since(start)) }()

	if !reviewer.Valid() {
		return nil, authz.ErrInvalidCapability()
	}
	now := requestcontext.Now(ctx)
	subject, entries, err := s.repo.Execute(ctx, subjectID,
		func(_ context.Context, subject *models.Subject) ([]ledger.Entry, error) {
			if subject.Facts.IsParty(reviewer.Actor()) {
				return nil, dErrors.New(dErrors.CodeForbidden, "reviewers cannot act on subjects they are party to")
			}
			return subject.ResolveAppeal(reviewer.Actor(), appealID, outcome, reviewerNote, newDecision, now)
		},
		func(txCtx context.Context, subject *models.Subject, _ []ledger.Entry) error {
			return s.notify(txCtx, resolutionEvents(subject, appealID, now)...)
		})
	if err != nil {
		s.countConflict("resolve_appeal", err)
		return nil, err
	}
	s.metrics.IncrementAppeal(string(outcome))
	if outcome == models.AppealOverturned {
		s.metrics.IncrementDecision(string(newDecision))
	}
	s.recordEntries(ctx, entries)
	return subject.Appeal(appealID), nil
}

// List returns the subject's appeals, oldest first.
func (s *Service) List(ctx context.Context, caller authz.PartyContext, subjectID id.SubjectID) ([]models.Appeal, error) {
	ctx, span := tracer.Start(ctx, "appeal.List", trace.WithAttributes(attribute.String("subject_id", subjectID.String())))
	defer span.End()

	if !caller.Valid() {
		return nil, authz.ErrInvalidCapability()
	}
	subject, err := s.repo.Load(ctx, subjectID)
	if err != nil {
		return nil, err
	}
	if !caller.IsReviewer() && !subject.Facts.IsParty(caller.Actor()) {
		return nil, dErrors.New(dErrors.CodeForbidden, "caller is not a party to this subject")
	}
	return append([]models.Appeal{}, subject.Appeals...), nil
}

func resolutionEvents(subject *models.Subject, appealID id.AppealID, at time.Time) []notify.Event {
	appeal := subject.Appeal(appealID)
	if appeal == nil {
		return nil
	}
	events := []notify.Event{
		notify.NewEvent(notify.KindAppealResolved, subject.Facts.ID, appeal.Appellant, string(subject.Decision),
			fmt.Sprintf("Appeal on %q %s", subject.Facts.Title, appeal.Status), at),
	}
	if appeal.Status == models.AppealOverturned {
		events = append(events, notify.NewEvent(notify.KindDecisionRecorded, subject.Facts.ID, subject.Facts.CounterpartyID,
			string(subject.Decision), fmt.Sprintf("Decision on %q: %s", subject.Facts.Title, subject.Decision), at))
	}
	return events
}

func (s *Service) notify(ctx context.Context, events ...notify.Event) error {
	if s.notifier == nil || len(events) == 0 {
		return nil
	}
	if err := s.notifier.Notify(ctx, events...); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to queue notification")
	}
	return nil
}

func (s *Service) countConflict(operation string, err error) {
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		s.metrics.IncrementConflict(operation)
	}
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

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	trace.SpanFromContext(ctx).AddEvent(event,
		trace.WithAttributes(attrs.Span(attributes)...))
	args := append(attributes, "event", event, "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, event, args...)
	}
}
