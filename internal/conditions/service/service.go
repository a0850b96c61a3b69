// Package service records the owner's completion of decision conditions.
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
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/requestcontext"
)

var tracer = otel.Tracer("dealdesk/conditions")

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

// Complete marks the conditions of an approved_with_conditions decision as
// done and hands the subject back to the reviewer who set them.
func (s *Service) Complete(ctx context.Context, owner authz.PartyContext, subjectID id.SubjectID, notes string, acknowledged bool) (*models.View, error) {
	ctx, span := tracer.Start(ctx, "conditions.Complete", trace.WithAttributes(attribute.String("subject_id", subjectID.String())))
	defer span.End()
	start := time.Now()
	defer func() { s.metrics.ObserveOperation("complete_conditions", time.Since(start)) }()

	if !owner.Valid() {
		return nil, authz.ErrInvalidCapability()
	}
	now := requestcontext.Now(ctx)
	subject, entries, err := s.repo.Execute(ctx, subjectID,
		func(_ context.Context, subject *models.Subject) ([]ledger.Entry, error) {
			if !subject.Facts.IsOwner(owner.Actor()) {
				return nil, dErrors.New(dErrors.CodeForbidden, "only the subject owner may complete conditions")
			}
			return subject.CompleteConditions(owner.Actor(), notes, acknowledged, now)
		},
		func(txCtx context.Context, subject *models.Subject, _ []ledger.Entry) error {
			if s.notifier == nil || subject.DecidedBy.IsNil() {
				return nil
			}
			event := notify.NewEvent(notify.KindConditionsCompleted, subject.Facts.ID, subject.DecidedBy,
				string(subject.Decision), fmt.Sprintf("Conditions completed on %q", subject.Facts.Title), now)
			if err := s.notifier.Notify(txCtx, event); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to queue notification")
			}
			return nil
		})
	if err != nil {
		span.RecordError(err)
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncrementConflict("complete_conditions")
		}
		return nil, err
	}

	for _, e := range entries {
		s.metrics.IncrementEntry(string(e.Action))
		if s.logger != nil {
			s.logger.InfoContext(ctx, string(e.Action),
				"subject_id", e.SubjectID.String(),
				"actor_id", e.Actor.String(),
				"sequence", e.Sequence,
				"request_id", requestcontext.RequestID(ctx),
				"log_type", "audit",
			)
		}
	}
	view := subject.ViewFor(owner.IsReviewer(), nil, nil)
	return &view, nil
}
