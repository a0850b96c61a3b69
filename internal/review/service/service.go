// Package service is the decision engine: it authorizes callers against a
// subject's facts, runs the subject's commands and appends the resulting
// ledger entries in one transaction.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dealdesk/internal/authz"
	"dealdesk/internal/notify"
	"dealdesk/internal/review/metrics"
	"dealdesk/internal/review/models"
	"dealdesk/internal/review/store"
	"dealdesk/internal/scoring"
	"dealdesk/pkg/attrs"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/requestcontext"
)

var tracer = otel.Tracer("dealdesk/review")

// Service orchestrates the review subject lifecycle.
type Service struct {
	repo     *store.Repository
	notifier notify.Notifier
	adapter  scoring.Adapter
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

// WithNotifier sets where decision notifications go. Without one they are dropped.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithAdapter sets the scoring adapter used for reviewer recommendations.
func WithAdapter(a scoring.Adapter) Option {
	return func(s *Service) {
		s.adapter = a
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

// authorizeRead lets reviewers and the subject's parties read it.
func authorizeRead(caller authz.PartyContext, f *models.Facts) error {
	if !caller.Valid() {
		return authz.ErrInvalidCapability()
	}
	if caller.IsReviewer() || f.IsParty(caller.Actor()) {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "caller is not a party to this subject")
}

func requireOwner(caller authz.PartyContext, f *models.Facts) error {
	if !caller.Valid() {
		return authz.ErrInvalidCapability()
	}
	if !f.IsOwner(caller.Actor()) {
		return dErrors.New(dErrors.CodeForbidden, "only the subject owner may do this")
	}
	return nil
}

// requireImpartial stops a reviewer from deciding on a subject they are party to.
func requireImpartial(reviewer authz.ReviewerContext, f *models.Facts) error {
	if !reviewer.Valid() {
		return authz.ErrInvalidCapability()
	}
	if f.IsParty(reviewer.Actor()) {
		return dErrors.New(dErrors.CodeForbidden, "reviewers cannot act on subjects they are party to")
	}
	return nil
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

func (s *Service) start(ctx context.Context, operation string, subjectID string) (context.Context, func(err error)) {
	ctx, span := tracer.Start(ctx, "review."+operation, trace.WithAttributes(attribute.String("subject_id", subjectID)))
	begin := time.Now()
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			if dErrors.HasCode(err, dErrors.CodeConflict) {
				s.metrics.IncrementConflict(operation)
			}
		}
		s.metrics.ObserveOperation(operation, time.Since(begin))
		span.End()
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
