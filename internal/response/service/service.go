// Package service runs the reversible response tracker.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"dealdesk/internal/authz"
	"dealdesk/internal/clock"
	"dealdesk/internal/ledger"
	"dealdesk/internal/response/metrics"
	"dealdesk/internal/response/models"
	"dealdesk/internal/response/store"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/requestcontext"
)

var tracer = otel.Tracer("dealdesk/response")

type Service struct {
	repo    *store.Repository
	window  clock.Window
	logger  *slog.Logger
	metrics *metrics.Metrics
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

// WithWindow sets the reconsider window. Non-positive lengths keep the default.
func WithWindow(w clock.Window) Option {
	return func(s *Service) {
		if w.Length > 0 {
			s.window = w
		}
	}
}

func New(repo *store.Repository, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	s := &Service{repo: repo, window: clock.NewWindow(0)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Open creates a pending record asking responderID to answer.
func (s *Service) Open(ctx context.Context, requester authz.PartyContext, responderID id.ActorID, introductionRef string) (*models.Record, error) {
	ctx, span := tracer.Start(ctx, "response.Open")
	defer span.End()

	if !requester.Valid() {
		return nil, authz.ErrInvalidCapability()
	}
	record, entries, err := models.Open(id.RecordID(uuid.New()), requester.Actor(), responderID, introductionRef, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, record, entries); err != nil {
		return nil, err
	}
	s.recordEntries(ctx, entries)
	return record, nil
}

// Accept answers the record. Responder only.
func (s *Service) Accept(ctx context.Context, responder authz.PartyContext, recordID id.RecordID) (*models.Record, error) {
	now := requestcontext.Now(ctx)
	return s.execute(ctx, "response.Accept", responder, recordID, func(r *models.Record) ([]ledger.Entry, error) {
		return r.Accept(responder.Actor(), now)
	})
}

// Decline answers the record and opens the reconsider window. Responder only.
func (s *Service) Decline(ctx context.Context, responder authz.PartyContext, recordID id.RecordID, reason string) (*models.Record, error) {
	now := requestcontext.Now(ctx)
	return s.execute(ctx, "response.Decline", responder, recordID, func(r *models.Record) ([]ledger.Entry, error) {
		return r.Decline(responder.Actor(), reason, now)
	})
}

// Reconsider reverts the latest decline, once per record. Responder only.
func (s *Service) Reconsider(ctx context.Context, responder authz.PartyContext, recordID id.RecordID) (*models.Record, error) {
	now := requestcontext.Now(ctx)
	record, err := s.execute(ctx, "response.Reconsider", responder, recordID, func(r *models.Record) ([]ledger.Entry, error) {
		return r.Reconsider(responder.Actor(), s.window, now)
	})
	if code := dErrors.CodeOf(err); code == dErrors.CodeWindowExpired || code == dErrors.CodeAlreadyReconsidered || code == dErrors.CodeWrongState {
		s.metrics.IncrementReconsiderRefusal(string(code))
	}
	return record, err
}

// Get returns the record to either party or a reviewer.
func (s *Service) Get(ctx context.Context, caller authz.PartyContext, recordID id.RecordID) (*models.Record, error) {
	ctx, span := tracer.Start(ctx, "response.Get", trace.WithAttributes(attribute.String("record_id", recordID.String())))
	defer span.End()

	record, err := s.repo.Load(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(caller, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Window reports the reconsider window using the same arithmetic Reconsider
// checks against.
func (s *Service) Window(ctx context.Context, caller authz.PartyContext, recordID id.RecordID) (models.WindowView, error) {
	record, err := s.Get(ctx, caller, recordID)
	if err != nil {
		return models.WindowView{}, err
	}
	return record.Window(s.window, requestcontext.Now(ctx)), nil
}

func (s *Service) execute(ctx context.Context, op string, responder authz.PartyContext, recordID id.RecordID, decide func(*models.Record) ([]ledger.Entry, error)) (*models.Record, error) {
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(attribute.String("record_id", recordID.String())))
	defer span.End()

	if !responder.Valid() {
		return nil, authz.ErrInvalidCapability()
	}
	record, entries, err := s.repo.Execute(ctx, recordID, func(_ context.Context, r *models.Record) ([]ledger.Entry, error) {
		if !r.IsResponder(responder.Actor()) {
			return nil, dErrors.New(dErrors.CodeForbidden, "only the responder may answer")
		}
		return decide(r)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	s.recordEntries(ctx, entries)
	return record, nil
}

func authorizeRead(caller authz.PartyContext, r *models.Record) error {
	if !caller.Valid() {
		return authz.ErrInvalidCapability()
	}
	if caller.IsReviewer() || r.IsParty(caller.Actor()) {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "caller is not a party to this response")
}

func (s *Service) recordEntries(ctx context.Context, entries []ledger.Entry) {
	for _, e := range entries {
		s.metrics.IncrementTransition(string(e.Action))
		if s.logger == nil {
			continue
		}
		s.logger.InfoContext(ctx, string(e.Action),
			"record_id", e.SubjectID.String(),
			"actor_id", e.Actor.String(),
			"previous_state", e.PreviousState,
			"new_state", e.NewState,
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
}
