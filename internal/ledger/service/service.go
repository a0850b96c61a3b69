// Package service exposes the ledger to reviewers: filtered listings and the
// delimited-text export used by compliance.
package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel"

	"dealdesk/internal/authz"
	"dealdesk/internal/ledger"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/requestcontext"
)

const (
	maxListLimit   = 10000
	exportPageSize = 1000
)

var tracer = otel.Tracer("dealdesk/ledger")

type Service struct {
	store  ledger.Store
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store ledger.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("ledger store is required")
	}
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// List returns entries matching f. Reviewer-only.
func (s *Service) List(ctx context.Context, reviewer authz.ReviewerContext, f ledger.Filter) ([]ledger.Entry, error) {
	ctx, span := tracer.Start(ctx, "ledger.List")
	defer span.End()

	if !reviewer.Valid() {
		return nil, authz.ErrInvalidCapability()
	}
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	if f.Limit <= 0 || f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	entries, err := s.store.List(ctx, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ledger entries")
	}
	return entries, nil
}

// Export writes every matching entry to w as CSV, paging through the store so
// no row is dropped. A positive f.Limit caps the row count. The export itself
// is not a state change and writes no ledger entry; it is logged instead.
func (s *Service) Export(ctx context.Context, reviewer authz.ReviewerContext, f ledger.Filter, w io.Writer) (int, error) {
	ctx, span := tracer.Start(ctx, "ledger.Export")
	defer span.End()

	if !reviewer.Valid() {
		return 0, authz.ErrInvalidCapability()
	}
	if err := validateFilter(f); err != nil {
		return 0, err
	}
	if f.Limit < 0 {
		f.Limit = 0
	}

	ew, err := ledger.NewExportWriter(w)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write export")
	}
	page := f
	for {
		page.Limit = exportPageSize
		if f.Limit > 0 && f.Limit-ew.Rows() < page.Limit {
			page.Limit = f.Limit - ew.Rows()
		}
		entries, err := s.store.List(ctx, page)
		if err != nil {
			return ew.Rows(), dErrors.Wrap(err, dErrors.CodeInternal, "failed to list ledger entries")
		}
		if err := ew.Write(entries...); err != nil {
			return ew.Rows(), dErrors.Wrap(err, dErrors.CodeInternal, "failed to write export")
		}
		if len(entries) < page.Limit || (f.Limit > 0 && ew.Rows() >= f.Limit) {
			break
		}
		last := ledger.PositionOf(entries[len(entries)-1])
		page.After = &last
	}
	if err := ew.Flush(); err != nil {
		return ew.Rows(), dErrors.Wrap(err, dErrors.CodeInternal, "failed to write export")
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "ledger_exported",
			"actor_id", reviewer.Actor().String(),
			"rows", ew.Rows(),
			"request_id", requestcontext.RequestID(ctx),
			"log_type", "audit",
		)
	}
	return ew.Rows(), nil
}

func validateFilter(f ledger.Filter) error {
	if !f.From.IsZero() && !f.To.IsZero() && !f.From.Before(f.To) {
		return dErrors.New(dErrors.CodeValidation, "from must be before to")
	}
	for _, a := range f.Actions {
		if !a.IsValid() {
			return dErrors.New(dErrors.CodeValidation, "unknown action: "+string(a))
		}
	}
	if f.Kind != "" && f.Kind != ledger.KindDeal && f.Kind != ledger.KindResponse {
		return dErrors.New(dErrors.CodeValidation, "unknown subject kind: "+string(f.Kind))
	}
	return nil
}
