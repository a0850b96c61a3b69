package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dealdesk/internal/authz"
	"dealdesk/internal/ledger"
	"dealdesk/internal/ledger/handler/mocks"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	router  chi.Router
	actor   id.ActorID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.actor = id.ActorID(uuid.New())
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(target string, roles ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	ctx := requestcontext.WithActor(req.Context(), s.actor, roles...)
	ctx = requestcontext.WithTime(ctx, time.Date(2026, 7, 1, 9, 30, 0, 0, time.UTC))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func (s *HandlerSuite) TestList() {
	s.Run("non-reviewer is forbidden", func() {
		rec := s.do("/audit/entries", "scorer")
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("bad limit is rejected before the service", func() {
		rec := s.do("/audit/entries?limit=zero", "reviewer")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("query maps onto filter", func() {
		subject := uuid.New()
		s.service.EXPECT().
			List(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, rc authz.ReviewerContext, f ledger.Filter) ([]ledger.Entry, error) {
				s.Equal(s.actor, rc.Actor())
				s.Equal(subject, f.SubjectID)
				s.Equal([]ledger.Action{ledger.ActionAppealFiled, ledger.ActionAppealResolved}, f.Actions)
				s.Equal(time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC), f.From)
				s.Equal(25, f.Limit)
				return []ledger.Entry{
					ledger.NewEntry(ledger.KindDeal, subject, 1, s.actor, "none", "pending", ledger.Submitted{}, time.Now()),
				}, nil
			})

		rec := s.do("/audit/entries?subject_id="+subject.String()+"&action=appeal_filed,appeal_resolved&from=2026-06-01&limit=25", "reviewer")
		s.Require().Equal(http.StatusOK, rec.Code)

		var body struct {
			Entries []ledger.Entry `json:"entries"`
			Count   int            `json:"count"`
		}
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Equal(1, body.Count)
		s.Equal(ledger.ActionSubmitted, body.Entries[0].Action)
	})
}

func (s *HandlerSuite) TestExport() {
	s.Run("streams csv with attachment headers", func() {
		s.service.EXPECT().
			Export(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ authz.ReviewerContext, _ ledger.Filter, w io.Writer) (int, error) {
				return 0, ledger.Export(w, nil)
			})

		rec := s.do("/audit/export", "reviewer")
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Equal("text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		s.Contains(rec.Header().Get("Content-Disposition"), "audit-20260701T093000Z.csv")
		s.Contains(rec.Body.String(), "timestamp,action,subject_id")
	})

	s.Run("service error before any row is a json error", func() {
		s.service.EXPECT().
			Export(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
			Return(0, dErrors.New(dErrors.CodeValidation, "from must be before to"))

		rec := s.do("/audit/export", "reviewer")
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "validation_error")
	})
}
