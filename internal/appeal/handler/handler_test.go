package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dealdesk/internal/appeal/handler/mocks"
	"dealdesk/internal/review/models"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/requestcontext"
)

type HandlerSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	service   *mocks.MockService
	router    chi.Router
	actor     id.ActorID
	subjectID id.SubjectID
	appealID  id.AppealID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.actor = id.ActorID(uuid.New())
	s.subjectID = id.SubjectID(uuid.New())
	s.appealID = id.AppealID(uuid.New())
	s.router = chi.NewRouter()
	New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, target string, body any, roles ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := requestcontext.WithActor(req.Context(), s.actor, roles...)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req.WithContext(ctx))
	return rec
}

func (s *HandlerSuite) appealsPath() string {
	return "/subjects/" + s.subjectID.String() + "/appeals"
}

func (s *HandlerSuite) TestFile() {
	s.Run("reason too short maps to 400 with its code", func() {
		s.service.EXPECT().File(gomock.Any(), gomock.Any(), s.subjectID, "too short", gomock.Nil()).
			Return(nil, dErrors.New(dErrors.CodeReasonTooShort, "appeal reason must be at least 50 characters"))
		rec := s.do(http.MethodPost, s.appealsPath(), map[string]any{"reason": "too short"})
		s.Equal(http.StatusBadRequest, rec.Code)
		s.Contains(rec.Body.String(), "reason_too_short")
	})

	s.Run("pending appeal maps to 409", func() {
		s.service.EXPECT().File(gomock.Any(), gomock.Any(), s.subjectID, gomock.Any(), gomock.Any()).
			Return(nil, dErrors.Conflict(dErrors.CodeAppealAlreadyPending, "an appeal is already pending for this subject", "rejected"))
		rec := s.do(http.MethodPost, s.appealsPath(), map[string]any{"reason": "x", "documents": []string{"a"}})
		s.Equal(http.StatusConflict, rec.Code)
		s.Contains(rec.Body.String(), `"current_state":"rejected"`)
	})

	s.Run("created", func() {
		s.service.EXPECT().File(gomock.Any(), gomock.Any(), s.subjectID, gomock.Any(), []string{"doc"}).
			Return(&models.Appeal{ID: s.appealID, Status: models.AppealSubmitted}, nil)
		rec := s.do(http.MethodPost, s.appealsPath(), map[string]any{"reason": "x", "documents": []string{"doc"}})
		s.Equal(http.StatusCreated, rec.Code)
	})
}

func (s *HandlerSuite) TestResolve() {
	path := s.appealsPath() + "/" + s.appealID.String() + "/resolve"

	s.Run("requires reviewer", func() {
		rec := s.do(http.MethodPost, path, map[string]any{"outcome": "upheld"})
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("overturn needs a new decision", func() {
		rec := s.do(http.MethodPost, path, map[string]any{"outcome": "overturned"}, "reviewer")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("upheld takes no new decision", func() {
		rec := s.do(http.MethodPost, path, map[string]any{"outcome": "upheld", "new_decision": "approved"}, "reviewer")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("bad appeal id", func() {
		rec := s.do(http.MethodPost, s.appealsPath()+"/nope/resolve", map[string]any{"outcome": "upheld"}, "reviewer")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("overturn passes through", func() {
		s.service.EXPECT().
			Resolve(gomock.Any(), gomock.Any(), s.subjectID, s.appealID, models.AppealOverturned, "verified", models.DecisionApproved).
			Return(&models.Appeal{ID: s.appealID, Status: models.AppealOverturned}, nil)
		rec := s.do(http.MethodPost, path, map[string]any{
			"outcome":       "overturned",
			"reviewer_note": "verified",
			"new_decision":  "approved",
		}, "reviewer")
		s.Equal(http.StatusOK, rec.Code)
	})
}

func (s *HandlerSuite) TestList() {
	s.service.EXPECT().List(gomock.Any(), gomock.Any(), s.subjectID).
		Return([]models.Appeal{{ID: s.appealID}}, nil)
	rec := s.do(http.MethodGet, s.appealsPath(), nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	var body ListResponse
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
	s.Equal(1, body.Count)
	s.Equal(s.appealID, body.Appeals[0].ID)
}
