package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"dealdesk/internal/conditions/handler/mocks"
	"dealdesk/internal/review/models"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/requestcontext"
)

func TestHandleComplete(t *testing.T) {
	actor := id.ActorID(uuid.New())
	subjectID := id.SubjectID(uuid.New())
	path := "/subjects/" + subjectID.String() + "/conditions/complete"

	setup := func(t *testing.T) (*mocks.MockService, chi.Router) {
		ctrl := gomock.NewController(t)
		svc := mocks.NewMockService(ctrl)
		r := chi.NewRouter()
		New(svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(r)
		return svc, r
	}
	do := func(r chi.Router, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req = req.WithContext(requestcontext.WithActor(req.Context(), actor))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	t.Run("missing acknowledgment reaches the engine as false", func(t *testing.T) {
		svc, r := setup(t)
		svc.EXPECT().Complete(gomock.Any(), gomock.Any(), subjectID, "done", false).
			Return(nil, dErrors.New(dErrors.CodeAcknowledgmentRequired, "conditions must be acknowledged"))

		rec := do(r, `{"notes":"done"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "acknowledgment_required")
	})

	t.Run("pending appeal is a conflict", func(t *testing.T) {
		svc, r := setup(t)
		svc.EXPECT().Complete(gomock.Any(), gomock.Any(), subjectID, "", true).
			Return(nil, dErrors.Conflict(dErrors.CodeAppealPending, "an appeal is pending for this subject", "approved_with_conditions"))

		rec := do(r, `{"acknowledged":true}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		_, r := setup(t)
		rec := do(r, `{"acknowledged":true,"decision":"approved"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("success", func(t *testing.T) {
		svc, r := setup(t)
		svc.EXPECT().Complete(gomock.Any(), gomock.Any(), subjectID, "disclosure added", true).
			Return(&models.View{ID: subjectID, Decision: models.DecisionConditionsCompleted}, nil)

		rec := do(r, `{"notes":"disclosure added","acknowledged":true}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"decision":"conditions_completed"`)
	})
}
