package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dealdesk/internal/authz"
	"dealdesk/internal/review/models"
	id "dealdesk/pkg/domain"
	dErrors "dealdesk/pkg/domain-errors"
	"dealdesk/pkg/platform/httputil"
	"dealdesk/pkg/requestcontext"
)

// Service defines the conditions operation.
type Service interface {
	Complete(ctx context.Context, owner authz.PartyContext, subjectID id.SubjectID, notes string, acknowledged bool) (*models.View, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/subjects/{id}/conditions/complete", h.HandleComplete)
}

// CompleteRequest is the body of POST /subjects/{id}/conditions/complete.
// A missing acknowledged flag reads as false and is refused by the engine.
type CompleteRequest struct {
	Notes        string `json:"notes"`
	Acknowledged bool   `json:"acknowledged"`
}

func (r *CompleteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return nil
}

// HandleComplete handles POST /subjects/{id}/conditions/complete.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	owner, err := authz.PartyFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[CompleteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.service.Complete(ctx, owner, subjectID, req.Notes, req.Acknowledged)
	if err != nil {
		h.logger.WarnContext(ctx, "complete conditions failed",
			"request_id", requestID,
			"subject_id", subjectID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}
