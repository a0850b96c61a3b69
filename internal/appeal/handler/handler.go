package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dealdesk/internal/authz"
	"dealdesk/internal/review/models"
	id "dealdesk/pkg/domain"
	"dealdesk/pkg/platform/httputil"
	"dealdesk/pkg/requestcontext"
)

// Service defines the appeal operations.
type Service interface {
	File(ctx context.Context, appellant authz.PartyContext, subjectID id.SubjectID, reason string, documents []string) (*models.Appeal, error)
	Resolve(ctx context.Context, reviewer authz.ReviewerContext, subjectID id.SubjectID, appealID id.AppealID, outcome models.AppealStatus, reviewerNote string, newDecision models.Decision) (*models.Appeal, error)
	List(ctx context.Context, caller authz.PartyContext, subjectID id.SubjectID) ([]models.Appeal, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/subjects/{id}/appeals", h.HandleFile)
	r.Get("/subjects/{id}/appeals", h.HandleList)
	r.Post("/subjects/{id}/appeals/{appealID}/resolve", h.HandleResolve)
}

// HandleFile handles POST /subjects/{id}/appeals.
func (h *Handler) HandleFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	appellant, err := authz.PartyFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[FileRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	appeal, err := h.service.File(ctx, appellant, subjectID, req.Reason, req.Documents)
	if err != nil {
		h.logger.WarnContext(ctx, "file appeal failed",
			"request_id", requestID,
			"subject_id", subjectID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, appeal)
}

// HandleList handles GET /subjects/{id}/appeals.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, err := authz.PartyFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	appeals, err := h.service.List(ctx, caller, subjectID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(appeals))
}

// HandleResolve handles POST /subjects/{id}/appeals/{appealID}/resolve.
func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	reviewer, err := authz.ReviewerFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	appealID, err := id.ParseAppealID(chi.URLParam(r, "appealID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ResolveRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	appeal, err := h.service.Resolve(ctx, reviewer, subjectID, appealID, req.ParsedOutcome(), req.ReviewerNote, req.ParsedNewDecision())
	if err != nil {
		h.logger.WarnContext(ctx, "resolve appeal failed",
			"request_id", requestID,
			"subject_id", subjectID.String(),
			"appeal_id", appealID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, appeal)
}
