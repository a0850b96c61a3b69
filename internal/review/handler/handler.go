package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dealdesk/internal/authz"
	"dealdesk/internal/ledger"
	"dealdesk/internal/review/models"
	"dealdesk/internal/review/service"
	"dealdesk/internal/scoring"
	id "dealdesk/pkg/domain"
	"dealdesk/pkg/platform/httputil"
	"dealdesk/pkg/requestcontext"
)

// Service defines the decision engine operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, owner authz.PartyContext, in service.RegisterInput) (*models.View, error)
	SetStatus(ctx context.Context, owner authz.PartyContext, subjectID id.SubjectID, status models.LifecycleStatus) (*models.View, error)
	Submit(ctx context.Context, owner authz.PartyContext, subjectID id.SubjectID) (*models.View, error)
	RecordDecision(ctx context.Context, reviewer authz.ReviewerContext, subjectID id.SubjectID, outcome models.Decision, reviewerNote, internalNote string) (*models.View, error)
	View(ctx context.Context, caller authz.PartyContext, subjectID id.SubjectID) (*models.View, error)
	History(ctx context.Context, caller authz.PartyContext, subjectID id.SubjectID) ([]ledger.Entry, error)
	OverrideScore(ctx context.Context, reviewer authz.ReviewerContext, subjectID id.SubjectID, value float64, justification string) (*models.View, error)
	PutScore(ctx context.Context, scorer authz.ScorerContext, subjectID id.SubjectID, in service.ScoreInput) (*scoring.Score, error)
}

// Handler serves the subject endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the subject routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/subjects", h.HandleRegister)
	r.Get("/subjects/{id}", h.HandleView)
	r.Get("/subjects/{id}/history", h.HandleHistory)
	r.Post("/subjects/{id}/status", h.HandleSetStatus)
	r.Post("/subjects/{id}/submit", h.HandleSubmit)
	r.Post("/subjects/{id}/decision", h.HandleRecordDecision)
	r.Put("/subjects/{id}/score", h.HandlePutScore)
	r.Post("/subjects/{id}/score/override", h.HandleOverrideScore)
}

// HandleRegister handles POST /subjects.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	owner, err := authz.PartyFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.service.Register(ctx, owner, req.Input())
	if err != nil {
		h.fail(ctx, w, "register subject failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, view)
}

// HandleView handles GET /subjects/{id}.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, subjectID, err := partyAndSubject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.service.View(ctx, caller, subjectID)
	if err != nil {
		h.fail(ctx, w, "view subject failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleHistory handles GET /subjects/{id}/history.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caller, subjectID, err := partyAndSubject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.service.History(ctx, caller, subjectID)
	if err != nil {
		h.fail(ctx, w, "subject history failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toHistoryResponse(subjectID, entries))
}

// HandleSetStatus handles POST /subjects/{id}/status.
func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	owner, subjectID, err := partyAndSubject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[StatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.service.SetStatus(ctx, owner, subjectID, models.LifecycleStatus(req.Status))
	if err != nil {
		h.fail(ctx, w, "set status failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleSubmit handles POST /subjects/{id}/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	owner, subjectID, err := partyAndSubject(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	view, err := h.service.Submit(ctx, owner, subjectID)
	if err != nil {
		h.fail(ctx, w, "submit failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleRecordDecision handles POST /subjects/{id}/decision.
func (h *Handler) HandleRecordDecision(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[DecisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.service.RecordDecision(ctx, reviewer, subjectID, req.ParsedOutcome(), req.ReviewerNote, req.InternalNote)
	if err != nil {
		h.fail(ctx, w, "record decision failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandlePutScore handles PUT /subjects/{id}/score.
func (h *Handler) HandlePutScore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	scorer, err := authz.ScorerFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ScoreRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	score, err := h.service.PutScore(ctx, scorer, subjectID, req.Input())
	if err != nil {
		h.fail(ctx, w, "put score failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, score)
}

// HandleOverrideScore handles POST /subjects/{id}/score/override.
func (h *Handler) HandleOverrideScore(w http.ResponseWriter, r *http.Request) {
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
	req, ok := httputil.DecodeAndPrepare[OverrideRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	view, err := h.service.OverrideScore(ctx, reviewer, subjectID, *req.Value, req.Justification)
	if err != nil {
		h.fail(ctx, w, "override score failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}

func partyAndSubject(r *http.Request) (authz.PartyContext, id.SubjectID, error) {
	caller, err := authz.PartyFromContext(r.Context())
	if err != nil {
		return authz.PartyContext{}, id.SubjectID{}, err
	}
	subjectID, err := id.ParseSubjectID(chi.URLParam(r, "id"))
	if err != nil {
		return authz.PartyContext{}, id.SubjectID{}, err
	}
	return caller, subjectID, nil
}
