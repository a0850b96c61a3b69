package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dealdesk/internal/authz"
	"dealdesk/internal/response/models"
	id "dealdesk/pkg/domain"
	"dealdesk/pkg/platform/httputil"
	"dealdesk/pkg/requestcontext"
)

// Service defines the response tracker operations.
type Service interface {
	Open(ctx context.Context, requester authz.PartyContext, responderID id.ActorID, introductionRef string) (*models.Record, error)
	Accept(ctx context.Context, responder authz.PartyContext, recordID id.RecordID) (*models.Record, error)
	Decline(ctx context.Context, responder authz.PartyContext, recordID id.RecordID, reason string) (*models.Record, error)
	Reconsider(ctx context.Context, responder authz.PartyContext, recordID id.RecordID) (*models.Record, error)
	Get(ctx context.Context, caller authz.PartyContext, recordID id.RecordID) (*models.Record, error)
	Window(ctx context.Context, caller authz.PartyContext, recordID id.RecordID) (models.WindowView, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/responses", h.HandleOpen)
	r.Get("/responses/{id}", h.HandleGet)
	r.Get("/responses/{id}/window", h.HandleWindow)
	r.Post("/responses/{id}/accept", h.HandleAccept)
	r.Post("/responses/{id}/decline", h.HandleDecline)
	r.Post("/responses/{id}/reconsider", h.HandleReconsider)
}

// HandleOpen handles POST /responses.
func (h *Handler) HandleOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	requester, err := authz.PartyFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[OpenRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.Open(ctx, requester, req.ParsedResponder(), req.IntroductionRef)
	if err != nil {
		h.logger.WarnContext(ctx, "open response failed", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, record)
}

// HandleGet handles GET /responses/{id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	caller, recordID, ok := callerAndRecord(w, r)
	if !ok {
		return
	}
	record, err := h.service.Get(r.Context(), caller, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleWindow handles GET /responses/{id}/window.
func (h *Handler) HandleWindow(w http.ResponseWriter, r *http.Request) {
	caller, recordID, ok := callerAndRecord(w, r)
	if !ok {
		return
	}
	view, err := h.service.Window(r.Context(), caller, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, view)
}

// HandleAccept handles POST /responses/{id}/accept.
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	responder, recordID, ok := callerAndRecord(w, r)
	if !ok {
		return
	}
	record, err := h.service.Accept(r.Context(), responder, recordID)
	h.writeRecord(w, r, "accept", record, err)
}

// HandleDecline handles POST /responses/{id}/decline. The body is optional.
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	responder, recordID, ok := callerAndRecord(w, r)
	if !ok {
		return
	}
	var reason string
	if r.ContentLength != 0 {
		req, ok := httputil.DecodeAndPrepare[DeclineRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return
		}
		reason = req.Reason
	}
	record, err := h.service.Decline(ctx, responder, recordID, reason)
	h.writeRecord(w, r, "decline", record, err)
}

// HandleReconsider handles POST /responses/{id}/reconsider.
func (h *Handler) HandleReconsider(w http.ResponseWriter, r *http.Request) {
	responder, recordID, ok := callerAndRecord(w, r)
	if !ok {
		return
	}
	record, err := h.service.Reconsider(r.Context(), responder, recordID)
	h.writeRecord(w, r, "reconsider", record, err)
}

func (h *Handler) writeRecord(w http.ResponseWriter, r *http.Request, action string, record *models.Record, err error) {
	if err != nil {
		ctx := r.Context()
		h.logger.WarnContext(ctx, action+" response failed",
			"request_id", requestcontext.RequestID(ctx),
			"record_id", chi.URLParam(r, "id"),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

func callerAndRecord(w http.ResponseWriter, r *http.Request) (authz.PartyContext, id.RecordID, bool) {
	caller, err := authz.PartyFromContext(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return authz.PartyContext{}, id.RecordID{}, false
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return authz.PartyContext{}, id.RecordID{}, false
	}
	return caller, recordID, true
}
