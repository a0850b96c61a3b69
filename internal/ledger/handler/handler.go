package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"dealdesk/internal/authz"
	"dealdesk/internal/ledger"
	"dealdesk/pkg/platform/httputil"
	"dealdesk/pkg/requestcontext"
)

// Service defines the ledger read operations.
type Service interface {
	List(ctx context.Context, reviewer authz.ReviewerContext, f ledger.Filter) ([]ledger.Entry, error)
	Export(ctx context.Context, reviewer authz.ReviewerContext, f ledger.Filter, w io.Writer) (int, error)
}

// Handler serves the reviewer-facing audit endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the audit endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/audit/entries", h.HandleList)
	r.Get("/audit/export", h.HandleExport)
}

// HandleList handles GET /audit/entries.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	reviewer, err := authz.ReviewerFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	entries, err := h.service.List(ctx, reviewer, filter)
	if err != nil {
		h.logger.WarnContext(ctx, "ledger list failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(entries))
}

// HandleExport handles GET /audit/export. Headers are committed on the first
// CSV write, so validation failures still get a JSON error body.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	reviewer, err := authz.ReviewerFromContext(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	out := &csvResponse{w: w, filename: exportFilename(ctx)}
	rows, err := h.service.Export(ctx, reviewer, filter, out)
	if err != nil {
		if out.started {
			h.logger.ErrorContext(ctx, "ledger export failed mid-stream",
				"request_id", requestID,
				"error", err,
			)
			return
		}
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "ledger export served",
		"request_id", requestID,
		"rows", rows,
	)
}

type csvResponse struct {
	w        http.ResponseWriter
	filename string
	started  bool
}

func (c *csvResponse) Write(p []byte) (int, error) {
	if !c.started {
		c.started = true
		c.w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		c.w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", c.filename))
		c.w.WriteHeader(http.StatusOK)
	}
	return c.w.Write(p)
}

func exportFilename(ctx context.Context) string {
	return "audit-" + requestcontext.Now(ctx).UTC().Format("20060102T150405Z") + ".csv"
}
