// Package handler exposes the complaint workflow over HTTP. Handlers decode
// and validate wire input, delegate to the service, and render coded errors;
// no workflow rule lives here.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"disciplina/internal/audit"
	"disciplina/internal/complaint/catalog"
	"disciplina/internal/complaint/models"
	id "disciplina/pkg/domain"
	dErrors "disciplina/pkg/domain-errors"
	"disciplina/pkg/platform/httputil"
	"disciplina/pkg/requestcontext"
)

// Service defines the workflow operations the handler exposes.
type Service interface {
	Register(ctx context.Context, in models.RegisterInput) (*models.Case, error)
	SubmitAction(ctx context.Context, caseID id.CaseID, action models.Action, payload models.Payload) (*models.Case, error)
	AvailableActions(ctx context.Context, caseID id.CaseID) ([]catalog.ActionDescriptor, error)
	GetCase(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	AuditTrail(ctx context.Context, caseID id.CaseID) ([]audit.Entry, error)
	Appeals(ctx context.Context, caseID id.CaseID) ([]models.Appeal, error)
	ListRebuttalDue(ctx context.Context, before time.Time) ([]models.Case, error)
}

// Handler wires complaint endpoints to the workflow service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a complaint handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated case endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/cases", h.HandleRegisterCase)
	r.Get("/cases/{caseID}", h.HandleGetCase)
	r.Get("/cases/{caseID}/actions", h.HandleAvailableActions)
	r.Post("/cases/{caseID}/actions", h.HandleSubmitAction)
	r.Get("/cases/{caseID}/audit", h.HandleAuditTrail)
	r.Get("/cases/{caseID}/appeals", h.HandleAppeals)
}

// RegisterSweep mounts the scheduler-facing deadline sweep endpoint. The
// caller guards it with the scheduler key middleware.
func (h *Handler) RegisterSweep(r chi.Router) {
	r.Get("/cases/rebuttal-due", h.HandleRebuttalDue)
}

// HandleRegisterCase handles POST /cases.
func (h *Handler) HandleRegisterCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := httputil.Decode[registerCaseRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.service.Register(ctx, in)
	if err != nil {
		h.logger.ErrorContext(ctx, "case registration failed",
			"request_id", requestcontext.RequestID(ctx), "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

// HandleSubmitAction handles POST /cases/{caseID}/actions.
func (h *Handler) HandleSubmitAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, err := httputil.Decode[submitActionRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	action, err := models.ParseAction(req.Action)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	updated, err := h.service.SubmitAction(ctx, caseID, action, models.Payload(req.Payload))
	if err != nil {
		h.logger.WarnContext(ctx, "action rejected",
			"request_id", requestcontext.RequestID(ctx),
			"case_id", caseID, "action", action, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

// HandleAvailableActions handles GET /cases/{caseID}/actions.
func (h *Handler) HandleAvailableActions(w http.ResponseWriter, r *http.Request) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	actions, err := h.service.AvailableActions(r.Context(), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, availableActionsResponse{
		CaseID:  caseID,
		Actions: actions,
	})
}

// HandleGetCase handles GET /cases/{caseID}.
func (h *Handler) HandleGetCase(w http.ResponseWriter, r *http.Request) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.GetCase(r.Context(), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, c)
}

// HandleAuditTrail handles GET /cases/{caseID}/audit.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	entries, err := h.service.AuditTrail(r.Context(), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	httputil.WriteJSON(w, http.StatusOK, auditTrailResponse{CaseID: caseID, Entries: entries})
}

// HandleAppeals handles GET /cases/{caseID}/appeals.
func (h *Handler) HandleAppeals(w http.ResponseWriter, r *http.Request) {
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	rows, err := h.service.Appeals(r.Context(), caseID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if rows == nil {
		rows = []models.Appeal{}
	}
	httputil.WriteJSON(w, http.StatusOK, appealsResponse{CaseID: caseID, Appeals: rows})
}

// HandleRebuttalDue handles GET /cases/rebuttal-due?before=<RFC3339>.
// Without the parameter the cutoff is the request time.
func (h *Handler) HandleRebuttalDue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	before := requestcontext.Now(ctx)
	if raw := r.URL.Query().Get("before"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest,
				"before must be an RFC 3339 timestamp"))
			return
		}
		before = parsed
	}
	due, err := h.service.ListRebuttalDue(ctx, before)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if due == nil {
		due = []models.Case{}
	}
	httputil.WriteJSON(w, http.StatusOK, rebuttalDueResponse{Before: before, Cases: due})
}
