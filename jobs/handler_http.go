package jobs

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/quotedeck/quotedeck/internal/customers"
	"github.com/quotedeck/quotedeck/internal/platform/httpx"
	"github.com/quotedeck/quotedeck/internal/proposals"
)

// Handler exposes job submission and queue observability endpoints.
type Handler struct {
	logger    *slog.Logger
	client    *Client
	proposals *proposals.Service
	customers *customers.Service
	inspector *asynq.Inspector
}

// NewHandler constructs an HTTP handler for job endpoints.
func NewHandler(logger *slog.Logger, client *Client, proposalSvc *proposals.Service, customerSvc *customers.Service, inspector *asynq.Inspector) *Handler {
	return &Handler{
		logger:    logger,
		client:    client,
		proposals: proposalSvc,
		customers: customerSvc,
		inspector: inspector,
	}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/proposals/{id}/export", h.export)
	r.Post("/proposals/{id}/send", h.send)
	r.Get("/jobs/health", h.health)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	// Fail fast when the proposal does not exist rather than in the worker.
	if _, err := h.proposals.Info(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}

	info, err := h.client.EnqueueProposalExport(r.Context(), id)
	if err != nil {
		h.logger.Error("enqueue export failed", slog.Int64("proposal_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": info.ID})
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	p, err := h.proposals.Info(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.customers.Get(r.Context(), p.CustomerID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if customer.Email == nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "customer has no email address")
		return
	}

	info, err := h.client.EnqueueSendEmail(r.Context(), SendEmailPayload{
		ProposalID: id,
		To:         *customer.Email,
		Subject:    fmt.Sprintf("Proposal %s", p.Number),
		Body:       fmt.Sprintf("Dear %s,\n\nplease find proposal %s attached.\n", customer.Name, p.Number),
	})
	if err != nil {
		h.logger.Error("enqueue email failed", slog.Int64("proposal_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]any{"task_id": info.ID})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, map[string]any{"queue": QueueDefault, "pending": 0})
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"queue":   info.Queue,
		"pending": info.Pending,
		"active":  info.Active,
		"retry":   info.Retry,
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid proposal id")
		return 0, false
	}
	return id, true
}
