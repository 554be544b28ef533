package activity

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/quotedeck/quotedeck/internal/platform/httpx"
)

// Handler exposes the per-proposal activity feed.
type Handler struct {
	logger *slog.Logger
	store  *PGLogger
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, store *PGLogger) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes attaches activity routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/proposals/{id}/activity", h.list)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	proposalID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid proposal id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.store.ListByProposal(r.Context(), proposalID, limit)
	if err != nil {
		h.logger.Error("list activity failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
