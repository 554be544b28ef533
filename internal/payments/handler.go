package payments

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quotedeck/quotedeck/internal/platform/httpx"
)

// Handler exposes the payment-schedule API.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

func (h *Handler) ListSchedule(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.service.Schedule(r.Context(), proposalID)
	if err != nil {
		h.logger.Error("list schedule failed", slog.Int64("proposal_id", proposalID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) ScheduleStatus(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	status, err := h.service.Status(r.Context(), proposalID)
	if err != nil {
		h.logger.Error("schedule status failed", slog.Int64("proposal_id", proposalID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

func (h *Handler) CreateTerm(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req CreateTermRequest
	if !h.decode(w, r, &req) {
		return
	}

	term, err := h.service.CreateTerm(r.Context(), proposalID, req)
	if err != nil {
		h.logger.Error("create term failed", slog.Int64("proposal_id", proposalID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, term)
}

func (h *Handler) UpdateTerm(w http.ResponseWriter, r *http.Request) {
	termID, ok := h.pathID(w, r, "termID")
	if !ok {
		return
	}

	var req UpdateTermRequest
	if !h.decode(w, r, &req) {
		return
	}

	term, err := h.service.UpdateTerm(r.Context(), termID, req)
	if err != nil {
		h.logger.Error("update term failed", slog.Int64("term_id", termID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, term)
}

func (h *Handler) DeleteTerm(w http.ResponseWriter, r *http.Request) {
	termID, ok := h.pathID(w, r, "termID")
	if !ok {
		return
	}

	if err := h.service.DeleteTerm(r.Context(), termID); err != nil {
		h.logger.Error("delete term failed", slog.Int64("term_id", termID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"templates": h.service.Templates()})
}

func (h *Handler) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	proposalID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req ApplyTemplateRequest
	if !h.decode(w, r, &req) {
		return
	}

	terms, err := h.service.ApplyTemplate(r.Context(), proposalID, req.TemplateKey)
	if err != nil {
		h.logger.Error("apply template failed",
			slog.Int64("proposal_id", proposalID),
			slog.String("template", req.TemplateKey),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"terms": terms})
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	termID, ok := h.pathID(w, r, "termID")
	if !ok {
		return
	}

	var req RecordPaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	term, err := h.service.RecordPayment(r.Context(), termID, req)
	if err != nil {
		h.logger.Error("record payment failed", slog.Int64("term_id", termID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, term)
}

func (h *Handler) UndoPayment(w http.ResponseWriter, r *http.Request) {
	termID, ok := h.pathID(w, r, "termID")
	if !ok {
		return
	}

	term, err := h.service.UndoPayment(r.Context(), termID)
	if err != nil {
		h.logger.Error("undo payment failed", slog.Int64("term_id", termID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, term)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+param)
		return 0, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}
