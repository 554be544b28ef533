package proposals

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/quotedeck/quotedeck/internal/platform/httpx"
)

// Handler exposes the proposal API.
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

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListProposalsRequest{Limit: 50}

	if v := r.URL.Query().Get("customer_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid customer_id")
			return
		}
		req.CustomerID = &id
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status := ProposalStatus(v)
		req.Status = &status
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			req.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			req.Offset = n
		}
	}

	proposals, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list proposals failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"proposals": proposals,
		"total":     total,
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProposalRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.logger.Error("create proposal failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	view, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateProposalRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.logger.Error("update proposal failed", slog.Int64("proposal_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.Error("delete proposal failed", slog.Int64("proposal_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.ChangeStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("change status failed", slog.Int64("proposal_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	summary, err := h.service.Summary(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req AddItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.AddItem(r.Context(), id, req)
	if err != nil {
		h.logger.Error("add item failed", slog.Int64("proposal_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}

	var req UpdateItemRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.UpdateItem(r.Context(), id, itemID, req)
	if err != nil {
		h.logger.Error("update item failed", slog.Int64("item_id", itemID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	h.deleteChild(w, r, "itemID", h.service.DeleteItem)
}

func (h *Handler) AddEngineering(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req AddEngineeringRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.AddEngineering(r.Context(), id, req)
	if err != nil {
		h.logger.Error("add engineering failed", slog.Int64("proposal_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) DeleteEngineering(w http.ResponseWriter, r *http.Request) {
	h.deleteChild(w, r, "entryID", h.service.DeleteEngineering)
}

func (h *Handler) AddExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req AddExpenseRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.AddExpense(r.Context(), id, req)
	if err != nil {
		h.logger.Error("add expense failed", slog.Int64("proposal_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	h.deleteChild(w, r, "expenseID", h.service.DeleteExpense)
}

func (h *Handler) AddTax(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req AddTaxRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.AddTax(r.Context(), id, req)
	if err != nil {
		h.logger.Error("add tax failed", slog.Int64("proposal_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) DeleteTax(w http.ResponseWriter, r *http.Request) {
	h.deleteChild(w, r, "taxID", h.service.DeleteTax)
}

func (h *Handler) deleteChild(w http.ResponseWriter, r *http.Request, param string, fn func(ctx context.Context, proposalID, childID int64) (*Proposal, error)) {
	id, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	childID, ok := h.pathID(w, r, param)
	if !ok {
		return
	}

	p, err := fn(r.Context(), id, childID)
	if err != nil {
		h.logger.Error("delete child failed",
			slog.Int64("proposal_id", id),
			slog.String("param", param),
			slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
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
