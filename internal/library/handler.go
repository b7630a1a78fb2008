package library

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/domain"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

type Store interface {
	Record(ctx context.Context, receipt domain.Receipt) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Receipt, error)
	List(ctx context.Context, limit int) ([]domain.Receipt, error)
	Owned(ctx context.Context) ([]domain.OwnedGame, error)
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) HandleRecord(w http.ResponseWriter, r *http.Request) {
	var receipt domain.Receipt
	if err := json.NewDecoder(r.Body).Decode(&receipt); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if receipt.ID == "" || len(receipt.Lines) == 0 {
		h.writeError(w, http.StatusBadRequest, "receipt needs an id and at least one line")
		return
	}

	inserted, err := h.store.Record(r.Context(), receipt)
	if err != nil {
		h.logger.Error("failed to record receipt", "error", err, "receipt_id", receipt.ID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !inserted {
		h.logger.Info("receipt already recorded", "receipt_id", receipt.ID)
		h.writeJSON(w, http.StatusOK, receipt)
		return
	}

	h.logger.Info("receipt recorded", "receipt_id", receipt.ID, "total", receipt.Total)
	h.writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing receipt id")
		return
	}

	receipt, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get receipt", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if receipt == nil {
		h.writeError(w, http.StatusNotFound, "receipt not found")
		return
	}

	h.writeJSON(w, http.StatusOK, receipt)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxListLimit {
			h.writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	receipts, err := h.store.List(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list receipts", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("receipts listed", "count", len(receipts))
	h.writeJSON(w, http.StatusOK, receipts)
}

func (h *Handler) HandleOwned(w http.ResponseWriter, r *http.Request) {
	owned, err := h.store.Owned(r.Context())
	if err != nil {
		h.logger.Error("failed to list owned games", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, owned)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
