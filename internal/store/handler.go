package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/gamestore-otel-demo/internal/cart"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/domain"
	"github.com/joao-fontenele/gamestore-otel-demo/internal/idempotency"
)

const (
	idempotencyHeader = "Idempotency-Key"
	checkoutScope     = "checkout"
)

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	session   *Session
	publisher Publisher
	idem      idempotency.Store
	metrics   *Metrics
	logger    *slog.Logger
}

// NewHandler wires the HTTP API around session. publisher and idem may be nil.
func NewHandler(session *Session, publisher Publisher, idem idempotency.Store, metrics *Metrics, logger *slog.Logger) *Handler {
	return &Handler{
		session:   session,
		publisher: publisher,
		idem:      idem,
		metrics:   metrics,
		logger:    logger,
	}
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.session.Catalog())
}

type setPriceRequest struct {
	Price *int64 `json:"price"`
}

func (h *Handler) HandleSetPrice(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	var req setPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Price == nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.session.SetPrice(key, *req.Price); err != nil {
		h.writeCartError(w, err)
		return
	}

	h.logger.Info("active price set", "key", key, "price", *req.Price)
	h.writeJSON(w, http.StatusOK, h.session.Catalog())
}

func (h *Handler) HandleDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := h.session.Deal()
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, deal)
}

func (h *Handler) HandleApplyDeal(w http.ResponseWriter, r *http.Request) {
	deal, err := h.session.ApplyDeal()
	if err != nil {
		h.writeCartError(w, err)
		return
	}

	h.logger.Info("daily deal applied", "key", deal.Key, "new_price", deal.NewPrice, "percent", deal.Percent)
	h.writeJSON(w, http.StatusOK, deal)
}

func (h *Handler) HandleCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.session.Cart())
}

type addItemRequest struct {
	Key string `json:"key"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Key == "" {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	snap, err := h.session.Add(req.Key)
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	h.metrics.unitsChanged(r.Context(), 1)

	h.logger.Info("added to cart", "title", snap.Title, "price", snap.Price)
	h.writeJSON(w, http.StatusCreated, snap)
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	var snap domain.Snapshot
	if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if h.session.Remove(snap) {
		h.metrics.unitsChanged(r.Context(), -1)
		h.logger.Info("removed from cart", "title", snap.Title, "price", snap.Price)
	}
	w.WriteHeader(http.StatusNoContent)
}

type voucherRequest struct {
	Percent int64 `json:"percent"`
}

func (h *Handler) HandleSetVoucher(w http.ResponseWriter, r *http.Request) {
	var req voucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.session.SetVoucher(req.Percent); err != nil {
		h.writeCartError(w, err)
		return
	}

	h.logger.Info("voucher set", "percent", req.Percent)
	h.writeJSON(w, http.StatusOK, voucherRequest{Percent: req.Percent})
}

func (h *Handler) HandleClearVoucher(w http.ResponseWriter, r *http.Request) {
	h.session.ClearVoucher()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleQuote(w http.ResponseWriter, r *http.Request) {
	q, err := h.session.Quote()
	if err != nil {
		h.writeCartError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, q)
}

type checkoutRequest struct {
	Version   uint64 `json:"version"`
	Recipient string `json:"recipient"`
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req checkoutRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	key := r.Header.Get(idempotencyHeader)
	if key != "" && h.idem != nil {
		receipt, ok, err := h.recall(ctx, key)
		if err != nil {
			h.logger.Error("failed to recall idempotency key", "error", err, "idempotency_key", key)
			h.writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
			return
		}
		if ok {
			h.metrics.checkout(ctx, OutcomeReplayed)
			h.logger.Info("checkout replayed", "receipt_id", receipt.ID, "idempotency_key", key)
			h.writeJSON(w, http.StatusOK, receipt)
			return
		}

		locked, err := h.idem.TryLock(ctx, checkoutScope, key)
		if err != nil {
			h.logger.Error("failed to lock idempotency key", "error", err, "idempotency_key", key)
			h.writeError(w, http.StatusServiceUnavailable, "idempotency store unavailable")
			return
		}
		if !locked {
			h.writeError(w, http.StatusConflict, "checkout already in progress")
			return
		}
	}

	receipt, err := h.session.Checkout(req.Version, req.Recipient)
	if err != nil {
		if key != "" && h.idem != nil {
			if err := h.idem.Release(ctx, checkoutScope, key); err != nil {
				h.logger.Error("failed to release idempotency key", "error", err, "idempotency_key", key)
			}
		}
		h.metrics.checkout(ctx, outcomeOf(err))
		h.writeCartError(w, err)
		return
	}

	h.metrics.checkout(ctx, OutcomeSuccess)
	h.metrics.charged(ctx, receipt.Total, receipt.Units)

	if key != "" && h.idem != nil {
		h.remember(ctx, key, receipt)
	}

	if h.publisher != nil {
		event := domain.PurchaseCompletedEvent{
			Receipt:   receipt,
			Timestamp: time.Now().UTC(),
		}
		if err := h.publisher.Publish(ctx, receipt.ID, event); err != nil {
			h.logger.Error("failed to publish purchase completed event", "error", err, "receipt_id", receipt.ID)
		}
	}

	h.logger.Info("checkout complete",
		"receipt_id", receipt.ID,
		"total", receipt.Total,
		"units", receipt.Units,
		"balance", receipt.BalanceAfter,
	)
	h.writeJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) recall(ctx context.Context, key string) (domain.Receipt, bool, error) {
	val, ok, err := h.idem.Recall(ctx, checkoutScope, key)
	if err != nil || !ok {
		return domain.Receipt{}, false, err
	}

	var receipt domain.Receipt
	if err := json.Unmarshal([]byte(val), &receipt); err != nil {
		return domain.Receipt{}, false, fmt.Errorf("decode remembered receipt: %w", err)
	}
	return receipt, true, nil
}

func (h *Handler) remember(ctx context.Context, key string, receipt domain.Receipt) {
	data, err := json.Marshal(receipt)
	if err != nil {
		h.logger.Error("failed to encode receipt", "error", err, "receipt_id", receipt.ID)
		return
	}
	if err := h.idem.Remember(ctx, checkoutScope, key, string(data)); err != nil {
		h.logger.Error("failed to remember receipt", "error", err, "receipt_id", receipt.ID)
	}
}

func (h *Handler) HandleSpin(w http.ResponseWriter, r *http.Request) {
	res, err := h.session.Spin()
	if err != nil {
		h.writeCartError(w, err)
		return
	}

	h.logger.Info("lucky spin played",
		"spins", len(res.Rewards),
		"balance_bonus", res.BalanceBonus,
		"voucher_percent", res.VoucherPercent,
		"stickers", res.Stickers,
	)
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleWallet(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.session.Wallet())
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, cart.ErrEmptyCart):
		return OutcomeEmpty
	case errors.Is(err, cart.ErrInsufficientFunds):
		return OutcomeInsufficient
	case errors.Is(err, cart.ErrStaleQuote):
		return OutcomeStale
	default:
		return "error"
	}
}

type insufficientFundsResponse struct {
	Error     string `json:"error"`
	Total     int64  `json:"total"`
	Balance   int64  `json:"balance"`
	Shortfall int64  `json:"shortfall"`
}

func (h *Handler) writeCartError(w http.ResponseWriter, err error) {
	var funds *cart.InsufficientFundsError
	switch {
	case errors.As(err, &funds):
		h.writeJSON(w, http.StatusPaymentRequired, insufficientFundsResponse{
			Error:     "insufficient funds",
			Total:     funds.Total,
			Balance:   funds.Balance,
			Shortfall: funds.Shortfall(),
		})
	case errors.Is(err, cart.ErrUnknownGame):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, cart.ErrNegativePrice), errors.Is(err, cart.ErrInvalidVoucher):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrEmptyCart),
		errors.Is(err, cart.ErrStaleQuote),
		errors.Is(err, ErrNoSpin),
		errors.Is(err, ErrNoDeal):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("store operation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
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

// Routes registers the store API on mux. wrap is applied to every handler.
func (h *Handler) Routes(mux *http.ServeMux, wrap func(http.HandlerFunc) http.HandlerFunc) {
	if wrap == nil {
		wrap = func(f http.HandlerFunc) http.HandlerFunc { return f }
	}
	mux.HandleFunc("GET /catalog", wrap(h.HandleCatalog))
	mux.HandleFunc("PUT /catalog/{key}/price", wrap(h.HandleSetPrice))
	mux.HandleFunc("GET /deal", wrap(h.HandleDeal))
	mux.HandleFunc("POST /deal/apply", wrap(h.HandleApplyDeal))
	mux.HandleFunc("GET /cart", wrap(h.HandleCart))
	mux.HandleFunc("POST /cart/items", wrap(h.HandleAddItem))
	mux.HandleFunc("POST /cart/items/remove", wrap(h.HandleRemoveItem))
	mux.HandleFunc("PUT /voucher", wrap(h.HandleSetVoucher))
	mux.HandleFunc("DELETE /voucher", wrap(h.HandleClearVoucher))
	mux.HandleFunc("POST /checkout/quote", wrap(h.HandleQuote))
	mux.HandleFunc("POST /checkout", wrap(h.HandleCheckout))
	mux.HandleFunc("POST /spin", wrap(h.HandleSpin))
	mux.HandleFunc("GET /wallet", wrap(h.HandleWallet))
}
