package email

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Handler struct {
	logger *slog.Logger
	delay  func() time.Duration
}

type Option func(*Handler)

// WithDelay replaces the simulated delivery latency.
func WithDelay(delay func() time.Duration) Option {
	return func(h *Handler) {
		h.delay = delay
	}
}

func NewHandler(logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		logger: logger,
		delay: func() time.Duration {
			return time.Duration(50+rand.IntN(151)) * time.Millisecond
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.To) == "" {
		h.writeError(w, http.StatusBadRequest, "missing recipient")
		return
	}

	select {
	case <-time.After(h.delay()):
	case <-r.Context().Done():
		h.writeError(w, http.StatusServiceUnavailable, "request cancelled")
		return
	}

	id := uuid.New().String()
	h.logger.Info("email sent", "id", id, "to", req.To, "subject", req.Subject)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent", ID: id})
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
