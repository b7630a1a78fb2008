package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type Handler struct {
	storeProxy   *ServiceProxy
	libraryProxy *ServiceProxy
	logger       *slog.Logger
}

func NewHandler(storeProxy, libraryProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		storeProxy:   storeProxy,
		libraryProxy: libraryProxy,
		logger:       logger,
	}
}

// HandleStore forwards /store/... to the store service without the prefix.
func (h *Handler) HandleStore(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.storeProxy, stripPrefix(r.URL.Path, "/store"))
}

// HandleLibrary forwards /library/... to the library service without the prefix.
func (h *Handler) HandleLibrary(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.libraryProxy, stripPrefix(r.URL.Path, "/library"))
}

func stripPrefix(path, prefix string) string {
	path = strings.TrimPrefix(path, prefix)
	if path == "" {
		return "/"
	}
	return path
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
