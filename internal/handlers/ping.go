package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

type PingResponse struct {
	Pong bool `json:"pong"`
}

// PingHandler answers GET /api/ping with {"pong":true}.
type PingHandler struct {
	logger *slog.Logger
}

func NewPingHandler(logger *slog.Logger) *PingHandler {
	return &PingHandler{logger: logger}
}

func (h *PingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		h.logger.Warn("Method not allowed for ping endpoint", "method", r.Method)
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(PingResponse{Pong: true}); err != nil {
		h.logger.Error("Failed to encode ping response", "error", err)
	}
}
