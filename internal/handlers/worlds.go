package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jwebster45206/soma-recovery/internal/storage"
)

// WorldHandler serves the shipped world layouts.
// Routes:
// GET /v1/worlds        - map of world name to file name
// GET /v1/worlds/{file} - one layout
type WorldHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewWorldHandler(log *slog.Logger, storage storage.Storage) *WorldHandler {
	return &WorldHandler{
		log:     log,
		storage: storage,
	}
}

func (h *WorldHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, h.log, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: GET")
		return
	}

	filename := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/worlds"), "/")
	if filename == "" {
		h.handleList(w, r)
		return
	}

	layout, err := h.storage.GetWorld(r.Context(), filename)
	if err != nil {
		if errors.Is(err, storage.ErrWorldNotFound) {
			writeError(w, h.log, http.StatusNotFound, "World not found")
			return
		}
		h.log.Error("Failed to get world", "error", err, "filename", filename)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to retrieve world")
		return
	}
	writeJSON(w, h.log, http.StatusOK, layout)
}

func (h *WorldHandler) handleList(w http.ResponseWriter, r *http.Request) {
	worlds, err := h.storage.ListWorlds(r.Context())
	if err != nil {
		h.log.Error("Failed to list worlds", "error", err)
		writeError(w, h.log, http.StatusInternalServerError, "Failed to list worlds")
		return
	}
	writeJSON(w, h.log, http.StatusOK, worlds)
}
