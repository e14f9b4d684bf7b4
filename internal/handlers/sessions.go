package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/soma-recovery/internal/logger"
	"github.com/jwebster45206/soma-recovery/internal/storage"
	"github.com/jwebster45206/soma-recovery/pkg/engine"
	"github.com/jwebster45206/soma-recovery/pkg/library"
	"github.com/jwebster45206/soma-recovery/pkg/state"
	"github.com/jwebster45206/soma-recovery/pkg/world"
)

// MaxFrameDelta caps the dt a client may submit for one frame.
const MaxFrameDelta = 0.25

// Session actions accepted by POST /v1/sessions/{id}/actions.
const (
	ActionStart    = "start"
	ActionPause    = "pause"
	ActionResume   = "resume"
	ActionExercise = "exercise"
	ActionConverse = "converse"
	ActionResist   = "resist"
	ActionRead     = "read"
	ActionLeave    = "leave"
)

type CreateSessionRequest struct {
	World string `json:"world,omitempty"` // Optional: world file name, defaults to the built-in city
}

type FrameRequest struct {
	Input engine.Input `json:"input"`
	DT    float64      `json:"dt"`
}

type ActionRequest struct {
	Action string `json:"action"`
	BookID string `json:"book_id,omitempty"`
	Answer int    `json:"answer"`
}

type ActionResult struct {
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Outcome string `json:"outcome,omitempty"`
}

type SessionResponse struct {
	ID       uuid.UUID       `json:"id"`
	State    state.GameState `json:"state"`
	Velocity engine.Velocity `json:"velocity"`
	Moving   bool            `json:"moving"`
	Frame    *engine.Frame   `json:"frame,omitempty"`
	Result   *ActionResult   `json:"result,omitempty"`
}

func newSessionResponse(s *engine.Session) SessionResponse {
	return SessionResponse{
		ID:       s.State.ID,
		State:    s.Snapshot(),
		Velocity: s.Velocity,
		Moving:   s.Moving,
	}
}

// SessionHandler hosts live runs. Requests for one session are serialized
// so a frame never races an action.
type SessionHandler struct {
	storage storage.Storage
	logger  *slog.Logger
	locks   [lockStripes]sync.Mutex
}

// lockStripes is the number of mutexes shared by all sessions. Two sessions
// may share a stripe; one session always maps to the same one.
const lockStripes = 64

func NewSessionHandler(storage storage.Storage, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		storage: storage,
		logger:  logger,
	}
}

// ServeHTTP handles HTTP requests for sessions
// Routes:
// POST /v1/sessions              - Create a new session
// GET /v1/sessions/{id}          - Read a session
// DELETE /v1/sessions/{id}       - End a session
// POST /v1/sessions/{id}/frame   - Advance one frame
// POST /v1/sessions/{id}/actions - Resolve the active interaction or change phase
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r, http.MethodPost)
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.Split(path, "/")
	id, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid session ID", "id", parts[0], "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid session ID format")
		return
	}

	switch {
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.handleRead(w, r, id)
		case http.MethodDelete:
			h.handleDelete(w, r, id)
		default:
			h.methodNotAllowed(w, r, "GET, DELETE")
		}
	case len(parts) == 2 && parts[1] == "frame":
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r, http.MethodPost)
			return
		}
		h.handleFrame(w, r, id)
	case len(parts) == 2 && parts[1] == "actions":
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r, http.MethodPost)
			return
		}
		h.handleAction(w, r, id)
	default:
		writeError(w, h.logger, http.StatusNotFound, "Not found")
	}
}

func (h *SessionHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	h.logger.Warn("Method not allowed for session endpoint", "method", r.Method, "path", r.URL.Path)
	w.Header().Set("Allow", allowed)
	writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported methods: "+allowed)
}

func (h *SessionHandler) stripe(id uuid.UUID) *sync.Mutex {
	f := fnv.New32a()
	_, _ = f.Write(id[:])
	return &h.locks[f.Sum32()%lockStripes]
}

func (h *SessionHandler) lock(id uuid.UUID) func() {
	mu := h.stripe(id)
	mu.Lock()
	return mu.Unlock
}

func (h *SessionHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	layout := world.Default()
	if req.World != "" {
		l, err := h.storage.GetWorld(r.Context(), req.World)
		if err != nil {
			if errors.Is(err, storage.ErrWorldNotFound) {
				writeError(w, h.logger, http.StatusNotFound, "World not found: "+req.World)
				return
			}
			h.logger.Warn("Failed to load world", "world", req.World, "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Failed to load world: "+err.Error())
			return
		}
		layout = l
	}

	sess := engine.NewSession(nil, h.logger)
	layout.Apply(sess.State)

	if err := h.storage.SaveSession(r.Context(), sess.State.ID, sess); err != nil {
		h.logger.Error("Failed to save session", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create session")
		return
	}

	h.logger.Info("Session created", "session_id", sess.State.ID, "world", layout.Name)
	w.Header().Set("Location", "/v1/sessions/"+sess.State.ID.String())
	writeJSON(w, h.logger, http.StatusCreated, newSessionResponse(sess))
}

// load fetches a session, writing the error response itself when it cannot.
func (h *SessionHandler) load(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*engine.Session, bool) {
	sess, err := h.storage.LoadSession(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to load session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load session")
		return nil, false
	}
	if sess == nil {
		writeError(w, h.logger, http.StatusNotFound, "Session not found")
		return nil, false
	}
	sess.SetLogger(logger.WithSession(h.logger, id.String()))
	return sess, true
}

func (h *SessionHandler) save(w http.ResponseWriter, r *http.Request, sess *engine.Session) bool {
	if err := h.storage.SaveSession(r.Context(), sess.State.ID, sess); err != nil {
		h.logger.Error("Failed to save session", "session_id", sess.State.ID, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to save session")
		return false
	}
	return true
}

func (h *SessionHandler) handleRead(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sess, ok := h.load(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, h.logger, http.StatusOK, newSessionResponse(sess))
}

func (h *SessionHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	unlock := h.lock(id)
	defer unlock()

	if err := h.storage.DeleteSession(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete session", "session_id", id, "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	h.logger.Info("Session deleted", "session_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) handleFrame(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req FrameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in frame request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.DT < 0 {
		writeError(w, h.logger, http.StatusBadRequest, "dt must not be negative")
		return
	}
	if req.DT > MaxFrameDelta {
		req.DT = MaxFrameDelta
	}

	unlock := h.lock(id)
	defer unlock()

	sess, ok := h.load(w, r, id)
	if !ok {
		return
	}

	frame := sess.Step(req.Input, req.DT)
	if !h.save(w, r, sess) {
		return
	}

	resp := newSessionResponse(sess)
	resp.Frame = &frame
	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *SessionHandler) handleAction(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in action request", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	unlock := h.lock(id)
	defer unlock()

	sess, ok := h.load(w, r, id)
	if !ok {
		return
	}

	result, err := ApplyAction(sess, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownAction), errors.Is(err, library.ErrUnknownBook):
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
		case errors.Is(err, engine.ErrNotPlaying),
			errors.Is(err, engine.ErrNoInteraction),
			errors.Is(err, engine.ErrWrongInteraction):
			writeError(w, h.logger, http.StatusConflict, err.Error())
		default:
			h.logger.Error("Failed to apply action", "action", req.Action, "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to apply action")
		}
		return
	}

	if !h.save(w, r, sess) {
		return
	}

	resp := newSessionResponse(sess)
	resp.Result = &result
	writeJSON(w, h.logger, http.StatusOK, resp)
}

// ErrUnknownAction is returned by ApplyAction for an unrecognised action.
var ErrUnknownAction = errors.New("unknown action")

// ApplyAction resolves one session action. Phase actions report whether the
// phase changed; interaction actions report their outcome.
func ApplyAction(sess *engine.Session, req ActionRequest) (ActionResult, error) {
	req.Action = strings.ToLower(strings.TrimSpace(req.Action))
	result := ActionResult{Action: req.Action}
	phase := sess.State.Phase

	switch req.Action {
	case ActionStart:
		sess.Start()
		result.Success = phase != state.PhasePlaying && sess.State.Phase == state.PhasePlaying
	case ActionPause:
		sess.Pause()
		result.Success = phase != sess.State.Phase
	case ActionResume:
		sess.Resume()
		result.Success = phase != sess.State.Phase
	case ActionExercise:
		if err := sess.Exercise(); err != nil {
			return result, err
		}
		result.Success = true
	case ActionConverse:
		ok, err := sess.Converse()
		if err != nil {
			return result, err
		}
		result.Success = ok
		if !ok {
			result.Outcome = "too_distracted"
		}
	case ActionResist:
		ok, err := sess.Resist()
		if err != nil {
			return result, err
		}
		result.Success = ok
		if !ok {
			result.Outcome = "relapse"
		}
	case ActionRead:
		outcome, err := sess.ReadBook(req.BookID, req.Answer)
		if err != nil {
			return result, err
		}
		result.Success = outcome == engine.ReadCompleted
		result.Outcome = string(outcome)
	case ActionLeave:
		if err := sess.Leave(); err != nil {
			return result, err
		}
		result.Success = true
	default:
		return result, fmt.Errorf("%w: %q", ErrUnknownAction, req.Action)
	}
	return result, nil
}
