package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/soma-recovery/internal/storage"
	"github.com/jwebster45206/soma-recovery/pkg/engine"
	"github.com/jwebster45206/soma-recovery/pkg/proximity"
	"github.com/jwebster45206/soma-recovery/pkg/state"
)

type sessionClient struct {
	t *testing.T
	h http.Handler
}

func newSessionClient(t *testing.T, store storage.Storage) *sessionClient {
	return &sessionClient{t: t, h: NewSessionHandler(store, testLogger())}
}

func (c *sessionClient) create(worldFile string) SessionResponse {
	c.t.Helper()
	var body any
	if worldFile != "" {
		body = CreateSessionRequest{World: worldFile}
	}
	w := doJSON(c.t, c.h, http.MethodPost, "/v1/sessions", body)
	require.Equal(c.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[SessionResponse](c.t, w)
}

func (c *sessionClient) frame(id uuid.UUID, in engine.Input, dt float64) SessionResponse {
	c.t.Helper()
	w := doJSON(c.t, c.h, http.MethodPost, "/v1/sessions/"+id.String()+"/frame", FrameRequest{Input: in, DT: dt})
	require.Equal(c.t, http.StatusOK, w.Code, w.Body.String())
	return decode[SessionResponse](c.t, w)
}

func (c *sessionClient) action(id uuid.UUID, req ActionRequest) (int, SessionResponse) {
	c.t.Helper()
	w := doJSON(c.t, c.h, http.MethodPost, "/v1/sessions/"+id.String()+"/actions", req)
	if w.Code != http.StatusOK {
		return w.Code, SessionResponse{}
	}
	return w.Code, decode[SessionResponse](c.t, w)
}

// started creates a session in worldFile and begins play.
func (c *sessionClient) started(worldFile string) uuid.UUID {
	c.t.Helper()
	sess := c.create(worldFile)
	code, resp := c.action(sess.ID, ActionRequest{Action: ActionStart})
	require.Equal(c.t, http.StatusOK, code)
	require.True(c.t, resp.Result.Success)
	return sess.ID
}

func TestSessionHandler_CreateDefault(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))

	resp := c.create("")
	assert.NotEqual(t, uuid.Nil, resp.ID)
	assert.Equal(t, resp.ID, resp.State.ID)
	assert.Equal(t, state.PhaseIntro, resp.State.Phase)
	assert.Equal(t, state.StartingStats(), resp.State.Stats)
	assert.Len(t, resp.State.NPCs, 10)
	assert.Len(t, resp.State.Buildings, 3)
}

func TestSessionHandler_CreateFromWorld(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))

	resp := c.create("gym_yard")
	require.Len(t, resp.State.Buildings, 1)
	assert.Equal(t, "gym-1", resp.State.Buildings[0].ID)
	assert.Empty(t, resp.State.NPCs)

	w := doJSON(t, c.h, http.MethodPost, "/v1/sessions", CreateSessionRequest{World: "atlantis.json"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_ReadAndDelete(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))
	id := c.create("").ID

	w := doJSON(t, c.h, http.MethodGet, "/v1/sessions/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[SessionResponse](t, w).ID)

	w = doJSON(t, c.h, http.MethodDelete, "/v1/sessions/"+id.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, c.h, http.MethodGet, "/v1/sessions/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_BadRequests(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))
	id := c.create("").ID

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"invalid id", http.MethodGet, "/v1/sessions/not-a-uuid", nil, http.StatusBadRequest},
		{"unknown session", http.MethodGet, "/v1/sessions/" + uuid.NewString(), nil, http.StatusNotFound},
		{"list not supported", http.MethodGet, "/v1/sessions", nil, http.StatusMethodNotAllowed},
		{"put session", http.MethodPut, "/v1/sessions/" + id.String(), nil, http.StatusMethodNotAllowed},
		{"get frame", http.MethodGet, "/v1/sessions/" + id.String() + "/frame", nil, http.StatusMethodNotAllowed},
		{"unknown sub-resource", http.MethodPost, "/v1/sessions/" + id.String() + "/teleport", nil, http.StatusNotFound},
		{"frame without body", http.MethodPost, "/v1/sessions/" + id.String() + "/frame", nil, http.StatusBadRequest},
		{"negative dt", http.MethodPost, "/v1/sessions/" + id.String() + "/frame", FrameRequest{DT: -1}, http.StatusBadRequest},
		{"unknown action", http.MethodPost, "/v1/sessions/" + id.String() + "/actions", ActionRequest{Action: "dance"}, http.StatusBadRequest},
		{"exercise without gym", http.MethodPost, "/v1/sessions/" + id.String() + "/actions", ActionRequest{Action: ActionExercise}, http.StatusConflict},
		{"leave with nothing open", http.MethodPost, "/v1/sessions/" + id.String() + "/actions", ActionRequest{Action: ActionLeave}, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, c.h, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, w).Error)
		})
	}
}

func TestSessionHandler_PhaseActions(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))
	id := c.create("").ID

	_, resp := c.action(id, ActionRequest{Action: ActionPause})
	assert.False(t, resp.Result.Success, "cannot pause during the intro")
	assert.Equal(t, state.PhaseIntro, resp.State.Phase)

	_, resp = c.action(id, ActionRequest{Action: ActionStart})
	assert.True(t, resp.Result.Success)
	assert.Equal(t, state.PhasePlaying, resp.State.Phase)

	_, resp = c.action(id, ActionRequest{Action: "PAUSE"})
	assert.True(t, resp.Result.Success)
	assert.Equal(t, state.PhasePaused, resp.State.Phase)

	frame := c.frame(id, engine.Input{Forward: true}, 0.1)
	assert.False(t, frame.Frame.Moved, "nothing moves while paused")

	_, resp = c.action(id, ActionRequest{Action: ActionResume})
	assert.True(t, resp.Result.Success)
	assert.Equal(t, state.PhasePlaying, resp.State.Phase)
}

func TestSessionHandler_FrameMovesPlayer(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))
	id := c.started("")

	resp := c.frame(id, engine.Input{Forward: true}, 0.1)
	require.NotNil(t, resp.Frame)
	assert.True(t, resp.Frame.Moved)
	assert.True(t, resp.Moving)
	assert.InDelta(t, 0.5, resp.Velocity.Y, 1e-9)
	assert.InDelta(t, 0.05, resp.State.Position.Y, 1e-9)

	// Velocity carries over between frames.
	resp = c.frame(id, engine.Input{Forward: true}, 0.1)
	assert.InDelta(t, 0.95, resp.Velocity.Y, 1e-9)
	assert.InDelta(t, 0.145, resp.State.Position.Y, 1e-9)
}

func TestSessionHandler_FrameDeltaIsCapped(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))
	id := c.started("")

	resp := c.frame(id, engine.Input{Right: true}, 30)
	assert.InDelta(t, 0.5*MaxFrameDelta, resp.State.Position.X, 1e-9)
	assert.InDelta(t, MaxFrameDelta, resp.State.WalkingTime, 1e-9)
}

func TestSessionHandler_Exercise(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))
	id := c.started("gym_yard.json")

	resp := c.frame(id, engine.Input{Interact: true}, 0.016)
	assert.Equal(t, proximity.TriggerInteract, resp.Frame.Trigger)
	assert.True(t, resp.State.Interaction.Active)
	assert.Equal(t, state.InteractionExercise, resp.State.Interaction.Kind)

	code, resp := c.action(id, ActionRequest{Action: ActionExercise})
	require.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Result.Success)
	assert.InDelta(t, 25, resp.State.Stats.Dopamine, 1e-9)
	assert.InDelta(t, 26, resp.State.Stats.Health, 1e-9)
	assert.InDelta(t, 21.02, resp.State.Stats.Confidence, 1e-9)
	assert.False(t, resp.State.Interaction.Active)
}

func TestSessionHandler_Library(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))
	id := c.started("reading_room.json")

	resp := c.frame(id, engine.Input{Interact: true}, 0.016)
	require.Equal(t, state.InteractionLibrary, resp.State.Interaction.Kind)

	_, resp = c.action(id, ActionRequest{Action: ActionRead, BookID: "growth-mindset", Answer: 0})
	assert.False(t, resp.Result.Success)
	assert.Equal(t, string(engine.ReadWrongAnswer), resp.Result.Outcome)

	_, resp = c.action(id, ActionRequest{Action: ActionRead, BookID: "growth-mindset", Answer: 1})
	assert.True(t, resp.Result.Success)
	assert.Equal(t, string(engine.ReadCompleted), resp.Result.Outcome)
	assert.Equal(t, []string{"growth-mindset"}, resp.State.BooksRead)
	assert.InDelta(t, 30, resp.State.Stats.Dopamine, 1e-9)
	assert.True(t, resp.State.Interaction.Active, "library stays open after reading")

	_, resp = c.action(id, ActionRequest{Action: ActionRead, BookID: "growth-mindset", Answer: 1})
	assert.Equal(t, string(engine.ReadAlreadyRead), resp.Result.Outcome)

	code, _ := c.action(id, ActionRequest{Action: ActionRead, BookID: "no-such-book", Answer: 1})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = c.action(id, ActionRequest{Action: ActionLeave})
	require.Equal(t, http.StatusOK, code)
	assert.False(t, resp.State.Interaction.Active)
}

func TestSessionHandler_Temptation(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))
	id := c.started("back_alley.json")

	resp := c.frame(id, engine.Input{}, 0.016)
	assert.Equal(t, proximity.TriggerTemptation, resp.Frame.Trigger)
	assert.Equal(t, state.InteractionTemptation, resp.State.Interaction.Kind)

	code, _ := c.action(id, ActionRequest{Action: ActionLeave})
	assert.Equal(t, http.StatusConflict, code, "a temptation cannot be walked away from")

	code, resp = c.action(id, ActionRequest{Action: ActionResist})
	require.Equal(t, http.StatusOK, code)
	assert.False(t, resp.Result.Success)
	assert.Equal(t, "relapse", resp.Result.Outcome)
	assert.Zero(t, resp.State.Stats.Dopamine)
	assert.False(t, resp.State.Interaction.Active)
}

func TestSessionHandler_ConversationTooDistracted(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))
	id := c.started("meeting.json")

	resp := c.frame(id, engine.Input{Interact: true}, 0.016)
	require.Equal(t, state.InteractionConversation, resp.State.Interaction.Kind)
	assert.Equal(t, "Keep going.", resp.State.Interaction.Target.NPC.Message)

	_, resp = c.action(id, ActionRequest{Action: ActionConverse})
	assert.False(t, resp.Result.Success)
	assert.Equal(t, "too_distracted", resp.Result.Outcome)
	assert.True(t, resp.State.Interaction.Active)
	assert.Zero(t, resp.State.ConversationCount)
}

func TestSessionHandler_RedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store, err := storage.NewRedisStorage("redis://"+mr.Addr(), "", time.Minute, testLogger())
	require.NoError(t, err)
	defer store.Close()

	c := newSessionClient(t, store)
	id := c.started("")
	assert.True(t, mr.Exists("session:"+id.String()))

	resp := c.frame(id, engine.Input{Left: true}, 0.1)
	assert.InDelta(t, -0.05, resp.State.Position.X, 1e-9)

	mr.FastForward(2 * time.Minute)
	w := doJSON(t, c.h, http.MethodGet, "/v1/sessions/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionHandler_UnknownSessionsLeaveNoLockState(t *testing.T) {
	h := NewSessionHandler(newTestStorage(t), testLogger())

	for i := 0; i < 200; i++ {
		w := doJSON(t, h, http.MethodPost, "/v1/sessions/"+uuid.NewString()+"/frame",
			FrameRequest{Input: engine.Input{Right: true}, DT: 0.1})
		require.Equal(t, http.StatusNotFound, w.Code)
	}

	// Locks are a fixed set of stripes; an ID always maps to the same one.
	assert.Len(t, h.locks, lockStripes)
	id := uuid.New()
	assert.Same(t, h.stripe(id), h.stripe(id))
}

func TestSessionHandler_ConcurrentFramesAreSerialized(t *testing.T) {
	c := newSessionClient(t, newTestStorage(t))
	id := c.started("reading_room.json")

	body, err := json.Marshal(FrameRequest{Input: engine.Input{Right: true}, DT: 0.01})
	require.NoError(t, err)

	const frames = 40
	codes := make([]int, frames)
	var wg sync.WaitGroup
	for i := 0; i < frames; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+id.String()+"/frame", bytes.NewReader(body))
			w := httptest.NewRecorder()
			c.h.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	w := doJSON(t, c.h, http.MethodGet, "/v1/sessions/"+id.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[SessionResponse](t, w)
	assert.InDelta(t, frames*0.01, resp.State.WalkingTime, 1e-9, "no frame may be lost")
}
