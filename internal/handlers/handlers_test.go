package handlers

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/soma-recovery/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError, // Reduce noise in tests
	}))
}

// Small layouts with one thing next to the spawn point.
var testWorlds = map[string]string{
	"gym_yard.json": `{"name":"Gym Yard","npcs":[],"buildings":[
		{"id":"gym-1","type":"gym","x":3,"y":0,"width":2,"height":2}]}`,
	"reading_room.json": `{"name":"Reading Room","npcs":[],"buildings":[
		{"id":"library-1","type":"library","x":0,"y":3,"width":4,"height":3}]}`,
	"back_alley.json": `{"name":"Back Alley","npcs":[
		{"id":"addict-1","type":"addict","x":1,"y":0}],"buildings":[]}`,
	"meeting.json": `{"name":"Meeting","npcs":[
		{"id":"clean-1","type":"clean","x":0,"y":2,"message":"Keep going."}],"buildings":[]}`,
}

func newTestStorage(t *testing.T) *storage.MemoryStorage {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "worlds"), 0o755))
	for name, body := range testWorlds {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "worlds", name), []byte(body), 0o644))
	}
	return storage.NewMemoryStorage(dir, time.Hour, testLogger())
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
