package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/soma-recovery/internal/storage"
)

func TestHealthHandler_ServeHTTP(t *testing.T) {
	tests := []struct {
		name           string
		pingErr        error
		expectedStatus int
		expectedHealth string
		expectedStore  string
	}{
		{
			name:           "all healthy",
			expectedStatus: http.StatusOK,
			expectedHealth: "healthy",
			expectedStore:  "healthy",
		},
		{
			name:           "unhealthy session store",
			pingErr:        errors.New("connection failed"),
			expectedStatus: http.StatusServiceUnavailable,
			expectedHealth: "degraded",
			expectedStore:  "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStorage(t)
			store.SetPingError(tt.pingErr)
			h := NewHealthHandler(store, testLogger())

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decode[HealthResponse](t, w)
			assert.Equal(t, tt.expectedHealth, resp.Status)
			assert.Equal(t, "soma-recovery", resp.Service)
			assert.Equal(t, tt.expectedStore, resp.Components["session_store"])
		})
	}
}

func TestHealthHandler_Redis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store, err := storage.NewRedisStorage("redis://"+mr.Addr(), t.TempDir(), time.Minute, testLogger())
	require.NoError(t, err)
	defer store.Close()

	h := NewHealthHandler(store, testLogger())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode[HealthResponse](t, w).Components["session_store"])
}
