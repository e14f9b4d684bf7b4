package runner

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/soma-recovery/internal/handlers"
	"github.com/jwebster45206/soma-recovery/internal/storage"
)

const casesDir = "../cases"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	store := storage.NewMemoryStorage("../../data", time.Hour, logger)

	mux := http.NewServeMux()
	sessions := handlers.NewSessionHandler(store, logger)
	mux.Handle("/v1/sessions", sessions)
	mux.Handle("/v1/sessions/", sessions)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	jobs, err := LoadTestSuiteWithExpansion(filepath.Join(casesDir, "all.json"), casesDir)
	require.NoError(t, err)
	require.Len(t, jobs, 5)
	for _, job := range jobs {
		assert.False(t, job.Suite.IsSequence())
		assert.NotEmpty(t, job.Suite.Steps, job.Name)
		assert.Equal(t, "training_ground.json", job.Suite.World)
	}

	_, err = LoadTestSuiteWithExpansion(filepath.Join(casesDir, "missing.json"), casesDir)
	assert.Error(t, err)
}

func TestRunSuite_Cases(t *testing.T) {
	srv := newTestServer(t)
	r := NewRunner(srv.URL + "/")
	r.Logger = t.Logf

	files, err := filepath.Glob(filepath.Join(casesDir, "*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, files)

	for _, file := range files {
		jobs, err := LoadTestSuiteWithExpansion(file, casesDir)
		require.NoError(t, err)
		for _, job := range jobs {
			t.Run(strings.TrimSuffix(filepath.Base(file), ".json")+"/"+job.Name, func(t *testing.T) {
				result, err := r.RunSuite(context.Background(), job.Suite)
				require.NoError(t, err)
				assert.Len(t, result.Results, len(job.Suite.Steps))
				for _, step := range result.Results {
					assert.True(t, step.Success, "%s: %v", step.StepName, step.Error)
				}
			})
		}
	}
}

func TestRunSuite_ReportsFailedExpectations(t *testing.T) {
	srv := newTestServer(t)
	r := NewRunner(srv.URL)

	wrong := 99.0
	suite := TestSuite{
		Name:  "wrong dopamine",
		World: "training_ground.json",
		Steps: []TestStep{
			{Name: "start", Action: "start", Expect: Expectations{Dopamine: &wrong}},
			{Name: "pause", Action: "pause"},
		},
	}

	result, err := r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected dopamine")
	require.Len(t, result.Results, 2, "continue mode runs every step")
	assert.False(t, result.Results[0].Success)
	assert.True(t, result.Results[1].Success)

	r.ErrorHandlingMode = ErrorHandlingExit
	result, err = r.RunSuite(context.Background(), suite)
	require.Error(t, err)
	assert.Len(t, result.Results, 1)
}

func TestRunSuite_UnknownWorld(t *testing.T) {
	srv := newTestServer(t)
	r := NewRunner(srv.URL)

	_, err := r.RunSuite(context.Background(), TestSuite{Name: "nowhere", World: "nowhere.json"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestRunSuite_WorldOverride(t *testing.T) {
	srv := newTestServer(t)
	r := NewRunner(srv.URL)
	r.WorldOverride = "training_ground.json"

	talk := "Press E to talk"
	result, err := r.RunSuite(context.Background(), TestSuite{
		Name:  "override",
		World: "nowhere.json",
		Steps: []TestStep{
			{Name: "start", Action: "start"},
			{Name: "look around", Frame: &FrameStep{DT: 0.1}, Expect: Expectations{Hint: &talk}},
		},
	})
	require.NoError(t, err)
	assert.Len(t, result.Results, 2)
}
