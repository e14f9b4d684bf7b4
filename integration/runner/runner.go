package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/soma-recovery/internal/handlers"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// DefaultTolerance is the slack allowed when comparing stats and positions.
const DefaultTolerance = 0.01

// Runner executes integration tests against a running soma-recovery API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Tolerance         float64
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	WorldOverride     string // If set, overrides the world for all test cases
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           30 * time.Second,
		Tolerance:         DefaultTolerance,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite in a fresh session
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	world := suite.World
	if r.WorldOverride != "" {
		world = r.WorldOverride
	}

	id, err := r.createSession(ctx, world)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.Session = id

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)

		var stepResult TestResult
		if step.Action == ResetSessionAction {
			stepResult = r.resetSession(ctx, &id, world, step)
			result.Session = id
		} else {
			stepResult = r.executeStep(ctx, id, step)
		}
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	if err := r.deleteSession(ctx, id); err != nil {
		r.Logger("    Warning: failed to delete session %s: %v", id, err)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// resetSession replaces the current session with a fresh one in the same world
func (r *Runner) resetSession(ctx context.Context, id *uuid.UUID, world string, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name, IsReset: true}

	if err := r.deleteSession(ctx, *id); err != nil {
		result.Error = fmt.Errorf("failed to delete session: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	newID, err := r.createSession(ctx, world)
	if err != nil {
		result.Error = fmt.Errorf("failed to create session: %w", err)
		result.Duration = time.Since(start)
		return result
	}
	*id = newID

	resp, status, err := r.getSession(ctx, newID)
	if err == nil {
		err = r.checkExpectations(step.Expect, status, resp)
	}
	if err != nil {
		result.Error = fmt.Errorf("reset expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// executeStep sends a step's frames or action and checks expectations
// against the last response
func (r *Runner) executeStep(ctx context.Context, id uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}

	var (
		resp   *handlers.SessionResponse
		status int
		err    error
	)
	switch {
	case step.Frame != nil && step.Action != "":
		err = fmt.Errorf("step has both a frame and an action")
	case step.Frame != nil:
		repeat := max(step.Frame.Repeat, 1)
		for i := 0; i < repeat; i++ {
			resp, status, err = r.postFrame(ctx, id, handlers.FrameRequest{Input: step.Frame.Input, DT: step.Frame.DT})
			if err != nil || status != http.StatusOK {
				break
			}
		}
	case step.Action != "":
		resp, status, err = r.postAction(ctx, id, handlers.ActionRequest{
			Action: step.Action,
			BookID: step.BookID,
			Answer: step.Answer,
		})
	default:
		resp, status, err = r.getSession(ctx, id)
	}
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	// Failed requests carry no state, so read it back for state checks.
	if resp == nil {
		resp, _, err = r.getSession(ctx, id)
		if err != nil {
			result.Error = fmt.Errorf("failed to get session after step: %w", err)
			result.Duration = time.Since(start)
			return result
		}
	}

	if err := r.checkExpectations(step.Expect, status, resp); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

func (r *Runner) createSession(ctx context.Context, world string) (uuid.UUID, error) {
	var out handlers.SessionResponse
	status, err := r.do(ctx, http.MethodPost, r.BaseURL+"/v1/sessions", handlers.CreateSessionRequest{World: world}, &out)
	if err != nil {
		return uuid.Nil, err
	}
	if status != http.StatusCreated {
		return uuid.Nil, fmt.Errorf("create session returned %d", status)
	}
	return out.ID, nil
}

func (r *Runner) deleteSession(ctx context.Context, id uuid.UUID) error {
	status, err := r.do(ctx, http.MethodDelete, r.sessionURL(id, ""), nil, nil)
	if err != nil {
		return err
	}
	if status != http.StatusNoContent && status != http.StatusNotFound {
		return fmt.Errorf("delete session returned %d", status)
	}
	return nil
}

func (r *Runner) getSession(ctx context.Context, id uuid.UUID) (*handlers.SessionResponse, int, error) {
	return r.sessionRequest(ctx, http.MethodGet, r.sessionURL(id, ""), nil)
}

func (r *Runner) postFrame(ctx context.Context, id uuid.UUID, req handlers.FrameRequest) (*handlers.SessionResponse, int, error) {
	return r.sessionRequest(ctx, http.MethodPost, r.sessionURL(id, "/frame"), req)
}

func (r *Runner) postAction(ctx context.Context, id uuid.UUID, req handlers.ActionRequest) (*handlers.SessionResponse, int, error) {
	return r.sessionRequest(ctx, http.MethodPost, r.sessionURL(id, "/actions"), req)
}

// sessionRequest returns a nil response without error when the API answered
// with a non-200 status, so expectations can assert on the status.
func (r *Runner) sessionRequest(ctx context.Context, method, endpoint string, body any) (*handlers.SessionResponse, int, error) {
	var out handlers.SessionResponse
	status, err := r.do(ctx, method, endpoint, body, &out)
	if err != nil {
		return nil, status, err
	}
	if status != http.StatusOK {
		return nil, status, nil
	}
	return &out, status, nil
}

func (r *Runner) sessionURL(id uuid.UUID, suffix string) string {
	return r.BaseURL + "/v1/sessions/" + id.String() + suffix
}

// do sends body as JSON and decodes a 2xx response into out when given.
func (r *Runner) do(ctx context.Context, method, endpoint string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s failed: %w", method, endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.StatusCode, nil
}

// checkExpectations validates the test expectations against the session after a step
func (r *Runner) checkExpectations(exp Expectations, status int, resp *handlers.SessionResponse) error {
	wantStatus := http.StatusOK
	if exp.Status != nil {
		wantStatus = *exp.Status
	}
	if status != wantStatus {
		return fmt.Errorf("expected status %d, got %d", wantStatus, status)
	}

	gs := resp.State
	tol := r.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}
	near := func(name string, want *float64, got float64) error {
		if want != nil && math.Abs(*want-got) > tol {
			return fmt.Errorf("expected %s %.3f, got %.3f", name, *want, got)
		}
		return nil
	}

	if exp.Phase != nil && gs.Phase != *exp.Phase {
		return fmt.Errorf("expected phase %s, got %s", *exp.Phase, gs.Phase)
	}

	for _, check := range []struct {
		name string
		want *float64
		got  float64
	}{
		{"dopamine", exp.Dopamine, gs.Stats.Dopamine},
		{"health", exp.Health, gs.Stats.Health},
		{"confidence", exp.Confidence, gs.Stats.Confidence},
		{"money", exp.Money, gs.Stats.Money},
		{"debt", exp.Debt, gs.Stats.Debt},
	} {
		if err := near(check.name, check.want, check.got); err != nil {
			return err
		}
	}

	if exp.Position != nil {
		if err := near("x", &exp.Position.X, gs.Position.X); err != nil {
			return err
		}
		if err := near("y", &exp.Position.Y, gs.Position.Y); err != nil {
			return err
		}
	}

	if exp.Interaction != nil && gs.Interaction.Kind != *exp.Interaction {
		return fmt.Errorf("expected interaction %s, got %s", *exp.Interaction, gs.Interaction.Kind)
	}
	if exp.InteractionActive != nil && gs.Interaction.Active != *exp.InteractionActive {
		return fmt.Errorf("expected interaction active %t, got %t", *exp.InteractionActive, gs.Interaction.Active)
	}
	if exp.InteractionTarget != nil && gs.Interaction.Target.ID() != *exp.InteractionTarget {
		return fmt.Errorf("expected interaction target %q, got %q", *exp.InteractionTarget, gs.Interaction.Target.ID())
	}

	// Full books check (order independent)
	if len(exp.BooksRead) > 0 {
		want := slices.Sorted(slices.Values(exp.BooksRead))
		got := slices.Sorted(slices.Values(gs.BooksRead))
		if !slices.Equal(want, got) {
			return fmt.Errorf("expected books read %v, got %v", exp.BooksRead, gs.BooksRead)
		}
	}

	if exp.ConversationCount != nil && gs.ConversationCount != *exp.ConversationCount {
		return fmt.Errorf("expected conversation_count %d, got %d", *exp.ConversationCount, gs.ConversationCount)
	}

	if exp.Trigger != nil {
		if resp.Frame == nil {
			return fmt.Errorf("expected trigger %s, but step returned no frame", *exp.Trigger)
		}
		if string(resp.Frame.Trigger) != *exp.Trigger {
			return fmt.Errorf("expected trigger %s, got %s", *exp.Trigger, resp.Frame.Trigger)
		}
	}

	// An empty expected hint means no hint should be shown.
	if exp.Hint != nil {
		got := ""
		if resp.Frame != nil && resp.Frame.Hint != nil {
			got = resp.Frame.Hint.Text
		}
		if got != *exp.Hint {
			return fmt.Errorf("expected hint %q, got %q", *exp.Hint, got)
		}
	}

	if exp.Success != nil || exp.Outcome != nil {
		if resp.Result == nil {
			return fmt.Errorf("expected an action result, but step returned none")
		}
		if exp.Success != nil && resp.Result.Success != *exp.Success {
			return fmt.Errorf("expected success %t, got %t", *exp.Success, resp.Result.Success)
		}
		if exp.Outcome != nil && resp.Result.Outcome != *exp.Outcome {
			return fmt.Errorf("expected outcome %q, got %q", *exp.Outcome, resp.Result.Outcome)
		}
	}

	return nil
}
