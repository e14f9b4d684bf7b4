package runner

import (
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/soma-recovery/pkg/engine"
	"github.com/jwebster45206/soma-recovery/pkg/state"
)

// ResetSessionAction is a special step action that ends the current session
// and starts a fresh one in the suite's world.
const ResetSessionAction = "RESET_SESSION"

// TestSuite defines a complete integration test scenario
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `json:"name"`
	World string     `json:"world,omitempty"` // Used for regular tests
	Steps []TestStep `json:"steps,omitempty"` // Used for regular tests
	Cases []string   `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is either an action or a run of frames, followed by checks.
type TestStep struct {
	Name   string       `json:"name,omitempty"`
	Action string       `json:"action,omitempty"`
	BookID string       `json:"book_id,omitempty"`
	Answer int          `json:"answer,omitempty"`
	Frame  *FrameStep   `json:"frame,omitempty"`
	Expect Expectations `json:"expect"`
}

// FrameStep sends the same input Repeat times (at least once).
type FrameStep struct {
	Input  engine.Input `json:"input"`
	DT     float64      `json:"dt"`
	Repeat int          `json:"repeat,omitempty"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// HTTP status of the step's last request; 200 when unset
	Status *int `json:"status,omitempty"`

	// GameState properties - aligned with pkg/state/gamestate.go
	Phase             *state.Phase           `json:"phase,omitempty"`
	Dopamine          *float64               `json:"dopamine,omitempty"`
	Health            *float64               `json:"health,omitempty"`
	Confidence        *float64               `json:"confidence,omitempty"`
	Money             *float64               `json:"money,omitempty"`
	Debt              *float64               `json:"debt,omitempty"`
	Position          *state.Position        `json:"position,omitempty"`
	Interaction       *state.InteractionKind `json:"interaction,omitempty"`
	InteractionActive *bool                  `json:"interaction_active,omitempty"`
	InteractionTarget *string                `json:"interaction_target,omitempty"`
	BooksRead         []string               `json:"books_read,omitempty"`
	ConversationCount *int                   `json:"conversation_count,omitempty"`

	// Frame and action analysis
	Trigger *string `json:"trigger,omitempty"`
	Hint    *string `json:"hint,omitempty"`
	Success *bool   `json:"success,omitempty"`
	Outcome *string `json:"outcome,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	IsReset  bool // True if this was a RESET_SESSION step (should not count toward pass/fail metrics)
}

// TestJob represents a test suite to be executed by a worker
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Session  uuid.UUID // ID of the last session used for this test
}
