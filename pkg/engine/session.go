// Package engine drives a recovery run one frame at a time. It owns the
// movement model and the policy for resolving interactions; all game rules
// live in package state.
package engine

import (
	"log/slog"
	"math"

	"github.com/jwebster45206/soma-recovery/pkg/proximity"
	"github.com/jwebster45206/soma-recovery/pkg/state"
)

const (
	// Speed is the top walking speed in world units per second.
	Speed = 5.0
	// Smoothing is the fraction of the gap to target velocity closed each frame.
	Smoothing = 0.1
)

// Input is the player's intent for one frame. Interact is edge-triggered:
// set it only on the frame the key went down.
type Input struct {
	Forward  bool `json:"forward"`
	Back     bool `json:"back"`
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Interact bool `json:"interact"`
}

// Moving reports whether any movement key is held.
func (in Input) Moving() bool {
	return in.Forward || in.Back || in.Left || in.Right
}

// Velocity is the player's smoothed movement velocity.
type Velocity struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Session is one run: the game state plus the frame-to-frame movement
// state that is not part of the game snapshot.
type Session struct {
	State    *state.GameState `json:"state"`
	Velocity Velocity         `json:"velocity"`
	Moving   bool             `json:"moving"`

	logger *slog.Logger
}

// NewSession wraps gs. A nil gs starts a fresh run.
func NewSession(gs *state.GameState, logger *slog.Logger) *Session {
	if gs == nil {
		gs = state.NewGameState()
	}
	s := &Session{State: gs}
	s.SetLogger(logger)
	return s
}

// SetLogger attaches logger to the session and its state. Sessions decoded
// from storage need this before use.
func (s *Session) SetLogger(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	s.logger = logger
	if s.State != nil {
		s.State.SetLogger(logger.With("game_id", s.State.ID))
	}
}

// Snapshot returns a read-only copy of the game state.
func (s *Session) Snapshot() state.GameState {
	return s.State.Snapshot()
}

// Frame reports what happened during a Step.
type Frame struct {
	Moved     bool                 `json:"moved"`
	Trigger   proximity.Trigger    `json:"trigger"`
	Candidate *proximity.Candidate `json:"candidate,omitempty"`
	Hint      *proximity.Hint      `json:"hint,omitempty"`
}

// Step advances the run by dt seconds. Within a frame the order is fixed:
// movement and walking reward, then proximity evaluation, then any
// interaction it triggers. Nothing moves outside play or while an
// interaction is open. A non-finite or negative dt counts as zero.
func (s *Session) Step(in Input, dt float64) Frame {
	frame := Frame{Trigger: proximity.TriggerNone}
	gs := s.State
	if math.IsNaN(dt) || math.IsInf(dt, 0) || dt < 0 {
		s.logger.Warn("Ignoring invalid frame delta", "dt", dt)
		dt = 0
	}
	if gs.Phase != state.PhasePlaying {
		return frame
	}

	if gs.Interaction.Active {
		s.Velocity = Velocity{}
		s.setMoving(false)
	} else {
		frame.Moved = s.move(in, dt)
		res := proximity.Evaluate(gs, in.Interact)
		frame.Trigger = res.Trigger
		frame.Candidate = res.Candidate
	}

	if h, ok := proximity.NearestHint(gs.Position, gs.NPCs, gs.Buildings, gs.Interaction.Active, gs.Phase); ok {
		frame.Hint = &h
	}
	return frame
}

func (s *Session) move(in Input, dt float64) bool {
	gs := s.State

	var target Velocity
	if in.Forward {
		target.Y = Speed
	}
	if in.Back {
		target.Y = -Speed
	}
	if in.Left {
		target.X = -Speed
	}
	if in.Right {
		target.X = Speed
	}

	s.Velocity.X += (target.X - s.Velocity.X) * Smoothing
	s.Velocity.Y += (target.Y - s.Velocity.Y) * Smoothing

	next := state.Position{
		X: gs.Position.X + s.Velocity.X*dt,
		Y: gs.Position.Y + s.Velocity.Y*dt,
	}.Clamp()

	moved := next != gs.Position
	if moved {
		gs.UpdatePosition(next.X, next.Y)
	}

	s.setMoving(in.Moving())
	if in.Moving() {
		gs.IncrementWalkingTime(dt)
	}
	return moved
}

func (s *Session) setMoving(moving bool) {
	if moving == s.Moving {
		return
	}
	s.Moving = moving
	if moving {
		s.logger.Debug("Player started moving")
	} else {
		s.logger.Debug("Player stopped moving")
	}
}
