package engine

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/soma-recovery/pkg/library"
	"github.com/jwebster45206/soma-recovery/pkg/state"
)

var (
	ErrNotPlaying       = errors.New("game is not in progress")
	ErrNoInteraction    = errors.New("no active interaction")
	ErrWrongInteraction = errors.New("action does not match the active interaction")
)

// ReadOutcome is the result of attempting a book at the library.
type ReadOutcome string

const (
	ReadCompleted     ReadOutcome = "read"
	ReadAlreadyRead   ReadOutcome = "already_read"
	ReadWrongAnswer   ReadOutcome = "wrong_answer"
	ReadTooDistracted ReadOutcome = "too_distracted"
)

// Start begins play from the intro.
func (s *Session) Start() {
	s.State.StartGame()
}

// Pause pauses play.
func (s *Session) Pause() {
	s.State.PauseGame()
}

// Resume resumes paused play.
func (s *Session) Resume() {
	s.State.ResumeGame()
}

func (s *Session) require(kind state.InteractionKind) error {
	if s.State.Phase != state.PhasePlaying {
		return ErrNotPlaying
	}
	if !s.State.Interaction.Active {
		return ErrNoInteraction
	}
	if s.State.Interaction.Kind != kind {
		return fmt.Errorf("%w: %s is active, not %s", ErrWrongInteraction, s.State.Interaction.Kind, kind)
	}
	return nil
}

// Exercise completes a workout at the gym and leaves it.
func (s *Session) Exercise() error {
	if err := s.require(state.InteractionExercise); err != nil {
		return err
	}
	s.State.CompleteExercise()
	s.State.EndInteraction()
	return nil
}

// Converse talks with the NPC in the active conversation. When the player
// lacks the dopamine to focus nothing changes and the conversation stays
// open; otherwise it ends. Returns whether the conversation counted.
func (s *Session) Converse() (bool, error) {
	if err := s.require(state.InteractionConversation); err != nil {
		return false, err
	}
	target := s.State.Interaction.Target
	if target == nil || target.NPC == nil {
		return false, fmt.Errorf("%w: conversation has no npc", ErrWrongInteraction)
	}
	if !s.State.CompleteConversation(target.NPC.ID) {
		return false, nil
	}
	s.State.EndInteraction()
	return true, nil
}

// Resist answers a temptation. The player resists when their dopamine is
// at least state.ResistThreshold. The temptation ends either way.
func (s *Session) Resist() (bool, error) {
	if err := s.require(state.InteractionTemptation); err != nil {
		return false, err
	}
	success := s.State.Stats.Dopamine >= state.ResistThreshold
	s.State.ResistTemptation(success)
	s.State.EndInteraction()
	return success, nil
}

// ReadBook submits a quiz answer for bookID while in the library. A correct
// answer grants the reading reward. The library stays open.
func (s *Session) ReadBook(bookID string, answer int) (ReadOutcome, error) {
	if err := s.require(state.InteractionLibrary); err != nil {
		return "", err
	}
	book, err := library.Get(bookID)
	if err != nil {
		return "", fmt.Errorf("%w: %s", err, bookID)
	}
	if s.State.HasReadBook(book.ID) {
		return ReadAlreadyRead, nil
	}
	if s.State.Stats.Dopamine < state.ReadBookMinDopamine {
		return ReadTooDistracted, nil
	}
	if !book.Check(answer) {
		return ReadWrongAnswer, nil
	}
	s.State.ReadBook(book.ID)
	return ReadCompleted, nil
}

// Leave walks away from the library, gym or conversation. A temptation
// cannot be walked away from; it must be resisted.
func (s *Session) Leave() error {
	if !s.State.Interaction.Active {
		return ErrNoInteraction
	}
	if s.State.Interaction.Kind == state.InteractionTemptation {
		return fmt.Errorf("%w: temptation must be resisted", ErrWrongInteraction)
	}
	s.State.EndInteraction()
	return nil
}
