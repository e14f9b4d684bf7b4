package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompleteExercise_FromFreshState(t *testing.T) {
	gs := NewGameState()
	gs.CompleteExercise()

	assert.InDelta(t, 25, gs.Stats.Dopamine, 1e-9)
	assert.InDelta(t, 26, gs.Stats.Health, 1e-9)
	assert.InDelta(t, 21.02, gs.Stats.Confidence, 1e-9)
}

func TestCompleteExercise_CapsDopamine(t *testing.T) {
	gs := NewGameState()
	gs.UpdateStats(StatsPatch{Dopamine: Float(95)})
	gs.CompleteExercise()
	assert.Equal(t, 100.0, gs.Stats.Dopamine)
}

func TestReadBook(t *testing.T) {
	t.Run("low dopamine is refused", func(t *testing.T) {
		gs := NewGameState()
		gs.UpdateStats(StatsPatch{Dopamine: Float(5)})
		before := gs.Stats

		assert.False(t, gs.ReadBook("growth-mindset"))
		assert.Empty(t, gs.BooksRead)
		assert.Equal(t, before, gs.Stats)
	})

	t.Run("first read grants reward", func(t *testing.T) {
		gs := NewGameState()
		require.True(t, gs.ReadBook("growth-mindset"))
		assert.Equal(t, []string{"growth-mindset"}, gs.BooksRead)
		assert.InDelta(t, 30, gs.Stats.Dopamine, 1e-9)
	})

	t.Run("second read of same book is a no-op", func(t *testing.T) {
		gs := NewGameState()
		require.True(t, gs.ReadBook("growth-mindset"))
		gs.UpdateStats(StatsPatch{Dopamine: Float(5)})
		gs.UpdateStats(StatsPatch{Dopamine: Float(70)})
		before := gs.Stats

		assert.False(t, gs.ReadBook("growth-mindset"))
		assert.Equal(t, before, gs.Stats)
		assert.Len(t, gs.BooksRead, 1)
	})

	t.Run("different books each count", func(t *testing.T) {
		gs := NewGameState()
		require.True(t, gs.ReadBook("growth-mindset"))
		require.True(t, gs.ReadBook("habit-formation"))
		assert.Len(t, gs.BooksRead, 2)
		assert.True(t, gs.HasReadBook("habit-formation"))
	})
}

func TestCompleteConversation(t *testing.T) {
	t.Run("below gate leaves stats untouched", func(t *testing.T) {
		gs := NewGameState()
		before := gs.Stats

		assert.False(t, gs.CompleteConversation("clean-1"))
		assert.Equal(t, before, gs.Stats)
		assert.Zero(t, gs.ConversationCount)
	})

	t.Run("at gate pays and rewards", func(t *testing.T) {
		gs := NewGameState()
		gs.UpdateStats(StatsPatch{Dopamine: Float(20)})

		require.True(t, gs.CompleteConversation("clean-1"))
		assert.Equal(t, 1, gs.ConversationCount)
		assert.InDelta(t, 28, gs.Stats.Dopamine, 1e-9)
		assert.Equal(t, 50.0, gs.Stats.Money)
	})

	t.Run("count is monotonic", func(t *testing.T) {
		gs := NewGameState()
		gs.UpdateStats(StatsPatch{Dopamine: Float(40)})
		for i := 0; i < 3; i++ {
			gs.CompleteConversation("clean-2")
		}
		assert.Equal(t, 3, gs.ConversationCount)
		assert.Equal(t, 150.0, gs.Stats.Money)
	})
}

func TestResistTemptation(t *testing.T) {
	tests := []struct {
		name     string
		dopamine float64
		money    float64
		success  bool
		wantDopa float64
		wantCash float64
	}{
		{name: "relapse", dopamine: 45, money: 150, success: false, wantDopa: 15, wantCash: 50},
		{name: "relapse floors at zero", dopamine: 20, money: 60, success: false, wantDopa: 0, wantCash: 0},
		{name: "resisted", dopamine: 40, money: 75, success: true, wantDopa: 45, wantCash: 75},
		{name: "resisted caps at max", dopamine: 98, money: 0, success: true, wantDopa: 100, wantCash: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := NewGameState()
			gs.UpdateStats(StatsPatch{Dopamine: Float(tt.dopamine), Money: Float(tt.money)})

			gs.ResistTemptation(tt.success)

			assert.InDelta(t, tt.wantDopa, gs.Stats.Dopamine, 1e-9)
			assert.InDelta(t, tt.wantCash, gs.Stats.Money, 1e-9)
		})
	}
}

func TestIncrementWalkingTime(t *testing.T) {
	gs := NewGameState()

	gs.IncrementWalkingTime(1)
	gs.IncrementWalkingTime(1)
	assert.Equal(t, 15.0, gs.Stats.Dopamine, "exactly two seconds is not yet a reward")
	assert.Equal(t, 2.0, gs.WalkingTime)

	gs.IncrementWalkingTime(0.5)
	assert.Equal(t, 16.0, gs.Stats.Dopamine)
	assert.Equal(t, 2.5, gs.LastDopamineIncrease)

	gs.IncrementWalkingTime(1)
	assert.Equal(t, 16.0, gs.Stats.Dopamine)
}

func TestIncrementWalkingTime_IgnoresBadDelta(t *testing.T) {
	gs := NewGameState()
	gs.IncrementWalkingTime(0)
	gs.IncrementWalkingTime(-3)
	assert.Zero(t, gs.WalkingTime)
	assert.Equal(t, 15.0, gs.Stats.Dopamine)
}

func TestIncrementWalkingTime_CapsAtMax(t *testing.T) {
	gs := NewGameState()
	gs.UpdateStats(StatsPatch{Dopamine: Float(100)})
	gs.IncrementWalkingTime(3)
	assert.Equal(t, 100.0, gs.Stats.Dopamine)
}
