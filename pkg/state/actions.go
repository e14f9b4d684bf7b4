package state

import "math"

// Gameplay tuning.
const (
	WalkingRewardInterval = 2.0 // seconds of movement per walking reward
	WalkingReward         = 1.0

	ReadBookMinDopamine = 10.0
	ReadBookReward      = 15.0

	ExerciseReward = 10.0

	ConversationMinDopamine = 20.0
	ConversationReward      = 8.0
	ConversationPay         = 50.0

	// ResistThreshold is the dopamine a player needs to resist temptation.
	// Callers compare against it before calling ResistTemptation.
	ResistThreshold = 30.0
	ResistReward    = 5.0
	RelapsePenalty  = 30.0
	RelapseCost     = 100.0
)

// IncrementWalkingTime adds delta seconds of movement. Every time more than
// WalkingRewardInterval seconds have accumulated since the last reward the
// player gains one point of dopamine. Non-positive deltas are ignored.
func (gs *GameState) IncrementWalkingTime(delta float64) {
	if !finite(delta) || delta <= 0 {
		return
	}
	walked := gs.WalkingTime + delta
	gs.WalkingTime = walked
	if walked-gs.LastDopamineIncrease <= WalkingRewardInterval {
		return
	}
	gs.LastDopamineIncrease = walked

	before := gs.Stats.Dopamine
	gs.UpdateStats(StatsPatch{Dopamine: Float(addDopamine(before, WalkingReward))})
	gs.log().Debug("Walking increased dopamine", "from", before, "to", gs.Stats.Dopamine)
}

// ReadBook rewards finishing a book. It is refused when the book has already
// been read or the player lacks the dopamine to focus. Returns whether the
// reward was applied.
func (gs *GameState) ReadBook(bookID string) bool {
	if gs.HasReadBook(bookID) {
		gs.log().Info("Already read this book", "book", bookID)
		return false
	}
	if gs.Stats.Dopamine < ReadBookMinDopamine {
		gs.log().Info("Not enough dopamine to focus on reading",
			"book", bookID,
			"dopamine", gs.Stats.Dopamine)
		return false
	}

	gs.BooksRead = append(gs.BooksRead, bookID)
	gs.UpdateStats(StatsPatch{Dopamine: Float(addDopamine(gs.Stats.Dopamine, ReadBookReward))})
	gs.log().Info("Book read", "book", bookID, "total", len(gs.BooksRead))
	return true
}

// CompleteExercise rewards a workout. Exercise raises dopamine directly;
// the health gain follows through the derivation step. There is no flat +5
// health: a fresh state must land on health 26 (0.6*30 + 0.4*0.8*25).
func (gs *GameState) CompleteExercise() {
	gs.UpdateStats(StatsPatch{Dopamine: Float(addDopamine(gs.Stats.Dopamine, ExerciseReward))})
	gs.log().Info("Exercise completed",
		"dopamine", gs.Stats.Dopamine,
		"health", gs.Stats.Health)
}

// CompleteConversation rewards talking with a clean NPC. It is refused when
// dopamine is below ConversationMinDopamine. Returns whether it applied.
func (gs *GameState) CompleteConversation(npcID string) bool {
	if gs.Stats.Dopamine < ConversationMinDopamine {
		gs.log().Info("Not enough dopamine to maintain conversation",
			"npc", npcID,
			"dopamine", gs.Stats.Dopamine)
		return false
	}

	gs.ConversationCount++
	gs.UpdateStats(StatsPatch{
		Dopamine: Float(addDopamine(gs.Stats.Dopamine, ConversationReward)),
		Money:    Float(gs.Stats.Money + ConversationPay),
	})
	gs.log().Info("Conversation completed",
		"npc", npcID,
		"earned", ConversationPay,
		"money", gs.Stats.Money)
	return true
}

// ResistTemptation applies the outcome of a temptation. The caller decides
// success, normally by comparing dopamine against ResistThreshold.
func (gs *GameState) ResistTemptation(success bool) {
	if !success {
		gs.log().Info("Failed to resist temptation - relapse")
		gs.UpdateStats(StatsPatch{
			Dopamine: Float(math.Max(0, gs.Stats.Dopamine-RelapsePenalty)),
			Money:    Float(math.Max(0, gs.Stats.Money-RelapseCost)),
		})
		return
	}
	gs.log().Info("Successfully resisted temptation")
	gs.UpdateStats(StatsPatch{Dopamine: Float(addDopamine(gs.Stats.Dopamine, ResistReward))})
}
