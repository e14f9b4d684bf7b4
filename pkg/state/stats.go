package state

import "math"

const (
	StatMax = 100.0

	// Derived-stat smoothing weights. Health and confidence lag dopamine.
	healthCarry      = 0.6
	healthFromDopa   = 0.8
	confidenceCarry  = 0.7
	confidenceFromHP = 0.9
)

// PlayerStats holds the player's numeric state. Health and Confidence are
// derived from Dopamine and are only ever written by the derivation step.
type PlayerStats struct {
	Dopamine   float64 `json:"dopamine"`   // 0-100, willpower
	Health     float64 `json:"health"`     // 0-100, follows dopamine
	Confidence float64 `json:"confidence"` // 0-100, follows health
	Money      float64 `json:"money"`
	Debt       float64 `json:"debt"`
}

// StartingStats is the struggling state every run begins in.
func StartingStats() PlayerStats {
	return PlayerStats{
		Dopamine:   15,
		Health:     30,
		Confidence: 20,
		Money:      0,
		Debt:       1000,
	}
}

// StatsPatch is a partial stats update. Nil fields are left untouched.
type StatsPatch struct {
	Dopamine *float64 `json:"dopamine,omitempty"`
	Money    *float64 `json:"money,omitempty"`
	Debt     *float64 `json:"debt,omitempty"`
}

// Float returns a pointer to v, for building patches.
func Float(v float64) *float64 {
	return &v
}

// UpdateStats merges patch into the stats and re-runs the derivation.
// Out-of-range values are clamped and non-finite values are ignored.
func (gs *GameState) UpdateStats(patch StatsPatch) {
	if patch.Dopamine != nil && finite(*patch.Dopamine) {
		gs.Stats.Dopamine = clamp(*patch.Dopamine, 0, StatMax)
	}
	if patch.Money != nil && finite(*patch.Money) {
		gs.Stats.Money = math.Max(0, *patch.Money)
	}
	if patch.Debt != nil && finite(*patch.Debt) {
		gs.Stats.Debt = math.Max(0, *patch.Debt)
	}
	gs.calculateDerivedStats()
}

// calculateDerivedStats applies one step of the smoothing filter:
//
//	health'     = 0.6*health     + 0.4*(0.8*dopamine)
//	confidence' = 0.7*confidence + 0.3*(0.9*health')
func (gs *GameState) calculateDerivedStats() {
	s := &gs.Stats
	health := s.Health*healthCarry + s.Dopamine*healthFromDopa*(1-healthCarry)
	confidence := s.Confidence*confidenceCarry + health*confidenceFromHP*(1-confidenceCarry)
	s.Health = clamp(health, 0, StatMax)
	s.Confidence = clamp(confidence, 0, StatMax)
}

func addDopamine(current, delta float64) float64 {
	return clamp(current+delta, 0, StatMax)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
