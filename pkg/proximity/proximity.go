// Package proximity decides, once per frame, which nearby entity the player
// can interact with and whether an addict close by forces a temptation.
package proximity

import "github.com/jwebster45206/soma-recovery/pkg/state"

// Radii are exclusive: an entity exactly on the radius is out of range.
const (
	NPCRadius        = 2.5
	BuildingRadius   = 5.0
	TemptationRadius = 1.5
)

// Candidate is an entity the player could interact with on key press.
type Candidate struct {
	Kind     state.InteractionKind `json:"type"`
	Target   *state.Target         `json:"target"`
	Distance float64               `json:"distance"`
}

// Trigger describes what an evaluation did to the game state.
type Trigger string

const (
	TriggerNone       Trigger = "none"
	TriggerTemptation Trigger = "temptation"
	TriggerInteract   Trigger = "interact"
)

// Result is the outcome of one frame's evaluation.
type Result struct {
	Trigger   Trigger
	Candidate *Candidate // nearest candidate, if any
}

// Nearest returns the closest interaction candidate in range. Clean NPCs,
// libraries and gyms are eligible; addicts and homes never are. Ties go to
// the entity seen first, NPCs before buildings.
func Nearest(pos state.Position, npcs []state.NPC, buildings []state.Building, active bool) (Candidate, bool) {
	if active {
		return Candidate{}, false
	}

	var best Candidate
	found := false
	consider := func(kind state.InteractionKind, target *state.Target, d float64) {
		if !found || d < best.Distance {
			best = Candidate{Kind: kind, Target: target, Distance: d}
			found = true
		}
	}

	for _, npc := range npcs {
		if npc.Kind != state.NPCClean {
			continue
		}
		if d := state.Distance(pos, npc.Position()); d < NPCRadius {
			consider(state.InteractionConversation, state.NPCTarget(npc), d)
		}
	}

	for _, b := range buildings {
		kind, ok := buildingInteraction(b.Kind)
		if !ok {
			continue
		}
		if d := state.Distance(pos, b.Position()); d < BuildingRadius {
			consider(kind, state.BuildingTarget(b), d)
		}
	}

	return best, found
}

// Temptation returns the closest addict within TemptationRadius when the
// player's dopamine is too low to resist.
func Temptation(pos state.Position, npcs []state.NPC, dopamine float64, active bool) (state.NPC, bool) {
	if active || dopamine >= state.ResistThreshold {
		return state.NPC{}, false
	}

	var (
		best  state.NPC
		bestD float64
		found bool
	)
	for _, npc := range npcs {
		if npc.Kind != state.NPCAddict {
			continue
		}
		d := state.Distance(pos, npc.Position())
		if d >= TemptationRadius {
			continue
		}
		if !found || d < bestD {
			best, bestD, found = npc, d, true
		}
	}
	return best, found
}

// Evaluate runs the per-frame proximity rules against gs. Nothing happens
// while an interaction is active. Otherwise a nearby addict starts a
// temptation, and failing that an interact press starts the nearest
// candidate's interaction.
func Evaluate(gs *state.GameState, interact bool) Result {
	res := Result{Trigger: TriggerNone}
	if gs.Interaction.Active {
		return res
	}

	if npc, ok := Temptation(gs.Position, gs.NPCs, gs.Stats.Dopamine, false); ok {
		if gs.StartInteraction(state.InteractionTemptation, state.NPCTarget(npc)) {
			res.Trigger = TriggerTemptation
		}
		return res
	}

	c, ok := Nearest(gs.Position, gs.NPCs, gs.Buildings, false)
	if !ok {
		return res
	}
	res.Candidate = &c

	if interact && gs.StartInteraction(c.Kind, c.Target) {
		res.Trigger = TriggerInteract
	}
	return res
}

func buildingInteraction(kind state.BuildingKind) (state.InteractionKind, bool) {
	switch kind {
	case state.BuildingLibrary:
		return state.InteractionLibrary, true
	case state.BuildingGym:
		return state.InteractionExercise, true
	}
	return state.InteractionNone, false
}
