package proximity

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jwebster45206/soma-recovery/pkg/state"
)

const (
	TalkHint     = "Press E to talk"
	ExerciseHint = "Press E to exercise"
	DangerHint   = "DANGER - Stay away!"
)

// Hint is the prompt shown for the entity closest to the player.
type Hint struct {
	Text     string  `json:"text"`
	Danger   bool    `json:"danger,omitempty"`
	TargetID string  `json:"target_id"`
	Distance float64 `json:"distance"`
}

// NearestHint picks the closest hint-worthy entity: clean and addict NPCs
// within NPCRadius, libraries and gyms within BuildingRadius. Addicts yield
// a danger warning rather than an action prompt. There is no hint outside
// play or while an interaction is active.
func NearestHint(pos state.Position, npcs []state.NPC, buildings []state.Building, active bool, phase state.Phase) (Hint, bool) {
	if active || phase != state.PhasePlaying {
		return Hint{}, false
	}

	var best Hint
	found := false
	consider := func(h Hint) {
		if !found || h.Distance < best.Distance {
			best = h
			found = true
		}
	}

	for _, npc := range npcs {
		d := state.Distance(pos, npc.Position())
		if d >= NPCRadius {
			continue
		}
		switch npc.Kind {
		case state.NPCClean:
			consider(Hint{Text: TalkHint, TargetID: npc.ID, Distance: d})
		case state.NPCAddict:
			consider(Hint{Text: DangerHint, Danger: true, TargetID: npc.ID, Distance: d})
		}
	}

	for _, b := range buildings {
		if _, ok := buildingInteraction(b.Kind); !ok {
			continue
		}
		d := state.Distance(pos, b.Position())
		if d >= BuildingRadius {
			continue
		}
		consider(Hint{Text: buildingHint(b.Kind), TargetID: b.ID, Distance: d})
	}

	return best, found
}

func buildingHint(kind state.BuildingKind) string {
	if kind == state.BuildingGym {
		return ExerciseHint
	}
	return "Press E to enter " + KindLabel(string(kind))
}

// KindLabel renders an entity kind for display, e.g. "library" -> "Library".
func KindLabel(kind string) string {
	return cases.Title(language.English).String(kind)
}
