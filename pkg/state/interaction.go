package state

// InteractionKind is the modal activity the player is engaged in.
type InteractionKind string

const (
	InteractionNone         InteractionKind = "none"
	InteractionLibrary      InteractionKind = "library"
	InteractionExercise     InteractionKind = "exercise"
	InteractionConversation InteractionKind = "conversation"
	InteractionTemptation   InteractionKind = "temptation"
)

// Target points at the NPC or building an interaction is about.
// Exactly one of NPC and Building is set.
type Target struct {
	NPC      *NPC      `json:"npc,omitempty"`
	Building *Building `json:"building,omitempty"`
}

// NPCTarget wraps an NPC as an interaction target.
func NPCTarget(n NPC) *Target {
	return &Target{NPC: &n}
}

// BuildingTarget wraps a building as an interaction target.
func BuildingTarget(b Building) *Target {
	return &Target{Building: &b}
}

// ID returns the id of whichever entity the target refers to.
func (t *Target) ID() string {
	switch {
	case t == nil:
		return ""
	case t.NPC != nil:
		return t.NPC.ID
	case t.Building != nil:
		return t.Building.ID
	}
	return ""
}

// Interaction is the current modal activity. At most one is active.
type Interaction struct {
	Kind   InteractionKind `json:"type"`
	Target *Target         `json:"target,omitempty"`
	Active bool            `json:"is_active"`
}

func (i Interaction) clone() Interaction {
	if i.Target == nil {
		return i
	}
	t := Target{}
	if i.Target.NPC != nil {
		n := *i.Target.NPC
		t.NPC = &n
	}
	if i.Target.Building != nil {
		b := *i.Target.Building
		t.Building = &b
	}
	i.Target = &t
	return i
}

// StartInteraction makes kind the active interaction. If one is already
// active the call is refused and false is returned.
func (gs *GameState) StartInteraction(kind InteractionKind, target *Target) bool {
	if gs.Interaction.Active {
		gs.log().Debug("Interaction already active, ignoring start",
			"active", gs.Interaction.Kind,
			"requested", kind)
		return false
	}
	if kind == InteractionNone {
		return false
	}
	gs.Interaction = Interaction{
		Kind:   kind,
		Target: target,
		Active: true,
	}
	gs.log().Info("Started interaction", "type", kind, "target", target.ID())
	return true
}

// EndInteraction clears the current interaction.
func (gs *GameState) EndInteraction() {
	gs.Interaction = Interaction{Kind: InteractionNone}
}
