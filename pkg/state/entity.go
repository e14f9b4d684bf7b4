package state

import "math"

// NPCKind separates people still using from people in recovery.
type NPCKind string

const (
	NPCAddict NPCKind = "addict"
	NPCClean  NPCKind = "clean"
)

// NPC is a fixed character in the world. Only clean NPCs carry a message.
type NPC struct {
	ID      string  `json:"id"`
	Kind    NPCKind `json:"type"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Message string  `json:"message,omitempty"`
}

// Position returns the NPC's location.
func (n NPC) Position() Position {
	return Position{X: n.X, Y: n.Y}
}

// BuildingKind is the purpose of a building.
type BuildingKind string

const (
	BuildingLibrary BuildingKind = "library"
	BuildingGym     BuildingKind = "gym"
	BuildingHome    BuildingKind = "home"
)

// Building is a fixed structure with a rectangular footprint centred on X,Y.
type Building struct {
	ID     string       `json:"id"`
	Kind   BuildingKind `json:"type"`
	X      float64      `json:"x"`
	Y      float64      `json:"y"`
	Width  float64      `json:"width"`
	Height float64      `json:"height"`
}

// Position returns the building's centre.
func (b Building) Position() Position {
	return Position{X: b.X, Y: b.Y}
}

// Distance is the Euclidean distance between two points.
func Distance(a, b Position) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}
