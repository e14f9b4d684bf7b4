package world

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jwebster45206/soma-recovery/pkg/state"
)

// Layout is the fixed set of NPCs and buildings a run is played in.
type Layout struct {
	Name      string           `json:"name"`
	FileName  string           `json:"file_name,omitempty"`
	Story     string           `json:"story,omitempty"`
	NPCs      []state.NPC      `json:"npcs"`
	Buildings []state.Building `json:"buildings"`
}

// Default is the city the game ships with: addicts in the streets to the
// south-west, clean people gathered around the library and gym.
func Default() *Layout {
	return &Layout{
		Name:     "Soma City",
		FileName: "soma_city.json",
		Story:    "Year 2075. You lost everything to soma. Chapter 1: Build Yourself.",
		NPCs: []state.NPC{
			{ID: "addict-1", Kind: state.NPCAddict, X: -15, Y: -10},
			{ID: "addict-2", Kind: state.NPCAddict, X: -20, Y: 5},
			{ID: "addict-3", Kind: state.NPCAddict, X: -8, Y: -15},
			{ID: "addict-4", Kind: state.NPCAddict, X: 10, Y: -18},
			{ID: "addict-5", Kind: state.NPCAddict, X: 5, Y: -5},
			{ID: "addict-6", Kind: state.NPCAddict, X: -25, Y: -20},

			{ID: "clean-1", Kind: state.NPCClean, X: 18, Y: 15, Message: "Stay strong, you can do this!"},
			{ID: "clean-2", Kind: state.NPCClean, X: 25, Y: 20, Message: "I used to struggle too. Exercise helped me."},
			{ID: "clean-3", Kind: state.NPCClean, X: 22, Y: 8, Message: "Reading changed my life."},
			{ID: "clean-4", Kind: state.NPCClean, X: 15, Y: 25, Message: "One day at a time, friend."},
		},
		Buildings: []state.Building{
			{ID: "library-1", Kind: state.BuildingLibrary, X: 20, Y: 15, Width: 6, Height: 5},
			{ID: "gym-1", Kind: state.BuildingGym, X: 20, Y: -10, Width: 5, Height: 4},
			{ID: "home-1", Kind: state.BuildingHome, X: -30, Y: 25, Width: 4, Height: 4},
		},
	}
}

// Parse decodes and validates a layout.
func Parse(data []byte) (*Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("failed to unmarshal world layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return &l, nil
}

// Load reads a layout from a JSON file.
func Load(path string) (*Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read world file: %w", err)
	}
	return Parse(data)
}

// Apply populates gs with the layout. It is a no-op on an already
// initialized state.
func (l *Layout) Apply(gs *state.GameState) bool {
	return gs.InitializeWorld(l.NPCs, l.Buildings)
}

// Validate checks the layout for problems that would make it unplayable.
// All problems are reported together.
func (l *Layout) Validate() error {
	var errs []error
	if l.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}

	seen := make(map[string]bool)
	checkID := func(id string) {
		if id == "" {
			errs = append(errs, errors.New("entity id is required"))
			return
		}
		if seen[id] {
			errs = append(errs, fmt.Errorf("duplicate id %q", id))
		}
		seen[id] = true
	}
	checkBounds := func(id string, x, y float64) {
		if x < -state.WorldBound || x > state.WorldBound || y < -state.WorldBound || y > state.WorldBound {
			errs = append(errs, fmt.Errorf("%s: position (%g, %g) is outside the world", id, x, y))
		}
	}

	for _, npc := range l.NPCs {
		checkID(npc.ID)
		checkBounds(npc.ID, npc.X, npc.Y)
		switch npc.Kind {
		case state.NPCClean:
		case state.NPCAddict:
			if npc.Message != "" {
				errs = append(errs, fmt.Errorf("%s: only clean npcs carry a message", npc.ID))
			}
		default:
			errs = append(errs, fmt.Errorf("%s: unknown npc type %q", npc.ID, npc.Kind))
		}
	}

	for _, b := range l.Buildings {
		checkID(b.ID)
		checkBounds(b.ID, b.X, b.Y)
		switch b.Kind {
		case state.BuildingLibrary, state.BuildingGym, state.BuildingHome:
		default:
			errs = append(errs, fmt.Errorf("%s: unknown building type %q", b.ID, b.Kind))
		}
		if b.Width <= 0 || b.Height <= 0 {
			errs = append(errs, fmt.Errorf("%s: footprint must be positive", b.ID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid world layout: %w", errors.Join(errs...))
	}
	return nil
}
