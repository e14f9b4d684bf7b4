package state

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Phase is the top-level game phase.
type Phase string

const (
	PhaseIntro   Phase = "intro"
	PhasePlaying Phase = "playing"
	PhasePaused  Phase = "paused"
)

// WorldBound is the half-width of the square the player is allowed to walk in.
const WorldBound = 50.0

// Position is a point on the ground plane.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clamp returns p limited to the world bounds.
func (p Position) Clamp() Position {
	return Position{
		X: clamp(p.X, -WorldBound, WorldBound),
		Y: clamp(p.Y, -WorldBound, WorldBound),
	}
}

// GameState is the single mutable snapshot of a recovery run.
// All mutation goes through its methods; presentation code should read
// from Snapshot() instead of holding on to the live value.
type GameState struct {
	ID        uuid.UUID   `json:"id"`
	Phase     Phase       `json:"phase"`
	Stats     PlayerStats `json:"stats"`
	Position  Position    `json:"position"`
	NPCs      []NPC       `json:"npcs"`
	Buildings []Building  `json:"buildings"`

	Interaction Interaction `json:"interaction"`

	BooksRead         []string `json:"books_read"`
	ConversationCount int      `json:"conversation_count"`

	// Seconds of accumulated movement, and the value it had when the
	// last walking reward was granted.
	WalkingTime          float64 `json:"walking_time"`
	LastDopamineIncrease float64 `json:"last_dopamine_increase"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	logger *slog.Logger
}

// NewGameState returns a fresh run in the intro phase with the starting stats.
func NewGameState() *GameState {
	now := time.Now()
	return &GameState{
		ID:          uuid.New(),
		Phase:       PhaseIntro,
		Stats:       StartingStats(),
		NPCs:        make([]NPC, 0),
		Buildings:   make([]Building, 0),
		Interaction: Interaction{Kind: InteractionNone},
		BooksRead:   make([]string, 0),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// SetLogger sets the logger used for soft-fail diagnostics.
func (gs *GameState) SetLogger(logger *slog.Logger) {
	gs.logger = logger
}

func (gs *GameState) log() *slog.Logger {
	if gs.logger == nil {
		return slog.Default()
	}
	return gs.logger
}

// InitializeWorld sets the entity lists. It only takes effect once: if
// either list is already populated the call is ignored and false is returned.
func (gs *GameState) InitializeWorld(npcs []NPC, buildings []Building) bool {
	if len(gs.NPCs) > 0 || len(gs.Buildings) > 0 {
		gs.log().Debug("World already initialized, ignoring",
			"npcs", len(gs.NPCs),
			"buildings", len(gs.Buildings))
		return false
	}
	gs.NPCs = append(make([]NPC, 0, len(npcs)), npcs...)
	gs.Buildings = append(make([]Building, 0, len(buildings)), buildings...)
	gs.log().Info("World initialized", "npcs", len(npcs), "buildings", len(buildings))
	return true
}

// StartGame moves the game out of the intro into play.
func (gs *GameState) StartGame() {
	if gs.Phase == PhasePlaying {
		return
	}
	gs.Phase = PhasePlaying
	gs.log().Info("Game started", "chapter", "Build Yourself")
}

// PauseGame pauses a running game. It has no effect in other phases.
func (gs *GameState) PauseGame() {
	if gs.Phase != PhasePlaying {
		return
	}
	gs.Phase = PhasePaused
}

// ResumeGame resumes a paused game. It has no effect in other phases.
func (gs *GameState) ResumeGame() {
	if gs.Phase != PhasePaused {
		return
	}
	gs.Phase = PhasePlaying
}

// UpdatePosition overwrites the player position. Callers clamp first;
// non-finite coordinates are dropped.
func (gs *GameState) UpdatePosition(x, y float64) {
	if !finite(x) || !finite(y) {
		gs.log().Warn("Ignoring non-finite position", "x", x, "y", y)
		return
	}
	gs.Position = Position{X: x, Y: y}
}

// HasReadBook reports whether bookID has already been rewarded.
func (gs *GameState) HasReadBook(bookID string) bool {
	for _, id := range gs.BooksRead {
		if id == bookID {
			return true
		}
	}
	return false
}

// Snapshot returns a deep copy safe to hand to presentation code.
func (gs *GameState) Snapshot() GameState {
	cp := *gs
	cp.NPCs = append([]NPC(nil), gs.NPCs...)
	cp.Buildings = append([]Building(nil), gs.Buildings...)
	cp.BooksRead = append([]string(nil), gs.BooksRead...)
	cp.Interaction = gs.Interaction.clone()
	cp.logger = nil
	return cp
}
