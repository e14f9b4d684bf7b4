package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jwebster45206/soma-recovery/pkg/proximity"
	"github.com/jwebster45206/soma-recovery/pkg/state"
)

// Map glyphs.
const (
	glyphGround  = '·'
	glyphPlayer  = '@'
	glyphAddict  = 'a'
	glyphClean   = 'c'
	glyphLibrary = 'L'
	glyphGym     = 'G'
	glyphHome    = 'H'
)

var (
	groundStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	playerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	addictStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	cleanStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	libraryStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	gymStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	homeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	mapFrameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))
)

var glyphStyles = map[rune]lipgloss.Style{
	glyphGround:  groundStyle,
	glyphPlayer:  playerStyle,
	glyphAddict:  addictStyle,
	glyphClean:   cleanStyle,
	glyphLibrary: libraryStyle,
	glyphGym:     gymStyle,
	glyphHome:    homeStyle,
}

// project maps a world coordinate onto a cols x rows grid. Forward (+Y)
// is up the screen.
func project(p state.Position, cols, rows int) (col, row int) {
	span := 2 * state.WorldBound
	col = int(math.Round((p.X + state.WorldBound) / span * float64(cols-1)))
	row = int(math.Round((state.WorldBound - p.Y) / span * float64(rows-1)))
	return min(max(col, 0), cols-1), min(max(row, 0), rows-1)
}

// mapGrid lays the world out as glyphs. Later layers overwrite earlier ones:
// buildings, then NPCs, then the player.
func mapGrid(gs state.GameState, cols, rows int) [][]rune {
	grid := make([][]rune, rows)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(string(glyphGround), cols))
	}
	if cols < 2 || rows < 2 {
		return grid
	}

	for _, b := range gs.Buildings {
		glyph := glyphHome
		switch b.Kind {
		case state.BuildingLibrary:
			glyph = glyphLibrary
		case state.BuildingGym:
			glyph = glyphGym
		}
		c0, r0 := project(state.Position{X: b.X - b.Width/2, Y: b.Y + b.Height/2}, cols, rows)
		c1, r1 := project(state.Position{X: b.X + b.Width/2, Y: b.Y - b.Height/2}, cols, rows)
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				grid[r][c] = glyph
			}
		}
	}

	for _, n := range gs.NPCs {
		c, r := project(n.Position(), cols, rows)
		if n.Kind == state.NPCAddict {
			grid[r][c] = glyphAddict
		} else {
			grid[r][c] = glyphClean
		}
	}

	c, r := project(gs.Position, cols, rows)
	grid[r][c] = glyphPlayer
	return grid
}

func renderMap(gs state.GameState, cols, rows int) string {
	grid := mapGrid(gs, cols, rows)
	var b strings.Builder
	for r, line := range grid {
		if r > 0 {
			b.WriteByte('\n')
		}
		// Style runs of the same glyph together.
		for i := 0; i < len(line); {
			j := i
			for j < len(line) && line[j] == line[i] {
				j++
			}
			b.WriteString(glyphStyles[line[i]].Render(string(line[i:j])))
			i = j
		}
	}
	return mapFrameStyle.Render(b.String())
}

func renderHint(h *proximity.Hint) string {
	if h == nil {
		return ""
	}
	if h.Danger {
		return errorStyle.Render(h.Text)
	}
	return hintStyle.Render(h.Text)
}

func formatMoney(v float64) string {
	return fmt.Sprintf("$%.0f", v)
}
