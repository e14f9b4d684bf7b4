package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/soma-recovery/pkg/state"
)

func TestProject(t *testing.T) {
	tests := []struct {
		name     string
		pos      state.Position
		col, row int
	}{
		{"top left", state.Position{X: -50, Y: 50}, 0, 0},
		{"bottom right", state.Position{X: 50, Y: -50}, 100, 20},
		{"centre", state.Position{X: 0, Y: 0}, 50, 10},
		{"outside is clamped", state.Position{X: 80, Y: 90}, 100, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			col, row := project(tt.pos, 101, 21)
			assert.Equal(t, tt.col, col)
			assert.Equal(t, tt.row, row)
		})
	}
}

func TestMapGrid(t *testing.T) {
	gs := state.NewGameState()
	gs.InitializeWorld(
		[]state.NPC{
			{ID: "addict-1", Kind: state.NPCAddict, X: -50, Y: 50},
			{ID: "clean-1", Kind: state.NPCClean, X: 50, Y: -50},
		},
		[]state.Building{
			{ID: "gym-1", Kind: state.BuildingGym, X: 20, Y: 0, Width: 10, Height: 10},
		},
	)
	grid := mapGrid(gs.Snapshot(), 101, 21)

	require.Len(t, grid, 21)
	require.Len(t, grid[0], 101)
	assert.Equal(t, glyphPlayer, grid[10][50])
	assert.Equal(t, glyphAddict, grid[0][0])
	assert.Equal(t, glyphClean, grid[20][100])
	assert.Equal(t, glyphGym, grid[10][70])
	assert.Equal(t, glyphGround, grid[10][60])
}

func TestMapGrid_PlayerDrawnOverNPC(t *testing.T) {
	gs := state.NewGameState()
	gs.InitializeWorld([]state.NPC{{ID: "addict-1", Kind: state.NPCAddict}}, nil)

	grid := mapGrid(gs.Snapshot(), 11, 11)
	assert.Equal(t, glyphPlayer, grid[5][5])
}
