package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/civgrid/internal/entropy"
	"github.com/talgya/civgrid/internal/persistence"
	"github.com/talgya/civgrid/internal/world"
)

func TestGenesis_SeedsAFullWorld(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemory()

	w, err := Genesis(ctx, store, GenesisConfig{
		Name:          "testworld",
		Civilizations: 3,
		Generation:    world.SmallTestConfig(),
	}, entropy.NewSeeded(42))
	require.NoError(t, err)
	require.NotNil(t, w)

	active, err := store.ActiveWorld(ctx)
	require.NoError(t, err)
	assert.Equal(t, w.ID, active.ID)
	assert.Equal(t, "testworld", active.Name)
	assert.Equal(t, int64(0), active.CurrentTick)

	cells, err := store.ListCells(ctx, w.ID)
	require.NoError(t, err)
	cfg := world.SmallTestConfig()
	assert.Len(t, cells, cfg.Width*cfg.Height)

	civs, err := store.ListCivilizations(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, civs, 3)

	pops, err := store.ListPopulations(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, pops, 3)

	cellByID := make(map[string]*world.Cell, len(cells))
	for _, c := range cells {
		cellByID[c.ID] = c
	}
	seenCells := make(map[string]bool)
	for _, p := range pops {
		assert.Equal(t, int64(5000), p.Size)
		assert.Equal(t, 0, p.TechLevel)
		assert.False(t, seenCells[p.CellID], "capitals must not share a cell")
		seenCells[p.CellID] = true

		capital := cellByID[p.CellID]
		require.NotNil(t, capital)
		assert.True(t, capital.Habitable())
	}

	// Capitals line up with civilization records.
	popCells := make(map[string]bool)
	for _, p := range pops {
		popCells[p.CellID] = true
	}
	for _, c := range civs {
		assert.True(t, popCells[c.CapitalCellID])
		assert.NotEmpty(t, c.Name)
		assert.NotEmpty(t, c.Color)
	}
}

func TestGenesis_ClampsCivilizationCount(t *testing.T) {
	ctx := context.Background()
	store := persistence.NewMemory()

	w, err := Genesis(ctx, store, GenesisConfig{
		Name:          "testworld",
		Civilizations: 0,
		Generation:    world.SmallTestConfig(),
	}, entropy.NewSeeded(1))
	require.NoError(t, err)

	civs, err := store.ListCivilizations(ctx, w.ID)
	require.NoError(t, err)
	assert.Len(t, civs, 1)
}
