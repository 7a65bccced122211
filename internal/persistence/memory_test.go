package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/world"
)

func TestMemory_PopulationUniquePerCellAndCivilization(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	a := &civ.Population{ID: "p1", WorldID: "w1", CellID: "c1", CivilizationID: "civ1", Size: 100}
	b := &civ.Population{ID: "p2", WorldID: "w1", CellID: "c1", CivilizationID: "civ1", Size: 200}
	require.NoError(t, m.InsertPopulation(ctx, a))
	assert.Error(t, m.InsertPopulation(ctx, b))

	// Same civilization on a different cell is fine.
	c := &civ.Population{ID: "p3", WorldID: "w1", CellID: "c2", CivilizationID: "civ1", Size: 300}
	assert.NoError(t, m.InsertPopulation(ctx, c))
}

func TestMemory_EntitiesAreCopiedInAndOut(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	p := &civ.Population{ID: "p1", WorldID: "w1", CellID: "c1", CivilizationID: "civ1", Size: 100}
	require.NoError(t, m.InsertPopulation(ctx, p))

	// Mutating the caller's struct must not leak into the store.
	p.Size = 999

	got, err := m.ListPopulations(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(100), got[0].Size)

	// Nor must mutating a listed struct.
	got[0].Size = 777
	again, err := m.ListPopulations(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), again[0].Size)
}

func TestMemory_UpdateMissingPopulationFails(t *testing.T) {
	m := NewMemory()
	err := m.UpdatePopulation(context.Background(), &civ.Population{ID: "ghost"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemory_ListPopulationsJoinsCellCoordinates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.InsertCells(ctx, []*world.Cell{
		{ID: "c1", WorldID: "w1", X: 4, Y: 9, Biome: world.BiomeGrassland},
	}))
	require.NoError(t, m.InsertPopulation(ctx, &civ.Population{
		ID: "p1", WorldID: "w1", CellID: "c1", CivilizationID: "civ1", Size: 100,
	}))

	got, err := m.ListPopulations(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].CellX)
	assert.Equal(t, 9, got[0].CellY)
}

func TestMemory_ActiveWorld(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.ActiveWorld(ctx)
	assert.ErrorIs(t, err, ErrNoActiveWorld)

	require.NoError(t, m.InsertWorld(ctx, &civ.World{ID: "w1", Status: civ.WorldStatusArchived}))
	_, err = m.ActiveWorld(ctx)
	assert.ErrorIs(t, err, ErrNoActiveWorld)

	require.NoError(t, m.InsertWorld(ctx, &civ.World{ID: "w2", Status: civ.WorldStatusRunning}))
	w, err := m.ActiveWorld(ctx)
	require.NoError(t, err)
	assert.Equal(t, "w2", w.ID)
}

func TestMemory_ReputationAccumulates(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.UpdatePlayerReputation(ctx, "player1", civ.ReputationDelta{Benevolence: 1}))
	require.NoError(t, m.UpdatePlayerReputation(ctx, "player1", civ.ReputationDelta{Benevolence: 2, Mischief: 3}))

	assert.Equal(t, civ.ReputationDelta{Benevolence: 3, Mischief: 3}, m.PlayerReputation("player1"))
}
