package persistence

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/world"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedWorld(t *testing.T, db Store) *civ.World {
	t.Helper()
	w := &civ.World{ID: "w1", Name: "testworld", Status: civ.WorldStatusRunning}
	require.NoError(t, db.InsertWorld(context.Background(), w))
	return w
}

func TestSQLite_ActiveWorldRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.ActiveWorld(ctx)
	assert.ErrorIs(t, err, ErrNoActiveWorld)

	seedWorld(t, db)
	require.NoError(t, db.UpdateWorldCounters(ctx, "w1", 120, 2))

	got, err := db.ActiveWorld(ctx)
	require.NoError(t, err)
	assert.Equal(t, "w1", got.ID)
	assert.Equal(t, "testworld", got.Name)
	assert.Equal(t, int64(120), got.CurrentTick)
	assert.Equal(t, int64(2), got.CurrentYear)
	assert.Equal(t, civ.WorldStatusRunning, got.Status)
}

func TestSQLite_ArchivedWorldIsNotActive(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	w := &civ.World{ID: "w1", Name: "old", Status: civ.WorldStatusArchived}
	require.NoError(t, db.InsertWorld(ctx, w))

	_, err := db.ActiveWorld(ctx)
	assert.ErrorIs(t, err, ErrNoActiveWorld)
}

func TestSQLite_CellsRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	seedWorld(t, db)

	cells := []*world.Cell{
		{ID: "c1", WorldID: "w1", X: 0, Y: 0, Lat: 90, Lon: -180, Biome: world.BiomeGrassland, FoodCapacity: 100, Temperature: 20, Moisture: 0.5},
		{ID: "c2", WorldID: "w1", X: 1, Y: 0, Lat: 90, Lon: -120, Biome: world.BiomeOcean, FoodCapacity: 0, Temperature: 15, Moisture: 1},
	}
	require.NoError(t, db.InsertCells(ctx, cells))

	got, err := db.ListCells(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	byID := make(map[string]*world.Cell)
	for _, c := range got {
		byID[c.ID] = c
	}
	require.Contains(t, byID, "c1")
	assert.Equal(t, world.BiomeGrassland, byID["c1"].Biome)
	assert.Equal(t, 100.0, byID["c1"].FoodCapacity)
	assert.Equal(t, world.BiomeOcean, byID["c2"].Biome)
}

func TestSQLite_PopulationsJoinCellCoordinates(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	seedWorld(t, db)
	require.NoError(t, db.InsertCells(ctx, []*world.Cell{
		{ID: "c1", WorldID: "w1", X: 3, Y: 7, Biome: world.BiomeGrassland, FoodCapacity: 100, Temperature: 20, Moisture: 0.5},
	}))

	p := &civ.Population{
		ID:             "p1",
		WorldID:        "w1",
		CellID:         "c1",
		CivilizationID: "civ1",
		Size:           5000,
		TechLevel:      2,
		Stability:      50,
		Prosperity:     60,
		Education:      12.5,
		BirthRate:      0.02,
		DeathRate:      0.015,
		Ideology:       civ.Ideology{Collectivism: 10, Tradition: 20, Authoritarianism: 30, Xenophobia: 40},
		WarTendency:    55,

		ResourceEfficiency:  50,
		EnvironmentalImpact: 45,
	}
	require.NoError(t, db.InsertPopulation(ctx, p))

	got, err := db.ListPopulations(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].CellX)
	assert.Equal(t, 7, got[0].CellY)
	assert.Equal(t, int64(5000), got[0].Size)
	assert.Equal(t, civ.Ideology{Collectivism: 10, Tradition: 20, Authoritarianism: 30, Xenophobia: 40}, got[0].Ideology)

	got[0].Size = 4800
	got[0].Education = 13
	require.NoError(t, db.UpdatePopulation(ctx, got[0]))

	again, err := db.ListPopulations(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, int64(4800), again[0].Size)
	assert.Equal(t, 13.0, again[0].Education)
}

func TestSQLite_PopulationUniquePerCellAndCivilization(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	seedWorld(t, db)
	require.NoError(t, db.InsertCells(ctx, []*world.Cell{
		{ID: "c1", WorldID: "w1", Biome: world.BiomeGrassland, FoodCapacity: 100},
	}))

	a := &civ.Population{ID: "p1", WorldID: "w1", CellID: "c1", CivilizationID: "civ1", Size: 100}
	b := &civ.Population{ID: "p2", WorldID: "w1", CellID: "c1", CivilizationID: "civ1", Size: 200}
	require.NoError(t, db.InsertPopulation(ctx, a))
	assert.Error(t, db.InsertPopulation(ctx, b))
}

func TestSQLite_EventsActiveFilter(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	seedWorld(t, db)

	end := int64(600)
	ev := &civ.Event{
		ID:        "e1",
		WorldID:   "w1",
		Type:      civ.EventFamine,
		Scope:     civ.ScopeCell,
		TargetID:  "c1",
		StartTick: 60,
		EndTick:   &end,
		Active:    true,
	}
	require.NoError(t, db.UpsertEvent(ctx, ev))

	active, err := db.ListActiveEvents(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.NotNil(t, active[0].EndTick)
	assert.Equal(t, int64(600), *active[0].EndTick)

	ev.Active = false
	require.NoError(t, db.UpsertEvent(ctx, ev))

	active, err = db.ListActiveEvents(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestSQLite_ExperimentLifecycle(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	seedWorld(t, db)

	params, _ := json.Marshal(civ.IdeologyNudgeParams{Axis: "tradition", Amount: 5})
	ex := &civ.Experiment{
		ID:         "x1",
		WorldID:    "w1",
		PlayerID:   "player1",
		Category:   civ.CategorySociopolitical,
		Type:       civ.TypeIdeologyNudge,
		TargetType: civ.TargetCivilization,
		TargetID:   "civ1",
		Params:     params,
		Cost:       60,
		Status:     civ.StatusPending,
	}
	require.NoError(t, db.InsertExperiment(ctx, ex))

	pending, err := db.ListPendingExperiments(ctx, "w1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, civ.TypeIdeologyNudge, pending[0].Type)
	assert.JSONEq(t, string(params), string(pending[0].Params))

	result, _ := json.Marshal(civ.Result{Success: true, Message: "done"})
	require.NoError(t, db.UpdateExperiment(ctx, "x1", civ.StatusResolved, result))

	pending, err = db.ListPendingExperiments(ctx, "w1")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestSQLite_ReputationAccumulates(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	require.NoError(t, db.UpdatePlayerReputation(ctx, "player1", civ.ReputationDelta{Benevolence: 1, Curiosity: 2}))
	require.NoError(t, db.UpdatePlayerReputation(ctx, "player1", civ.ReputationDelta{Mischief: 3, Curiosity: 1}))

	var rep civ.ReputationDelta
	err := db.conn.QueryRowx(
		`SELECT benevolence, mischief, curiosity FROM players WHERE id = ?`, "player1",
	).Scan(&rep.Benevolence, &rep.Mischief, &rep.Curiosity)
	require.NoError(t, err)
	assert.Equal(t, civ.ReputationDelta{Benevolence: 1, Mischief: 3, Curiosity: 3}, rep)
}

func TestSQLite_RecentSnapshotsAreNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	seedWorld(t, db)

	for year := int64(1); year <= 5; year++ {
		require.NoError(t, db.AppendSnapshot(ctx, &civ.Snapshot{
			WorldID:          "w1",
			Tick:             year * 60,
			Year:             year,
			TotalPopulation:  year * 1000,
			NumCivilizations: 2,
			AvgTechLevel:     1.5,
		}))
	}

	snaps, err := db.RecentSnapshots(ctx, "w1", 3)
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, int64(5), snaps[0].Year)
	assert.Equal(t, int64(3), snaps[2].Year)
}
