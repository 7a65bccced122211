package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/persistence"
	"github.com/talgya/civgrid/internal/world"
)

// scriptedRNG plays back queued draws so stochastic branches can be
// steered exactly. Exhausted queues fall back to neutral values: 0.5 for
// floats (jitter factor 1.0) and 0 for ints.
type scriptedRNG struct {
	floats []float64
	ints   []int
}

func (r *scriptedRNG) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.5
	}
	v := r.floats[0]
	r.floats = r.floats[1:]
	return v
}

func (r *scriptedRNG) Intn(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	if v >= n {
		v = n - 1
	}
	return v
}

// recordingObserver captures every notification for assertions.
type recordingObserver struct {
	ticks       []TickPayload
	years       []YearUpdatePayload
	tech        []TechAdvancementPayload
	migrations  []MigrationPayload
	conflicts   []ConflictPayload
	events      []NewEventPayload
	experiments []ExperimentResolvedPayload
}

func (o *recordingObserver) OnTick(p TickPayload)             { o.ticks = append(o.ticks, p) }
func (o *recordingObserver) OnYearUpdate(p YearUpdatePayload) { o.years = append(o.years, p) }
func (o *recordingObserver) OnTechAdvancement(p TechAdvancementPayload) {
	o.tech = append(o.tech, p)
}
func (o *recordingObserver) OnMigration(p MigrationPayload) { o.migrations = append(o.migrations, p) }
func (o *recordingObserver) OnConflict(p ConflictPayload)   { o.conflicts = append(o.conflicts, p) }
func (o *recordingObserver) OnNewEvent(p NewEventPayload)   { o.events = append(o.events, p) }
func (o *recordingObserver) OnExperimentResolved(p ExperimentResolvedPayload) {
	o.experiments = append(o.experiments, p)
}

// simFixture is a small seeded world backed by the memory store.
type simFixture struct {
	store *persistence.Memory
	sim   *Simulation
	world *civ.World
	obs   *recordingObserver
	rng   *scriptedRNG
}

// newSimFixture builds a simulation over an empty world with the given
// cells already inserted.
func newSimFixture(t *testing.T, cells []*world.Cell) *simFixture {
	t.Helper()
	ctx := context.Background()

	store := persistence.NewMemory()
	w := &civ.World{ID: "w1", Name: "testworld", Status: civ.WorldStatusRunning}
	require.NoError(t, store.InsertWorld(ctx, w))
	for _, c := range cells {
		c.WorldID = w.ID
	}
	require.NoError(t, store.InsertCells(ctx, cells))

	rng := &scriptedRNG{}
	obs := &recordingObserver{}
	return &simFixture{
		store: store,
		sim:   NewSimulation(store, w, rng, obs, DefaultTicksPerYear),
		world: w,
		obs:   obs,
		rng:   rng,
	}
}

// state loads a tickState the way a year-end tick would.
func (f *simFixture) state(t *testing.T, tick int64) *tickState {
	t.Helper()
	st, err := f.sim.loadState(context.Background(), tick, tick/DefaultTicksPerYear, true)
	require.NoError(t, err)
	return st
}

func grassCell(id string, x, y int, food float64) *world.Cell {
	return &world.Cell{
		ID:           id,
		X:            x,
		Y:            y,
		Biome:        world.BiomeGrassland,
		FoodCapacity: food,
		Temperature:  20,
		Moisture:     0.5,
	}
}

func oceanCell(id string, x, y int) *world.Cell {
	c := grassCell(id, x, y, 0)
	c.Biome = world.BiomeOcean
	return c
}

func testPop(id, cellID, civID string, cell *world.Cell, size int64) *civ.Population {
	return &civ.Population{
		ID:             id,
		WorldID:        "w1",
		CellID:         cellID,
		CivilizationID: civID,
		CellX:          cell.X,
		CellY:          cell.Y,
		Size:           size,
		Stability:      50,
		Prosperity:     50,
		BirthRate:      0.02,
		DeathRate:      0.015,
		Ideology: civ.Ideology{
			Collectivism:     50,
			Tradition:        50,
			Authoritarianism: 50,
			Xenophobia:       50,
		},
		WarTendency:         50,
		ResourceEfficiency:  50,
		EnvironmentalImpact: 50,
	}
}

func (f *simFixture) insertCiv(t *testing.T, id, capital string) {
	t.Helper()
	require.NoError(t, f.store.InsertCivilization(context.Background(), &civ.Civilization{
		ID:            id,
		WorldID:       f.world.ID,
		Name:          id,
		Color:         "#808080",
		CapitalCellID: capital,
	}))
}

func (f *simFixture) insertPop(t *testing.T, p *civ.Population) {
	t.Helper()
	require.NoError(t, f.store.InsertPopulation(context.Background(), p))
}

func (f *simFixture) popByID(t *testing.T, id string) *civ.Population {
	t.Helper()
	pops, err := f.store.ListPopulations(context.Background(), f.world.ID)
	require.NoError(t, err)
	for _, p := range pops {
		if p.ID == id {
			return p
		}
	}
	t.Fatalf("population %s not found", id)
	return nil
}
