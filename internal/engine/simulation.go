// Simulation ties the world's subsystems together and executes ticks.
package engine

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/entropy"
	"github.com/talgya/civgrid/internal/persistence"
	"github.com/talgya/civgrid/internal/world"
)

// DefaultTicksPerYear is the year boundary: every 60th tick runs the
// yearly subsystems.
const DefaultTicksPerYear = 60

// Simulation owns one world's state transitions. It is not safe for
// concurrent ticks; the scheduler serializes calls to Tick.
type Simulation struct {
	store        persistence.Store
	rng          entropy.Source
	obs          Observer
	world        *civ.World
	ticksPerYear int
}

// NewSimulation wires a simulation for the given world. A nil observer
// falls back to logging; ticksPerYear <= 0 falls back to the default.
func NewSimulation(store persistence.Store, w *civ.World, rng entropy.Source, obs Observer, ticksPerYear int) *Simulation {
	if obs == nil {
		obs = LogObserver{}
	}
	if ticksPerYear <= 0 {
		ticksPerYear = DefaultTicksPerYear
	}
	return &Simulation{
		store:        store,
		rng:          rng,
		obs:          obs,
		world:        w,
		ticksPerYear: ticksPerYear,
	}
}

// World returns the simulation's world with its in-memory counters.
func (s *Simulation) World() *civ.World {
	return s.world
}

// Tick advances the world by one tick: the per-population dynamics pass
// every tick, plus the five yearly phases in fixed order on year
// boundaries. The tick counter advances before the body runs, so a
// failed tick still moves simulated time; counters are only persisted
// after a successful body, so a restart resumes from the last good tick.
func (s *Simulation) Tick(ctx context.Context) error {
	s.world.CurrentTick++
	tick := s.world.CurrentTick
	yearEnd := tick%int64(s.ticksPerYear) == 0
	s.world.CurrentYear = tick / int64(s.ticksPerYear)
	year := s.world.CurrentYear

	st, err := s.loadState(ctx, tick, year, yearEnd)
	if err != nil {
		return err
	}

	if err := s.runDynamics(ctx, st); err != nil {
		return err
	}

	var stats YearStats
	if yearEnd {
		// Order is load-bearing: each phase reads its predecessor's writes.
		if err := s.resolveMigration(ctx, st); err != nil {
			return fmt.Errorf("migration: %w", err)
		}
		if err := s.resolveConflicts(ctx, st); err != nil {
			return fmt.Errorf("conflict: %w", err)
		}
		if err := s.diffuseTechnology(ctx, st); err != nil {
			return fmt.Errorf("tech diffusion: %w", err)
		}
		if err := s.processEvents(ctx, st); err != nil {
			return fmt.Errorf("events: %w", err)
		}
		if err := s.executeExperiments(ctx, st); err != nil {
			return fmt.Errorf("experiments: %w", err)
		}
		if stats, err = s.recordSnapshot(ctx, st); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
	}

	if err := s.store.UpdateWorldCounters(ctx, s.world.ID, tick, year); err != nil {
		return fmt.Errorf("persist counters: %w", err)
	}

	s.obs.OnTick(TickPayload{Tick: tick, Year: year, IsYearEnd: yearEnd})
	if yearEnd {
		s.obs.OnYearUpdate(YearUpdatePayload{Year: year, Stats: stats})
	}
	return nil
}

// loadState reads the full point-in-time snapshot the tick operates on.
func (s *Simulation) loadState(ctx context.Context, tick, year int64, yearEnd bool) (*tickState, error) {
	cells, err := s.store.ListCells(ctx, s.world.ID)
	if err != nil {
		return nil, fmt.Errorf("load cells: %w", err)
	}
	pops, err := s.store.ListPopulations(ctx, s.world.ID)
	if err != nil {
		return nil, fmt.Errorf("load populations: %w", err)
	}
	civs, err := s.store.ListCivilizations(ctx, s.world.ID)
	if err != nil {
		return nil, fmt.Errorf("load civilizations: %w", err)
	}
	return newTickState(tick, year, yearEnd, cells, pops, civs), nil
}

// runDynamics updates every living population against a pre-write
// snapshot. Updates are computed in parallel across populations and
// committed afterward, so sibling computations never observe each
// other's writes within the tick.
func (s *Simulation) runDynamics(ctx context.Context, st *tickState) error {
	snapshot := make([]civ.Population, len(st.pops))
	snapByCoord := make(map[world.Coord][]*civ.Population)
	for i, p := range st.pops {
		snapshot[i] = *p
		if p.Alive() {
			coord := world.Coord{X: p.CellX, Y: p.CellY}
			snapByCoord[coord] = append(snapByCoord[coord], &snapshot[i])
		}
	}

	// Pre-draw every population's randomness in listing order. A seeded
	// run stays replay-exact because the shared source is never touched
	// from the worker goroutines.
	draws := make([]*drawnSource, len(st.pops))
	for i, p := range st.pops {
		if !p.Alive() {
			continue
		}
		vals := make([]float64, dynamicsDraws)
		for j := range vals {
			vals[j] = s.rng.Float64()
		}
		draws[i] = &drawnSource{vals: vals}
	}

	results := make([]*DynamicsResult, len(st.pops))

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, p := range st.pops {
		if !p.Alive() {
			continue
		}
		i, p := i, p
		g.Go(func() error {
			cell := st.cellOf(p)
			if cell == nil {
				return fmt.Errorf("population %s references unknown cell %s", p.ID, p.CellID)
			}
			var neighbors []*civ.Population
			for _, nc := range st.adjacency.Neighbors(cell.Coord()) {
				neighbors = append(neighbors, snapByCoord[nc.Coord()]...)
			}
			res := UpdatePopulation(snapshot[i], cell, neighbors, st.yearEnd, s.ticksPerYear, draws[i])
			results[i] = &res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("dynamics: %w", err)
	}

	// Commit phase: writes become visible to the yearly subsystems.
	for i, res := range results {
		if res == nil {
			continue
		}
		*st.pops[i] = res.Pop
		if err := s.store.UpdatePopulation(ctx, st.pops[i]); err != nil {
			return fmt.Errorf("dynamics commit %s: %w", st.pops[i].ID, err)
		}
		if res.TechAdvanced {
			s.obs.OnTechAdvancement(TechAdvancementPayload{
				CivilizationID: st.pops[i].CivilizationID,
				TechLevel:      st.pops[i].TechLevel,
				CellID:         st.pops[i].CellID,
			})
		}
	}
	return nil
}
