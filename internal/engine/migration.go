// Migration — yearly resettlement of crowded populations into adjacent
// viable cells.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/world"
)

const (
	migrationMinSize     = 1000
	migrationPressure    = 0.9 // fraction of carrying capacity that triggers a move
	migrationTargetMax   = 0.5 // target must hold less than this fraction of capacity
	migrationShare       = 0.1 // fraction of the source that leaves
	settleStability      = 50
	settleProsperity     = 40
	settleEducationCarry = 0.8
)

// resolveMigration runs the yearly migration pass. Populations at or
// above 90% of carrying capacity (and at least 1000 strong) send a tenth
// of themselves to a random adjacent non-ocean cell that is unoccupied or
// under half capacity. Migration conserves heads modulo the floor.
func (s *Simulation) resolveMigration(ctx context.Context, st *tickState) error {
	// Snapshot the slice: new settlements created mid-pass must not
	// themselves migrate this year.
	sources := st.pops
	for _, src := range sources {
		if !src.Alive() || src.Size < migrationMinSize {
			continue
		}
		srcCell := st.cellOf(src)
		if srcCell == nil {
			continue
		}
		capacity := CarryingCapacity(srcCell, src.TechLevel)
		if float64(src.Size) < migrationPressure*capacity {
			continue
		}

		candidates := s.migrationCandidates(st, src)
		if len(candidates) == 0 {
			continue
		}
		target := candidates[s.rng.Intn(len(candidates))]

		migrants := floorCount(migrationShare * float64(src.Size))
		if migrants == 0 {
			continue
		}

		if err := s.settleMigrants(ctx, st, src, target, migrants); err != nil {
			return err
		}

		src.Size -= migrants
		if err := s.store.UpdatePopulation(ctx, src); err != nil {
			return fmt.Errorf("migration source %s: %w", src.ID, err)
		}

		s.obs.OnMigration(MigrationPayload{
			FromCellID:     src.CellID,
			ToCellID:       target.ID,
			Migrants:       migrants,
			CivilizationID: src.CivilizationID,
		})
	}
	return nil
}

// migrationCandidates scans adjacent cells for viable settlement targets.
func (s *Simulation) migrationCandidates(st *tickState, src *civ.Population) []*world.Cell {
	var out []*world.Cell
	coord := world.Coord{X: src.CellX, Y: src.CellY}
	for _, cell := range st.adjacency.Neighbors(coord) {
		if !cell.Habitable() {
			continue
		}
		occupied := st.totalSizeAt(cell.Coord())
		if occupied == 0 {
			out = append(out, cell)
			continue
		}
		capacity := CarryingCapacity(cell, src.TechLevel)
		if float64(occupied) < migrationTargetMax*capacity {
			out = append(out, cell)
		}
	}
	return out
}

// settleMigrants merges migrants into the civilization's existing
// population on the target cell, or founds a new settlement.
func (s *Simulation) settleMigrants(ctx context.Context, st *tickState, src *civ.Population, target *world.Cell, migrants int64) error {
	if existing := st.populationAt(target.ID, src.CivilizationID); existing != nil {
		existing.Size += migrants
		if err := s.store.UpdatePopulation(ctx, existing); err != nil {
			return fmt.Errorf("migration target %s: %w", existing.ID, err)
		}
		return nil
	}

	settled := &civ.Population{
		ID:             uuid.NewString(),
		WorldID:        src.WorldID,
		CellID:         target.ID,
		CivilizationID: src.CivilizationID,
		CellX:          target.X,
		CellY:          target.Y,
		Size:           migrants,
		TechLevel:      maxInt(0, src.TechLevel-1),
		Stability:      settleStability,
		Prosperity:     settleProsperity,
		Education:      settleEducationCarry * src.Education,
		BirthRate:      src.BirthRate,
		DeathRate:      src.DeathRate,
		Ideology:       src.Ideology,
		WarTendency:    src.WarTendency,

		ResourceEfficiency:  src.ResourceEfficiency,
		EnvironmentalImpact: src.EnvironmentalImpact,
	}
	if err := s.store.InsertPopulation(ctx, settled); err != nil {
		return fmt.Errorf("migration settle %s: %w", target.ID, err)
	}
	st.addPopulation(settled)

	slog.Debug("new settlement",
		"civilization", src.CivilizationID,
		"cell", target.Coord(),
		"migrants", migrants,
	)
	return nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
