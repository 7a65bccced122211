// Snapshot recording — yearly aggregate history for charts.
package engine

import (
	"context"
	"fmt"

	"github.com/talgya/civgrid/internal/civ"
)

// recordSnapshot aggregates the world's living populations and appends a
// history row. Returns the stats for the year-update broadcast.
func (s *Simulation) recordSnapshot(ctx context.Context, st *tickState) (YearStats, error) {
	stats := aggregateStats(st.pops)

	snap := &civ.Snapshot{
		WorldID:          s.world.ID,
		Tick:             st.tick,
		Year:             st.year,
		TotalPopulation:  stats.TotalPopulation,
		NumCivilizations: stats.NumCivilizations,
		AvgTechLevel:     stats.AvgTechLevel,
	}
	if err := s.store.AppendSnapshot(ctx, snap); err != nil {
		return YearStats{}, fmt.Errorf("append snapshot: %w", err)
	}
	return stats, nil
}

// aggregateStats computes totals over living populations. Size-zero
// populations are inert and excluded from the civilization count and
// tech average.
func aggregateStats(pops []*civ.Population) YearStats {
	var total int64
	var techSum int
	alive := 0
	civs := make(map[string]struct{})

	for _, p := range pops {
		if !p.Alive() {
			continue
		}
		total += p.Size
		techSum += p.TechLevel
		alive++
		civs[p.CivilizationID] = struct{}{}
	}

	stats := YearStats{
		TotalPopulation:  total,
		NumCivilizations: len(civs),
	}
	if alive > 0 {
		stats.AvgTechLevel = float64(techSum) / float64(alive)
	}
	return stats
}
