// Conflict — yearly resolution of contested cells hosting populations
// from two or more civilizations.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/world"
)

const (
	conflictWinnerLossShare = 0.05
	conflictLoserLossShare  = 0.15
	conflictWinnerStability = 10
	conflictLoserStability  = 20
)

// resolveConflicts runs the yearly conflict pass. For every cell holding
// populations of at least two civilizations, war breaks out with chance
// (avgWarTendency + avgXenophobia) / 200. The largest population wins,
// the second-largest loses; both bleed heads and stability.
func (s *Simulation) resolveConflicts(ctx context.Context, st *tickState) error {
	// Stable cell order so a seeded run resolves identically.
	coords := make([]world.Coord, 0, len(st.popsByCoord))
	for coord := range st.popsByCoord {
		coords = append(coords, coord)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Y != coords[j].Y {
			return coords[i].Y < coords[j].Y
		}
		return coords[i].X < coords[j].X
	})

	for _, coord := range coords {
		pops := st.alivePopsAt(coord)
		if countCivilizations(pops) < 2 {
			continue
		}

		avgWar, avgXeno := 0.0, 0.0
		for _, p := range pops {
			avgWar += p.WarTendency
			avgXeno += p.Ideology.Xenophobia
		}
		avgWar /= float64(len(pops))
		avgXeno /= float64(len(pops))

		chance := (avgWar + avgXeno) / 200
		if s.rng.Float64() >= chance {
			continue
		}

		// Largest population wins, runner-up loses. Sort is stable so
		// equal sizes resolve by load order.
		sorted := make([]*civ.Population, len(pops))
		copy(sorted, pops)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Size > sorted[j].Size })
		winner, loser := sorted[0], sorted[1]

		winnerLosses := floorCount(conflictWinnerLossShare * float64(winner.Size))
		loserLosses := floorCount(conflictLoserLossShare * float64(loser.Size))

		winner.Size -= winnerLosses
		winner.Stability -= conflictWinnerStability
		winner.Clamp()
		loser.Size -= loserLosses
		loser.Stability -= conflictLoserStability
		loser.Clamp()

		if err := s.store.UpdatePopulation(ctx, winner); err != nil {
			return fmt.Errorf("conflict winner %s: %w", winner.ID, err)
		}
		if err := s.store.UpdatePopulation(ctx, loser); err != nil {
			return fmt.Errorf("conflict loser %s: %w", loser.ID, err)
		}

		if err := s.recordConflict(ctx, st, winner, loser, winnerLosses, loserLosses); err != nil {
			return err
		}

		s.obs.OnConflict(ConflictPayload{
			CellID:       winner.CellID,
			WinnerCivID:  winner.CivilizationID,
			LoserCivID:   loser.CivilizationID,
			WinnerLosses: winnerLosses,
			LoserLosses:  loserLosses,
		})
	}
	return nil
}

// recordConflict appends an inactive event row as the historical record.
func (s *Simulation) recordConflict(ctx context.Context, st *tickState, winner, loser *civ.Population, winnerLosses, loserLosses int64) error {
	data, err := json.Marshal(map[string]any{
		"winner_civ":    winner.CivilizationID,
		"loser_civ":     loser.CivilizationID,
		"winner_losses": winnerLosses,
		"loser_losses":  loserLosses,
	})
	if err != nil {
		return fmt.Errorf("marshal conflict record: %w", err)
	}
	end := st.tick
	ev := &civ.Event{
		ID:        uuid.NewString(),
		WorldID:   winner.WorldID,
		Type:      civ.EventConflict,
		Scope:     civ.ScopeCell,
		TargetID:  winner.CellID,
		Data:      data,
		StartTick: st.tick,
		EndTick:   &end,
		Active:    false,
	}
	if err := s.store.UpsertEvent(ctx, ev); err != nil {
		return fmt.Errorf("record conflict: %w", err)
	}
	return nil
}

func countCivilizations(pops []*civ.Population) int {
	seen := make(map[string]struct{}, len(pops))
	for _, p := range pops {
		seen[p.CivilizationID] = struct{}{}
	}
	return len(seen)
}
