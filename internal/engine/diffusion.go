// Tech diffusion — yearly spread of knowledge from advanced populations
// to their less advanced neighbors.
package engine

import (
	"context"
	"fmt"

	"github.com/talgya/civgrid/internal/world"
)

// diffusionChancePerGap scales spread probability by tech gap.
const diffusionChancePerGap = 0.001

// diffuseTechnology runs the yearly tech diffusion pass. For each ordered
// (population, neighbor) pair where the population leads by more than one
// tech level, a draw against 0.001 × gap grants the neighbor +1 education.
// Writes land as they happen: a neighbor educated early in the pass shows
// the new value to later pairs.
func (s *Simulation) diffuseTechnology(ctx context.Context, st *tickState) error {
	for _, p := range st.pops {
		if !p.Alive() {
			continue
		}
		coord := world.Coord{X: p.CellX, Y: p.CellY}
		for _, n := range st.neighborPops(coord) {
			gap := p.TechLevel - n.TechLevel
			if gap <= 1 {
				continue
			}
			if s.rng.Float64() >= diffusionChancePerGap*float64(gap) {
				continue
			}
			n.Education += 1
			n.Clamp()
			if err := s.store.UpdatePopulation(ctx, n); err != nil {
				return fmt.Errorf("tech diffusion to %s: %w", n.ID, err)
			}
		}
	}
	return nil
}
