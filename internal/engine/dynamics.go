// Population dynamics — the per-tick update of a single population from
// its cell, its own attributes, and a snapshot of its neighbors.
package engine

import (
	"math"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/entropy"
	"github.com/talgya/civgrid/internal/world"
)

// CarryingCapacity is the maximum sustainable population for a cell at a
// given tech level.
func CarryingCapacity(cell *world.Cell, techLevel int) float64 {
	return cell.FoodCapacity * 100 *
		(1 + float64(techLevel)*0.5) *
		cell.Biome.CapacityMultiplier()
}

// DynamicsResult reports what a single population update produced.
type DynamicsResult struct {
	Pop          civ.Population
	TechAdvanced bool
}

// dynamicsDraws is the most Float64 draws one population update can
// consume: jitter, education growth, and the tech advancement gate.
const dynamicsDraws = 3

// drawnSource replays a fixed sequence of Float64 draws. The dynamics
// pass pre-draws every population's values from the shared source in
// listing order, so a seeded run consumes entropy identically no matter
// how the parallel workers are scheduled.
type drawnSource struct {
	vals []float64
	next int
}

func (d *drawnSource) Float64() float64 {
	v := d.vals[d.next]
	d.next++
	return v
}

func (d *drawnSource) Intn(n int) int {
	return int(d.Float64() * float64(n))
}

var _ entropy.Source = (*drawnSource)(nil)

// UpdatePopulation computes one tick of dynamics for a population. The
// input population is not mutated; neighbors are the pre-tick snapshot of
// populations on adjacent cells. All count arithmetic floors toward zero.
func UpdatePopulation(pop civ.Population, cell *world.Cell, neighbors []*civ.Population, yearEnd bool, ticksPerYear int, rng entropy.Source) DynamicsResult {
	capacity := CarryingCapacity(cell, pop.TechLevel)

	crowding := 0.0
	if capacity > 0 {
		crowding = float64(pop.Size) / capacity
	} else if pop.Size > 0 {
		// Degenerate capacity: treat as maximally overcrowded.
		crowding = 1000
	}

	effBirth := pop.BirthRate * pop.Prosperity / 50
	effDeath := pop.DeathRate

	if crowding > 1 {
		effDeath += (crowding - 1) * 0.01
		effBirth *= math.Max(0.5, 1-(crowding-1)*0.2)
	}

	// Tech raises births, lowers deaths.
	effBirth *= 1 + float64(pop.TechLevel)*0.02
	effDeath *= math.Max(0.3, 1-float64(pop.TechLevel)*0.05)

	// Climate stress outside the habitable band.
	if cell.Temperature < 0 || cell.Temperature > 40 {
		effDeath += 0.005
	}

	births := floorCount(float64(pop.Size) * effBirth / float64(ticksPerYear))
	deaths := floorCount(float64(pop.Size) * effDeath / float64(ticksPerYear))

	newSize := pop.Size + births - deaths
	if newSize < 0 {
		newSize = 0
	}

	// Multiplicative jitter in [0.999, 1.001], floored.
	jitter := 0.999 + rng.Float64()*0.002
	pop.Size = floorCount(float64(newSize) * jitter)

	// Stability drifts with prosperity.
	if pop.Prosperity < 30 {
		pop.Stability -= 0.1
	} else if pop.Prosperity > 70 {
		pop.Stability += 0.05
	}

	// Prosperity drifts with crowding and tech.
	if crowding < 0.8 && pop.TechLevel > 2 {
		pop.Prosperity += 0.05
	} else if crowding > 1.2 {
		pop.Prosperity -= 0.1
	}

	techAdvanced := false
	if yearEnd {
		if pop.Stability > 50 && pop.Prosperity > 40 {
			pop.Education += rng.Float64() * 0.5
		}
		// Stochastic tech advancement gated on education.
		if pop.Education > float64(pop.TechLevel+1)*10 &&
			rng.Float64() < 0.01*pop.Education/100 &&
			pop.TechLevel < civ.MaxTechLevel {
			pop.TechLevel++
			techAdvanced = true
		}
	}

	// Collectivism drifts toward the neighborhood mean.
	if mean, ok := neighborCollectivismMean(neighbors); ok {
		pop.Ideology.Collectivism += (mean - pop.Ideology.Collectivism) * 0.001
	}

	pop.Clamp()
	return DynamicsResult{Pop: pop, TechAdvanced: techAdvanced}
}

func neighborCollectivismMean(neighbors []*civ.Population) (float64, bool) {
	if len(neighbors) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, n := range neighbors {
		sum += n.Ideology.Collectivism
	}
	return sum / float64(len(neighbors)), true
}

// floorCount floors a non-negative float64 into a count. Never rounds.
func floorCount(v float64) int64 {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	if v > math.MaxInt64/2 {
		return math.MaxInt64 / 2
	}
	return int64(math.Floor(v))
}
