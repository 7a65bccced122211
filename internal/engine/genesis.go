// Genesis — creating and seeding a brand new world: cell grid from the
// generator, founding civilizations, and their starting populations.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/entropy"
	"github.com/talgya/civgrid/internal/persistence"
	"github.com/talgya/civgrid/internal/world"
)

// GenesisConfig controls world seeding.
type GenesisConfig struct {
	Name          string
	Civilizations int
	Generation    world.GenConfig
}

// Founding population attributes.
const (
	foundingSize       = 5000
	foundingBirthRate  = 0.02
	foundingDeathRate  = 0.015
	foundingStability  = 50
	foundingProsperity = 40
)

var civNames = []string{
	"Ashfall", "Brightwater", "Cindral", "Duskmere", "Eldenvale",
	"Frosthold", "Gildenmark", "Hollowreach", "Ironveil", "Jadecrest",
}

var civColors = []string{
	"#c0392b", "#2980b9", "#27ae60", "#f39c12", "#8e44ad",
	"#16a085", "#d35400", "#2c3e50", "#7f8c8d", "#e84393",
}

// Genesis generates a world, persists its cells, and founds the
// requested number of civilizations on fertile capitals. Returns the new
// running world.
func Genesis(ctx context.Context, store persistence.Store, cfg GenesisConfig, rng entropy.Source) (*civ.World, error) {
	if cfg.Civilizations < 1 {
		cfg.Civilizations = 1
	}
	if cfg.Civilizations > len(civNames) {
		cfg.Civilizations = len(civNames)
	}

	w := &civ.World{
		ID:          uuid.NewString(),
		Name:        cfg.Name,
		CurrentTick: 0,
		CurrentYear: 0,
		Status:      civ.WorldStatusRunning,
	}
	if err := store.InsertWorld(ctx, w); err != nil {
		return nil, fmt.Errorf("genesis world: %w", err)
	}

	cells := world.Generate(w.ID, cfg.Generation)
	if err := store.InsertCells(ctx, cells); err != nil {
		return nil, fmt.Errorf("genesis cells: %w", err)
	}

	capitals := pickCapitals(cells, cfg.Civilizations, rng)
	if len(capitals) == 0 {
		return nil, fmt.Errorf("genesis: no habitable cells for capitals")
	}

	for i, capital := range capitals {
		c := &civ.Civilization{
			ID:            uuid.NewString(),
			WorldID:       w.ID,
			Name:          civNames[i],
			Color:         civColors[i],
			CapitalCellID: capital.ID,
		}
		if err := store.InsertCivilization(ctx, c); err != nil {
			return nil, fmt.Errorf("genesis civilization %s: %w", c.Name, err)
		}

		p := foundingPopulation(w.ID, c.ID, capital, rng)
		if err := store.InsertPopulation(ctx, p); err != nil {
			return nil, fmt.Errorf("genesis population for %s: %w", c.Name, err)
		}

		slog.Info("civilization founded",
			"name", c.Name,
			"capital", capital.Coord(),
			"biome", capital.Biome,
			"population", p.Size,
		)
	}

	slog.Info("world created",
		"world", w.ID,
		"name", w.Name,
		"cells", len(cells),
		"civilizations", len(capitals),
	)
	return w, nil
}

// pickCapitals chooses up to n distinct fertile cells, preferring high
// food capacity and keeping capitals off each other's cells.
func pickCapitals(cells []*world.Cell, n int, rng entropy.Source) []*world.Cell {
	var fertile []*world.Cell
	for _, c := range cells {
		if c.Habitable() && c.FoodCapacity >= 50 {
			fertile = append(fertile, c)
		}
	}
	if len(fertile) == 0 {
		for _, c := range cells {
			if c.Habitable() {
				fertile = append(fertile, c)
			}
		}
	}

	var picked []*world.Cell
	taken := make(map[world.Coord]struct{})
	for len(picked) < n && len(fertile) > 0 {
		i := rng.Intn(len(fertile))
		c := fertile[i]
		fertile = append(fertile[:i], fertile[i+1:]...)
		if _, ok := taken[c.Coord()]; ok {
			continue
		}
		taken[c.Coord()] = struct{}{}
		picked = append(picked, c)
	}
	return picked
}

// foundingPopulation builds a civilization's starting population with a
// randomized ideology profile.
func foundingPopulation(worldID, civID string, capital *world.Cell, rng entropy.Source) *civ.Population {
	p := &civ.Population{
		ID:             uuid.NewString(),
		WorldID:        worldID,
		CellID:         capital.ID,
		CivilizationID: civID,
		CellX:          capital.X,
		CellY:          capital.Y,
		Size:           foundingSize,
		TechLevel:      0,
		Stability:      foundingStability,
		Prosperity:     foundingProsperity,
		Education:      0,
		BirthRate:      foundingBirthRate,
		DeathRate:      foundingDeathRate,
		Ideology: civ.Ideology{
			Collectivism:     20 + rng.Float64()*60,
			Tradition:        20 + rng.Float64()*60,
			Authoritarianism: 20 + rng.Float64()*60,
			Xenophobia:       20 + rng.Float64()*60,
		},
		WarTendency:         20 + rng.Float64()*60,
		ResourceEfficiency:  50,
		EnvironmentalImpact: 50,
	}
	p.Clamp()
	return p
}
