// Package world provides the cell grid, biomes, and spatial data structures.
// Cells use integer (x, y) coordinates and are immutable after generation.
package world

import "fmt"

// Coord is an integer grid position.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// Biome classifies a cell's terrain.
type Biome string

const (
	BiomeOcean     Biome = "ocean"
	BiomeDesert    Biome = "desert"
	BiomeGrassland Biome = "grassland"
	BiomeForest    Biome = "forest"
	BiomeJungle    Biome = "jungle"
	BiomeMountain  Biome = "mountain"
	BiomeTundra    Biome = "tundra"
	BiomeSwamp     Biome = "swamp"
)

// Biomes lists every valid biome tag.
var Biomes = []Biome{
	BiomeOcean, BiomeDesert, BiomeGrassland, BiomeForest,
	BiomeJungle, BiomeMountain, BiomeTundra, BiomeSwamp,
}

// Valid reports whether b is a known biome tag.
func (b Biome) Valid() bool {
	for _, known := range Biomes {
		if b == known {
			return true
		}
	}
	return false
}

// CapacityMultiplier scales a cell's carrying capacity by biome.
// Ocean and desert are near-uninhabitable; everything else is neutral.
func (b Biome) CapacityMultiplier() float64 {
	switch b {
	case BiomeOcean:
		return 0.1
	case BiomeDesert:
		return 0.3
	default:
		return 1
	}
}

// Cell is a single tile of the world grid. The engine never mutates cells
// after generation.
type Cell struct {
	ID           string  `json:"id"`
	WorldID      string  `json:"world_id"`
	X            int     `json:"x"`
	Y            int     `json:"y"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Biome        Biome   `json:"biome"`
	FoodCapacity float64 `json:"food_capacity"`
	Temperature  float64 `json:"temperature"` // degrees Celsius
	Moisture     float64 `json:"moisture"`    // 0.0 (arid) to 1.0 (saturated)
}

// Coord returns the cell's grid position.
func (c *Cell) Coord() Coord {
	return Coord{X: c.X, Y: c.Y}
}

// Habitable reports whether land populations can settle the cell.
func (c *Cell) Habitable() bool {
	return c.Biome != BiomeOcean
}
