package world

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ProducesFullGrid(t *testing.T) {
	cfg := SmallTestConfig()
	cells := Generate("w1", cfg)
	require.Len(t, cells, cfg.Width*cfg.Height)

	seen := make(map[Coord]bool)
	for _, c := range cells {
		assert.Equal(t, "w1", c.WorldID)
		assert.NotEmpty(t, c.ID)
		assert.True(t, c.Biome.Valid(), "invalid biome %q", c.Biome)
		assert.GreaterOrEqual(t, c.FoodCapacity, 0.0)
		assert.GreaterOrEqual(t, c.Moisture, 0.0)
		assert.LessOrEqual(t, c.Moisture, 1.0)
		assert.LessOrEqual(t, math.Abs(c.Lat), 90.0)
		assert.LessOrEqual(t, math.Abs(c.Lon), 180.0)

		coord := c.Coord()
		assert.False(t, seen[coord], "duplicate coordinate %s", coord)
		seen[coord] = true
	}
}

func TestGenerate_SameSeedSameWorld(t *testing.T) {
	cfg := SmallTestConfig()
	a := Generate("w1", cfg)
	b := Generate("w2", cfg)
	require.Len(t, b, len(a))

	for i := range a {
		assert.Equal(t, a[i].Biome, b[i].Biome)
		assert.Equal(t, a[i].FoodCapacity, b[i].FoodCapacity)
		assert.Equal(t, a[i].Temperature, b[i].Temperature)
	}
}

func TestGenerate_ZeroSeedDrawsAFreshOne(t *testing.T) {
	cfg := SmallTestConfig()
	cfg.Seed = 0
	cells := Generate("w1", cfg)
	require.Len(t, cells, cfg.Width*cfg.Height)
	for _, c := range cells {
		assert.True(t, c.Biome.Valid(), "invalid biome %q", c.Biome)
	}
}

func TestGenerate_WaterCoverageIsRespected(t *testing.T) {
	cfg := DefaultGenConfig()
	cfg.Seed = 7
	cells := Generate("w1", cfg)

	water := 0
	for _, c := range cells {
		if c.Biome == BiomeOcean {
			water++
		}
	}
	got := float64(water) / float64(len(cells))
	// The sea level is set from the coverage quantile, so the ratio
	// should land close to the request.
	assert.InDelta(t, cfg.WaterCoverage, got, 0.05)
}

func TestGenerate_HasSomewhereToLive(t *testing.T) {
	cfg := SmallTestConfig()
	cells := Generate("w1", cfg)

	fertile := 0
	for _, c := range cells {
		if c.Habitable() && c.FoodCapacity >= 50 {
			fertile++
		}
	}
	assert.Greater(t, fertile, 0)
}

func TestBiomeCapacityMultiplier(t *testing.T) {
	assert.Equal(t, 0.1, BiomeOcean.CapacityMultiplier())
	assert.Equal(t, 0.3, BiomeDesert.CapacityMultiplier())
	assert.Equal(t, 1.0, BiomeGrassland.CapacityMultiplier())
	assert.Equal(t, 1.0, BiomeTundra.CapacityMultiplier())
}
