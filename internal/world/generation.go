// World generation using layered simplex noise.
// Generates elevation, moisture, and temperature fields over a rectangular
// grid, then derives biome and food capacity per cell.
package world

import (
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/civgrid/internal/entropy"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width          int     // Grid width in cells
	Height         int     // Grid height in cells
	Continents     int     // Number of continental noise foci (1-8)
	WaterCoverage  float64 // Fraction of cells below sea level (0.0-1.0)
	AvgTemperature float64 // Equatorial baseline in degrees Celsius
	BiomeVariety   float64 // 0.0 (uniform) to 1.0 (maximum variety)
	Seed           int64   // Random seed (0 = random)
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:          60,
		Height:         40,
		Continents:     3,
		WaterCoverage:  0.55,
		AvgTemperature: 22,
		BiomeVariety:   0.7,
		Seed:           0,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Width:          12,
		Height:         8,
		Continents:     1,
		WaterCoverage:  0.4,
		AvgTemperature: 20,
		BiomeVariety:   0.5,
		Seed:           42,
	}
}

// Generate creates the full cell grid for a world. The same config and
// non-zero seed always produce the same grid (cell IDs aside).
func Generate(worldID string, cfg GenConfig) []*Cell {
	seed := cfg.Seed
	if seed == 0 {
		seed = entropy.RandomSeed()
	}

	// Independent noise layers for elevation, moisture, and temperature.
	elevNoise := opensimplex.NewNormalized(seed)
	moistNoise := opensimplex.NewNormalized(seed + 1)
	tempNoise := opensimplex.NewNormalized(seed + 2)

	// Continental foci pull elevation up around themselves.
	foci := continentFoci(cfg, seed)

	type sample struct {
		coord Coord
		elev  float64
		moist float64
		temp  float64
	}

	samples := make([]sample, 0, cfg.Width*cfg.Height)
	elevs := make([]float64, 0, cfg.Width*cfg.Height)

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx, fy := float64(x), float64(y)

			elev := octaveNoise(elevNoise, fx, fy, 4, 0.08, 0.5)
			moist := octaveNoise(moistNoise, fx, fy, 3, 0.06, 0.5)
			tempN := octaveNoise(tempNoise, fx, fy, 3, 0.05, 0.5)

			// Continental shaping: elevation rises near foci, falls toward
			// the map border so continents read as landmasses.
			elev = elev*0.55 + fociBoost(foci, fx, fy, cfg)*0.45
			elev *= edgeFalloff(fx, fy, cfg)

			// Latitude: y=0 is the north edge, equator at mid-height.
			lat := latitudeOf(y, cfg.Height)

			// Temperature falls with latitude and elevation, jittered by
			// noise scaled to BiomeVariety.
			latFactor := 1.0 - math.Abs(lat)/90.0
			temp := cfg.AvgTemperature*latFactor*1.4 - 12.0*elev +
				(tempN-0.5)*14.0*cfg.BiomeVariety

			samples = append(samples, sample{
				coord: Coord{X: x, Y: y},
				elev:  elev,
				moist: moist,
				temp:  temp,
			})
			elevs = append(elevs, elev)
		}
	}

	// Sea level from the requested water coverage quantile, so the
	// land/water ratio holds regardless of the noise distribution.
	seaLevel := quantile(elevs, cfg.WaterCoverage)

	cells := make([]*Cell, 0, len(samples))
	for _, s := range samples {
		biome := deriveBiome(s.elev, s.moist, s.temp, seaLevel, cfg)
		cells = append(cells, &Cell{
			ID:           uuid.NewString(),
			WorldID:      worldID,
			X:            s.coord.X,
			Y:            s.coord.Y,
			Lat:          latitudeOf(s.coord.Y, cfg.Height),
			Lon:          longitudeOf(s.coord.X, cfg.Width),
			Biome:        biome,
			FoodCapacity: foodCapacity(biome, s.moist, s.temp),
			Temperature:  s.temp,
			Moisture:     s.moist,
		})
	}
	return cells
}

// continentFoci picks the continental center points for a seed.
func continentFoci(cfg GenConfig, seed int64) []Coord {
	n := cfg.Continents
	if n < 1 {
		n = 1
	}
	if n > 8 {
		n = 8
	}
	rng := rand.New(rand.NewSource(seed + 100))
	foci := make([]Coord, n)
	for i := range foci {
		// Keep foci away from the border so falloff doesn't drown them.
		foci[i] = Coord{
			X: cfg.Width/6 + rng.Intn(cfg.Width*2/3+1),
			Y: cfg.Height/6 + rng.Intn(cfg.Height*2/3+1),
		}
	}
	return foci
}

// fociBoost returns elevation contribution from the nearest continental focus.
func fociBoost(foci []Coord, x, y float64, cfg GenConfig) float64 {
	scale := math.Hypot(float64(cfg.Width), float64(cfg.Height)) / 3.5
	best := 0.0
	for _, f := range foci {
		d := math.Hypot(x-float64(f.X), y-float64(f.Y))
		v := 1.0 - d/scale
		if v > best {
			best = v
		}
	}
	if best < 0 {
		best = 0
	}
	return best
}

// edgeFalloff fades elevation toward the map border.
func edgeFalloff(x, y float64, cfg GenConfig) float64 {
	nx := 2.0*x/float64(cfg.Width-1) - 1.0
	ny := 2.0*y/float64(cfg.Height-1) - 1.0
	dist := math.Max(math.Abs(nx), math.Abs(ny))
	f := 1.0 - math.Pow(dist, 3.5)
	if f < 0 {
		return 0
	}
	return f
}

func latitudeOf(y, height int) float64 {
	if height <= 1 {
		return 0
	}
	return 90.0 - 180.0*float64(y)/float64(height-1)
}

func longitudeOf(x, width int) float64 {
	if width <= 1 {
		return 0
	}
	return -180.0 + 360.0*float64(x)/float64(width-1)
}

// deriveBiome determines the biome from environmental parameters.
func deriveBiome(elev, moist, temp, seaLevel float64, cfg GenConfig) Biome {
	if elev < seaLevel {
		return BiomeOcean
	}
	if elev > seaLevel+(1.0-seaLevel)*0.75 {
		return BiomeMountain
	}
	if temp < 0 {
		return BiomeTundra
	}
	if moist < 0.25 && temp > 24 {
		return BiomeDesert
	}
	if moist > 0.75 && temp > 24 && cfg.BiomeVariety > 0.3 {
		return BiomeJungle
	}
	if moist > 0.7 && elev < seaLevel+(1.0-seaLevel)*0.2 {
		return BiomeSwamp
	}
	if moist > 0.45 {
		return BiomeForest
	}
	return BiomeGrassland
}

// foodCapacity assigns a base food capacity per biome, modulated by
// moisture and temperate conditions.
func foodCapacity(biome Biome, moist, temp float64) float64 {
	base := 0.0
	switch biome {
	case BiomeGrassland:
		base = 80 + moist*40
	case BiomeForest:
		base = 60 + moist*30
	case BiomeJungle:
		base = 70 + moist*20
	case BiomeSwamp:
		base = 40 + moist*20
	case BiomeMountain:
		base = 25
	case BiomeTundra:
		base = 15
	case BiomeDesert:
		base = 10
	case BiomeOcean:
		base = 30 // fishing grounds; the biome multiplier gates settlement
	}
	// Temperate band bonus.
	if temp > 10 && temp < 30 {
		base *= 1.15
	}
	return base
}

// octaveNoise samples multi-octave normalized noise at (x, y).
func octaveNoise(n opensimplex.Noise, x, y float64, octaves int, freq, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxValue := 0.0
	for i := 0; i < octaves; i++ {
		total += n.Eval2(x*freq, y*freq) * amplitude
		maxValue += amplitude
		amplitude *= persistence
		freq *= 2
	}
	return total / maxValue
}

// quantile returns the q-quantile of values (q in [0,1]) without mutating
// the input.
func quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	if q <= 0 {
		return sorted[0] - 1e-9
	}
	if q >= 1 {
		return sorted[len(sorted)-1] + 1e-9
	}
	idx := int(q * float64(len(sorted)))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
