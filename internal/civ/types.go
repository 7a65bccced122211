// Package civ defines the civilization-layer data model: worlds,
// populations, civilizations, events, experiments, and snapshots.
package civ

// WorldStatus tracks a world's lifecycle.
type WorldStatus string

const (
	WorldStatusRunning  WorldStatus = "running"
	WorldStatusPaused   WorldStatus = "paused"
	WorldStatusArchived WorldStatus = "archived"
)

// World is the root simulation entity. One running world at a time owns
// the tick loop.
type World struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	CurrentTick int64       `json:"current_tick"`
	CurrentYear int64       `json:"current_year"`
	Status      WorldStatus `json:"status"`
}

// Ideology is the four-axis scalar profile of a population. Each axis is
// bounded to [0, 100].
type Ideology struct {
	Collectivism     float64 `json:"collectivism"`
	Tradition        float64 `json:"tradition"`
	Authoritarianism float64 `json:"authoritarianism"`
	Xenophobia       float64 `json:"xenophobia"`
}

// Clamp bounds every axis to [0, 100].
func (i *Ideology) Clamp() {
	i.Collectivism = clamp100(i.Collectivism)
	i.Tradition = clamp100(i.Tradition)
	i.Authoritarianism = clamp100(i.Authoritarianism)
	i.Xenophobia = clamp100(i.Xenophobia)
}

// Population is one civilization's presence on one cell. At most one
// population exists per (cell, civilization) pair.
type Population struct {
	ID             string `json:"id"`
	WorldID        string `json:"world_id"`
	CellID         string `json:"cell_id"`
	CivilizationID string `json:"civilization_id"`

	// Cell coordinates, joined in by the store on load.
	CellX int `json:"cell_x"`
	CellY int `json:"cell_y"`

	Size      int64 `json:"population_size"`
	TechLevel int   `json:"tech_level"` // 0-9

	Stability  float64 `json:"stability"`  // 0-100
	Prosperity float64 `json:"prosperity"` // 0-100
	Education  float64 `json:"education"`  // 0-100

	BirthRate float64 `json:"birth_rate"`
	DeathRate float64 `json:"death_rate"`

	Ideology Ideology `json:"ideology"`

	WarTendency         float64 `json:"war_tendency"`
	ResourceEfficiency  float64 `json:"resource_efficiency"`
	EnvironmentalImpact float64 `json:"environmental_impact"`
}

// Alive reports whether the population is still active. Size-zero
// populations are inert: every subsystem skips them.
func (p *Population) Alive() bool {
	return p.Size > 0
}

// Clamp enforces the numeric bounds that must hold after every update.
func (p *Population) Clamp() {
	if p.Size < 0 {
		p.Size = 0
	}
	if p.TechLevel < 0 {
		p.TechLevel = 0
	}
	if p.TechLevel > MaxTechLevel {
		p.TechLevel = MaxTechLevel
	}
	p.Stability = clamp100(p.Stability)
	p.Prosperity = clamp100(p.Prosperity)
	p.Education = clamp100(p.Education)
	p.Ideology.Clamp()
}

// MaxTechLevel caps population tech level.
const MaxTechLevel = 9

// Civilization groups populations under one banner.
type Civilization struct {
	ID            string `json:"id"`
	WorldID       string `json:"world_id"`
	Name          string `json:"name"`
	Color         string `json:"color"`
	CapitalCellID string `json:"capital_cell_id"`
}

// Snapshot is an append-only yearly aggregate record.
type Snapshot struct {
	WorldID          string  `json:"world_id"`
	Tick             int64   `json:"tick"`
	Year             int64   `json:"year"`
	TotalPopulation  int64   `json:"total_population"`
	NumCivilizations int     `json:"num_civilizations"`
	AvgTechLevel     float64 `json:"avg_tech_level"`
}

// ReputationDelta adjusts a player's reputation axes.
type ReputationDelta struct {
	Benevolence float64 `json:"benevolence"`
	Mischief    float64 `json:"mischief"`
	Curiosity   float64 `json:"curiosity"`
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
