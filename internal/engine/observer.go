package engine

import (
	"log/slog"

	"github.com/talgya/civgrid/internal/civ"
)

// Notification payloads, one struct per broadcast kind. Delivery is
// fire-and-forget: observers must not block the tick loop.

// TickPayload announces a completed tick.
type TickPayload struct {
	Tick      int64 `json:"tick"`
	Year      int64 `json:"year"`
	IsYearEnd bool  `json:"isYearEnd"`
}

// YearStats summarizes the world at a year boundary.
type YearStats struct {
	TotalPopulation  int64   `json:"total_population"`
	NumCivilizations int     `json:"num_civilizations"`
	AvgTechLevel     float64 `json:"avg_tech_level"`
}

// YearUpdatePayload announces a completed year.
type YearUpdatePayload struct {
	Year  int64     `json:"year"`
	Stats YearStats `json:"stats"`
}

// TechAdvancementPayload announces a population reaching a new tech level.
type TechAdvancementPayload struct {
	CivilizationID string `json:"civilization_id"`
	TechLevel      int    `json:"tech_level"`
	CellID         string `json:"cell_id"`
}

// MigrationPayload announces a completed migration.
type MigrationPayload struct {
	FromCellID     string `json:"from"`
	ToCellID       string `json:"to"`
	Migrants       int64  `json:"migrants"`
	CivilizationID string `json:"civilization_id"`
}

// ConflictPayload announces a resolved conflict.
type ConflictPayload struct {
	CellID       string `json:"cell_id"`
	WinnerCivID  string `json:"winner_civ"`
	LoserCivID   string `json:"loser_civ"`
	WinnerLosses int64  `json:"winner_losses"`
	LoserLosses  int64  `json:"loser_losses"`
}

// NewEventPayload announces a freshly generated world event.
type NewEventPayload struct {
	Type     string `json:"type"`
	TargetID string `json:"target"`
	Year     int64  `json:"year"`
}

// ExperimentResolvedPayload announces an experiment leaving pending. The
// full structured result rides along, message and metrics included.
type ExperimentResolvedPayload struct {
	ExperimentID string     `json:"experiment_id"`
	PlayerID     string     `json:"player_id"`
	Type         string     `json:"type"`
	Result       civ.Result `json:"result"`
}

// Observer receives simulation notifications. Implementations must be
// fast or hand off internally; the scheduler calls them inline.
type Observer interface {
	OnTick(TickPayload)
	OnYearUpdate(YearUpdatePayload)
	OnTechAdvancement(TechAdvancementPayload)
	OnMigration(MigrationPayload)
	OnConflict(ConflictPayload)
	OnNewEvent(NewEventPayload)
	OnExperimentResolved(ExperimentResolvedPayload)
}

// FanOut broadcasts notifications to several observers in order.
type FanOut []Observer

func (f FanOut) OnTick(p TickPayload) {
	for _, o := range f {
		o.OnTick(p)
	}
}

func (f FanOut) OnYearUpdate(p YearUpdatePayload) {
	for _, o := range f {
		o.OnYearUpdate(p)
	}
}

func (f FanOut) OnTechAdvancement(p TechAdvancementPayload) {
	for _, o := range f {
		o.OnTechAdvancement(p)
	}
}

func (f FanOut) OnMigration(p MigrationPayload) {
	for _, o := range f {
		o.OnMigration(p)
	}
}

func (f FanOut) OnConflict(p ConflictPayload) {
	for _, o := range f {
		o.OnConflict(p)
	}
}

func (f FanOut) OnNewEvent(p NewEventPayload) {
	for _, o := range f {
		o.OnNewEvent(p)
	}
}

func (f FanOut) OnExperimentResolved(p ExperimentResolvedPayload) {
	for _, o := range f {
		o.OnExperimentResolved(p)
	}
}

// LogObserver writes every notification to slog.
type LogObserver struct{}

func (LogObserver) OnTick(p TickPayload) {
	slog.Debug("tick", "tick", p.Tick, "year", p.Year, "year_end", p.IsYearEnd)
}

func (LogObserver) OnYearUpdate(p YearUpdatePayload) {
	slog.Info("year update",
		"year", p.Year,
		"total_population", p.Stats.TotalPopulation,
		"civilizations", p.Stats.NumCivilizations,
		"avg_tech", p.Stats.AvgTechLevel,
	)
}

func (LogObserver) OnTechAdvancement(p TechAdvancementPayload) {
	slog.Info("tech advancement",
		"civilization", p.CivilizationID, "tech_level", p.TechLevel, "cell", p.CellID)
}

func (LogObserver) OnMigration(p MigrationPayload) {
	slog.Info("migration",
		"from", p.FromCellID, "to", p.ToCellID,
		"migrants", p.Migrants, "civilization", p.CivilizationID)
}

func (LogObserver) OnConflict(p ConflictPayload) {
	slog.Info("conflict",
		"cell", p.CellID, "winner", p.WinnerCivID, "loser", p.LoserCivID,
		"winner_losses", p.WinnerLosses, "loser_losses", p.LoserLosses)
}

func (LogObserver) OnNewEvent(p NewEventPayload) {
	slog.Info("new event", "type", p.Type, "target", p.TargetID, "year", p.Year)
}

func (LogObserver) OnExperimentResolved(p ExperimentResolvedPayload) {
	slog.Info("experiment resolved",
		"experiment", p.ExperimentID, "player", p.PlayerID,
		"type", p.Type, "success", p.Result.Success, "message", p.Result.Message)
}

var _ Observer = FanOut(nil)
var _ Observer = LogObserver{}
