// Package persistence provides world state storage. The engine depends
// only on the Store interface; SQLite backs production and a memory
// implementation backs tests.
package persistence

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/world"
)

// ErrNoActiveWorld is returned when no world is in running status.
var ErrNoActiveWorld = errors.New("no active world")

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Store is the world-state contract consumed by the engine. Access is
// read-then-write per entity; callers guarantee no concurrent ticks, so
// implementations only need to be safe for that sequential pattern plus
// concurrent experiment submission.
type Store interface {
	// Worlds.
	InsertWorld(ctx context.Context, w *civ.World) error
	ActiveWorld(ctx context.Context) (*civ.World, error)
	UpdateWorldCounters(ctx context.Context, worldID string, tick, year int64) error

	// Cells (immutable after generation).
	InsertCells(ctx context.Context, cells []*world.Cell) error
	ListCells(ctx context.Context, worldID string) ([]*world.Cell, error)

	// Civilizations.
	InsertCivilization(ctx context.Context, c *civ.Civilization) error
	ListCivilizations(ctx context.Context, worldID string) ([]*civ.Civilization, error)

	// Populations, joined with cell coordinates on load.
	InsertPopulation(ctx context.Context, p *civ.Population) error
	UpdatePopulation(ctx context.Context, p *civ.Population) error
	ListPopulations(ctx context.Context, worldID string) ([]*civ.Population, error)

	// Events.
	UpsertEvent(ctx context.Context, e *civ.Event) error
	ListActiveEvents(ctx context.Context, worldID string) ([]*civ.Event, error)

	// Experiments.
	InsertExperiment(ctx context.Context, ex *civ.Experiment) error
	ListPendingExperiments(ctx context.Context, worldID string) ([]*civ.Experiment, error)
	UpdateExperiment(ctx context.Context, id string, status civ.ExperimentStatus, result json.RawMessage) error

	// Players.
	UpdatePlayerReputation(ctx context.Context, playerID string, delta civ.ReputationDelta) error

	// Snapshots (append-only).
	AppendSnapshot(ctx context.Context, s *civ.Snapshot) error
	RecentSnapshots(ctx context.Context, worldID string, limit int) ([]*civ.Snapshot, error)
}
