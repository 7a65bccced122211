package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/world"
)

// Memory is an in-memory Store used by tests and throwaway worlds.
// Entities are deep-copied on the way in and out so callers never share
// structs with the store.
type Memory struct {
	mu          sync.Mutex
	worlds      map[string]*civ.World
	cells       map[string][]*world.Cell // worldID → cells
	cellByID    map[string]*world.Cell
	civs        map[string][]*civ.Civilization
	populations map[string]*civ.Population // popID → population
	events      map[string]*civ.Event
	experiments map[string]*civ.Experiment
	players     map[string]*civ.ReputationDelta
	snapshots   map[string][]*civ.Snapshot
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		worlds:      make(map[string]*civ.World),
		cells:       make(map[string][]*world.Cell),
		cellByID:    make(map[string]*world.Cell),
		civs:        make(map[string][]*civ.Civilization),
		populations: make(map[string]*civ.Population),
		events:      make(map[string]*civ.Event),
		experiments: make(map[string]*civ.Experiment),
		players:     make(map[string]*civ.ReputationDelta),
		snapshots:   make(map[string][]*civ.Snapshot),
	}
}

func (m *Memory) InsertWorld(_ context.Context, w *civ.World) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *w
	m.worlds[w.ID] = &cp
	return nil
}

func (m *Memory) ActiveWorld(_ context.Context) (*civ.World, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range m.worlds {
		if w.Status == civ.WorldStatusRunning {
			cp := *w
			return &cp, nil
		}
	}
	return nil, ErrNoActiveWorld
}

func (m *Memory) UpdateWorldCounters(_ context.Context, worldID string, tick, year int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.worlds[worldID]
	if !ok {
		return fmt.Errorf("world %s: %w", worldID, ErrNotFound)
	}
	w.CurrentTick = tick
	w.CurrentYear = year
	return nil
}

func (m *Memory) InsertCells(_ context.Context, cells []*world.Cell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cells {
		cp := *c
		m.cells[c.WorldID] = append(m.cells[c.WorldID], &cp)
		m.cellByID[c.ID] = &cp
	}
	return nil
}

func (m *Memory) ListCells(_ context.Context, worldID string) ([]*world.Cell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*world.Cell, 0, len(m.cells[worldID]))
	for _, c := range m.cells[worldID] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) InsertCivilization(_ context.Context, c *civ.Civilization) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.civs[c.WorldID] = append(m.civs[c.WorldID], &cp)
	return nil
}

func (m *Memory) ListCivilizations(_ context.Context, worldID string) ([]*civ.Civilization, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*civ.Civilization, 0, len(m.civs[worldID]))
	for _, c := range m.civs[worldID] {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (m *Memory) InsertPopulation(_ context.Context, p *civ.Population) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.populations[p.ID]; exists {
		return fmt.Errorf("population %s already exists", p.ID)
	}
	for _, other := range m.populations {
		if other.WorldID == p.WorldID && other.CellID == p.CellID &&
			other.CivilizationID == p.CivilizationID {
			return fmt.Errorf("population for cell %s civilization %s already exists",
				p.CellID, p.CivilizationID)
		}
	}
	cp := *p
	m.populations[p.ID] = &cp
	return nil
}

func (m *Memory) UpdatePopulation(_ context.Context, p *civ.Population) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.populations[p.ID]; !ok {
		return fmt.Errorf("population %s: %w", p.ID, ErrNotFound)
	}
	cp := *p
	m.populations[p.ID] = &cp
	return nil
}

func (m *Memory) ListPopulations(_ context.Context, worldID string) ([]*civ.Population, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*civ.Population
	for _, p := range m.populations {
		if p.WorldID != worldID {
			continue
		}
		cp := *p
		// Join in cell coordinates the way the SQL store does.
		if cell, ok := m.cellByID[p.CellID]; ok {
			cp.CellX = cell.X
			cp.CellY = cell.Y
		}
		out = append(out, &cp)
	}
	// Deterministic order for tests.
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpsertEvent(_ context.Context, e *civ.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	if e.EndTick != nil {
		end := *e.EndTick
		cp.EndTick = &end
	}
	m.events[e.ID] = &cp
	return nil
}

func (m *Memory) ListActiveEvents(_ context.Context, worldID string) ([]*civ.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*civ.Event
	for _, e := range m.events {
		if e.WorldID != worldID || !e.Active {
			continue
		}
		cp := *e
		if e.EndTick != nil {
			end := *e.EndTick
			cp.EndTick = &end
		}
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) InsertExperiment(_ context.Context, ex *civ.Experiment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.experiments[ex.ID]; exists {
		return fmt.Errorf("experiment %s already exists", ex.ID)
	}
	cp := *ex
	m.experiments[ex.ID] = &cp
	return nil
}

func (m *Memory) ListPendingExperiments(_ context.Context, worldID string) ([]*civ.Experiment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*civ.Experiment
	for _, ex := range m.experiments {
		if ex.WorldID != worldID || ex.Status != civ.StatusPending {
			continue
		}
		cp := *ex
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateExperiment(_ context.Context, id string, status civ.ExperimentStatus, result json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex, ok := m.experiments[id]
	if !ok {
		return fmt.Errorf("experiment %s: %w", id, ErrNotFound)
	}
	ex.Status = status
	ex.Result = append(json.RawMessage(nil), result...)
	return nil
}

func (m *Memory) UpdatePlayerReputation(_ context.Context, playerID string, delta civ.ReputationDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep, ok := m.players[playerID]
	if !ok {
		rep = &civ.ReputationDelta{}
		m.players[playerID] = rep
	}
	rep.Benevolence += delta.Benevolence
	rep.Mischief += delta.Mischief
	rep.Curiosity += delta.Curiosity
	return nil
}

func (m *Memory) AppendSnapshot(_ context.Context, s *civ.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.snapshots[s.WorldID] = append(m.snapshots[s.WorldID], &cp)
	return nil
}

func (m *Memory) RecentSnapshots(_ context.Context, worldID string, limit int) ([]*civ.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.snapshots[worldID]
	out := make([]*civ.Snapshot, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *all[i]
		out = append(out, &cp)
	}
	return out, nil
}

// Experiment returns an experiment by ID (test helper, not part of Store).
func (m *Memory) Experiment(id string) (*civ.Experiment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex, ok := m.experiments[id]
	if !ok {
		return nil, false
	}
	cp := *ex
	return &cp, true
}

// PlayerReputation returns accumulated reputation (test helper).
func (m *Memory) PlayerReputation(id string) civ.ReputationDelta {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rep, ok := m.players[id]; ok {
		return *rep
	}
	return civ.ReputationDelta{}
}

var _ Store = (*Memory)(nil)
var _ Store = (*SQLite)(nil)
