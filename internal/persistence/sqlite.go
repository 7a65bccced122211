package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/world"
)

// SQLite implements Store on a SQLite database.
type SQLite struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*SQLite, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &SQLite{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *SQLite) Close() error {
	return db.conn.Close()
}

func (db *SQLite) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS worlds (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		current_tick INTEGER NOT NULL,
		current_year INTEGER NOT NULL,
		status TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS cells (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		biome TEXT NOT NULL,
		food_capacity REAL NOT NULL,
		temperature REAL NOT NULL,
		moisture REAL NOT NULL,
		UNIQUE (world_id, x, y)
	);

	CREATE TABLE IF NOT EXISTS civilizations (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL,
		name TEXT NOT NULL,
		color TEXT NOT NULL,
		capital_cell_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS populations (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL,
		cell_id TEXT NOT NULL,
		civilization_id TEXT NOT NULL,
		population_size INTEGER NOT NULL,
		tech_level INTEGER NOT NULL,
		stability REAL NOT NULL,
		prosperity REAL NOT NULL,
		education REAL NOT NULL,
		birth_rate REAL NOT NULL,
		death_rate REAL NOT NULL,
		collectivism REAL NOT NULL,
		tradition REAL NOT NULL,
		authoritarianism REAL NOT NULL,
		xenophobia REAL NOT NULL,
		war_tendency REAL NOT NULL,
		resource_efficiency REAL NOT NULL,
		environmental_impact REAL NOT NULL,
		UNIQUE (world_id, cell_id, civilization_id)
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL,
		type TEXT NOT NULL,
		scope TEXT NOT NULL,
		target_id TEXT NOT NULL,
		data TEXT,
		start_tick INTEGER NOT NULL,
		end_tick INTEGER,
		active INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS experiments (
		id TEXT PRIMARY KEY,
		world_id TEXT NOT NULL,
		player_id TEXT NOT NULL,
		category TEXT NOT NULL,
		type TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT NOT NULL,
		parameters TEXT,
		cost INTEGER NOT NULL,
		status TEXT NOT NULL,
		result TEXT
	);

	CREATE TABLE IF NOT EXISTS players (
		id TEXT PRIMARY KEY,
		benevolence REAL NOT NULL DEFAULT 0,
		mischief REAL NOT NULL DEFAULT 0,
		curiosity REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		world_id TEXT NOT NULL,
		tick INTEGER NOT NULL,
		year INTEGER NOT NULL,
		total_population INTEGER NOT NULL,
		num_civilizations INTEGER NOT NULL,
		avg_tech_level REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cells_world ON cells(world_id);
	CREATE INDEX IF NOT EXISTS idx_populations_world ON populations(world_id);
	CREATE INDEX IF NOT EXISTS idx_events_world_active ON events(world_id, active);
	CREATE INDEX IF NOT EXISTS idx_experiments_world_status ON experiments(world_id, status);
	CREATE INDEX IF NOT EXISTS idx_snapshots_world_year ON snapshots(world_id, year);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// InsertWorld creates a world row.
func (db *SQLite) InsertWorld(ctx context.Context, w *civ.World) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO worlds (id, name, current_tick, current_year, status)
		 VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.CurrentTick, w.CurrentYear, string(w.Status),
	)
	if err != nil {
		return fmt.Errorf("insert world %s: %w", w.ID, err)
	}
	return nil
}

// ActiveWorld returns the single world in running status.
func (db *SQLite) ActiveWorld(ctx context.Context) (*civ.World, error) {
	var row struct {
		ID          string `db:"id"`
		Name        string `db:"name"`
		CurrentTick int64  `db:"current_tick"`
		CurrentYear int64  `db:"current_year"`
		Status      string `db:"status"`
	}
	err := db.conn.GetContext(ctx, &row,
		`SELECT id, name, current_tick, current_year, status
		 FROM worlds WHERE status = ? LIMIT 1`, string(civ.WorldStatusRunning))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoActiveWorld
	}
	if err != nil {
		return nil, fmt.Errorf("active world: %w", err)
	}
	return &civ.World{
		ID:          row.ID,
		Name:        row.Name,
		CurrentTick: row.CurrentTick,
		CurrentYear: row.CurrentYear,
		Status:      civ.WorldStatus(row.Status),
	}, nil
}

// UpdateWorldCounters persists the tick and year counters.
func (db *SQLite) UpdateWorldCounters(ctx context.Context, worldID string, tick, year int64) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE worlds SET current_tick = ?, current_year = ? WHERE id = ?`,
		tick, year, worldID,
	)
	if err != nil {
		return fmt.Errorf("update world counters: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update world counters %s: %w", worldID, ErrNotFound)
	}
	return nil
}

// InsertCells writes the generated cell grid in one transaction.
func (db *SQLite) InsertCells(ctx context.Context, cells []*world.Cell) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `INSERT INTO cells
		(id, world_id, x, y, lat, lon, biome, food_capacity, temperature, moisture)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range cells {
		_, err := stmt.ExecContext(ctx,
			c.ID, c.WorldID, c.X, c.Y, c.Lat, c.Lon,
			string(c.Biome), c.FoodCapacity, c.Temperature, c.Moisture,
		)
		if err != nil {
			return fmt.Errorf("insert cell %s: %w", c.Coord(), err)
		}
	}
	return tx.Commit()
}

type cellRow struct {
	ID           string  `db:"id"`
	WorldID      string  `db:"world_id"`
	X            int     `db:"x"`
	Y            int     `db:"y"`
	Lat          float64 `db:"lat"`
	Lon          float64 `db:"lon"`
	Biome        string  `db:"biome"`
	FoodCapacity float64 `db:"food_capacity"`
	Temperature  float64 `db:"temperature"`
	Moisture     float64 `db:"moisture"`
}

// ListCells returns all cells for a world.
func (db *SQLite) ListCells(ctx context.Context, worldID string) ([]*world.Cell, error) {
	var rows []cellRow
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT id, world_id, x, y, lat, lon, biome, food_capacity, temperature, moisture
		 FROM cells WHERE world_id = ?`, worldID)
	if err != nil {
		return nil, fmt.Errorf("list cells: %w", err)
	}
	cells := make([]*world.Cell, len(rows))
	for i, r := range rows {
		cells[i] = &world.Cell{
			ID:           r.ID,
			WorldID:      r.WorldID,
			X:            r.X,
			Y:            r.Y,
			Lat:          r.Lat,
			Lon:          r.Lon,
			Biome:        world.Biome(r.Biome),
			FoodCapacity: r.FoodCapacity,
			Temperature:  r.Temperature,
			Moisture:     r.Moisture,
		}
	}
	return cells, nil
}

// InsertCivilization creates a civilization row.
func (db *SQLite) InsertCivilization(ctx context.Context, c *civ.Civilization) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO civilizations (id, world_id, name, color, capital_cell_id)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.WorldID, c.Name, c.Color, c.CapitalCellID,
	)
	if err != nil {
		return fmt.Errorf("insert civilization %s: %w", c.Name, err)
	}
	return nil
}

// ListCivilizations returns all civilizations of a world.
func (db *SQLite) ListCivilizations(ctx context.Context, worldID string) ([]*civ.Civilization, error) {
	var rows []struct {
		ID            string `db:"id"`
		WorldID       string `db:"world_id"`
		Name          string `db:"name"`
		Color         string `db:"color"`
		CapitalCellID string `db:"capital_cell_id"`
	}
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT id, world_id, name, color, capital_cell_id
		 FROM civilizations WHERE world_id = ?`, worldID)
	if err != nil {
		return nil, fmt.Errorf("list civilizations: %w", err)
	}
	civs := make([]*civ.Civilization, len(rows))
	for i, r := range rows {
		civs[i] = &civ.Civilization{
			ID:            r.ID,
			WorldID:       r.WorldID,
			Name:          r.Name,
			Color:         r.Color,
			CapitalCellID: r.CapitalCellID,
		}
	}
	return civs, nil
}

type populationRow struct {
	ID                  string  `db:"id"`
	WorldID             string  `db:"world_id"`
	CellID              string  `db:"cell_id"`
	CivilizationID      string  `db:"civilization_id"`
	CellX               int     `db:"cell_x"`
	CellY               int     `db:"cell_y"`
	Size                int64   `db:"population_size"`
	TechLevel           int     `db:"tech_level"`
	Stability           float64 `db:"stability"`
	Prosperity          float64 `db:"prosperity"`
	Education           float64 `db:"education"`
	BirthRate           float64 `db:"birth_rate"`
	DeathRate           float64 `db:"death_rate"`
	Collectivism        float64 `db:"collectivism"`
	Tradition           float64 `db:"tradition"`
	Authoritarianism    float64 `db:"authoritarianism"`
	Xenophobia          float64 `db:"xenophobia"`
	WarTendency         float64 `db:"war_tendency"`
	ResourceEfficiency  float64 `db:"resource_efficiency"`
	EnvironmentalImpact float64 `db:"environmental_impact"`
}

func (r populationRow) toPopulation() *civ.Population {
	return &civ.Population{
		ID:             r.ID,
		WorldID:        r.WorldID,
		CellID:         r.CellID,
		CivilizationID: r.CivilizationID,
		CellX:          r.CellX,
		CellY:          r.CellY,
		Size:           r.Size,
		TechLevel:      r.TechLevel,
		Stability:      r.Stability,
		Prosperity:     r.Prosperity,
		Education:      r.Education,
		BirthRate:      r.BirthRate,
		DeathRate:      r.DeathRate,
		Ideology: civ.Ideology{
			Collectivism:     r.Collectivism,
			Tradition:        r.Tradition,
			Authoritarianism: r.Authoritarianism,
			Xenophobia:       r.Xenophobia,
		},
		WarTendency:         r.WarTendency,
		ResourceEfficiency:  r.ResourceEfficiency,
		EnvironmentalImpact: r.EnvironmentalImpact,
	}
}

// InsertPopulation creates a population row.
func (db *SQLite) InsertPopulation(ctx context.Context, p *civ.Population) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO populations
		(id, world_id, cell_id, civilization_id, population_size, tech_level,
		 stability, prosperity, education, birth_rate, death_rate,
		 collectivism, tradition, authoritarianism, xenophobia,
		 war_tendency, resource_efficiency, environmental_impact)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.WorldID, p.CellID, p.CivilizationID, p.Size, p.TechLevel,
		p.Stability, p.Prosperity, p.Education, p.BirthRate, p.DeathRate,
		p.Ideology.Collectivism, p.Ideology.Tradition,
		p.Ideology.Authoritarianism, p.Ideology.Xenophobia,
		p.WarTendency, p.ResourceEfficiency, p.EnvironmentalImpact,
	)
	if err != nil {
		return fmt.Errorf("insert population %s: %w", p.ID, err)
	}
	return nil
}

// UpdatePopulation writes every mutable population field.
func (db *SQLite) UpdatePopulation(ctx context.Context, p *civ.Population) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE populations SET
		population_size = ?, tech_level = ?, stability = ?, prosperity = ?,
		education = ?, birth_rate = ?, death_rate = ?,
		collectivism = ?, tradition = ?, authoritarianism = ?, xenophobia = ?,
		war_tendency = ?, resource_efficiency = ?, environmental_impact = ?
		WHERE id = ?`,
		p.Size, p.TechLevel, p.Stability, p.Prosperity,
		p.Education, p.BirthRate, p.DeathRate,
		p.Ideology.Collectivism, p.Ideology.Tradition,
		p.Ideology.Authoritarianism, p.Ideology.Xenophobia,
		p.WarTendency, p.ResourceEfficiency, p.EnvironmentalImpact,
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("update population %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update population %s: %w", p.ID, ErrNotFound)
	}
	return nil
}

// ListPopulations returns all populations of a world joined with their
// cell coordinates.
func (db *SQLite) ListPopulations(ctx context.Context, worldID string) ([]*civ.Population, error) {
	var rows []populationRow
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT p.id, p.world_id, p.cell_id, p.civilization_id,
		        c.x AS cell_x, c.y AS cell_y,
		        p.population_size, p.tech_level, p.stability, p.prosperity,
		        p.education, p.birth_rate, p.death_rate,
		        p.collectivism, p.tradition, p.authoritarianism, p.xenophobia,
		        p.war_tendency, p.resource_efficiency, p.environmental_impact
		 FROM populations p
		 JOIN cells c ON c.id = p.cell_id
		 WHERE p.world_id = ?`, worldID)
	if err != nil {
		return nil, fmt.Errorf("list populations: %w", err)
	}
	pops := make([]*civ.Population, len(rows))
	for i, r := range rows {
		pops[i] = r.toPopulation()
	}
	return pops, nil
}

// UpsertEvent inserts or replaces an event row.
func (db *SQLite) UpsertEvent(ctx context.Context, e *civ.Event) error {
	var data any
	if len(e.Data) > 0 {
		data = string(e.Data)
	}
	_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO events
		(id, world_id, type, scope, target_id, data, start_tick, end_tick, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.WorldID, string(e.Type), string(e.Scope), e.TargetID,
		data, e.StartTick, e.EndTick, boolToInt(e.Active),
	)
	if err != nil {
		return fmt.Errorf("upsert event %s: %w", e.ID, err)
	}
	return nil
}

type eventRow struct {
	ID        string         `db:"id"`
	WorldID   string         `db:"world_id"`
	Type      string         `db:"type"`
	Scope     string         `db:"scope"`
	TargetID  string         `db:"target_id"`
	Data      sql.NullString `db:"data"`
	StartTick int64          `db:"start_tick"`
	EndTick   *int64         `db:"end_tick"`
	Active    int            `db:"active"`
}

// ListActiveEvents returns events still flagged active for a world.
func (db *SQLite) ListActiveEvents(ctx context.Context, worldID string) ([]*civ.Event, error) {
	var rows []eventRow
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT id, world_id, type, scope, target_id, data, start_tick, end_tick, active
		 FROM events WHERE world_id = ? AND active = 1`, worldID)
	if err != nil {
		return nil, fmt.Errorf("list active events: %w", err)
	}
	events := make([]*civ.Event, len(rows))
	for i, r := range rows {
		ev := &civ.Event{
			ID:        r.ID,
			WorldID:   r.WorldID,
			Type:      civ.EventType(r.Type),
			Scope:     civ.EventScope(r.Scope),
			TargetID:  r.TargetID,
			StartTick: r.StartTick,
			EndTick:   r.EndTick,
			Active:    r.Active != 0,
		}
		if r.Data.Valid {
			ev.Data = json.RawMessage(r.Data.String)
		}
		events[i] = ev
	}
	return events, nil
}

// InsertExperiment creates an experiment row (submission layer).
func (db *SQLite) InsertExperiment(ctx context.Context, ex *civ.Experiment) error {
	var params any
	if len(ex.Params) > 0 {
		params = string(ex.Params)
	}
	_, err := db.conn.ExecContext(ctx, `INSERT INTO experiments
		(id, world_id, player_id, category, type, target_type, target_id,
		 parameters, cost, status, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
		ex.ID, ex.WorldID, ex.PlayerID, string(ex.Category), string(ex.Type),
		string(ex.TargetType), ex.TargetID, params, ex.Cost, string(ex.Status),
	)
	if err != nil {
		return fmt.Errorf("insert experiment %s: %w", ex.ID, err)
	}
	return nil
}

type experimentRow struct {
	ID         string         `db:"id"`
	WorldID    string         `db:"world_id"`
	PlayerID   string         `db:"player_id"`
	Category   string         `db:"category"`
	Type       string         `db:"type"`
	TargetType string         `db:"target_type"`
	TargetID   string         `db:"target_id"`
	Parameters sql.NullString `db:"parameters"`
	Cost       int            `db:"cost"`
	Status     string         `db:"status"`
	Result     sql.NullString `db:"result"`
}

// ListPendingExperiments returns experiments awaiting execution.
func (db *SQLite) ListPendingExperiments(ctx context.Context, worldID string) ([]*civ.Experiment, error) {
	var rows []experimentRow
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT id, world_id, player_id, category, type, target_type, target_id,
		        parameters, cost, status, result
		 FROM experiments WHERE world_id = ? AND status = ?`,
		worldID, string(civ.StatusPending))
	if err != nil {
		return nil, fmt.Errorf("list pending experiments: %w", err)
	}
	exps := make([]*civ.Experiment, len(rows))
	for i, r := range rows {
		ex := &civ.Experiment{
			ID:         r.ID,
			WorldID:    r.WorldID,
			PlayerID:   r.PlayerID,
			Category:   civ.ExperimentCategory(r.Category),
			Type:       civ.ExperimentType(r.Type),
			TargetType: civ.TargetType(r.TargetType),
			TargetID:   r.TargetID,
			Cost:       r.Cost,
			Status:     civ.ExperimentStatus(r.Status),
		}
		if r.Parameters.Valid {
			ex.Params = json.RawMessage(r.Parameters.String)
		}
		if r.Result.Valid {
			ex.Result = json.RawMessage(r.Result.String)
		}
		exps[i] = ex
	}
	return exps, nil
}

// UpdateExperiment transitions an experiment out of pending with its
// result payload.
func (db *SQLite) UpdateExperiment(ctx context.Context, id string, status civ.ExperimentStatus, result json.RawMessage) error {
	var res any
	if len(result) > 0 {
		res = string(result)
	}
	r, err := db.conn.ExecContext(ctx,
		`UPDATE experiments SET status = ?, result = ? WHERE id = ?`,
		string(status), res, id,
	)
	if err != nil {
		return fmt.Errorf("update experiment %s: %w", id, err)
	}
	if n, _ := r.RowsAffected(); n == 0 {
		return fmt.Errorf("update experiment %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdatePlayerReputation accumulates reputation deltas, creating the
// player row on first use.
func (db *SQLite) UpdatePlayerReputation(ctx context.Context, playerID string, delta civ.ReputationDelta) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO players
		(id, benevolence, mischief, curiosity) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			benevolence = benevolence + excluded.benevolence,
			mischief = mischief + excluded.mischief,
			curiosity = curiosity + excluded.curiosity`,
		playerID, delta.Benevolence, delta.Mischief, delta.Curiosity,
	)
	if err != nil {
		return fmt.Errorf("update player reputation %s: %w", playerID, err)
	}
	return nil
}

// AppendSnapshot appends a yearly aggregate row.
func (db *SQLite) AppendSnapshot(ctx context.Context, s *civ.Snapshot) error {
	_, err := db.conn.ExecContext(ctx, `INSERT INTO snapshots
		(world_id, tick, year, total_population, num_civilizations, avg_tech_level)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.WorldID, s.Tick, s.Year, s.TotalPopulation, s.NumCivilizations, s.AvgTechLevel,
	)
	if err != nil {
		return fmt.Errorf("append snapshot: %w", err)
	}
	return nil
}

type snapshotRow struct {
	WorldID          string  `db:"world_id"`
	Tick             int64   `db:"tick"`
	Year             int64   `db:"year"`
	TotalPopulation  int64   `db:"total_population"`
	NumCivilizations int     `db:"num_civilizations"`
	AvgTechLevel     float64 `db:"avg_tech_level"`
}

// RecentSnapshots returns the most recent N snapshots, newest first.
func (db *SQLite) RecentSnapshots(ctx context.Context, worldID string, limit int) ([]*civ.Snapshot, error) {
	var rows []snapshotRow
	err := db.conn.SelectContext(ctx, &rows,
		`SELECT world_id, tick, year, total_population, num_civilizations, avg_tech_level
		 FROM snapshots WHERE world_id = ? ORDER BY tick DESC LIMIT ?`,
		worldID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent snapshots: %w", err)
	}
	snaps := make([]*civ.Snapshot, len(rows))
	for i, r := range rows {
		snaps[i] = &civ.Snapshot{
			WorldID:          r.WorldID,
			Tick:             r.Tick,
			Year:             r.Year,
			TotalPopulation:  r.TotalPopulation,
			NumCivilizations: r.NumCivilizations,
			AvgTechLevel:     r.AvgTechLevel,
		}
	}
	return snaps, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
