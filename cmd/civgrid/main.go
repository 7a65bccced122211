// Command civgrid runs the civilization grid simulation daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/config"
	"github.com/talgya/civgrid/internal/engine"
	"github.com/talgya/civgrid/internal/entropy"
	"github.com/talgya/civgrid/internal/persistence"
	"github.com/talgya/civgrid/internal/world"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	store, err := persistence.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	rng := entropy.NewSeeded(cfg.Seed)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := loadOrCreateWorld(ctx, store, cfg, rng)
	if err != nil {
		return err
	}

	if err := logWorldSummary(ctx, store, w); err != nil {
		return err
	}

	sim := engine.NewSimulation(store, w, rng, engine.LogObserver{}, cfg.TicksPerYear)
	sched := engine.NewScheduler(sim, cfg.TickInterval)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	slog.Info("simulation running",
		"tick_interval", cfg.TickInterval,
		"ticks_per_year", cfg.TicksPerYear,
		"from_tick", w.CurrentTick,
	)

	<-ctx.Done()
	slog.Info("shutting down")
	sched.Stop()
	slog.Info("stopped", "tick", w.CurrentTick, "year", w.CurrentYear)
	return nil
}

// loadOrCreateWorld restores the active world if one exists, otherwise
// runs genesis.
func loadOrCreateWorld(ctx context.Context, store persistence.Store, cfg config.Config, rng entropy.Source) (*civ.World, error) {
	w, err := store.ActiveWorld(ctx)
	switch {
	case err == nil:
		slog.Info("resuming world",
			"world", w.ID, "name", w.Name,
			"tick", w.CurrentTick, "year", w.CurrentYear)
		return w, nil
	case errors.Is(err, persistence.ErrNoActiveWorld):
		slog.Info("no active world, running genesis", "name", cfg.WorldName)
		gen := world.DefaultGenConfig()
		gen.Width = cfg.WorldWidth
		gen.Height = cfg.WorldHeight
		gen.Continents = cfg.Continents
		gen.WaterCoverage = cfg.WaterCoverage
		gen.Seed = cfg.Seed
		return engine.Genesis(ctx, store, engine.GenesisConfig{
			Name:          cfg.WorldName,
			Civilizations: cfg.Civilizations,
			Generation:    gen,
		}, rng)
	default:
		return nil, fmt.Errorf("load active world: %w", err)
	}
}

func logWorldSummary(ctx context.Context, store persistence.Store, w *civ.World) error {
	pops, err := store.ListPopulations(ctx, w.ID)
	if err != nil {
		return fmt.Errorf("list populations: %w", err)
	}
	civs, err := store.ListCivilizations(ctx, w.ID)
	if err != nil {
		return fmt.Errorf("list civilizations: %w", err)
	}

	var total int64
	for _, p := range pops {
		if p.Alive() {
			total += p.Size
		}
	}
	slog.Info("world state",
		"civilizations", len(civs),
		"settlements", len(pops),
		"total_population", humanize.Comma(total),
	)
	return nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
