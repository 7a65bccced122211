// Command meddler submits divine experiments against the running world.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"

	"github.com/talgya/civgrid/internal/civ"
	"github.com/talgya/civgrid/internal/persistence"
)

func main() {
	var (
		dbPath   = flag.String("db", "civgrid.db", "path to the world database")
		list     = flag.Bool("list", false, "print the experiment catalogue and exit")
		player   = flag.String("player", "", "submitting player id")
		category = flag.String("category", "", "experiment category")
		expType  = flag.String("type", "", "experiment type")
		target   = flag.String("target", "", "target cell or civilization id")
		axis     = flag.String("axis", "", "ideology axis (ideology_nudge only)")
		amount   = flag.Float64("amount", 0, "nudge amount (ideology_nudge only)")
		dest     = flag.String("dest", "", "destination cell id (teleport_species only)")
	)
	flag.Parse()

	if *list {
		printCatalogue()
		return
	}

	if err := submit(*dbPath, *player, *category, *expType, *target, *axis, *amount, *dest); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printCatalogue() {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CATEGORY\tTYPE\tTARGET\tCOST\tCOOLDOWN")
	for _, e := range civ.Catalogue() {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%ds\n",
			e.Category, e.Type, e.TargetType, e.Cost, e.CooldownSeconds)
	}
	w.Flush()
}

func submit(dbPath, player, category, expType, target, axis string, amount float64, dest string) error {
	if player == "" {
		return fmt.Errorf("-player is required")
	}
	if target == "" {
		return fmt.Errorf("-target is required")
	}

	entry, err := civ.ValidateSubmission(civ.ExperimentCategory(category), civ.ExperimentType(expType))
	if err != nil {
		return err
	}

	params, err := buildParams(entry.Type, axis, amount, dest)
	if err != nil {
		return err
	}

	store, err := persistence.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	ctx := context.Background()
	world, err := store.ActiveWorld(ctx)
	if err != nil {
		return fmt.Errorf("active world: %w", err)
	}

	ex := &civ.Experiment{
		ID:         uuid.NewString(),
		WorldID:    world.ID,
		PlayerID:   player,
		Category:   entry.Category,
		Type:       entry.Type,
		TargetType: entry.TargetType,
		TargetID:   target,
		Params:     params,
		Cost:       entry.Cost,
		Status:     civ.StatusPending,
	}
	if err := store.InsertExperiment(ctx, ex); err != nil {
		return fmt.Errorf("insert experiment: %w", err)
	}

	fmt.Printf("experiment %s queued: %s/%s on %s (cost %d)\n",
		ex.ID, ex.Category, ex.Type, ex.TargetID, ex.Cost)
	return nil
}

func buildParams(typ civ.ExperimentType, axis string, amount float64, dest string) (json.RawMessage, error) {
	switch typ {
	case civ.TypeIdeologyNudge:
		if axis == "" {
			return nil, fmt.Errorf("-axis is required for %s", typ)
		}
		return json.Marshal(civ.IdeologyNudgeParams{Axis: axis, Amount: amount})
	case civ.TypeTeleportSpecies:
		if dest == "" {
			return nil, fmt.Errorf("-dest is required for %s", typ)
		}
		return json.Marshal(civ.TeleportSpeciesParams{DestinationCellID: dest})
	default:
		return nil, nil
	}
}
