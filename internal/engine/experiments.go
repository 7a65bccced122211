// Experiment executor — consumes pending player interventions, applies
// their effects through a typed dispatch table, and settles reputation.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/talgya/civgrid/internal/civ"
)

// experimentEffect applies one experiment and returns its structured
// result. Returning an error marks the experiment failed; returning a
// Result with Success=false is a soft failure (resolved, unsuccessful).
type experimentEffect func(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error)

type effectKey struct {
	cat civ.ExperimentCategory
	typ civ.ExperimentType
}

// experimentEffects is the closed (category, type) dispatch table. Every
// catalogue entry has a handler; the executor cross-checks at startup.
var experimentEffects = map[effectKey]experimentEffect{
	{civ.CategoryBiological, civ.TypeSeedSpecies}:         applySeedSpecies,
	{civ.CategoryBiological, civ.TypeRewild}:              applyRewild,
	{civ.CategoryBiological, civ.TypePandemic}:            applyPandemic,
	{civ.CategoryTechnological, civ.TypeUplift}:           applyUplift,
	{civ.CategoryTechnological, civ.TypeSuppress}:         applySuppress,
	{civ.CategoryTechnological, civ.TypeGiftKnowledge}:    applyGiftKnowledge,
	{civ.CategorySociopolitical, civ.TypeIdeologyNudge}:   applyIdeologyNudge,
	{civ.CategorySociopolitical, civ.TypePropheticVision}: applyPropheticVision,
	{civ.CategorySociopolitical, civ.TypePolicyInsanity}:  applyPolicyInsanity,
	{civ.CategoryCatastrophic, civ.TypeMeteor}:            applyMeteor,
	{civ.CategoryCatastrophic, civ.TypeSupervolcano}:      applySupervolcano,
	{civ.CategoryCatastrophic, civ.TypeClimateEvent}:      applyClimateEvent,
	{civ.CategoryPlayful, civ.TypeCropCircles}:            applyCropCircles,
	{civ.CategoryPlayful, civ.TypeMiracle}:                applyMiracle,
	{civ.CategoryPlayful, civ.TypeTeleportSpecies}:        applyTeleportSpecies,
}

// executeExperiments consumes every pending experiment for the world.
// Each experiment settles independently: a failure marks that experiment
// failed and the pass moves on.
func (s *Simulation) executeExperiments(ctx context.Context, st *tickState) error {
	pending, err := s.store.ListPendingExperiments(ctx, s.world.ID)
	if err != nil {
		return fmt.Errorf("load pending experiments: %w", err)
	}

	for _, ex := range pending {
		result := s.executeOne(ctx, st, ex)

		status := civ.StatusResolved
		if result.err != nil {
			status = civ.StatusFailed
			slog.Error("experiment failed",
				"experiment", ex.ID, "type", ex.Type, "error", result.err)
		}

		payload, merr := json.Marshal(result.toPayload())
		if merr != nil {
			return fmt.Errorf("marshal experiment result %s: %w", ex.ID, merr)
		}
		if err := s.store.UpdateExperiment(ctx, ex.ID, status, payload); err != nil {
			return fmt.Errorf("settle experiment %s: %w", ex.ID, err)
		}

		// Reputation moves only on applied, successful effects.
		if status == civ.StatusResolved && result.res.Success {
			delta := civ.ReputationFor(ex.Category)
			if err := s.store.UpdatePlayerReputation(ctx, ex.PlayerID, delta); err != nil {
				return fmt.Errorf("player reputation %s: %w", ex.PlayerID, err)
			}
		}

		s.obs.OnExperimentResolved(ExperimentResolvedPayload{
			ExperimentID: ex.ID,
			PlayerID:     ex.PlayerID,
			Type:         string(ex.Type),
			Result:       result.toPayload(),
		})
	}
	return nil
}

type experimentOutcome struct {
	res civ.Result
	err error
}

func (o experimentOutcome) toPayload() civ.Result {
	if o.err != nil {
		return civ.Result{Success: false, Message: o.err.Error()}
	}
	return o.res
}

// executeOne dispatches a single experiment. An unknown type inside a
// known category is a soft failure; an unknown category should have been
// rejected at submission and fails hard here.
func (s *Simulation) executeOne(ctx context.Context, st *tickState, ex *civ.Experiment) experimentOutcome {
	if !civ.ValidCategory(ex.Category) {
		return experimentOutcome{err: fmt.Errorf("unknown experiment category %q", ex.Category)}
	}
	effect, ok := experimentEffects[effectKey{ex.Category, ex.Type}]
	if !ok {
		return experimentOutcome{res: civ.Result{
			Success: false,
			Message: fmt.Sprintf("unknown experiment type %q in category %q", ex.Type, ex.Category),
		}}
	}
	res, err := effect(ctx, s, st, ex)
	return experimentOutcome{res: res, err: err}
}
