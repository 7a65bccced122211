// Experiment effect handlers. Each mutates targeted populations with a
// fixed magnitude and reports a structured result. Cells themselves are
// never mutated; cell-targeted effects act on the populations present.
package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/talgya/civgrid/internal/civ"
)

// Fixed effect magnitudes.
const (
	seedSpeciesGrowth     = 1.02
	seedSpeciesProsperity = 2
	rewildImpact          = 10
	rewildProsperity      = 1
	pandemicSurvival      = 0.85
	pandemicStability     = 10
	upliftEducation       = 10
	giftEducation         = 15
	nudgeMaxAmount        = 10
	visionStability       = 10
	visionTradition       = 5
	insanityStability     = 15
	insanityAuthority     = 10
	meteorSurvival        = 0.5
	meteorStability       = 20
	volcanoSurvival       = 0.3
	volcanoNeighborSurv   = 0.9
	volcanoProsperity     = 20
	climateSurvival       = 0.9
	climateProsperity     = 5
	cropCircleEducation   = 1
	cropCircleStability   = 1
	miracleProsperity     = 5
	miracleStability      = 5
	teleportShare         = 0.1
)

// cellTargets returns the living populations on an experiment's target
// cell, or a soft failure result when the target is empty or unknown.
func cellTargets(st *tickState, ex *civ.Experiment) ([]*civ.Population, *civ.Result) {
	cell, ok := st.cellByID[ex.TargetID]
	if !ok {
		return nil, &civ.Result{Success: false, Message: fmt.Sprintf("cell %s not found", ex.TargetID)}
	}
	pops := st.alivePopsAt(cell.Coord())
	if len(pops) == 0 {
		return nil, &civ.Result{Success: false, Message: "target cell is uninhabited"}
	}
	return pops, nil
}

// civTargets returns the living populations of an experiment's target
// civilization, or a soft failure result.
func civTargets(st *tickState, ex *civ.Experiment) ([]*civ.Population, *civ.Result) {
	if _, ok := st.civByID[ex.TargetID]; !ok {
		return nil, &civ.Result{Success: false, Message: fmt.Sprintf("civilization %s not found", ex.TargetID)}
	}
	pops := st.popsOfCiv(ex.TargetID)
	if len(pops) == 0 {
		return nil, &civ.Result{Success: false, Message: "civilization has no living populations"}
	}
	return pops, nil
}

// persistAll clamps and writes a batch of mutated populations.
func persistAll(ctx context.Context, s *Simulation, pops []*civ.Population) error {
	for _, p := range pops {
		p.Clamp()
		if err := s.store.UpdatePopulation(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func applySeedSpecies(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := cellTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	var gained int64
	for _, p := range pops {
		before := p.Size
		p.Size = floorCount(float64(p.Size) * seedSpeciesGrowth)
		p.Prosperity += seedSpeciesProsperity
		gained += p.Size - before
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "a new species takes root; the land grows bountiful",
		Metrics: map[string]float64{"population_gained": float64(gained)},
	}, nil
}

func applyRewild(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := cellTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	for _, p := range pops {
		p.EnvironmentalImpact -= rewildImpact
		if p.EnvironmentalImpact < 0 {
			p.EnvironmentalImpact = 0
		}
		p.Prosperity -= rewildProsperity
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "the wilderness reclaims its ground",
		Metrics: map[string]float64{"populations_affected": float64(len(pops))},
	}, nil
}

func applyPandemic(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := civTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	var lost int64
	for _, p := range pops {
		before := p.Size
		p.Size = floorCount(float64(p.Size) * pandemicSurvival)
		p.Stability -= pandemicStability
		lost += before - p.Size
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "a plague sweeps through the civilization",
		Metrics: map[string]float64{"deaths": float64(lost)},
	}, nil
}

func applyUplift(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := civTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	advanced := 0
	for _, p := range pops {
		if p.TechLevel < civ.MaxTechLevel {
			p.TechLevel++
			advanced++
		}
		p.Education += upliftEducation
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "strange insights arrive in dreams; the civilization leaps ahead",
		Metrics: map[string]float64{"populations_advanced": float64(advanced)},
	}, nil
}

// applySuppress is the one sanctioned way tech level decreases.
func applySuppress(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := civTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	regressed := 0
	for _, p := range pops {
		if p.TechLevel > 0 {
			p.TechLevel--
			regressed++
		}
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "libraries burn and techniques are forgotten",
		Metrics: map[string]float64{"populations_regressed": float64(regressed)},
	}, nil
}

func applyGiftKnowledge(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := civTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	for _, p := range pops {
		p.Education += giftEducation
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "scholars wake with answers to questions they never asked",
	}, nil
}

func applyIdeologyNudge(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	var params civ.IdeologyNudgeParams
	if err := json.Unmarshal(ex.Params, &params); err != nil {
		return civ.Result{Success: false, Message: "invalid ideology_nudge parameters"}, nil
	}
	if params.Amount > nudgeMaxAmount {
		params.Amount = nudgeMaxAmount
	}
	if params.Amount < -nudgeMaxAmount {
		params.Amount = -nudgeMaxAmount
	}

	pops, soft := civTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	for _, p := range pops {
		switch params.Axis {
		case "collectivism":
			p.Ideology.Collectivism += params.Amount
		case "tradition":
			p.Ideology.Tradition += params.Amount
		case "authoritarianism":
			p.Ideology.Authoritarianism += params.Amount
		case "xenophobia":
			p.Ideology.Xenophobia += params.Amount
		default:
			return civ.Result{Success: false, Message: fmt.Sprintf("unknown ideology axis %q", params.Axis)}, nil
		}
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: fmt.Sprintf("whispers shift the people's %s", params.Axis),
		Metrics: map[string]float64{"amount": params.Amount},
	}, nil
}

func applyPropheticVision(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := civTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	for _, p := range pops {
		p.Stability += visionStability
		p.Ideology.Tradition += visionTradition
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "a shared vision unites the faithful",
	}, nil
}

func applyPolicyInsanity(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := civTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	for _, p := range pops {
		p.Stability -= insanityStability
		p.Ideology.Authoritarianism += insanityAuthority
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "the rulers decree madness and call it law",
	}, nil
}

func applyMeteor(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := cellTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	var lost int64
	for _, p := range pops {
		before := p.Size
		p.Size = floorCount(float64(p.Size) * meteorSurvival)
		p.Stability -= meteorStability
		lost += before - p.Size
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "fire falls from the sky",
		Metrics: map[string]float64{"deaths": float64(lost)},
	}, nil
}

func applySupervolcano(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	cell, ok := st.cellByID[ex.TargetID]
	if !ok {
		return civ.Result{Success: false, Message: fmt.Sprintf("cell %s not found", ex.TargetID)}, nil
	}

	var affected []*civ.Population
	var lost int64

	for _, p := range st.alivePopsAt(cell.Coord()) {
		before := p.Size
		p.Size = floorCount(float64(p.Size) * volcanoSurvival)
		p.Prosperity -= volcanoProsperity
		lost += before - p.Size
		affected = append(affected, p)
	}
	// Ashfall reaches adjacent cells.
	for _, n := range st.adjacency.Neighbors(cell.Coord()) {
		for _, p := range st.alivePopsAt(n.Coord()) {
			before := p.Size
			p.Size = floorCount(float64(p.Size) * volcanoNeighborSurv)
			lost += before - p.Size
			affected = append(affected, p)
		}
	}
	if len(affected) == 0 {
		return civ.Result{Success: false, Message: "the eruption scorches empty land"}, nil
	}
	if err := persistAll(ctx, s, affected); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "the mountain opens and the sky goes dark",
		Metrics: map[string]float64{"deaths": float64(lost)},
	}, nil
}

func applyClimateEvent(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := cellTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	for _, p := range pops {
		p.Size = floorCount(float64(p.Size) * climateSurvival)
		p.Prosperity -= climateProsperity
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "the seasons turn hostile",
	}, nil
}

func applyCropCircles(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := cellTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	for _, p := range pops {
		p.Education += cropCircleEducation
		p.Stability -= cropCircleStability
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "strange patterns appear in the fields overnight",
	}, nil
}

func applyMiracle(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	pops, soft := cellTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}
	for _, p := range pops {
		p.Prosperity += miracleProsperity
		p.Stability += miracleStability
	}
	if err := persistAll(ctx, s, pops); err != nil {
		return civ.Result{}, err
	}
	return civ.Result{
		Success: true,
		Message: "an inexplicable blessing settles over the land",
	}, nil
}

// applyTeleportSpecies moves a tenth of each population on the target
// cell to the destination cell, merging with the civilization's existing
// population there or founding a new one (like migration).
func applyTeleportSpecies(ctx context.Context, s *Simulation, st *tickState, ex *civ.Experiment) (civ.Result, error) {
	var params civ.TeleportSpeciesParams
	if err := json.Unmarshal(ex.Params, &params); err != nil || params.DestinationCellID == "" {
		return civ.Result{Success: false, Message: "invalid teleport_species parameters"}, nil
	}
	dest, ok := st.cellByID[params.DestinationCellID]
	if !ok {
		return civ.Result{Success: false, Message: fmt.Sprintf("destination cell %s not found", params.DestinationCellID)}, nil
	}
	if !dest.Habitable() {
		return civ.Result{Success: false, Message: "destination cell is open ocean"}, nil
	}

	pops, soft := cellTargets(st, ex)
	if soft != nil {
		return *soft, nil
	}

	var moved int64
	for _, p := range pops {
		migrants := floorCount(teleportShare * float64(p.Size))
		if migrants == 0 {
			continue
		}
		if err := s.settleMigrants(ctx, st, p, dest, migrants); err != nil {
			return civ.Result{}, err
		}
		p.Size -= migrants
		if err := s.store.UpdatePopulation(ctx, p); err != nil {
			return civ.Result{}, err
		}
		moved += migrants
	}
	if moved == 0 {
		return civ.Result{Success: false, Message: "nothing worth teleporting"}, nil
	}
	return civ.Result{
		Success: true,
		Message: "entire herds vanish and reappear elsewhere",
		Metrics: map[string]float64{"moved": float64(moved)},
	}, nil
}
