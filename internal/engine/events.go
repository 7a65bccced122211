// Event engine — yearly lifecycle of time-bounded world and civilization
// modifiers, plus random event generation.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/talgya/civgrid/internal/civ"
)

const (
	randomEventChance    = 0.001 // per year
	randomEventDurYears  = 10
	goldenAgeProsperity  = 0.5
	goldenAgeEducation   = 0.3
	darkAgeProsperity    = 0.5
	darkAgeStability     = 0.3
	renaissanceEducation = 1.0
	famineSizeFactor     = 0.99
	famineProsperity     = 1.0
	famineStability      = 0.5
	plagueSizeFactor     = 0.98
)

// eventEffect applies one year's worth of an active event.
type eventEffect func(ctx context.Context, s *Simulation, st *tickState, ev *civ.Event) error

// eventEffects dispatches event types to their handlers. Conflict records
// are inactive by construction and never reach this table.
var eventEffects = map[civ.EventType]eventEffect{
	civ.EventGoldenAge:   applyGoldenAge,
	civ.EventDarkAge:     applyDarkAge,
	civ.EventRenaissance: applyRenaissance,
	civ.EventFamine:      applyFamine,
	civ.EventPlague:      applyPlague,
}

// processEvents runs the yearly event pass: deactivate expired events,
// apply the rest, then maybe generate a new random event.
func (s *Simulation) processEvents(ctx context.Context, st *tickState) error {
	events, err := s.store.ListActiveEvents(ctx, s.world.ID)
	if err != nil {
		return fmt.Errorf("load active events: %w", err)
	}

	for _, ev := range events {
		if ev.Expired(st.tick) {
			ev.Active = false
			if err := s.store.UpsertEvent(ctx, ev); err != nil {
				return fmt.Errorf("deactivate event %s: %w", ev.ID, err)
			}
			slog.Debug("event expired", "event", ev.ID, "type", ev.Type)
			continue
		}

		effect, ok := eventEffects[ev.Type]
		if !ok {
			slog.Warn("unknown event type, skipping", "event", ev.ID, "type", ev.Type)
			continue
		}
		if err := effect(ctx, s, st, ev); err != nil {
			return fmt.Errorf("apply event %s (%s): %w", ev.ID, ev.Type, err)
		}
	}

	return s.maybeGenerateEvent(ctx, st)
}

// maybeGenerateEvent rolls the yearly random event chance and, on
// success, targets a random civilization with a bounded-duration event.
func (s *Simulation) maybeGenerateEvent(ctx context.Context, st *tickState) error {
	if s.rng.Float64() >= randomEventChance {
		return nil
	}
	if len(st.civs) == 0 {
		return nil
	}

	target := st.civs[s.rng.Intn(len(st.civs))]
	typ := civ.RandomEventTypes[s.rng.Intn(len(civ.RandomEventTypes))]
	end := st.tick + int64(randomEventDurYears*s.ticksPerYear)

	ev := &civ.Event{
		ID:        uuid.NewString(),
		WorldID:   s.world.ID,
		Type:      typ,
		Scope:     civ.ScopeCivilization,
		TargetID:  target.ID,
		StartTick: st.tick,
		EndTick:   &end,
		Active:    true,
	}
	if err := s.store.UpsertEvent(ctx, ev); err != nil {
		return fmt.Errorf("generate event: %w", err)
	}

	slog.Info("random event generated",
		"type", typ, "civilization", target.Name, "until_tick", end)
	s.obs.OnNewEvent(NewEventPayload{
		Type:     string(typ),
		TargetID: target.ID,
		Year:     st.year,
	})
	return nil
}

// updateCivPops applies fn to every living population of the event's
// target civilization and persists the changes.
func updateCivPops(ctx context.Context, s *Simulation, st *tickState, civID string, fn func(*civ.Population)) error {
	for _, p := range st.popsOfCiv(civID) {
		fn(p)
		p.Clamp()
		if err := s.store.UpdatePopulation(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// updateCellPops applies fn to every living population on the event's
// target cell and persists the changes.
func updateCellPops(ctx context.Context, s *Simulation, st *tickState, cellID string, fn func(*civ.Population)) error {
	cell, ok := st.cellByID[cellID]
	if !ok {
		return nil // target cell no longer part of the world
	}
	for _, p := range st.alivePopsAt(cell.Coord()) {
		fn(p)
		p.Clamp()
		if err := s.store.UpdatePopulation(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func applyGoldenAge(ctx context.Context, s *Simulation, st *tickState, ev *civ.Event) error {
	return updateCivPops(ctx, s, st, ev.TargetID, func(p *civ.Population) {
		p.Prosperity += goldenAgeProsperity
		p.Education += goldenAgeEducation
	})
}

func applyDarkAge(ctx context.Context, s *Simulation, st *tickState, ev *civ.Event) error {
	return updateCivPops(ctx, s, st, ev.TargetID, func(p *civ.Population) {
		p.Prosperity -= darkAgeProsperity
		p.Stability -= darkAgeStability
	})
}

func applyRenaissance(ctx context.Context, s *Simulation, st *tickState, ev *civ.Event) error {
	return updateCivPops(ctx, s, st, ev.TargetID, func(p *civ.Population) {
		p.Education += renaissanceEducation
	})
}

func applyFamine(ctx context.Context, s *Simulation, st *tickState, ev *civ.Event) error {
	return updateCellPops(ctx, s, st, ev.TargetID, func(p *civ.Population) {
		p.Size = floorCount(float64(p.Size) * famineSizeFactor)
		p.Prosperity -= famineProsperity
		p.Stability -= famineStability
	})
}

func applyPlague(ctx context.Context, s *Simulation, st *tickState, ev *civ.Event) error {
	return updateCellPops(ctx, s, st, ev.TargetID, func(p *civ.Population) {
		p.Size = floorCount(float64(p.Size) * plagueSizeFactor)
	})
}
