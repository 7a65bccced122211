package civ

import "encoding/json"

// EventScope says what kind of entity an event targets.
type EventScope string

const (
	ScopeCell         EventScope = "cell"
	ScopeCivilization EventScope = "civilization"
)

// EventType identifies an event's effect handler. The set is closed;
// unknown types are skipped with a warning during yearly processing.
type EventType string

const (
	EventGoldenAge   EventType = "golden_age"  // civilization: prosperity and education rise
	EventDarkAge     EventType = "dark_age"    // civilization: prosperity and stability fall
	EventRenaissance EventType = "renaissance" // civilization: education surges
	EventFamine      EventType = "famine"      // cell: population, prosperity, stability shrink
	EventPlague      EventType = "plague"      // cell: population shrinks
	EventConflict    EventType = "conflict"    // historical record of a resolved conflict
)

// RandomEventTypes is the catalogue drawn from when the event engine
// generates a spontaneous event. Only civilization-scoped types qualify,
// since random events target a randomly chosen civilization.
var RandomEventTypes = []EventType{EventGoldenAge, EventDarkAge, EventRenaissance}

// Scope returns the scope an event type applies to.
func (t EventType) Scope() EventScope {
	switch t {
	case EventFamine, EventPlague, EventConflict:
		return ScopeCell
	default:
		return ScopeCivilization
	}
}

// Event is a time-bounded world or civilization modifier. EndTick nil
// means indefinite; the event engine deactivates events past their end.
type Event struct {
	ID        string          `json:"id"`
	WorldID   string          `json:"world_id"`
	Type      EventType       `json:"type"`
	Scope     EventScope      `json:"scope"`
	TargetID  string          `json:"target_id"`
	Data      json.RawMessage `json:"data,omitempty"`
	StartTick int64           `json:"start_tick"`
	EndTick   *int64          `json:"end_tick,omitempty"`
	Active    bool            `json:"active"`
}

// Expired reports whether the event's end tick has passed.
func (e *Event) Expired(currentTick int64) bool {
	return e.EndTick != nil && currentTick >= *e.EndTick
}
