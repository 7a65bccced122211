package civ

import (
	"encoding/json"
	"fmt"
)

// ExperimentCategory groups experiment types. Categories carry the
// reputation weights applied to the submitting player on success.
type ExperimentCategory string

const (
	CategoryBiological     ExperimentCategory = "biological"
	CategoryTechnological  ExperimentCategory = "technological"
	CategorySociopolitical ExperimentCategory = "sociopolitical"
	CategoryCatastrophic   ExperimentCategory = "catastrophic"
	CategoryPlayful        ExperimentCategory = "playful"
)

// ExperimentType identifies one intervention within a category.
type ExperimentType string

const (
	// biological
	TypeSeedSpecies ExperimentType = "seed_species"
	TypeRewild      ExperimentType = "rewild"
	TypePandemic    ExperimentType = "pandemic"
	// technological
	TypeUplift        ExperimentType = "uplift"
	TypeSuppress      ExperimentType = "suppress"
	TypeGiftKnowledge ExperimentType = "gift_knowledge"
	// sociopolitical
	TypeIdeologyNudge   ExperimentType = "ideology_nudge"
	TypePropheticVision ExperimentType = "prophetic_vision"
	TypePolicyInsanity  ExperimentType = "policy_insanity"
	// catastrophic
	TypeMeteor       ExperimentType = "meteor"
	TypeSupervolcano ExperimentType = "supervolcano"
	TypeClimateEvent ExperimentType = "climate_event"
	// playful
	TypeCropCircles     ExperimentType = "crop_circles"
	TypeMiracle         ExperimentType = "miracle"
	TypeTeleportSpecies ExperimentType = "teleport_species"
)

// ExperimentStatus is the lifecycle state of an experiment. Transitions
// out of pending happen exactly once.
type ExperimentStatus string

const (
	StatusPending   ExperimentStatus = "pending"
	StatusResolved  ExperimentStatus = "resolved"
	StatusFailed    ExperimentStatus = "failed"
	StatusCancelled ExperimentStatus = "cancelled"
)

// TargetType says what an experiment is aimed at.
type TargetType string

const (
	TargetCell         TargetType = "cell"
	TargetCivilization TargetType = "civilization"
)

// Experiment is a player-submitted intervention, created pending by the
// submission layer and consumed by the executor.
type Experiment struct {
	ID       string             `json:"id"`
	WorldID  string             `json:"world_id"`
	PlayerID string             `json:"player_id"`
	Category ExperimentCategory `json:"category"`
	Type     ExperimentType     `json:"type"`

	TargetType TargetType      `json:"target_type"`
	TargetID   string          `json:"target_id"`
	Params     json.RawMessage `json:"parameters,omitempty"`

	Cost   int              `json:"cost"`
	Status ExperimentStatus `json:"status"`
	Result json.RawMessage  `json:"result,omitempty"`
}

// Result is the structured outcome of an experiment effect.
type Result struct {
	Success bool               `json:"success"`
	Message string             `json:"message"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// IdeologyNudgeParams is the typed payload for ideology_nudge.
type IdeologyNudgeParams struct {
	Axis   string  `json:"axis"` // collectivism | tradition | authoritarianism | xenophobia
	Amount float64 `json:"amount"`
}

// TeleportSpeciesParams is the typed payload for teleport_species.
type TeleportSpeciesParams struct {
	DestinationCellID string `json:"destination_cell_id"`
}

// CatalogueEntry describes one submittable experiment: its target kind,
// cost, and submission cooldown.
type CatalogueEntry struct {
	Category        ExperimentCategory `json:"category"`
	Type            ExperimentType     `json:"type"`
	TargetType      TargetType         `json:"target_type"`
	Cost            int                `json:"cost"`
	CooldownSeconds int                `json:"cooldown_seconds"`
}

// catalogue is the closed category → type table consumed by the
// submission layer and mirrored by the executor's dispatch table.
var catalogue = []CatalogueEntry{
	{CategoryBiological, TypeSeedSpecies, TargetCell, 50, 300},
	{CategoryBiological, TypeRewild, TargetCell, 40, 300},
	{CategoryBiological, TypePandemic, TargetCivilization, 200, 3600},
	{CategoryTechnological, TypeUplift, TargetCivilization, 150, 1800},
	{CategoryTechnological, TypeSuppress, TargetCivilization, 150, 1800},
	{CategoryTechnological, TypeGiftKnowledge, TargetCivilization, 80, 600},
	{CategorySociopolitical, TypeIdeologyNudge, TargetCivilization, 60, 600},
	{CategorySociopolitical, TypePropheticVision, TargetCivilization, 100, 900},
	{CategorySociopolitical, TypePolicyInsanity, TargetCivilization, 120, 1800},
	{CategoryCatastrophic, TypeMeteor, TargetCell, 300, 7200},
	{CategoryCatastrophic, TypeSupervolcano, TargetCell, 500, 14400},
	{CategoryCatastrophic, TypeClimateEvent, TargetCell, 250, 7200},
	{CategoryPlayful, TypeCropCircles, TargetCell, 20, 120},
	{CategoryPlayful, TypeMiracle, TargetCell, 30, 120},
	{CategoryPlayful, TypeTeleportSpecies, TargetCell, 50, 600},
}

// Catalogue returns the full submission table.
func Catalogue() []CatalogueEntry {
	out := make([]CatalogueEntry, len(catalogue))
	copy(out, catalogue)
	return out
}

// LookupCatalogue finds the entry for a (category, type) pair.
func LookupCatalogue(cat ExperimentCategory, typ ExperimentType) (CatalogueEntry, bool) {
	for _, e := range catalogue {
		if e.Category == cat && e.Type == typ {
			return e, true
		}
	}
	return CatalogueEntry{}, false
}

// ValidCategory reports whether cat is a known category.
func ValidCategory(cat ExperimentCategory) bool {
	switch cat {
	case CategoryBiological, CategoryTechnological, CategorySociopolitical,
		CategoryCatastrophic, CategoryPlayful:
		return true
	}
	return false
}

// ValidateSubmission checks a (category, type) pair against the catalogue
// and returns the entry for cost lookup.
func ValidateSubmission(cat ExperimentCategory, typ ExperimentType) (CatalogueEntry, error) {
	if !ValidCategory(cat) {
		return CatalogueEntry{}, fmt.Errorf("unknown experiment category %q", cat)
	}
	entry, ok := LookupCatalogue(cat, typ)
	if !ok {
		return CatalogueEntry{}, fmt.Errorf("unknown experiment type %q in category %q", typ, cat)
	}
	return entry, nil
}

// reputationWeights maps each category to the reputation applied to the
// submitting player when an experiment of that category succeeds.
var reputationWeights = map[ExperimentCategory]ReputationDelta{
	CategoryBiological:     {Benevolence: 1, Mischief: 0, Curiosity: 2},
	CategoryTechnological:  {Benevolence: 2, Mischief: 0, Curiosity: 1},
	CategorySociopolitical: {Benevolence: 0, Mischief: 1, Curiosity: 2},
	CategoryCatastrophic:   {Benevolence: 0, Mischief: 3, Curiosity: 1},
	CategoryPlayful:        {Benevolence: 0, Mischief: 2, Curiosity: 1},
}

// ReputationFor returns the per-category reputation weights.
func ReputationFor(cat ExperimentCategory) ReputationDelta {
	return reputationWeights[cat]
}
