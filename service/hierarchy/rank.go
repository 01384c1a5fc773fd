package hierarchy

import (
	"fmt"
	"sort"
)

// RankID identifies one rank in the static hierarchy table.
type RankID string

// RankDefinition is one row of the static rank table. Ordinal positions a
// rank in the linear hierarchy; PromotionCeiling declares how far the rank's
// authority to act on others reaches, which is independent of (and may be
// lower than) its own ordinal.
type RankDefinition struct {
	ID               RankID `json:"id" yaml:"id"`
	Name             string `json:"name,omitempty" yaml:"name,omitempty"`
	Ordinal          int    `json:"ordinal" yaml:"ordinal"`
	PromotionCeiling int    `json:"promotionCeiling" yaml:"promotionCeiling"`
	// MinDaysSincePromotion is the cooldown a member must serve at this rank
	// before being promoted out of it.
	MinDaysSincePromotion int `json:"minDaysSincePromotion,omitempty" yaml:"minDaysSincePromotion,omitempty"`
}

// Table holds the rank definitions, resolved once at configuration load and
// read-only afterwards, so lookups never touch an external directory.
type Table struct {
	byID    map[RankID]*RankDefinition
	ordered []*RankDefinition // ascending by Ordinal
}

// NewTable builds a table from definitions, rejecting duplicate ids and
// duplicate ordinals.
func NewTable(definitions []*RankDefinition) (*Table, error) {
	if len(definitions) == 0 {
		return nil, fmt.Errorf("hierarchy: empty rank table")
	}
	byID := make(map[RankID]*RankDefinition, len(definitions))
	byOrdinal := make(map[int]RankID, len(definitions))
	ordered := make([]*RankDefinition, 0, len(definitions))
	for _, definition := range definitions {
		if definition == nil || definition.ID == "" {
			return nil, fmt.Errorf("hierarchy: rank without id")
		}
		if _, ok := byID[definition.ID]; ok {
			return nil, fmt.Errorf("hierarchy: duplicate rank id %q", definition.ID)
		}
		if prev, ok := byOrdinal[definition.Ordinal]; ok {
			return nil, fmt.Errorf("hierarchy: ranks %q and %q share ordinal %d", prev, definition.ID, definition.Ordinal)
		}
		byID[definition.ID] = definition
		byOrdinal[definition.Ordinal] = definition.ID
		ordered = append(ordered, definition)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Ordinal < ordered[j].Ordinal })
	return &Table{byID: byID, ordered: ordered}, nil
}

// Lookup returns the definition for id, or nil when unrecognized.
func (t *Table) Lookup(id RankID) *RankDefinition {
	return t.byID[id]
}

// Ranks returns all definitions in ascending ordinal order.
func (t *Table) Ranks() []*RankDefinition {
	return append([]*RankDefinition(nil), t.ordered...)
}

// Len returns the number of defined ranks.
func (t *Table) Len() int { return len(t.ordered) }
