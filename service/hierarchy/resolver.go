package hierarchy

import (
	"time"

	"github.com/guildware/quorum/internal/clock"
)

// The resolver functions are pure reads over the static table; they never
// mutate state and are safe for concurrent use without locks.

// HighestRank picks the held rank with the greatest ordinal. Unrecognized
// ids are skipped; nil is returned when none of the held ids is known.
func (t *Table) HighestRank(held []RankID) *RankDefinition {
	var highest *RankDefinition
	for _, id := range held {
		definition := t.byID[id]
		if definition == nil {
			continue
		}
		if highest == nil || definition.Ordinal > highest.Ordinal {
			highest = definition
		}
	}
	return highest
}

// CanActOn reports whether an actor holding actorHeld may act on a member at
// target rank: the target ordinal must not exceed the actor's promotion
// ceiling, and a rank never acts on itself. A rank's own seniority grants no
// authority by itself - only the declared ceiling counts.
func (t *Table) CanActOn(actorHeld []RankID, target RankID) bool {
	highest := t.HighestRank(actorHeld)
	targetDefinition := t.byID[target]
	if highest == nil || targetDefinition == nil {
		return false
	}
	if highest.ID == targetDefinition.ID {
		return false
	}
	return targetDefinition.Ordinal <= highest.PromotionCeiling
}

// NextRank returns the definition with the smallest ordinal strictly greater
// than current's, or nil at the top of the hierarchy or for an unknown id.
func (t *Table) NextRank(current RankID) *RankDefinition {
	definition := t.byID[current]
	if definition == nil {
		return nil
	}
	for _, candidate := range t.ordered {
		if candidate.Ordinal > definition.Ordinal {
			return candidate
		}
	}
	return nil
}

// PreviousRank is the demotion counterpart of NextRank: the greatest ordinal
// strictly below current's.
func (t *Table) PreviousRank(current RankID) *RankDefinition {
	definition := t.byID[current]
	if definition == nil {
		return nil
	}
	for i := len(t.ordered) - 1; i >= 0; i-- {
		if t.ordered[i].Ordinal < definition.Ordinal {
			return t.ordered[i]
		}
	}
	return nil
}

// CooldownRemaining returns how much of the current rank's promotion
// cooldown is still outstanding, floored at zero. A zero lastPromotionAt
// means no prior promotion is on record and no cooldown applies.
func (t *Table) CooldownRemaining(lastPromotionAt time.Time, current RankID) time.Duration {
	definition := t.byID[current]
	if definition == nil || definition.MinDaysSincePromotion <= 0 || lastPromotionAt.IsZero() {
		return 0
	}
	required := time.Duration(definition.MinDaysSincePromotion) * 24 * time.Hour
	elapsed := clock.Now().Sub(lastPromotionAt)
	if elapsed >= required {
		return 0
	}
	return required - elapsed
}
