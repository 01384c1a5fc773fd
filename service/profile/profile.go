// Package profile defines the persisted member record and the narrow store
// capability the engine commits through. The record is the one piece of
// mutable shared state in the core, so every mutation goes through a
// conditional update checked against an expected prior state.
package profile

import (
	"context"
	"time"

	"github.com/guildware/quorum/service/hierarchy"
)

// Profile is the persisted record of one community member.
type Profile struct {
	Identity        string           `json:"identity"`
	Alias           string           `json:"alias,omitempty"`
	CurrentRank     hierarchy.RankID `json:"currentRank,omitempty"`
	PendingRequest  string           `json:"pendingRequest,omitempty"` // id of the outstanding request, empty when none
	LastPromotionAt time.Time        `json:"lastPromotionAt,omitempty"`
	Medals          []string         `json:"medals,omitempty"`
	JoinedAt        time.Time        `json:"joinedAt,omitempty"`
}

// Patch lists the profile fields a conditional update wants to change; nil
// pointers leave the stored value untouched.
type Patch struct {
	CurrentRank     *hierarchy.RankID
	PendingRequest  *string
	LastPromotionAt *time.Time
	AddMedal        string
}

// Expect is the prior state a conditional update is checked against. Nil
// pointers mean "no expectation" for that field.
type Expect struct {
	PendingRequest *string
	CurrentRank    *hierarchy.RankID
}

// Store is the record-store capability. Update must be atomic: the
// expectation check and the patch application happen as one step, so two
// concurrent commits against the same record cannot both succeed.
type Store interface {
	Get(ctx context.Context, identity string) (*Profile, error)

	GetByAlias(ctx context.Context, alias string) (*Profile, error)

	Save(ctx context.Context, p *Profile) error

	// Update applies patch iff the stored profile matches expect; a mismatch
	// returns dao.ErrConflict and leaves the record untouched.
	Update(ctx context.Context, identity string, patch Patch, expect Expect) error
}

// Apply copies the patch onto p.
func (p *Profile) Apply(patch Patch) {
	if patch.CurrentRank != nil {
		p.CurrentRank = *patch.CurrentRank
	}
	if patch.PendingRequest != nil {
		p.PendingRequest = *patch.PendingRequest
	}
	if patch.LastPromotionAt != nil {
		p.LastPromotionAt = *patch.LastPromotionAt
	}
	if patch.AddMedal != "" {
		p.Medals = append(p.Medals, patch.AddMedal)
	}
}

// Matches reports whether p satisfies the expectation.
func (e Expect) Matches(p *Profile) bool {
	if p == nil {
		return false
	}
	if e.PendingRequest != nil && p.PendingRequest != *e.PendingRequest {
		return false
	}
	if e.CurrentRank != nil && p.CurrentRank != *e.CurrentRank {
		return false
	}
	return true
}
