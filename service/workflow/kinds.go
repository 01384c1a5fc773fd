package workflow

import (
	"context"
	"fmt"

	"github.com/guildware/quorum/service/directory"
	"github.com/guildware/quorum/service/hierarchy"
	"github.com/guildware/quorum/service/profile"
)

// Built-in kind names.
const (
	KindPromotion = "promotion"
	KindDemotion  = "demotion"
	KindHire      = "hire"
	KindDischarge = "discharge"
	KindMedal     = "medal"
	KindTransfer  = "transfer"
)

// replaceRank swaps the target's directory rank for the proposed one. The
// assign runs first so a failure can never leave the member rankless.
func replaceRank(ctx context.Context, dir directory.Service, request *Request, target *profile.Profile) error {
	next := hierarchy.RankID(request.Proposed)
	if err := dir.AssignRank(ctx, request.Target, next); err != nil {
		return err
	}
	if target.CurrentRank != "" && target.CurrentRank != next {
		if err := dir.RemoveRank(ctx, request.Target, target.CurrentRank); err != nil {
			return err
		}
	}
	return nil
}

// rankPatch records the new current rank and clears the pending slot.
func rankPatch(request *Request, stampPromotion bool) profile.Patch {
	rank := hierarchy.RankID(request.Proposed)
	empty := ""
	patch := profile.Patch{CurrentRank: &rank, PendingRequest: &empty}
	if stampPromotion {
		decidedAt := *request.DecidedAt
		patch.LastPromotionAt = &decidedAt
	}
	return patch
}

// Promotion raises the target to the proposed rank. The actor's promotion
// ceiling is checked against the proposed rank, not the target's current
// one, and the target's cooldown applies.
func Promotion() *Kind {
	return &Kind{
		Name:     KindPromotion,
		Cooldown: true,
		Authorize: func(table *hierarchy.Table, actorHeld []hierarchy.RankID, request *Request, _ *profile.Profile) bool {
			return table.CanActOn(actorHeld, hierarchy.RankID(request.Proposed))
		},
		Mutate: replaceRank,
		Patch: func(request *Request, _ *profile.Profile) profile.Patch {
			return rankPatch(request, true)
		},
		Describe: func(request *Request) string {
			return fmt.Sprintf("promotion of %s to %s: %s", request.Target, request.Proposed, request.State)
		},
	}
}

// Demotion lowers the target to the proposed rank; authority is measured
// against the rank being taken away.
func Demotion() *Kind {
	return &Kind{
		Name: KindDemotion,
		Authorize: func(table *hierarchy.Table, actorHeld []hierarchy.RankID, _ *Request, target *profile.Profile) bool {
			return table.CanActOn(actorHeld, target.CurrentRank)
		},
		Mutate: replaceRank,
		Patch: func(request *Request, _ *profile.Profile) profile.Patch {
			return rankPatch(request, false)
		},
		Describe: func(request *Request) string {
			return fmt.Sprintf("demotion of %s to %s: %s", request.Target, request.Proposed, request.State)
		},
	}
}

// Hire grants a newcomer their first rank.
func Hire() *Kind {
	return &Kind{
		Name: KindHire,
		Authorize: func(table *hierarchy.Table, actorHeld []hierarchy.RankID, request *Request, _ *profile.Profile) bool {
			return table.CanActOn(actorHeld, hierarchy.RankID(request.Proposed))
		},
		Mutate: func(ctx context.Context, dir directory.Service, request *Request, _ *profile.Profile) error {
			return dir.AssignRank(ctx, request.Target, hierarchy.RankID(request.Proposed))
		},
		Patch: func(request *Request, _ *profile.Profile) profile.Patch {
			return rankPatch(request, false)
		},
		Describe: func(request *Request) string {
			return fmt.Sprintf("hire of %s at %s: %s", request.Target, request.Proposed, request.State)
		},
	}
}

// Discharge removes the target's rank entirely.
func Discharge() *Kind {
	return &Kind{
		Name: KindDischarge,
		Authorize: func(table *hierarchy.Table, actorHeld []hierarchy.RankID, _ *Request, target *profile.Profile) bool {
			return table.CanActOn(actorHeld, target.CurrentRank)
		},
		Mutate: func(ctx context.Context, dir directory.Service, request *Request, target *profile.Profile) error {
			if target.CurrentRank == "" {
				return nil
			}
			return dir.RemoveRank(ctx, request.Target, target.CurrentRank)
		},
		Patch: func(_ *Request, _ *profile.Profile) profile.Patch {
			none := hierarchy.RankID("")
			empty := ""
			return profile.Patch{CurrentRank: &none, PendingRequest: &empty}
		},
		Describe: func(request *Request) string {
			return fmt.Sprintf("discharge of %s: %s", request.Target, request.State)
		},
	}
}

// Medal awards a decoration named by Proposed; the directory is untouched.
func Medal() *Kind {
	return &Kind{
		Name: KindMedal,
		Authorize: func(table *hierarchy.Table, actorHeld []hierarchy.RankID, _ *Request, target *profile.Profile) bool {
			return table.CanActOn(actorHeld, target.CurrentRank)
		},
		Patch: func(request *Request, _ *profile.Profile) profile.Patch {
			empty := ""
			return profile.Patch{AddMedal: request.Proposed, PendingRequest: &empty}
		},
		Describe: func(request *Request) string {
			return fmt.Sprintf("medal %q for %s: %s", request.Proposed, request.Target, request.State)
		},
	}
}

// Transfer re-homes the target at an equal rank in another unit; only the
// record changes, so it behaves like Medal with a rank-shaped payload.
func Transfer() *Kind {
	return &Kind{
		Name: KindTransfer,
		Authorize: func(table *hierarchy.Table, actorHeld []hierarchy.RankID, _ *Request, target *profile.Profile) bool {
			return table.CanActOn(actorHeld, target.CurrentRank)
		},
		Patch: func(request *Request, _ *profile.Profile) profile.Patch {
			empty := ""
			return profile.Patch{PendingRequest: &empty}
		},
		Describe: func(request *Request) string {
			return fmt.Sprintf("transfer of %s to %s: %s", request.Target, request.Proposed, request.State)
		},
	}
}

// BuiltinKinds returns the full built-in hook sets.
func BuiltinKinds() []*Kind {
	return []*Kind{Promotion(), Demotion(), Hire(), Discharge(), Medal(), Transfer()}
}
