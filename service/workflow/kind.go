package workflow

import (
	"context"
	"fmt"

	"github.com/guildware/quorum/service/directory"
	"github.com/guildware/quorum/service/hierarchy"
	"github.com/guildware/quorum/service/profile"
)

// Kind bundles the hooks that make one request family concrete. The engine
// owns the state machine; the kind only answers three questions: may this
// actor act, what external mutation applies on approval, and what profile
// patch records the outcome.
type Kind struct {
	// Name is the registry key carried on every request of this kind.
	Name string

	// Authorize reports whether an actor holding actorHeld may submit or
	// approve the request given the target's current profile. It runs at
	// submission and again, with the approver's ranks, at decision time.
	Authorize func(table *hierarchy.Table, actorHeld []hierarchy.RankID, request *Request, target *profile.Profile) bool

	// Cooldown marks kinds subject to the target's promotion cooldown.
	Cooldown bool

	// Mutate applies the approved change through the directory. A nil
	// Mutate means the kind changes the profile record only.
	Mutate func(ctx context.Context, dir directory.Service, request *Request, target *profile.Profile) error

	// Patch produces the profile fields committed once Mutate succeeded.
	Patch func(request *Request, target *profile.Profile) profile.Patch

	// Describe renders the one-line notice sent to the affected parties.
	Describe func(request *Request) string
}

func (k *Kind) describe(request *Request) string {
	if k.Describe != nil {
		return k.Describe(request)
	}
	return fmt.Sprintf("%s request %s for %s: %s", k.Name, request.ID, request.Target, request.State)
}
