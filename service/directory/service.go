// Package directory defines the external identity capability: resolving a
// free-form alias to a canonical identity and reading or mutating the ranks
// that identity currently holds. Implementations are external; the memory
// sub-package ships an embeddable one for tests and single-instance hosts.
package directory

import (
	"context"
	"errors"

	"github.com/guildware/quorum/service/hierarchy"
)

var (
	// ErrNotFound is returned when an alias cannot be resolved to a
	// canonical identity.
	ErrNotFound = errors.New("directory: not found")

	// ErrUnavailable signals a transient directory failure; rank mutations
	// hit by it must be retried by the operator, never silently.
	ErrUnavailable = errors.New("directory: unavailable")
)

// Service is the narrow directory capability consumed by the core.
type Service interface {
	// ResolveAlias maps free-form text to a canonical identity.
	ResolveAlias(ctx context.Context, text string) (string, error)

	// CurrentRanks returns the rank ids identity presently holds.
	CurrentRanks(ctx context.Context, identity string) ([]hierarchy.RankID, error)

	// AssignRank grants rank to identity.
	AssignRank(ctx context.Context, identity string, rank hierarchy.RankID) error

	// RemoveRank withdraws rank from identity.
	RemoveRank(ctx context.Context, identity string, rank hierarchy.RankID) error
}
