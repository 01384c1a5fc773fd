package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"

	"github.com/guildware/quorum/service/directory"
	"github.com/guildware/quorum/service/hierarchy"
)

// service is an in-memory directory. Alias resolution tries an exact match,
// then a case-insensitive one, then the closest levenshtein candidate within
// the configured distance, so operator typos like "cpl_jones" for
// "cpl_jones2" still resolve.
type service struct {
	mu          sync.RWMutex
	identities  map[string][]hierarchy.RankID // identity -> held ranks
	aliases     map[string]string             // alias -> identity
	maxDistance int
	mutationErr error // when set, rank mutations fail with it
}

// Option customises the in-memory directory.
type Option func(*service)

// WithMaxDistance bounds the levenshtein distance accepted for fuzzy alias
// matches; zero disables fuzzy matching entirely.
func WithMaxDistance(distance int) Option {
	return func(s *service) { s.maxDistance = distance }
}

// WithMutationError makes AssignRank/RemoveRank fail with err, letting tests
// exercise the external-mutation failure paths.
func WithMutationError(err error) Option {
	return func(s *service) { s.mutationErr = err }
}

// New creates an empty in-memory directory.
func New(options ...Option) *service {
	ret := &service{
		identities:  make(map[string][]hierarchy.RankID),
		aliases:     make(map[string]string),
		maxDistance: 2,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Register adds an identity with its aliases and initial ranks.
func (s *service) Register(identity string, aliases []string, ranks ...hierarchy.RankID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.identities[identity] = append([]hierarchy.RankID(nil), ranks...)
	s.aliases[identity] = identity
	for _, alias := range aliases {
		s.aliases[alias] = identity
	}
}

// SetMutationError swaps the injected mutation failure at runtime.
func (s *service) SetMutationError(err error) {
	s.mu.Lock()
	s.mutationErr = err
	s.mu.Unlock()
}

func (s *service) ResolveAlias(_ context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", directory.ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if identity, ok := s.aliases[text]; ok {
		return identity, nil
	}
	lowered := strings.ToLower(text)
	for alias, identity := range s.aliases {
		if strings.ToLower(alias) == lowered {
			return identity, nil
		}
	}
	if s.maxDistance <= 0 {
		return "", directory.ErrNotFound
	}
	best, bestDistance := "", s.maxDistance+1
	for alias, identity := range s.aliases {
		distance := levenshtein.ComputeDistance(lowered, strings.ToLower(alias))
		if distance < bestDistance {
			best, bestDistance = identity, distance
		}
	}
	if best == "" {
		return "", directory.ErrNotFound
	}
	return best, nil
}

func (s *service) CurrentRanks(_ context.Context, identity string) ([]hierarchy.RankID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ranks, ok := s.identities[identity]
	if !ok {
		return nil, directory.ErrNotFound
	}
	return append([]hierarchy.RankID(nil), ranks...), nil
}

func (s *service) AssignRank(_ context.Context, identity string, rank hierarchy.RankID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutationErr != nil {
		return s.mutationErr
	}
	ranks, ok := s.identities[identity]
	if !ok {
		return directory.ErrNotFound
	}
	for _, held := range ranks {
		if held == rank {
			return nil
		}
	}
	s.identities[identity] = append(ranks, rank)
	return nil
}

func (s *service) RemoveRank(_ context.Context, identity string, rank hierarchy.RankID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mutationErr != nil {
		return s.mutationErr
	}
	ranks, ok := s.identities[identity]
	if !ok {
		return directory.ErrNotFound
	}
	kept := ranks[:0]
	for _, held := range ranks {
		if held != rank {
			kept = append(kept, held)
		}
	}
	s.identities[identity] = kept
	return nil
}

var _ directory.Service = (*service)(nil)
