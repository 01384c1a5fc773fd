package memory

import (
	"context"
	"sync"

	"github.com/guildware/quorum/service/dao"
	"github.com/guildware/quorum/service/dao/store"
	"github.com/guildware/quorum/service/profile"
)

// Store is the in-memory profile store. It builds on the generic memory DAO
// and adds the alias index plus the conditional update the engine relies on.
type Store struct {
	records *store.MemoryStore[string, profile.Profile]

	mu      sync.RWMutex
	byAlias map[string]string
}

// New creates an empty profile store.
func New() *Store {
	return &Store{
		records: store.NewMemoryStore[string, profile.Profile](func(p *profile.Profile) string { return p.Identity }),
		byAlias: make(map[string]string),
	}
}

func (s *Store) Get(ctx context.Context, identity string) (*profile.Profile, error) {
	ret, err := s.records.Load(ctx, identity)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, dao.ErrNotFound
	}
	clone := *ret
	return &clone, nil
}

func (s *Store) GetByAlias(ctx context.Context, alias string) (*profile.Profile, error) {
	s.mu.RLock()
	identity, ok := s.byAlias[alias]
	s.mu.RUnlock()
	if !ok {
		return nil, dao.ErrNotFound
	}
	return s.Get(ctx, identity)
}

func (s *Store) Save(ctx context.Context, p *profile.Profile) error {
	if p == nil || p.Identity == "" {
		return dao.ErrInvalidID
	}
	clone := *p
	if err := s.records.Save(ctx, &clone); err != nil {
		return err
	}
	if p.Alias != "" {
		s.mu.Lock()
		s.byAlias[p.Alias] = p.Identity
		s.mu.Unlock()
	}
	return nil
}

// Update applies patch iff the stored record matches expect. The check and
// the write run under the DAO's record lock, making the update atomic.
func (s *Store) Update(ctx context.Context, identity string, patch profile.Patch, expect profile.Expect) error {
	return s.records.Update(ctx, identity,
		func(current *profile.Profile) bool {
			return expect.Matches(current)
		},
		func(current *profile.Profile) *profile.Profile {
			next := *current
			next.Apply(patch)
			return &next
		})
}

var _ profile.Store = (*Store)(nil)
