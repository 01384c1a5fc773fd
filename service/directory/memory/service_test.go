package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/guildware/quorum/service/directory"
	"github.com/guildware/quorum/service/hierarchy"
)

func TestResolveAlias(t *testing.T) {
	svc := New()
	svc.Register("uid-1", []string{"cpl_jones", "jonesy"}, "corporal")
	svc.Register("uid-2", []string{"sgt_smith"}, "sergeant")

	ctx := context.Background()

	type testCase struct {
		name     string
		text     string
		expected string
		err      error
	}
	tests := []testCase{
		{name: "exact", text: "cpl_jones", expected: "uid-1"},
		{name: "identity as alias", text: "uid-2", expected: "uid-2"},
		{name: "case insensitive", text: "SGT_SMITH", expected: "uid-2"},
		{name: "fuzzy within distance", text: "sgt_smih", expected: "uid-2"},
		{name: "no match", text: "completely-unrelated", err: directory.ErrNotFound},
		{name: "empty", text: "  ", err: directory.ErrNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			identity, err := svc.ResolveAlias(ctx, tc.text)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, identity)
		})
	}
}

func TestRankMutations(t *testing.T) {
	svc := New()
	svc.Register("uid-1", nil, "recruit")
	ctx := context.Background()

	assert.NoError(t, svc.AssignRank(ctx, "uid-1", "corporal"))
	// Assigning an already held rank stays idempotent.
	assert.NoError(t, svc.AssignRank(ctx, "uid-1", "corporal"))

	ranks, err := svc.CurrentRanks(ctx, "uid-1")
	assert.NoError(t, err)
	assert.EqualValues(t, []hierarchy.RankID{"recruit", "corporal"}, ranks)

	assert.NoError(t, svc.RemoveRank(ctx, "uid-1", "recruit"))
	ranks, err = svc.CurrentRanks(ctx, "uid-1")
	assert.NoError(t, err)
	assert.EqualValues(t, []hierarchy.RankID{"corporal"}, ranks)

	assert.ErrorIs(t, svc.AssignRank(ctx, "ghost", "corporal"), directory.ErrNotFound)
}

func TestInjectedMutationFailure(t *testing.T) {
	boom := errors.New("directory offline")
	svc := New(WithMutationError(boom))
	svc.Register("uid-1", nil, "recruit")

	err := svc.AssignRank(context.Background(), "uid-1", "corporal")
	assert.ErrorIs(t, err, boom)

	// Reads stay available while mutations fail.
	ranks, err := svc.CurrentRanks(context.Background(), "uid-1")
	assert.NoError(t, err)
	assert.Len(t, ranks, 1)
}
