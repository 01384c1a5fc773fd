package workflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/guildware/quorum/internal/clock"
	"github.com/guildware/quorum/service/directory"
	dirmem "github.com/guildware/quorum/service/directory/memory"
	"github.com/guildware/quorum/service/event"
	"github.com/guildware/quorum/service/hierarchy"
	"github.com/guildware/quorum/service/profile"
	profilemem "github.com/guildware/quorum/service/profile/memory"
)

// testDirectory widens directory.Service with the in-memory test hooks.
type testDirectory interface {
	directory.Service
	Register(identity string, aliases []string, ranks ...hierarchy.RankID)
	SetMutationError(err error)
}

func testTable(t *testing.T) *hierarchy.Table {
	table, err := hierarchy.NewTable([]*hierarchy.RankDefinition{
		{ID: "recruit", Ordinal: 1, PromotionCeiling: 0},
		{ID: "corporal", Ordinal: 2, PromotionCeiling: 1, MinDaysSincePromotion: 15},
		{ID: "sergeant", Ordinal: 3, PromotionCeiling: 3, MinDaysSincePromotion: 30},
		{ID: "lieutenant", Ordinal: 4, PromotionCeiling: 3},
		{ID: "captain", Ordinal: 5, PromotionCeiling: 5},
	})
	assert.NoError(t, err)
	return table
}

var testRoster = map[string]hierarchy.RankID{
	"cpt_actor":     "captain",
	"cpt_approver":  "captain",
	"sgt_requester": "sergeant",
	"cpl_target":    "corporal",
	"rec_bystander": "recruit",
}

func seedDirectory(dir testDirectory) {
	for identity, rank := range testRoster {
		dir.Register(identity, nil, rank)
	}
	dir.Register("newbie", nil)
}

func seedProfiles(t *testing.T, profiles profile.Store) {
	for identity, rank := range testRoster {
		err := profiles.Save(context.Background(), &profile.Profile{
			Identity:    identity,
			CurrentRank: rank,
		})
		assert.NoError(t, err)
	}
}

func newTestEngine(t *testing.T, options ...Option) (*Engine, testDirectory, profile.Store) {
	dir := dirmem.New()
	seedDirectory(dir)
	profiles := profilemem.New()
	seedProfiles(t, profiles)
	return New(testTable(t), dir, profiles, options...), dir, profiles
}

func frozenClock(t *testing.T) time.Time {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { clock.NowFunc = time.Now })
	return now
}

func TestSubmitValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	type testCase struct {
		name      string
		kind      string
		requester string
		target    string
		proposed  string
		expected  error
	}
	tests := []testCase{
		{name: "unknown kind", kind: "coronation", requester: "cpt_actor", target: "cpl_target", expected: ErrUnknownKind},
		{name: "self target", kind: KindPromotion, requester: "cpl_target", target: "cpl_target", proposed: "sergeant", expected: ErrNotAuthorized},
		{name: "proposed above ceiling", kind: KindPromotion, requester: "sgt_requester", target: "cpl_target", proposed: "lieutenant", expected: ErrNotAuthorized},
		{name: "no recognized rank", kind: KindPromotion, requester: "newbie", target: "cpl_target", proposed: "recruit", expected: ErrNotAuthorized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Submit(ctx, tc.kind, tc.requester, tc.target, tc.proposed, "")
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestPromotionLifecycle(t *testing.T) {
	now := frozenClock(t)
	engine, dir, profiles := newTestEngine(t)
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "earned it")
	assert.NoError(t, err)
	assert.Equal(t, StatePending, request.State)
	assert.Equal(t, now, request.CreatedAt)

	claimed, err := profiles.Get(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Equal(t, request.ID, claimed.PendingRequest)

	decided, err := engine.Approve(ctx, request.ID, "cpt_approver")
	assert.NoError(t, err)
	assert.Equal(t, StateApproved, decided.State)
	assert.Equal(t, "cpt_approver", decided.DecidedBy)

	updated, err := profiles.Get(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Equal(t, hierarchy.RankID("sergeant"), updated.CurrentRank)
	assert.Empty(t, updated.PendingRequest)
	assert.Equal(t, now, updated.LastPromotionAt)

	held, err := dir.CurrentRanks(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Equal(t, []hierarchy.RankID{"sergeant"}, held)
}

func TestAlreadyPending(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)

	_, err = engine.Submit(ctx, KindMedal, "cpt_approver", "cpl_target", "valor", "")
	assert.ErrorIs(t, err, ErrAlreadyPending)
	var pending *AlreadyPendingError
	if assert.ErrorAs(t, err, &pending) {
		assert.Equal(t, first.ID, pending.RequestID)
	}

	// The outstanding request is untouched by the losing submission.
	current, err := engine.Get(ctx, first.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatePending, current.State)
}

func TestApproverValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)

	type testCase struct {
		name     string
		approver string
	}
	tests := []testCase{
		{name: "requester may not approve own request", approver: "cpt_actor"},
		{name: "target may not approve", approver: "cpl_target"},
		{name: "insufficient authority", approver: "rec_bystander"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := engine.Approve(ctx, request.ID, tc.approver)
			assert.ErrorIs(t, err, ErrNotAuthorized)
		})
	}

	current, err := engine.Get(ctx, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatePending, current.State)
}

func TestDecisionIdempotent(t *testing.T) {
	frozenClock(t)
	engine, _, profiles := newTestEngine(t)
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)

	first, err := engine.Approve(ctx, request.ID, "cpt_approver")
	assert.NoError(t, err)
	assert.Equal(t, StateApproved, first.State)

	// A repeated approval and a late rejection both report the settled
	// outcome without re-running any mutation.
	again, err := engine.Approve(ctx, request.ID, "cpt_approver")
	assert.NoError(t, err)
	assert.Equal(t, StateApproved, again.State)

	late, err := engine.Reject(ctx, request.ID, "cpt_approver", "changed my mind")
	assert.NoError(t, err)
	assert.Equal(t, StateApproved, late.State)
	assert.NotEqual(t, "changed my mind", late.Reason)

	settled, err := profiles.Get(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Equal(t, hierarchy.RankID("sergeant"), settled.CurrentRank)
}

func TestReject(t *testing.T) {
	engine, dir, profiles := newTestEngine(t)
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)

	decided, err := engine.Reject(ctx, request.ID, "cpt_approver", "not yet")
	assert.NoError(t, err)
	assert.Equal(t, StateRejected, decided.State)
	assert.Equal(t, "not yet", decided.Reason)

	// Nothing moved, and the freed slot accepts a fresh submission.
	held, err := dir.CurrentRanks(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Equal(t, []hierarchy.RankID{"corporal"}, held)
	untouched, err := profiles.Get(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Empty(t, untouched.PendingRequest)

	_, err = engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)
}

func TestCooldown(t *testing.T) {
	now := frozenClock(t)
	engine, _, profiles := newTestEngine(t)
	ctx := context.Background()

	promotedAt := now.Add(-10 * 24 * time.Hour)
	err := profiles.Save(ctx, &profile.Profile{
		Identity:        "cpl_target",
		CurrentRank:     "corporal",
		LastPromotionAt: promotedAt,
	})
	assert.NoError(t, err)

	_, err = engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.ErrorIs(t, err, ErrCooldownActive)
	var cooldown *CooldownError
	if assert.ErrorAs(t, err, &cooldown) {
		assert.Equal(t, 5*24*time.Hour, cooldown.Remaining)
	}

	// The failed submission claimed nothing.
	current, err := profiles.Get(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Empty(t, current.PendingRequest)
}

func TestExternalMutationFailure(t *testing.T) {
	engine, dir, profiles := newTestEngine(t)
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)

	boom := errors.New("surface unavailable")
	dir.SetMutationError(boom)

	_, err = engine.Approve(ctx, request.ID, "cpt_approver")
	assert.ErrorIs(t, err, ErrExternalMutation)
	var mutation *ExternalMutationError
	if assert.ErrorAs(t, err, &mutation) {
		assert.ErrorIs(t, mutation, boom)
	}

	// The request survives the failure for an explicit retry.
	current, err := engine.Get(ctx, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, StatePending, current.State)
	claimed, err := profiles.Get(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Equal(t, request.ID, claimed.PendingRequest)

	dir.SetMutationError(nil)
	decided, err := engine.Approve(ctx, request.ID, "cpt_approver")
	assert.NoError(t, err)
	assert.Equal(t, StateApproved, decided.State)
}

// countingDir counts directory mutations going through the wrapped service.
type countingDir struct {
	directory.Service
	assigns atomic.Int64
}

func (c *countingDir) AssignRank(ctx context.Context, identity string, rank hierarchy.RankID) error {
	c.assigns.Add(1)
	return c.Service.AssignRank(ctx, identity, rank)
}

func TestConcurrentApprove(t *testing.T) {
	base := dirmem.New()
	seedDirectory(base)
	dir := &countingDir{Service: base}
	profiles := profilemem.New()
	seedProfiles(t, profiles)
	engine := New(testTable(t), dir, profiles)
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			decided, err := engine.Approve(ctx, request.ID, "cpt_approver")
			assert.NoError(t, err)
			assert.Equal(t, StateApproved, decided.State)
		}()
	}
	wg.Wait()

	// Exactly one approval committed; the rest observed the settled state.
	assert.Equal(t, int64(1), dir.assigns.Load())
	settled, err := profiles.Get(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Equal(t, hierarchy.RankID("sergeant"), settled.CurrentRank)
	assert.Empty(t, settled.PendingRequest)
}

func TestExpiry(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { clock.NowFunc = time.Now })

	engine, _, profiles := newTestEngine(t, WithPendingTTL(time.Hour))
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)

	// Nothing to expire inside the ceiling.
	expired, err := engine.ExpireOverdue(ctx)
	assert.NoError(t, err)
	assert.Zero(t, expired)

	now = now.Add(2 * time.Hour)
	expired, err = engine.ExpireOverdue(ctx)
	assert.NoError(t, err)
	assert.Equal(t, 1, expired)

	current, err := engine.Get(ctx, request.ID)
	assert.NoError(t, err)
	assert.Equal(t, StateExpired, current.State)

	// The slot is free again and the sweep is idempotent.
	freed, err := profiles.Get(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Empty(t, freed.PendingRequest)
	expired, err = engine.ExpireOverdue(ctx)
	assert.NoError(t, err)
	assert.Zero(t, expired)

	_, err = engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)
}

func TestAutoExpireDefaultsInterval(t *testing.T) {
	now := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC)
	clock.NowFunc = func() time.Time { return now }
	t.Cleanup(func() { clock.NowFunc = time.Now })

	engine, _, profiles := newTestEngine(t, WithPendingTTL(time.Hour))
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)

	// A non-positive interval falls back to the default instead of panicking.
	now = now.Add(2 * time.Hour)
	stop := engine.AutoExpire(ctx, 0)
	defer stop()

	assert.Eventually(t, func() bool {
		current, err := engine.Get(ctx, request.ID)
		return err == nil && current.State == StateExpired
	}, time.Second, 10*time.Millisecond)

	freed, err := profiles.Get(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Empty(t, freed.PendingRequest)
}

func TestMedalLeavesDirectoryAlone(t *testing.T) {
	base := dirmem.New()
	seedDirectory(base)
	dir := &countingDir{Service: base}
	profiles := profilemem.New()
	seedProfiles(t, profiles)
	engine := New(testTable(t), dir, profiles)
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindMedal, "cpt_actor", "cpl_target", "valor", "")
	assert.NoError(t, err)
	decided, err := engine.Approve(ctx, request.ID, "cpt_approver")
	assert.NoError(t, err)
	assert.Equal(t, StateApproved, decided.State)

	awarded, err := profiles.Get(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Equal(t, []string{"valor"}, awarded.Medals)
	assert.Equal(t, hierarchy.RankID("corporal"), awarded.CurrentRank)
	assert.Zero(t, dir.assigns.Load())
}

func TestHireCreatesProfile(t *testing.T) {
	engine, dir, profiles := newTestEngine(t)
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindHire, "cpt_actor", "newbie", "recruit", "")
	assert.NoError(t, err)

	created, err := profiles.Get(ctx, "newbie")
	assert.NoError(t, err)
	assert.Equal(t, request.ID, created.PendingRequest)
	assert.Empty(t, created.CurrentRank)

	decided, err := engine.Approve(ctx, request.ID, "cpt_approver")
	assert.NoError(t, err)
	assert.Equal(t, StateApproved, decided.State)

	hired, err := profiles.Get(ctx, "newbie")
	assert.NoError(t, err)
	assert.Equal(t, hierarchy.RankID("recruit"), hired.CurrentRank)
	held, err := dir.CurrentRanks(ctx, "newbie")
	assert.NoError(t, err)
	assert.Equal(t, []hierarchy.RankID{"recruit"}, held)
}

func TestDischarge(t *testing.T) {
	engine, dir, profiles := newTestEngine(t)
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindDischarge, "cpt_actor", "cpl_target", "", "")
	assert.NoError(t, err)
	_, err = engine.Approve(ctx, request.ID, "cpt_approver")
	assert.NoError(t, err)

	discharged, err := profiles.Get(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Empty(t, discharged.CurrentRank)
	held, err := dir.CurrentRanks(ctx, "cpl_target")
	assert.NoError(t, err)
	assert.Empty(t, held)
}

func TestRequestNotFound(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	_, err := engine.Approve(context.Background(), "missing", "cpt_approver")
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestListPending(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	first, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)
	second, err := engine.Submit(ctx, KindMedal, "cpt_actor", "rec_bystander", "valor", "")
	assert.NoError(t, err)

	all, err := engine.ListPending(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)

	medals, err := engine.ListPending(ctx, WithKind(KindMedal))
	assert.NoError(t, err)
	if assert.Len(t, medals, 1) {
		assert.Equal(t, second.ID, medals[0].ID)
	}

	targeted, err := engine.ListPending(ctx, WithTarget("cpl_target"), WithRequester("cpt_actor"))
	assert.NoError(t, err)
	if assert.Len(t, targeted, 1) {
		assert.Equal(t, first.ID, targeted[0].ID)
	}

	_, err = engine.Reject(ctx, first.ID, "cpt_approver", "")
	assert.NoError(t, err)
	remaining, err := engine.ListPending(ctx)
	assert.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestWaitForDecision(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_, _ = engine.Approve(ctx, request.ID, "cpt_approver")
	}()

	decided, err := engine.WaitForDecision(ctx, request.ID, 2*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, StateApproved, decided.State)

	// A request nobody decides times out with its last observed state.
	stuck, err := engine.Submit(ctx, KindMedal, "cpt_actor", "rec_bystander", "valor", "")
	assert.NoError(t, err)
	observed, err := engine.WaitForDecision(ctx, stuck.ID, 150*time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, StatePending, observed.State)
}

func TestAutoDecider(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	ctx := context.Background()

	stop := engine.AutoApprove(ctx, "cpt_approver", 10*time.Millisecond)

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)
	decided, err := engine.WaitForDecision(ctx, request.ID, 2*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, StateApproved, decided.State)
	stop()

	stopReject := engine.AutoReject(ctx, "cpt_approver", "window closed", 10*time.Millisecond)
	defer stopReject()
	request, err = engine.Submit(ctx, KindMedal, "cpt_actor", "rec_bystander", "valor", "")
	assert.NoError(t, err)
	decided, err = engine.WaitForDecision(ctx, request.ID, 2*time.Second)
	assert.NoError(t, err)
	assert.Equal(t, StateRejected, decided.State)
	assert.Equal(t, "window closed", decided.Reason)
}

func TestLifecycleEvents(t *testing.T) {
	events, err := event.New("memory")
	assert.NoError(t, err)
	engine, _, _ := newTestEngine(t, WithEventService(events))
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)
	_, err = engine.Approve(ctx, request.ID, "cpt_approver")
	assert.NoError(t, err)

	consumeCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()

	requestPublisher, err := event.PublisherOf[Request](events)
	assert.NoError(t, err)
	created, err := requestPublisher.Consume(consumeCtx)
	assert.NoError(t, err)
	assert.Equal(t, TopicRequestCreated, created.Context.Topic)
	assert.Equal(t, request.ID, created.Context.RequestID)

	updated, err := requestPublisher.Consume(consumeCtx)
	assert.NoError(t, err)
	assert.Equal(t, TopicRequestUpdated, updated.Context.Topic)
	assert.Equal(t, StateApproved, updated.Data.State)

	decisionPublisher, err := event.PublisherOf[Decision](events)
	assert.NoError(t, err)
	decision, err := decisionPublisher.Consume(consumeCtx)
	assert.NoError(t, err)
	assert.Equal(t, TopicDecisionCreated, decision.Context.Topic)
	assert.True(t, decision.Data.Approved)
}

func TestNotifierBestEffort(t *testing.T) {
	recorder := &recordingNotifier{}
	engine, _, _ := newTestEngine(t, WithNotifier(recorder))
	ctx := context.Background()

	request, err := engine.Submit(ctx, KindPromotion, "cpt_actor", "cpl_target", "sergeant", "")
	assert.NoError(t, err)

	// A failing notifier never fails the decision itself.
	recorder.err = errors.New("dm closed")
	decided, err := engine.Approve(ctx, request.ID, "cpt_approver")
	assert.NoError(t, err)
	assert.Equal(t, StateApproved, decided.State)
	assert.Equal(t, []string{"cpl_target", "cpt_actor"}, recorder.recipients)
}

type recordingNotifier struct {
	mu         sync.Mutex
	err        error
	recipients []string
	texts      []string
}

func (r *recordingNotifier) Notify(_ context.Context, identity, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipients = append(r.recipients, identity)
	r.texts = append(r.texts, text)
	return r.err
}
