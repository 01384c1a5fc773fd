package quorum

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/viant/afs"

	"github.com/guildware/quorum/runtime/correlation"
	"github.com/guildware/quorum/runtime/dialog"
	dirmemory "github.com/guildware/quorum/service/directory/memory"
	"github.com/guildware/quorum/service/hierarchy"
	"github.com/guildware/quorum/service/profile"
	pmemory "github.com/guildware/quorum/service/profile/memory"
	"github.com/guildware/quorum/service/workflow"
)

const testRanksYAML = `
ranks:
  - id: recruit
    ordinal: 1
    promotionCeiling: 0
  - id: sergeant
    ordinal: 3
    promotionCeiling: 3
  - id: captain
    ordinal: 5
    promotionCeiling: 5
`

func testService(t *testing.T, options ...Option) (*Service, *dialog.MemorySurface) {
	table, err := hierarchy.DecodeTable([]byte(testRanksYAML))
	assert.NoError(t, err)

	dir := dirmemory.New()
	dir.Register("cpt_actor", nil, "captain")
	dir.Register("cpt_approver", nil, "captain")
	dir.Register("rec_target", nil, "recruit")

	profiles := pmemory.New()
	for identity, rank := range map[string]hierarchy.RankID{
		"cpt_actor":    "captain",
		"cpt_approver": "captain",
		"rec_target":   "recruit",
	} {
		err = profiles.Save(context.Background(), &profile.Profile{Identity: identity, CurrentRank: rank})
		assert.NoError(t, err)
	}

	surface := dialog.NewMemorySurface()
	options = append([]Option{
		WithTable(table),
		WithDirectory(dir),
		WithProfileStore(profiles),
		WithSurface(surface),
	}, options...)
	return New(options...), surface
}

func TestServiceApprovalFlow(t *testing.T) {
	srv, surface := testService(t)
	ctx := context.Background()
	assert.NoError(t, srv.Start(ctx))
	defer srv.Shutdown()

	request, err := srv.Engine().Submit(ctx, workflow.KindPromotion, "cpt_actor", "rec_target", "sergeant", "")
	assert.NoError(t, err)

	decided, err := srv.Engine().Approve(ctx, request.ID, "cpt_approver")
	assert.NoError(t, err)
	assert.Equal(t, workflow.StateApproved, decided.State)

	// The surface-backed notifier delivered the decision notice privately.
	notices := surface.Direct("rec_target")
	if assert.Len(t, notices, 1) {
		assert.Contains(t, notices[0].Text, "promotion")
	}

	updated, err := srv.Profiles().Get(ctx, "rec_target")
	assert.NoError(t, err)
	assert.Equal(t, hierarchy.RankID("sergeant"), updated.CurrentRank)
}

func TestServiceDialogThroughPump(t *testing.T) {
	srv, surface := testService(t)
	ctx := context.Background()
	assert.NoError(t, srv.Start(ctx))
	defer srv.Shutdown()

	type result struct {
		confirmed bool
		err       error
	}
	done := make(chan result, 1)
	go func() {
		confirmed, err := srv.Dialog().Confirmation(ctx, "cpt_actor", "Proceed?", time.Second)
		done <- result{confirmed, err}
	}()

	// Answer the rendered prompt the way a surface adapter would: publish
	// the interaction onto the inbound queue and let the pump route it.
	var content *dialog.Content
	for i := 0; i < 100; i++ {
		if content = surface.Last(); content != nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !assert.NotNil(t, content) {
		return
	}
	err := srv.Inbound().Publish(ctx, &correlation.Event{
		Token:         content.Token,
		Kind:          correlation.KindButton,
		Actor:         "cpt_actor",
		Discriminator: "yes",
	})
	assert.NoError(t, err)

	select {
	case outcome := <-done:
		assert.NoError(t, outcome.err)
		assert.True(t, outcome.confirmed)
	case <-time.After(2 * time.Second):
		t.Fatal("dialog step did not resolve")
	}
	assert.Zero(t, srv.Broker().Len())
}

func TestServiceStartRequiresTable(t *testing.T) {
	srv := New()
	err := srv.Start(context.Background())
	assert.Error(t, err)
}

func TestServiceLoadsRanksFromURL(t *testing.T) {
	ctx := context.Background()
	URL := "mem://localhost/quorum/ranks.yaml"
	err := afs.New().Upload(ctx, URL, 0644, strings.NewReader(testRanksYAML))
	assert.NoError(t, err)

	config := DefaultConfig()
	config.RanksURL = URL
	srv := New(WithConfig(config))
	assert.NoError(t, srv.Start(ctx))
	defer srv.Shutdown()

	assert.Equal(t, 3, srv.Table().Len())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	config := DefaultConfig()
	config.Engine.PendingTTL = -time.Hour
	assert.Error(t, config.Validate())
}
