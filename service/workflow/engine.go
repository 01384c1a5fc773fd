package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/guildware/quorum/internal/clock"
	"github.com/guildware/quorum/internal/idgen"
	"github.com/guildware/quorum/service/dao"
	"github.com/guildware/quorum/service/dao/store"
	"github.com/guildware/quorum/service/directory"
	"github.com/guildware/quorum/service/event"
	"github.com/guildware/quorum/service/hierarchy"
	"github.com/guildware/quorum/service/profile"
	"github.com/guildware/quorum/tracing"
)

// Engine drives every request through the uniform two-phase machine:
// Submit gates on the hierarchy and claims the target's pending slot,
// Approve re-validates the approver and commits, Reject and expiry clear
// the slot. All decisions are serialised so a request resolves exactly once.
type Engine struct {
	table    *hierarchy.Table
	dir      directory.Service
	profiles profile.Store
	requests dao.Service[string, Request]
	kinds    map[string]*Kind
	notifier Notifier
	events   *event.Service

	// pendingTTL is the organizational ceiling after which an unattended
	// request becomes eligible for expiry; zero disables expiry.
	pendingTTL time.Duration

	// decideMu serialises terminal transitions; the profile store's
	// conditional update remains the backstop for multi-instance stores.
	decideMu sync.Mutex
}

// Option customises an Engine.
type Option func(*Engine)

// WithRequestDAO overrides the request store (default: in-memory).
func WithRequestDAO(requests dao.Service[string, Request]) Option {
	return func(e *Engine) { e.requests = requests }
}

// WithNotifier attaches a notice channel for decided requests.
func WithNotifier(notifier Notifier) Option {
	return func(e *Engine) { e.notifier = notifier }
}

// WithEventService attaches the lifecycle event publisher.
func WithEventService(events *event.Service) Option {
	return func(e *Engine) { e.events = events }
}

// WithPendingTTL sets the ceiling after which an unattended request expires.
func WithPendingTTL(ttl time.Duration) Option {
	return func(e *Engine) { e.pendingTTL = ttl }
}

// WithKinds registers additional (or replacement) kind hook sets.
func WithKinds(kinds ...*Kind) Option {
	return func(e *Engine) {
		for _, kind := range kinds {
			e.kinds[kind.Name] = kind
		}
	}
}

// New creates an engine over the given hierarchy table, directory and
// profile store, with the built-in kinds registered.
func New(table *hierarchy.Table, dir directory.Service, profiles profile.Store, options ...Option) *Engine {
	ret := &Engine{
		table:      table,
		dir:        dir,
		profiles:   profiles,
		kinds:      make(map[string]*Kind),
		pendingTTL: 7 * 24 * time.Hour,
	}
	for _, kind := range BuiltinKinds() {
		ret.kinds[kind.Name] = kind
	}
	for _, option := range options {
		option(ret)
	}
	if ret.requests == nil {
		ret.requests = store.NewMemoryStore[string, Request](func(r *Request) string { return r.ID })
	}
	return ret
}

// Kind returns the registered hook set for name, or nil.
func (e *Engine) Kind(name string) *Kind { return e.kinds[name] }

// Submit validates a new request against the hierarchy gate and the
// target's cooldown, claims the target's pending slot and posts the request
// for review. On any failure no state changes.
func (e *Engine) Submit(ctx context.Context, kind, requester, target, proposed, note string) (request *Request, err error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.submit")
	defer func() { tracing.EndSpan(span, err) }()

	k := e.kinds[kind]
	if k == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if requester == target {
		return nil, ErrNotAuthorized
	}

	targetProfile, err := e.ensureProfile(ctx, target)
	if err != nil {
		return nil, err
	}

	held, err := e.dir.CurrentRanks(ctx, requester)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve requester ranks: %w", err)
	}

	candidate := &Request{
		ID:        idgen.New(),
		Kind:      kind,
		Requester: requester,
		Target:    target,
		Proposed:  proposed,
		Note:      note,
		State:     StatePending,
		CreatedAt: clock.Now(),
	}
	if e.pendingTTL > 0 {
		expiresAt := candidate.CreatedAt.Add(e.pendingTTL)
		candidate.ExpiresAt = &expiresAt
	}

	if k.Authorize != nil && !k.Authorize(e.table, held, candidate, targetProfile) {
		return nil, ErrNotAuthorized
	}
	if k.Cooldown {
		if remaining := e.table.CooldownRemaining(targetProfile.LastPromotionAt, targetProfile.CurrentRank); remaining > 0 {
			return nil, &CooldownError{Remaining: remaining}
		}
	}

	// Claim the pending slot atomically; losing the claim means another
	// request for this target is already outstanding.
	empty := ""
	err = e.profiles.Update(ctx, target,
		profile.Patch{PendingRequest: &candidate.ID},
		profile.Expect{PendingRequest: &empty})
	if err != nil {
		if errors.Is(err, dao.ErrConflict) {
			current, _ := e.profiles.Get(ctx, target)
			existing := ""
			if current != nil {
				existing = current.PendingRequest
			}
			return nil, &AlreadyPendingError{RequestID: existing}
		}
		return nil, fmt.Errorf("failed to claim pending slot: %w", err)
	}

	if err = e.requests.Save(ctx, candidate); err != nil {
		// Release the claimed slot so the failure leaves no orphan.
		_ = e.profiles.Update(ctx, target,
			profile.Patch{PendingRequest: &empty},
			profile.Expect{PendingRequest: &candidate.ID})
		return nil, fmt.Errorf("failed to persist request: %w", err)
	}

	span.WithAttributes(map[string]string{"request.id": candidate.ID, "request.kind": kind})
	e.publishRequest(ctx, TopicRequestCreated, candidate)
	return candidate, nil
}

// Approve re-validates the approver's authority at decision time, applies
// the kind's directory mutation and only then commits the profile record.
// Approving a request that already reached a terminal state is a no-op
// returning that state.
func (e *Engine) Approve(ctx context.Context, requestID, approver string) (*Request, error) {
	return e.decide(ctx, requestID, approver, true, "")
}

// Reject marks the request Rejected and frees the target's pending slot; no
// rank is mutated. Idempotent on terminal requests.
func (e *Engine) Reject(ctx context.Context, requestID, approver, reason string) (*Request, error) {
	return e.decide(ctx, requestID, approver, false, reason)
}

func (e *Engine) decide(ctx context.Context, requestID, approver string, approve bool, reason string) (request *Request, err error) {
	ctx, span := tracing.StartSpan(ctx, "workflow.decide")
	defer func() { tracing.EndSpan(span, err) }()

	e.decideMu.Lock()
	defer e.decideMu.Unlock()

	stored, err := e.requests.Load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	if stored.State.Terminal() {
		// Already decided: report the existing outcome, mutate nothing.
		existing := *stored
		return &existing, nil
	}

	k := e.kinds[stored.Kind]
	if k == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, stored.Kind)
	}
	targetProfile, err := e.profiles.Get(ctx, stored.Target)
	if err != nil {
		return nil, fmt.Errorf("failed to load target profile: %w", err)
	}

	// The submission-time check is never trusted: authority may have changed
	// between the two phases, so the gate runs again with the approver's
	// current ranks.
	if approver == stored.Target || approver == stored.Requester {
		return nil, ErrNotAuthorized
	}
	held, err := e.dir.CurrentRanks(ctx, approver)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve approver ranks: %w", err)
	}
	if k.Authorize != nil && !k.Authorize(e.table, held, stored, targetProfile) {
		return nil, ErrNotAuthorized
	}

	updated := *stored
	decidedAt := clock.Now()
	updated.DecidedAt = &decidedAt
	updated.DecidedBy = approver
	updated.Reason = reason

	if approve {
		if k.Mutate != nil {
			if mErr := k.Mutate(ctx, e.dir, &updated, targetProfile); mErr != nil {
				// The request stays Pending; the operator retries explicitly.
				return nil, &ExternalMutationError{Err: mErr}
			}
		}
		patch := profile.Patch{}
		if k.Patch != nil {
			patch = k.Patch(&updated, targetProfile)
		}
		if patch.PendingRequest == nil {
			empty := ""
			patch.PendingRequest = &empty
		}
		if cErr := e.profiles.Update(ctx, stored.Target, patch, profile.Expect{PendingRequest: &stored.ID}); cErr != nil {
			// The slot no longer names this request: the directory change
			// went through but the record did not. Surface the discrepancy
			// instead of guessing.
			return nil, fmt.Errorf("%w: profile commit failed after directory mutation: %v", ErrExternalMutation, cErr)
		}
		updated.State = StateApproved
	} else {
		empty := ""
		if cErr := e.profiles.Update(ctx, stored.Target,
			profile.Patch{PendingRequest: &empty},
			profile.Expect{PendingRequest: &stored.ID}); cErr != nil && !errors.Is(cErr, dao.ErrConflict) {
			return nil, fmt.Errorf("failed to clear pending slot: %w", cErr)
		}
		updated.State = StateRejected
	}

	if err = e.requests.Save(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to persist decision: %w", err)
	}

	decision := &Decision{
		ID:        updated.ID,
		Approved:  approve,
		Reason:    reason,
		DecidedBy: approver,
		DecidedAt: decidedAt,
	}
	span.WithAttributes(map[string]string{"request.id": updated.ID, "request.state": string(updated.State)})
	e.publishRequest(ctx, TopicRequestUpdated, &updated)
	e.publishDecision(ctx, &updated, decision)
	e.notify(ctx, k, &updated)
	return &updated, nil
}

// ExpireOverdue transitions every Pending request past its expiry ceiling
// to Expired and frees the associated pending slots. It returns how many
// requests expired. The engine exposes this directly so hosts may drive the
// clock themselves instead of running the background sweeper.
func (e *Engine) ExpireOverdue(ctx context.Context) (int, error) {
	e.decideMu.Lock()
	defer e.decideMu.Unlock()

	all, err := e.requests.List(ctx)
	if err != nil {
		return 0, err
	}
	now := clock.Now()
	expired := 0
	for _, stored := range all {
		if stored.State != StatePending || stored.ExpiresAt == nil || stored.ExpiresAt.After(now) {
			continue
		}
		updated := *stored
		updated.State = StateExpired
		updated.DecidedAt = &now

		empty := ""
		if cErr := e.profiles.Update(ctx, stored.Target,
			profile.Patch{PendingRequest: &empty},
			profile.Expect{PendingRequest: &stored.ID}); cErr != nil && !errors.Is(cErr, dao.ErrConflict) {
			return expired, fmt.Errorf("failed to clear pending slot: %w", cErr)
		}
		if err = e.requests.Save(ctx, &updated); err != nil {
			return expired, err
		}
		e.publishRequest(ctx, TopicRequestExpired, &updated)
		expired++
	}
	return expired, nil
}

// Get returns the request with the given id.
func (e *Engine) Get(ctx context.Context, requestID string) (*Request, error) {
	stored, err := e.requests.Load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
	}
	ret := *stored
	return &ret, nil
}

// ensureProfile loads the target's record, creating a blank one for
// identities (new hires) that have none yet.
func (e *Engine) ensureProfile(ctx context.Context, identity string) (*profile.Profile, error) {
	existing, err := e.profiles.Get(ctx, identity)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, dao.ErrNotFound) {
		return nil, fmt.Errorf("failed to load target profile: %w", err)
	}
	created := &profile.Profile{Identity: identity, JoinedAt: clock.Now()}
	if err = e.profiles.Save(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to create target profile: %w", err)
	}
	return created, nil
}

func (e *Engine) publishRequest(ctx context.Context, topic string, request *Request) {
	if e.events == nil {
		return
	}
	publisher, err := event.PublisherOf[Request](e.events)
	if err != nil {
		log.Printf("workflow: request publisher unavailable: %v", err)
		return
	}
	evt := event.NewEvent(&event.Context{
		RequestID: request.ID,
		Kind:      request.Kind,
		Topic:     topic,
		Actor:     request.Requester,
	}, *request)
	if err = publisher.Publish(ctx, evt); err != nil {
		log.Printf("workflow: failed to publish %s: %v", topic, err)
	}
}

func (e *Engine) publishDecision(ctx context.Context, request *Request, decision *Decision) {
	if e.events == nil {
		return
	}
	publisher, err := event.PublisherOf[Decision](e.events)
	if err != nil {
		log.Printf("workflow: decision publisher unavailable: %v", err)
		return
	}
	evt := event.NewEvent(&event.Context{
		RequestID: decision.ID,
		Kind:      request.Kind,
		Topic:     TopicDecisionCreated,
		Actor:     decision.DecidedBy,
	}, *decision)
	if err = publisher.Publish(ctx, evt); err != nil {
		log.Printf("workflow: failed to publish decision: %v", err)
	}
}

// notify is best-effort: a failed notice never fails the decision that was
// already committed.
func (e *Engine) notify(ctx context.Context, k *Kind, request *Request) {
	if e.notifier == nil {
		return
	}
	text := k.describe(request)
	for _, identity := range []string{request.Target, request.Requester} {
		if err := e.notifier.Notify(ctx, identity, text); err != nil {
			log.Printf("workflow: failed to notify %s: %v", identity, err)
		}
	}
}
