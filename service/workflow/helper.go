package workflow

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// PendingFilter narrows ListPending.
type PendingFilter func(*Request) bool

// WithKind keeps requests of the given kind.
func WithKind(kind string) PendingFilter {
	return func(r *Request) bool { return r.Kind == kind }
}

// WithTarget keeps requests aimed at the given identity.
func WithTarget(target string) PendingFilter {
	return func(r *Request) bool { return r.Target == target }
}

// WithRequester keeps requests submitted by the given identity.
func WithRequester(requester string) PendingFilter {
	return func(r *Request) bool { return r.Requester == requester }
}

// ListPending returns the open requests matching every filter, oldest first.
func (e *Engine) ListPending(ctx context.Context, filters ...PendingFilter) ([]*Request, error) {
	all, err := e.requests.List(ctx)
	if err != nil {
		return nil, err
	}
	var ret []*Request
outer:
	for _, stored := range all {
		if stored.State != StatePending {
			continue
		}
		for _, filter := range filters {
			if !filter(stored) {
				continue outer
			}
		}
		clone := *stored
		ret = append(ret, &clone)
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].CreatedAt.Before(ret[j].CreatedAt) })
	return ret, nil
}

// WaitForDecision polls until the request reaches a terminal state or the
// timeout elapses; a zero timeout waits until ctx is done.
func (e *Engine) WaitForDecision(ctx context.Context, requestID string, timeout time.Duration) (*Request, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		request, err := e.Get(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if request.State.Terminal() {
			return request, nil
		}
		select {
		case <-ctx.Done():
			return request, fmt.Errorf("request %s still pending: %w", requestID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// DecisionFunc decides what to do with a pending request. Return (true, "")
// to approve, (false, reason) to reject.
type DecisionFunc func(r *Request) (approved bool, reason string)

// AutoDecider starts a goroutine that polls ListPending and applies fn to
// every request on behalf of approver. It returns stop() - call it (or
// cancel ctx) to exit. Intended for tests and unattended deployments.
func (e *Engine) AutoDecider(ctx context.Context, approver string, fn DecisionFunc, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				pending, _ := e.ListPending(ctx)
				for _, request := range pending {
					if approved, reason := fn(request); approved {
						_, _ = e.Approve(ctx, request.ID, approver)
					} else {
						_, _ = e.Reject(ctx, request.ID, approver, reason)
					}
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove approves every pending request on behalf of approver.
func (e *Engine) AutoApprove(ctx context.Context, approver string, interval time.Duration) func() {
	return e.AutoDecider(ctx, approver, func(*Request) (bool, string) { return true, "" }, interval)
}

// AutoReject rejects every pending request with the given reason.
func (e *Engine) AutoReject(ctx context.Context, approver, reason string, interval time.Duration) func() {
	return e.AutoDecider(ctx, approver, func(*Request) (bool, string) { return false, reason }, interval)
}

// AutoExpire starts a background sweep driving ExpireOverdue on the given
// interval. The returned stop function halts the sweep and waits for the
// in-flight pass to finish.
func (e *Engine) AutoExpire(ctx context.Context, interval time.Duration) func() {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = e.ExpireOverdue(ctx)
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
