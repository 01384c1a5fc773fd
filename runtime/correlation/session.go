package correlation

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrTimedOut is returned by Await when the session deadline elapsed
	// before a matching event arrived.
	ErrTimedOut = errors.New("correlation: session timed out")

	// ErrCancelled is returned by Await when the session was cancelled,
	// typically because a later dialog step superseded it.
	ErrCancelled = errors.New("correlation: session cancelled")
)

// sessionState captures the one-way lifecycle of a session. A session leaves
// stateOpen exactly once; the transition decides the Await outcome.
type sessionState int

const (
	stateOpen sessionState = iota
	stateDelivered
	stateTimedOut
	stateCancelled
)

// Session is a single waiting human interaction bound to a token and a
// deadline. It is owned exclusively by the broker that opened it.
type Session struct {
	token    Token
	owner    string
	expected Kind
	deadline time.Time

	mu    sync.Mutex
	state sessionState
	event *Event
	done  chan struct{}
	timer *time.Timer

	// onResolve is installed by the owning broker; it removes the session
	// from the live set once the session left the open state.
	onResolve func()
}

// Token returns the correlation token of this session.
func (s *Session) Token() Token { return s.token }

// Owner returns the identity the session was opened for. Events from any
// other actor never resolve it.
func (s *Session) Owner() string { return s.owner }

// Deadline returns the instant at which the session expires.
func (s *Session) Deadline() time.Time { return s.deadline }

// transition moves the session out of stateOpen. It returns false when the
// session already resolved; the mutex makes delivery, expiry and cancel
// mutually exclusive.
func (s *Session) transition(next sessionState, event *Event) bool {
	s.mu.Lock()
	if s.state != stateOpen {
		s.mu.Unlock()
		return false
	}
	s.state = next
	s.event = event
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.done)
	s.mu.Unlock()
	if s.onResolve != nil {
		s.onResolve()
	}
	return true
}

// Await parks the calling workflow until the session resolves. Exactly one
// of the three outcomes occurs: a matching event (returned), the deadline
// (ErrTimedOut) or a cancel (ErrCancelled). Cancelling ctx counts as a
// cancel so an abandoned dialog does not leak its goroutine.
func (s *Session) Await(ctx context.Context) (*Event, error) {
	select {
	case <-s.done:
	case <-ctx.Done():
		// Try to claim the session for cancellation; when resolve or expiry
		// won the race fall through and report that outcome instead.
		if s.transition(stateCancelled, nil) {
			return nil, ErrCancelled
		}
		<-s.done
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case stateDelivered:
		return s.event, nil
	case stateTimedOut:
		return nil, ErrTimedOut
	default:
		return nil, ErrCancelled
	}
}

// Resolved reports whether the session already left the open state.
func (s *Session) Resolved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state != stateOpen
}
