package workflow

import (
	"context"
	"time"
)

// State is the lifecycle position of a request. A request is created
// Pending and leaves it exactly once, into one of the three terminal states.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
	StateExpired  State = "expired"
)

// Terminal reports whether s is a final state.
func (s State) Terminal() bool {
	return s == StateApproved || s == StateRejected || s == StateExpired
}

// Standard event topics published on the request lifecycle.
const (
	TopicRequestCreated  = "request.created"
	TopicRequestUpdated  = "request.updated"
	TopicRequestExpired  = "request.expired"
	TopicDecisionCreated = "decision.created"
)

// Request is one submitted, reviewable workflow instance.
type Request struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Requester string `json:"requester"`
	Target    string `json:"target"`
	// Proposed names the rank id or award the request wants applied; its
	// interpretation belongs to the kind.
	Proposed  string     `json:"proposed,omitempty"`
	Note      string     `json:"note,omitempty"`
	State     State      `json:"state"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	DecidedAt *time.Time `json:"decidedAt,omitempty"`
	DecidedBy string     `json:"decidedBy,omitempty"`
	Reason    string     `json:"reason,omitempty"`
}

// Decision is the recorded outcome of a reviewed request.
type Decision struct {
	ID        string    `json:"id"` // same as request.ID
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	DecidedBy string    `json:"decidedBy,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

// Notifier delivers a short private notice to an identity. The chat surface
// satisfies it through a thin adapter; tests use an in-memory recorder.
type Notifier interface {
	Notify(ctx context.Context, identity, text string) error
}
