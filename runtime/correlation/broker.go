package correlation

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/guildware/quorum/internal/clock"
	"github.com/guildware/quorum/tracing"
)

// ErrSaturated is returned by Open when the broker already holds the
// configured maximum of concurrently open sessions.
var ErrSaturated = errors.New("correlation: broker saturated")

// Config holds broker limits.
type Config struct {
	// MaxSessions caps concurrently open sessions; zero means unbounded.
	MaxSessions int `json:"maxSessions,omitempty" yaml:"maxSessions,omitempty"`

	// DefaultTimeout applies when Open is called with a non-positive timeout.
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty" yaml:"defaultTimeout,omitempty"`
}

// DefaultConfig mirrors the limits used by the hosted bot deployment.
func DefaultConfig() Config {
	return Config{
		MaxSessions:    1024,
		DefaultTimeout: 2 * time.Minute,
	}
}

// Broker routes one inbound interactive event to exactly one waiting session
// matched by token. It owns every open session and enforces single-consumer
// delivery; events without a matching open session are dropped silently.
type Broker struct {
	config Config

	mu       sync.RWMutex
	sessions map[Token]*Session

	dropped uint64 // events without a matching open session
	expired uint64 // sessions resolved by deadline
}

type Option func(*Broker)

// WithMaxSessions overrides the concurrent-session cap.
func WithMaxSessions(limit int) Option {
	return func(b *Broker) { b.config.MaxSessions = limit }
}

// WithDefaultTimeout overrides the fallback session timeout.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(b *Broker) { b.config.DefaultTimeout = timeout }
}

// New creates a broker with the supplied options applied over DefaultConfig.
func New(options ...Option) *Broker {
	ret := &Broker{
		config:   DefaultConfig(),
		sessions: make(map[Token]*Session),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Open mints a token, registers a session owned by owner and arms its
// deadline. It fails with ErrSaturated when the session cap is reached.
func (b *Broker) Open(owner string, expected Kind, timeout time.Duration) (session *Session, err error) {
	_, span := tracing.StartSpan(context.Background(), "correlation.open")
	defer func() { tracing.EndSpan(span, err) }()

	if timeout <= 0 {
		timeout = b.config.DefaultTimeout
	}
	session = &Session{
		token:    NewToken(),
		owner:    owner,
		expected: expected,
		deadline: clock.Now().Add(timeout),
		done:     make(chan struct{}),
	}

	session.onResolve = func() {
		b.mu.Lock()
		delete(b.sessions, session.token)
		b.mu.Unlock()
	}

	b.mu.Lock()
	if b.config.MaxSessions > 0 && len(b.sessions) >= b.config.MaxSessions {
		b.mu.Unlock()
		return nil, ErrSaturated
	}
	b.sessions[session.token] = session
	b.mu.Unlock()

	session.timer = time.AfterFunc(timeout, func() {
		if session.transition(stateTimedOut, nil) {
			b.mu.Lock()
			b.expired++
			b.mu.Unlock()
		}
	})
	span.WithAttributes(map[string]string{"session.kind": string(expected)})
	return session, nil
}

// Resolve delivers event to the open session matching its token and closes
// the session. A token with no open session, a kind mismatch or a foreign
// actor all leave the broker untouched - such events belong to an already
// closed or foreign dialog and are not an error. It reports whether the
// event was delivered.
func (b *Broker) Resolve(event *Event) (delivered bool) {
	_, span := tracing.StartSpan(context.Background(), "correlation.resolve")
	defer func() {
		span.WithAttributes(map[string]string{"event.delivered": strconv.FormatBool(delivered)})
		tracing.EndSpan(span, nil)
	}()

	if event == nil || event.Token == "" {
		return false
	}
	b.mu.RLock()
	session := b.sessions[event.Token]
	b.mu.RUnlock()

	if session == nil || session.owner != event.Actor || (session.expected != "" && session.expected != event.Kind) {
		b.mu.Lock()
		b.dropped++
		b.mu.Unlock()
		return false
	}
	return session.transition(stateDelivered, event)
}

// Cancel closes the session holding token early, typically because a later
// dialog step superseded it. Cancelling an unknown or resolved token is a
// no-op.
func (b *Broker) Cancel(token Token) {
	b.mu.RLock()
	session := b.sessions[token]
	b.mu.RUnlock()
	if session == nil {
		return
	}
	session.transition(stateCancelled, nil)
}

// Len returns the number of currently open sessions.
func (b *Broker) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.sessions)
}

// Dropped returns how many events arrived without a matching open session.
func (b *Broker) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// Expired returns how many sessions were resolved by their deadline.
func (b *Broker) Expired() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.expired
}
