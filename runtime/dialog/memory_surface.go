package dialog

import (
	"context"
	"sync"

	"github.com/guildware/quorum/internal/idgen"
)

// MemorySurface is an in-memory Surface recording every rendered message.
// It backs the package tests and doubles as a simulator for hosts that want
// to exercise dialogs without a live chat connection.
type MemorySurface struct {
	mu       sync.Mutex
	messages map[Handle]*Content
	order    []Handle
	direct   map[string][]*Content
}

// NewMemorySurface creates an empty in-memory surface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{
		messages: make(map[Handle]*Content),
		direct:   make(map[string][]*Content),
	}
}

func (s *MemorySurface) Render(_ context.Context, content *Content) (Handle, error) {
	handle := Handle(idgen.New())
	s.mu.Lock()
	s.messages[handle] = content
	s.order = append(s.order, handle)
	s.mu.Unlock()
	return handle, nil
}

func (s *MemorySurface) Edit(_ context.Context, handle Handle, content *Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[handle]; !ok {
		return ErrUnknownHandle
	}
	s.messages[handle] = content
	return nil
}

func (s *MemorySurface) Delete(_ context.Context, handle Handle) error {
	s.mu.Lock()
	delete(s.messages, handle)
	s.mu.Unlock()
	return nil
}

func (s *MemorySurface) SendDirect(_ context.Context, identity string, content *Content) error {
	s.mu.Lock()
	s.direct[identity] = append(s.direct[identity], content)
	s.mu.Unlock()
	return nil
}

// Last returns the most recently rendered message, or nil when none is live.
func (s *MemorySurface) Last() *Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		if content, ok := s.messages[s.order[i]]; ok {
			return content
		}
	}
	return nil
}

// Live returns the number of rendered, not yet deleted messages.
func (s *MemorySurface) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Direct returns direct messages delivered to identity.
func (s *MemorySurface) Direct(identity string) []*Content {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Content(nil), s.direct[identity]...)
}

var _ Surface = (*MemorySurface)(nil)
