package quorum

import (
	"github.com/guildware/quorum/runtime/correlation"
	"github.com/guildware/quorum/runtime/dialog"
	"github.com/guildware/quorum/service/directory"
	"github.com/guildware/quorum/service/event"
	"github.com/guildware/quorum/service/hierarchy"
	"github.com/guildware/quorum/service/messaging"
	"github.com/guildware/quorum/service/profile"
	"github.com/guildware/quorum/service/workflow"
)

type Option func(s *Service)

// WithConfig replaces the default configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithTable sets the rank table, bypassing RanksURL loading.
func WithTable(table *hierarchy.Table) Option {
	return func(s *Service) { s.table = table }
}

// WithDirectory sets the membership directory.
func WithDirectory(dir directory.Service) Option {
	return func(s *Service) { s.dir = dir }
}

// WithProfileStore sets the member record store.
func WithProfileStore(profiles profile.Store) Option {
	return func(s *Service) { s.profiles = profiles }
}

// WithSurface sets the chat surface dialogs and notices go through.
func WithSurface(surface dialog.Surface) Option {
	return func(s *Service) { s.surface = surface }
}

// WithInboundQueue sets the queue inbound interaction events arrive on.
func WithInboundQueue(queue messaging.Queue[correlation.Event]) Option {
	return func(s *Service) { s.inbound = queue }
}

// WithEventService sets the lifecycle event service.
func WithEventService(events *event.Service) Option {
	return func(s *Service) { s.events = events }
}

// WithNotifier overrides the surface-backed decision notifier.
func WithNotifier(notifier workflow.Notifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithEngineOptions appends options passed through to the workflow engine.
func WithEngineOptions(options ...workflow.Option) Option {
	return func(s *Service) { s.engineOptions = append(s.engineOptions, options...) }
}
