package quorum

import (
	"context"
	"fmt"

	"github.com/viant/afs"

	"github.com/guildware/quorum/runtime/correlation"
	"github.com/guildware/quorum/runtime/dialog"
	"github.com/guildware/quorum/service/directory"
	dirmemory "github.com/guildware/quorum/service/directory/memory"
	"github.com/guildware/quorum/service/event"
	"github.com/guildware/quorum/service/hierarchy"
	"github.com/guildware/quorum/service/messaging"
	mmemory "github.com/guildware/quorum/service/messaging/memory"
	"github.com/guildware/quorum/service/profile"
	pmemory "github.com/guildware/quorum/service/profile/memory"
	"github.com/guildware/quorum/service/workflow"
)

// Service wires the correlation broker, dialog runner and workflow engine
// over one chat surface and one membership directory. It is the entry point
// hosts embed; sub-packages stay usable on their own.
type Service struct {
	config *Config

	table    *hierarchy.Table
	dir      directory.Service
	profiles profile.Store
	surface  dialog.Surface
	notifier workflow.Notifier
	events   *event.Service

	inbound messaging.Queue[correlation.Event]
	broker  *correlation.Broker
	runner  *dialog.Runner
	engine  *workflow.Engine

	engineOptions []workflow.Option
	stopPump      func()
	stopSweep     func()
	started       bool
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	s.ensureBaseSetup()
	s.broker = correlation.New(
		correlation.WithMaxSessions(s.config.Broker.MaxSessions),
		correlation.WithDefaultTimeout(s.config.Broker.DefaultTimeout))
	s.runner = dialog.NewRunner(s.broker, s.surface,
		dialog.WithStepTimeout(s.config.Dialog.StepTimeout),
		dialog.WithCleanup(!s.config.Dialog.KeepMessages))
}

func (s *Service) ensureBaseSetup() {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if s.dir == nil {
		s.dir = dirmemory.New()
	}
	if s.profiles == nil {
		s.profiles = pmemory.New()
	}
	if s.surface == nil {
		s.surface = dialog.NewMemorySurface()
	}
	if s.inbound == nil {
		s.inbound = mmemory.NewQueue[correlation.Event](mmemory.DefaultConfig())
	}
}

// Start finalises wiring and begins consuming inbound interaction events.
// The rank table is loaded from Config.RanksURL unless one was supplied
// programmatically. Start is not re-entrant.
func (s *Service) Start(ctx context.Context) error {
	if s.started {
		return nil
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.table == nil {
		if s.config.RanksURL == "" {
			return fmt.Errorf("rank table required: set Config.RanksURL or use WithTable")
		}
		table, err := hierarchy.LoadTable(ctx, afs.New(), s.config.RanksURL)
		if err != nil {
			return err
		}
		s.table = table
	}
	if s.notifier == nil {
		s.notifier = &surfaceNotifier{surface: s.surface}
	}

	engineOptions := []workflow.Option{
		workflow.WithNotifier(s.notifier),
		workflow.WithPendingTTL(s.config.Engine.PendingTTL),
	}
	if s.events != nil {
		engineOptions = append(engineOptions, workflow.WithEventService(s.events))
	}
	engineOptions = append(engineOptions, s.engineOptions...)
	s.engine = workflow.New(s.table, s.dir, s.profiles, engineOptions...)

	s.stopPump = correlation.Pump(ctx, s.broker, s.inbound)
	if s.config.Engine.SweepInterval > 0 {
		s.stopSweep = s.engine.AutoExpire(ctx, s.config.Engine.SweepInterval)
	}
	s.started = true
	return nil
}

// Shutdown stops the inbound pump and the expiry sweep. Open dialog sessions
// run to their own deadlines.
func (s *Service) Shutdown() {
	if s.stopPump != nil {
		s.stopPump()
		s.stopPump = nil
	}
	if s.stopSweep != nil {
		s.stopSweep()
		s.stopSweep = nil
	}
	s.started = false
}

// Engine returns the workflow engine; nil before Start.
func (s *Service) Engine() *workflow.Engine { return s.engine }

// Dialog returns the dialog runner.
func (s *Service) Dialog() *dialog.Runner { return s.runner }

// Broker returns the correlation broker.
func (s *Service) Broker() *correlation.Broker { return s.broker }

// Inbound returns the queue surface adapters publish interaction events to.
func (s *Service) Inbound() messaging.Queue[correlation.Event] { return s.inbound }

// Table returns the rank table; nil before Start when loading from RanksURL.
func (s *Service) Table() *hierarchy.Table { return s.table }

// Profiles returns the member record store.
func (s *Service) Profiles() profile.Store { return s.profiles }

// New creates a service. Call Start before submitting work.
func New(options ...Option) *Service {
	ret := &Service{}
	ret.init(options)
	return ret
}

// surfaceNotifier delivers decision notices as direct messages.
type surfaceNotifier struct {
	surface dialog.Surface
}

func (n *surfaceNotifier) Notify(ctx context.Context, identity, text string) error {
	return n.surface.SendDirect(ctx, identity, &dialog.Content{Text: text})
}
