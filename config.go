package quorum

import (
	"fmt"
	"time"

	"github.com/guildware/quorum/runtime/correlation"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from JSON or YAML; zero-value fields inherit their
// package defaults.
type Config struct {
	Broker correlation.Config `json:"broker" yaml:"broker"`
	Dialog DialogConfig       `json:"dialog" yaml:"dialog"`
	Engine EngineConfig       `json:"engine" yaml:"engine"`

	// RanksURL locates the YAML rank table (file path, s3://, mem:// ...).
	// Ignored when a table is supplied programmatically.
	RanksURL string `json:"ranksURL,omitempty" yaml:"ranksURL,omitempty"`
}

// DialogConfig holds dialog runner settings.
type DialogConfig struct {
	// StepTimeout is the fallback applied to steps issued without one.
	StepTimeout time.Duration `json:"stepTimeout,omitempty" yaml:"stepTimeout,omitempty"`

	// KeepMessages leaves resolved control messages on the surface instead
	// of deleting them.
	KeepMessages bool `json:"keepMessages,omitempty" yaml:"keepMessages,omitempty"`
}

// EngineConfig holds workflow engine settings.
type EngineConfig struct {
	// PendingTTL is the ceiling after which an unattended request expires;
	// zero disables expiry.
	PendingTTL time.Duration `json:"pendingTTL,omitempty" yaml:"pendingTTL,omitempty"`

	// SweepInterval drives the background expiry sweep started with the
	// service; zero leaves expiry to explicit ExpireOverdue calls.
	SweepInterval time.Duration `json:"sweepInterval,omitempty" yaml:"sweepInterval,omitempty"`
}

// DefaultConfig returns a Config populated with the same defaults the
// constructors previously hard-coded.
func DefaultConfig() *Config {
	return &Config{
		Broker: correlation.DefaultConfig(),
		Dialog: DialogConfig{StepTimeout: 2 * time.Minute},
		Engine: EngineConfig{PendingTTL: 7 * 24 * time.Hour},
	}
}

// Validate returns an error describing invalid settings, or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Broker.MaxSessions < 0 {
		return fmt.Errorf("broker.maxSessions must not be negative")
	}
	if c.Dialog.StepTimeout < 0 {
		return fmt.Errorf("dialog.stepTimeout must not be negative")
	}
	if c.Engine.PendingTTL < 0 {
		return fmt.Errorf("engine.pendingTTL must not be negative")
	}
	if c.Engine.SweepInterval < 0 {
		return fmt.Errorf("engine.sweepInterval must not be negative")
	}
	return nil
}
