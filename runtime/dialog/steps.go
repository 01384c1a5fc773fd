package dialog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guildware/quorum/runtime/correlation"
)

// Step outcomes. Timeout and cancellation re-use the broker sentinels so a
// caller can match either layer with errors.Is.
var (
	ErrTimeout   = correlation.ErrTimedOut
	ErrCancelled = correlation.ErrCancelled

	// ErrBadSelection is returned when a list response violates the
	// configured min/max pick bounds or names an unknown option.
	ErrBadSelection = errors.New("dialog: selection out of bounds")

	// ErrMissingField is returned when a required form field came back empty.
	ErrMissingField = errors.New("dialog: required field missing")

	// ErrUnknownHandle is returned when editing a message that is no longer
	// present on the surface.
	ErrUnknownHandle = errors.New("dialog: unknown message handle")
)

// Runner issues dialog steps against one chat surface using one broker.
// It is safe for concurrent use; every step owns its private session.
type Runner struct {
	broker  *correlation.Broker
	surface Surface
	timeout time.Duration // fallback when a step passes timeout<=0
	cleanup bool          // delete the control message once resolved
}

// Option customises a Runner.
type Option func(*Runner)

// WithStepTimeout sets the fallback timeout applied when a step is issued
// with a non-positive one.
func WithStepTimeout(timeout time.Duration) Option {
	return func(r *Runner) { r.timeout = timeout }
}

// WithCleanup controls whether resolved control messages are deleted from
// the surface (default true).
func WithCleanup(cleanup bool) Option {
	return func(r *Runner) { r.cleanup = cleanup }
}

// NewRunner creates a dialog runner.
func NewRunner(broker *correlation.Broker, surface Surface, options ...Option) *Runner {
	ret := &Runner{
		broker:  broker,
		surface: surface,
		timeout: 2 * time.Minute,
		cleanup: true,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// step renders content bound to a fresh session, awaits its resolution and
// hands the winning event back. The rendered message is cleaned up on every
// outcome so no orphaned control set stays interactive.
func (r *Runner) step(ctx context.Context, owner string, kind correlation.Kind, timeout time.Duration, content *Content) (*correlation.Event, Handle, error) {
	if timeout <= 0 {
		timeout = r.timeout
	}
	session, err := r.broker.Open(owner, kind, timeout)
	if err != nil {
		return nil, "", err
	}
	content.Token = session.Token()
	content.Kind = kind

	handle, err := r.surface.Render(ctx, content)
	if err != nil {
		r.broker.Cancel(session.Token())
		return nil, "", fmt.Errorf("failed to render dialog step: %w", err)
	}

	event, err := session.Await(ctx)
	if r.cleanup {
		_ = r.surface.Delete(ctx, handle)
		handle = ""
	}
	if err != nil {
		return nil, handle, err
	}
	return event, handle, nil
}

// ChoiceViaButtons renders prompt with one button per option and returns the
// option the owner pressed.
func (r *Runner) ChoiceViaButtons(ctx context.Context, owner, prompt string, options []Choice, timeout time.Duration) (*Choice, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("at least one option is required")
	}
	content := &Content{Text: prompt, Choices: options}
	event, _, err := r.step(ctx, owner, correlation.KindButton, timeout, content)
	if err != nil {
		return nil, err
	}
	for i := range options {
		if options[i].ID == event.Discriminator {
			return &options[i], nil
		}
	}
	return nil, fmt.Errorf("dialog: unknown choice %q", event.Discriminator)
}

// ChoiceViaList renders prompt with a selectable list and returns the picked
// options, enforcing the min/max selection bounds.
func (r *Runner) ChoiceViaList(ctx context.Context, owner, prompt string, options []Choice, minSelect, maxSelect int, timeout time.Duration) ([]Choice, error) {
	if len(options) == 0 {
		return nil, fmt.Errorf("at least one option is required")
	}
	if minSelect <= 0 {
		minSelect = 1
	}
	if maxSelect <= 0 {
		maxSelect = len(options)
	}
	content := &Content{Text: prompt, Choices: options, MinPicks: minSelect, MaxPicks: maxSelect}
	event, _, err := r.step(ctx, owner, correlation.KindSelect, timeout, content)
	if err != nil {
		return nil, err
	}
	if len(event.Values) < minSelect || len(event.Values) > maxSelect {
		return nil, ErrBadSelection
	}
	byID := make(map[string]*Choice, len(options))
	for i := range options {
		byID[options[i].ID] = &options[i]
	}
	picked := make([]Choice, 0, len(event.Values))
	for _, id := range event.Values {
		choice, ok := byID[id]
		if !ok {
			return nil, ErrBadSelection
		}
		picked = append(picked, *choice)
	}
	return picked, nil
}

// FreeTextForm renders a multi-field form and returns the submitted values
// keyed by field name.
func (r *Runner) FreeTextForm(ctx context.Context, owner, prompt string, fields []Field, timeout time.Duration) (map[string]string, error) {
	if len(fields) == 0 {
		return map[string]string{}, nil
	}
	content := &Content{Text: prompt, Fields: fields}
	event, _, err := r.step(ctx, owner, correlation.KindForm, timeout, content)
	if err != nil {
		return nil, err
	}
	values := make(map[string]string, len(fields))
	for _, field := range fields {
		value := event.Fields[field.Name]
		if field.Required && value == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, field.Name)
		}
		if field.MaxLength > 0 {
			// Truncate on rune boundaries so multibyte input stays valid.
			if runes := []rune(value); len(runes) > field.MaxLength {
				value = string(runes[:field.MaxLength])
			}
		}
		values[field.Name] = value
	}
	return values, nil
}

// Confirmation is a fixed two-option ChoiceViaButtons returning true for yes.
func (r *Runner) Confirmation(ctx context.Context, owner, prompt string, timeout time.Duration) (bool, error) {
	choice, err := r.ChoiceViaButtons(ctx, owner, prompt, []Choice{
		{ID: "yes", Label: "Yes"},
		{ID: "no", Label: "No"},
	}, timeout)
	if err != nil {
		return false, err
	}
	return choice.ID == "yes", nil
}
