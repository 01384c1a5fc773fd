package dialog

import (
	"context"
	"sync"
	"time"
)

// Exchange chains several dialog steps with one human into a single logical
// conversation. Values collected along the way are threaded through the
// exchange itself rather than any process-wide state, so concurrent
// exchanges run by different operators never observe each other.
type Exchange struct {
	runner *Runner
	owner  string

	mu     sync.Mutex
	values map[string]string
}

// Exchange starts a new chained conversation with owner.
func (r *Runner) Exchange(owner string) *Exchange {
	return &Exchange{
		runner: r,
		owner:  owner,
		values: make(map[string]string),
	}
}

// Owner returns the identity this exchange talks to.
func (e *Exchange) Owner() string { return e.owner }

// Set stores a collected value on the exchange.
func (e *Exchange) Set(key, value string) {
	e.mu.Lock()
	e.values[key] = value
	e.mu.Unlock()
}

// Get returns a previously collected value.
func (e *Exchange) Get(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	value, ok := e.values[key]
	return value, ok
}

// Values returns a copy of everything collected so far.
func (e *Exchange) Values() map[string]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]string, len(e.values))
	for k, v := range e.values {
		out[k] = v
	}
	return out
}

// Buttons issues a ChoiceViaButtons step within the exchange and stores the
// picked option id under key when key is non-empty.
func (e *Exchange) Buttons(ctx context.Context, key, prompt string, options []Choice, timeout time.Duration) (*Choice, error) {
	choice, err := e.runner.ChoiceViaButtons(ctx, e.owner, prompt, options, timeout)
	if err != nil {
		return nil, err
	}
	if key != "" {
		e.Set(key, choice.ID)
	}
	return choice, nil
}

// List issues a ChoiceViaList step within the exchange.
func (e *Exchange) List(ctx context.Context, prompt string, options []Choice, minSelect, maxSelect int, timeout time.Duration) ([]Choice, error) {
	return e.runner.ChoiceViaList(ctx, e.owner, prompt, options, minSelect, maxSelect, timeout)
}

// Form issues a FreeTextForm step within the exchange; submitted values are
// merged into the exchange state.
func (e *Exchange) Form(ctx context.Context, prompt string, fields []Field, timeout time.Duration) (map[string]string, error) {
	values, err := e.runner.FreeTextForm(ctx, e.owner, prompt, fields, timeout)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	for k, v := range values {
		e.values[k] = v
	}
	e.mu.Unlock()
	return values, nil
}

// Confirm issues a Confirmation step within the exchange.
func (e *Exchange) Confirm(ctx context.Context, prompt string, timeout time.Duration) (bool, error) {
	return e.runner.Confirmation(ctx, e.owner, prompt, timeout)
}
