package dialog

import (
	"context"

	"github.com/guildware/quorum/runtime/correlation"
)

// Handle identifies one rendered message on the chat surface so that it can
// be edited or deleted later.
type Handle string

// Choice is one selectable option offered by a buttons or list step.
type Choice struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Field describes a single input element in a free-text form.
type Field struct {
	Name        string `json:"name"`
	Label       string `json:"label,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Required    bool   `json:"required,omitempty"`
	MaxLength   int    `json:"maxLength,omitempty"`
}

// Content is the renderable payload of one dialog turn: a prompt plus the
// interactive controls awaiting the owner's response. Every control set
// carries the correlation token of the session opened for it.
type Content struct {
	Text     string            `json:"text,omitempty"`
	Token    correlation.Token `json:"token,omitempty"`
	Kind     correlation.Kind  `json:"kind,omitempty"`
	Choices  []Choice          `json:"choices,omitempty"`
	Fields   []Field           `json:"fields,omitempty"`
	MinPicks int               `json:"minPicks,omitempty"`
	MaxPicks int               `json:"maxPicks,omitempty"`
}

// Surface is the narrow message-delivery capability the dialog runner
// consumes. Implementations are external; rendering and styling are out of
// scope for this core.
type Surface interface {
	// Render displays content and returns a handle to the created message.
	Render(ctx context.Context, content *Content) (Handle, error)

	// Edit replaces the content of a previously rendered message.
	Edit(ctx context.Context, handle Handle, content *Content) error

	// Delete removes a previously rendered message.
	Delete(ctx context.Context, handle Handle) error

	// SendDirect delivers content privately to the given identity.
	SendDirect(ctx context.Context, identity string, content *Content) error
}
