package correlation

import (
	"github.com/guildware/quorum/internal/idgen"
)

// Token is an opaque identifier binding one rendered control set to the
// session awaiting its response. Tokens are never reused while a session
// holding one is open.
type Token string

// NewToken mints a fresh correlation token.
func NewToken() Token {
	return Token(idgen.New())
}

// Kind describes which class of interaction a session expects.
type Kind string

const (
	KindButton Kind = "button"
	KindSelect Kind = "select"
	KindForm   Kind = "form"
)

// Event is one inbound interactive event as produced by the chat surface
// edge. Token and Discriminator are separate fields on purpose: the token
// routes the event to a session, the discriminator names the control within
// the rendered set (a button id, a select menu, a form field group).
type Event struct {
	Token         Token             `json:"token"`
	Discriminator string            `json:"discriminator,omitempty"`
	Actor         string            `json:"actor"`
	Kind          Kind              `json:"kind"`
	Values        []string          `json:"values,omitempty"`
	Fields        map[string]string `json:"fields,omitempty"`
}
