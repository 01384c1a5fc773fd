// Package hierarchy implements the ordinal rank model: a static table of
// rank definitions loaded once at configuration time and pure resolver
// functions over it (highest held rank, act-on authorization, promotion and
// demotion neighbours, promotion cooldown).
package hierarchy
